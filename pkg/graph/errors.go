package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates a node ID is not present in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates a node with the same ID already exists.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrInvalidNode indicates a node without an ID or with an unknown kind.
	ErrInvalidNode = errors.New("invalid node")

	// ErrConnectionNotFound indicates no connection exists between two nodes.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrDuplicateConnection indicates the source is already connected to the target.
	ErrDuplicateConnection = errors.New("duplicate connection")
)

// Error wraps a graph error with the operation and the node IDs involved.
type Error struct {
	Op       string // Operation being performed (e.g. "AddNode", "AddConnection")
	NodeID   string // Node ID, or the source ID for connection operations
	TargetID string // Target ID for connection operations
	Err      error
}

func (e *Error) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.NodeID, e.TargetID, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNodeNotFound checks if an error indicates a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsDuplicateNode checks if an error indicates a duplicate node ID.
func IsDuplicateNode(err error) bool {
	return errors.Is(err, ErrDuplicateNode)
}

// IsDuplicateConnection checks if an error indicates an already existing connection.
func IsDuplicateConnection(err error) bool {
	return errors.Is(err, ErrDuplicateConnection)
}

// IsConnectionNotFound checks if an error indicates a missing connection.
func IsConnectionNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}
