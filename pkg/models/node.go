package models

import (
	"fmt"
	"maps"
	"strings"
)

// Branch labels recognised on connections leaving a CONDITION node.
const (
	LabelYes = "YES"
	LabelNo  = "NO"
)

// Position is the canvas placement of a node. The core stores it but never
// interprets it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Condition holds the branching data of a CONDITION node. Targets are node IDs.
type Condition struct {
	Expression string `json:"expression"`
	YesTarget  string `json:"yes_target,omitempty"`
	NoTarget   string `json:"no_target,omitempty"`
}

// Node is a single vertex of the workflow graph.
type Node struct {
	ID          string            `json:"id"                    validate:"required"`
	Name        string            `json:"name"`
	Kind        NodeKind          `json:"type"                  validate:"required"`
	Details     string            `json:"details,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Position    Position          `json:"position"`
	Condition   *Condition        `json:"condition,omitempty"`
}

// Describe returns the description of the node, falling back to its kind.
func (n *Node) Describe() string {
	if n.Description != "" {
		return n.Description
	}

	return fmt.Sprintf("%s node %s", n.Kind.DisplayName(), n.Name)
}

// AddMetadata stores a key/value pair on the node.
func (n *Node) AddMetadata(key, value string) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}

	n.Metadata[key] = value
}

// AddMetadataKey stores a key with an empty value.
func (n *Node) AddMetadataKey(key string) {
	n.AddMetadata(key, "")
}

// MergeMetadata copies every entry of values into the node metadata.
func (n *Node) MergeMetadata(values map[string]string) {
	for key, value := range values {
		n.AddMetadata(key, value)
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := *n
	clone.Metadata = maps.Clone(n.Metadata)

	if n.Condition != nil {
		condition := *n.Condition
		clone.Condition = &condition
	}

	return &clone
}

func (n *Node) String() string {
	return fmt.Sprintf("[%s] %s (ID: %s)", n.Kind, n.Name, n.ID)
}

// Connection is a directed edge between two nodes, referenced by ID.
type Connection struct {
	SourceID string `json:"sourceId"        validate:"required"`
	TargetID string `json:"targetId"        validate:"required"`
	Label    string `json:"label,omitempty"`
}

// NormalizeLabel upper-cases the YES/NO branch labels and trims every other
// label. A blank label becomes the empty string.
func NormalizeLabel(label string) string {
	trimmed := strings.TrimSpace(label)

	switch {
	case strings.EqualFold(trimmed, LabelYes):
		return LabelYes
	case strings.EqualFold(trimmed, LabelNo):
		return LabelNo
	default:
		return trimmed
	}
}

// IsBranch reports whether the connection carries a YES or NO label.
func (c Connection) IsBranch() bool {
	label := NormalizeLabel(c.Label)

	return label == LabelYes || label == LabelNo
}

func (c Connection) String() string {
	if c.Label == "" {
		return c.SourceID + " -> " + c.TargetID
	}

	return fmt.Sprintf("%s -[%s]-> %s", c.SourceID, c.Label, c.TargetID)
}
