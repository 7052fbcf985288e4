package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates no document is stored under the given name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidName indicates a workflow name cannot be used as a storage key.
	ErrInvalidName = errors.New("invalid workflow name")

	// ErrInvalidDocument indicates a document failed schema or struct validation.
	ErrInvalidDocument = errors.New("invalid workflow document")

	// ErrUnsupportedFormat indicates a file extension with no codec.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// WorkflowError wraps document errors with the operation and workflow name.
type WorkflowError struct {
	Op      string // Operation being performed (e.g. "Save", "Load", "Build")
	Name    string // Workflow name if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.Name, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.Name, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, name string, err error) *WorkflowError {
	return &WorkflowError{
		Op:   op,
		Name: name,
		Err:  err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidDocument checks if an error indicates a rejected document.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}
