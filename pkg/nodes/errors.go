package nodes

import (
	"errors"
	"fmt"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
)

var (
	// ErrNodeInvalid indicates a node failed the validity rule of its kind.
	ErrNodeInvalid = errors.New("node failed validation")

	// ErrUnsupportedOperation indicates a node kind does not support an operation.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrMissingContext indicates context-aware logic did not find a required variable.
	ErrMissingContext = errors.New("missing context variable")
)

// ConstructionError is returned by the factory when a node cannot be built.
type ConstructionError struct {
	Kind models.NodeKind
	ID   string
	Name string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("cannot create %s node %q (id %s): %v", e.Kind, e.Name, e.ID, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func (e *ConstructionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsConstructionError checks if an error was raised while building a node.
func IsConstructionError(err error) bool {
	var target *ConstructionError

	return errors.As(err, &target)
}

// IsUnsupportedOperation checks if an error indicates an unsupported operation.
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}
