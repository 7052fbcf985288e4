// Package persistence stores named workflow documents.
package persistence

import (
	"context"
)

// Persistence is implemented by every document store.
type Persistence interface {
	// Workflows returns every stored document ordered by name.
	Workflows(ctx context.Context) ([]*Document, error)
	// SaveWorkflow stores the document under its name, replacing any previous
	// version.
	SaveWorkflow(ctx context.Context, doc *Document) error
	// WorkflowByName returns ErrWorkflowNotFound when nothing is stored under
	// name.
	WorkflowByName(ctx context.Context, name string) (*Document, error)
	DeleteWorkflow(ctx context.Context, name string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
