package mocks

import (
	"context"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Workflows(ctx context.Context) ([]*persistence.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.Document), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, doc *persistence.Document) error {
	args := m.Called(ctx, doc)

	return args.Error(0)
}

func (m *MockPersistence) WorkflowByName(ctx context.Context, name string) (*persistence.Document, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.Document), args.Error(1)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
