package mocks

import (
	"context"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of execution.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, node *models.Node, vars map[string]string) (string, error) {
	args := m.Called(ctx, node.ID, vars)

	return args.String(0), args.Error(1)
}
