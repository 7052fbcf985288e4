// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/registry"
)

// NewRegistry returns a registry holding every built-in node kind.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultKinds()

	return reg
}
