package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/badger"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/file"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/postgresql"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss", "badger"}

// NewPersistence picks the document store from the URL scheme. A URL without
// a known scheme is treated as a file system root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	case "badger":
		cfg := badger.ConfigFromURL(databaseURL)
		cfg.Logger = logger

		store, err := badger.NewPersistence(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(logger, databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
