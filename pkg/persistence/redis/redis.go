// Package redis stores workflow documents in Redis. Each document lives under
// its own key and a set indexes the stored names.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "workflow:document:"
	indexKey  = "workflow:names"
)

// Client is the subset of the go-redis client used by the store.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *goredis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *goredis.IntCmd
	SMembers(ctx context.Context, key string) *goredis.StringSliceCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

type Persistence struct {
	client Client
	logger *slog.Logger
}

// NewPersistence connects to a redis:// or rediss:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	options, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := goredis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}

	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
	}
}

func (r *Persistence) Close(_ context.Context) error {
	return r.client.Close()
}

func (r *Persistence) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

func (r *Persistence) SaveWorkflow(ctx context.Context, doc *persistence.Document) error {
	if err := persistence.ValidateName(doc.Name); err != nil {
		return persistence.NewWorkflowError("Save", doc.Name, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+doc.Name, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", doc.Name, err)
	}

	if err := r.client.SAdd(ctx, indexKey, doc.Name).Err(); err != nil {
		return fmt.Errorf("failed to index workflow %s: %w", doc.Name, err)
	}

	r.logger.DebugContext(ctx, "Workflow saved", "name", doc.Name)

	return nil
}

func (r *Persistence) WorkflowByName(ctx context.Context, name string) (*persistence.Document, error) {
	payload, err := r.client.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewWorkflowError("Load", name, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", name, err)
	}

	doc, err := persistence.Unmarshal(payload, persistence.FormatJSON)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", name, err)
	}

	doc.Name = name

	return doc, nil
}

// Workflows returns every indexed document ordered by name. Index entries
// whose document has expired or was removed are pruned.
func (r *Persistence) Workflows(ctx context.Context) ([]*persistence.Document, error) {
	names, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	slices.Sort(names)

	docs := make([]*persistence.Document, 0, len(names))

	for _, name := range names {
		doc, err := r.WorkflowByName(ctx, name)
		if persistence.IsWorkflowNotFound(err) {
			r.logger.WarnContext(ctx, "Pruning stale workflow index entry", "name", name)
			_ = r.client.SRem(ctx, indexKey, name).Err()

			continue
		}

		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (r *Persistence) DeleteWorkflow(ctx context.Context, name string) error {
	removed, err := r.client.Del(ctx, keyPrefix+name).Result()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", name, err)
	}

	if err := r.client.SRem(ctx, indexKey, name).Err(); err != nil {
		return fmt.Errorf("failed to unindex workflow %s: %w", name, err)
	}

	if removed == 0 {
		return persistence.NewWorkflowError("Delete", name, persistence.ErrWorkflowNotFound)
	}

	return nil
}
