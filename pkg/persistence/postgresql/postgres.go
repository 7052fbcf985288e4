// Package postgresql stores workflow documents in PostgreSQL as JSONB.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to databaseURL and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// SaveWorkflow upserts the document under its name.
func (p *Persistence) SaveWorkflow(ctx context.Context, doc *persistence.Document) error {
	if err := persistence.ValidateName(doc.Name); err != nil {
		return persistence.NewWorkflowError("Save", doc.Name, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	query := `
		INSERT INTO workflow_documents (name, document, node_count, connection_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			document = EXCLUDED.document
		  , node_count = EXCLUDED.node_count
		  , connection_count = EXCLUDED.connection_count
		  , updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query, doc.Name, payload, len(doc.Nodes), len(doc.Connections))
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", doc.Name, err)
	}

	p.logger.DebugContext(ctx, "Workflow saved", "name", doc.Name, "nodes", len(doc.Nodes))

	return nil
}

func (p *Persistence) WorkflowByName(ctx context.Context, name string) (*persistence.Document, error) {
	var payload []byte

	err := p.db.QueryRowContext(ctx, "SELECT document FROM workflow_documents WHERE name = $1", name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("Load", name, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query workflow %s: %w", name, err)
	}

	return decode(name, payload)
}

// Workflows returns every document ordered by name.
func (p *Persistence) Workflows(ctx context.Context) ([]*persistence.Document, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT name, document FROM workflow_documents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]*persistence.Document, 0)

	for rows.Next() {
		var (
			name    string
			payload []byte
		)

		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		doc, err := decode(name, payload)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return docs, nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, name string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM workflow_documents WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", name, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", name, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func decode(name string, payload []byte) (*persistence.Document, error) {
	doc, err := persistence.Unmarshal(payload, persistence.FormatJSON)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", name, err)
	}

	doc.Name = name

	return doc, nil
}
