// Package badger stores workflow documents in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "workflow/"

// Config configures the database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	InMemory bool

	SyncWrites bool

	Logger *slog.Logger

	// GCInterval is the value log GC period. Zero disables GC.
	GCInterval time.Duration

	GCDiscardRatio float64
}

func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// ConfigFromURL maps badger:///path/to/dir to a persistent config and
// badger://memory to an in-memory one.
func ConfigFromURL(databaseURL string) Config {
	path := strings.TrimPrefix(databaseURL, "badger://")
	if path == "memory" || path == "" {
		return InMemoryConfig()
	}

	cfg := DefaultConfig()
	cfg.Path = path

	return cfg
}

// badgerLogger routes BadgerDB logs to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type Persistence struct {
	db     *badger.DB
	logger *slog.Logger
	stop   chan struct{}
	done   chan struct{}
}

// NewPersistence opens the database and starts the value log GC loop when
// configured.
func NewPersistence(cfg Config) (*Persistence, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}

		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.With("module", "badger")})
	} else {
		logger = slog.Default()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	p := &Persistence{
		db:     db,
		logger: logger.With("module", "badger_persistence"),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		p.stop = make(chan struct{})
		p.done = make(chan struct{})

		go p.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return p, nil
}

func (p *Persistence) runGC(interval time.Duration, ratio float64) {
	defer close(p.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			err := p.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				p.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

func (p *Persistence) Close(_ context.Context) error {
	if p.stop != nil {
		close(p.stop)
		<-p.done
	}

	return p.db.Close()
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if p.db.IsClosed() {
		return errors.New("badger database is closed")
	}

	return nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, doc *persistence.Document) error {
	if err := persistence.ValidateName(doc.Name); err != nil {
		return persistence.NewWorkflowError("Save", doc.Name, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+doc.Name), payload)
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", doc.Name, err)
	}

	return nil
}

func (p *Persistence) WorkflowByName(_ context.Context, name string) (*persistence.Document, error) {
	var payload []byte

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + name))
		if err != nil {
			return err
		}

		payload, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, persistence.NewWorkflowError("Load", name, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", name, err)
	}

	return decode(name, payload)
}

// Workflows iterates the key space in order, so documents come back sorted by
// name.
func (p *Persistence) Workflows(_ context.Context) ([]*persistence.Document, error) {
	docs := make([]*persistence.Document, 0)

	err := p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), keyPrefix)

			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			doc, err := decode(name, payload)
			if err != nil {
				return err
			}

			docs = append(docs, doc)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return docs, nil
}

func (p *Persistence) DeleteWorkflow(_ context.Context, name string) error {
	key := []byte(keyPrefix + name)

	err := p.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}

		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return persistence.NewWorkflowError("Delete", name, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", name, err)
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
