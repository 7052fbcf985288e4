// Package scheduler runs stored workflows on cron schedules.
package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrDuplicateJob = errors.New("job already scheduled")
	ErrJobNotFound  = errors.New("job not found")
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev"`
}

type scheduled struct {
	id       cron.EntryID
	schedule string
	job      Job
}

// Scheduler wraps a cron runner. A run of a job is skipped while its previous
// run is still going, and panics inside jobs are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]scheduled
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("module", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		logger: logger,
		ctx:    context.Background(),
		jobs:   make(map[string]scheduled),
	}
}

// Validate checks a standard five field cron expression or descriptor such as
// "@every 5m".
func Validate(expr string) error {
	if expr == "" {
		return errors.New("cron expression is required")
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Add schedules job under name.
func (s *Scheduler) Add(name, expr string, job Job) error {
	if err := Validate(expr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	id, err := s.cron.AddFunc(expr, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}

	s.jobs[name] = scheduled{id: id, schedule: expr, job: job}
	s.logger.Info("Job scheduled", "name", name, "schedule", expr, "entry_id", id)

	return nil
}

// Remove unschedules a job.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.cron.Remove(entry.id)
	delete(s.jobs, name)

	return nil
}

// RunNow runs a scheduled job immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return entry.job(ctx)
}

// Entries lists the scheduled jobs ordered by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.jobs))

	for name, job := range s.jobs {
		cronEntry := s.cron.Entry(job.id)
		entries = append(entries, Entry{
			Name:     name,
			Schedule: job.schedule,
			Next:     cronEntry.Next,
			Prev:     cronEntry.Prev,
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Name, b.Name) })

	return entries
}

// Start begins firing jobs. ctx is handed to every job run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Starting scheduler", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping scheduler")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	started := time.Now()
	s.logger.InfoContext(ctx, "Cron job triggered", "name", name)

	if err := job(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled job failed", "name", name, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled job finished", "name", name, "duration", time.Since(started))
}
