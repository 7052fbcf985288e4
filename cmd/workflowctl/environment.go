package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/cmd"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/eventbus"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/log"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/otelhelper"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/file"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/registry"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "workflowctl"

// environment holds the collaborators built from the global flags.
type environment struct {
	logger      *slog.Logger
	factory     *nodes.Factory
	registry    *registry.Registry
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	prometheus  *prometheus.Registry
	metrics     *metrics.Recorder
	options     []services.WorkspaceOption
	shutdown    []func(context.Context) error
}

func setup(ctx context.Context, command *cli.Command) (*environment, error) {
	log.Setup(command.String("log-level"))

	env := &environment{
		logger:     log.WithModule(serviceName),
		prometheus: prometheus.NewRegistry(),
	}

	env.prometheus.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	env.metrics = metrics.New(env.prometheus)
	env.factory = nodes.NewFactory(env.logger)
	env.registry = cmd.NewRegistry(env.logger)

	store, err := cmd.NewPersistence(ctx, env.logger, command.String("database-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	env.persistence = store
	env.shutdown = append(env.shutdown, store.Close)

	env.options = []services.WorkspaceOption{
		services.WithPersistence(store),
		services.WithMetrics(env.metrics),
		services.WithHistorySize(command.Int("history-size")),
	}

	if provider := command.String("event-bus"); provider != "" {
		bus, err := cmd.NewEventBus(provider, serviceName, env.logger)
		if err != nil {
			return nil, errors.Join(err, env.close(ctx))
		}

		env.eventBus = bus
		env.options = append(env.options, services.WithEventBus(bus))
		env.shutdown = append(env.shutdown, func(context.Context) error { return bus.Close() })
	}

	if command.Bool("tracing") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize tracer: %w", err), env.close(ctx))
		}

		env.options = append(env.options, services.WithTracer(tracer))
		env.shutdown = append(env.shutdown, func(ctx context.Context) error { return shutdown(ctx) })
	}

	return env, nil
}

func (env *environment) workspace() *services.Workspace {
	return services.NewWorkspace(env.factory, env.logger, env.options...)
}

// load restores a workflow into ws. A reference with a .json, .yaml or .yml
// extension is read from disk; anything else is a stored workflow name.
func (env *environment) load(ctx context.Context, ws *services.Workspace, ref string) error {
	if ref == "" {
		return errors.New("a workflow file or name is required")
	}

	if _, err := persistence.FormatFromPath(ref); err != nil {
		return ws.Load(ctx, ref)
	}

	doc, err := file.Read(ref)
	if err != nil {
		return err
	}

	if doc.Name == "" {
		doc.Name = trimExt(filepath.Base(ref))
	}

	return ws.Restore(ctx, doc)
}

func (env *environment) close(ctx context.Context) error {
	var errs []error

	for i := len(env.shutdown) - 1; i >= 0; i-- {
		if err := env.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
