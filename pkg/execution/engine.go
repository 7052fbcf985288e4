// Package execution runs a workflow graph depth first and streams node events.
package execution

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnresolvedBranch is reported when the chosen branch of a CONDITION node
// has no target.
var ErrUnresolvedBranch = errors.New("unresolved branch")

// Runner executes the business logic of a node.
type Runner interface {
	Run(ctx context.Context, node *models.Node, vars map[string]string) (string, error)
}

// Notifier receives the events of every run.
type Notifier interface {
	Notify(ctx context.Context, event events.Event)
}

// Engine executes graphs. It keeps no state between runs.
type Engine struct {
	graph       *graph.Graph
	logger      *slog.Logger
	runner      Runner
	notifier    Notifier
	tracer      trace.Tracer
	metrics     *metrics.Recorder
	interpreter models.ConditionInterpreter
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the node logic runner.
func WithRunner(runner Runner) Option {
	return func(e *Engine) { e.runner = runner }
}

// WithNotifier publishes every run event to notifier.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithTracer sets the tracer used for run and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithMetrics records node states and run durations.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = recorder }
}

func NewEngine(g *graph.Graph, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		graph:  g,
		logger: logger.With("component", "execution"),
		runner: nodes.Runner{},
		tracer: otelhelper.Tracer("workflow-execution"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Execute returns the event stream of a depth-first run from each start node
// in order. The run happens while the caller ranges over the sequence; every
// range starts a fresh run with an empty visited set. ctx is checked once per
// traversal step and a cancelled run ends with a CANCELLED event.
func (e *Engine) Execute(ctx context.Context, startIDs []string, vars map[string]string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		r := &run{
			engine:  e,
			id:      uuid.NewString(),
			vars:    vars,
			visited: make(map[string]bool),
			yield:   yield,
		}

		r.execute(ctx, slices.Clone(startIDs))
	}
}

// Collect runs the graph and returns every event with the run summary.
func (e *Engine) Collect(ctx context.Context, startIDs []string, vars map[string]string) ([]Event, Summary) {
	var (
		collected []Event
		summary   Summary
	)

	for event := range e.Execute(ctx, startIDs, vars) {
		collected = append(collected, event)
		summary.Add(event)
	}

	return collected, summary
}

type run struct {
	engine  *Engine
	id      string
	vars    map[string]string
	visited map[string]bool
	yield   func(Event) bool
	summary Summary
	stopped bool
}

func (r *run) execute(ctx context.Context, startIDs []string) {
	started := time.Now()
	logger := r.engine.logger.With("run_id", r.id)

	ctx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "workflow.execute",
		attribute.String(otelhelper.RunIDKey, r.id),
		attribute.StringSlice("workflow.start_ids", startIDs))
	defer span.End()

	logger.InfoContext(ctx, "Starting workflow run", "start_ids", startIDs)
	r.notify(ctx, events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent),
		RunID:     r.id,
		StartIDs:  startIDs,
	})

	for _, startID := range startIDs {
		if !r.traverse(ctx, startID) {
			break
		}
	}

	duration := time.Since(started)
	outcome := r.summary.Outcome()

	if r.summary.Failed > 0 || r.summary.Cancelled {
		otelhelper.SetError(span, fmt.Errorf("run %s %s", r.id, outcome),
			attribute.Int("workflow.failed", r.summary.Failed))
	}

	r.engine.metrics.Run(outcome, duration)
	r.notify(ctx, events.ExecutionFinished{
		BaseEvent: events.NewBaseEvent(events.ExecutionFinishedEvent),
		RunID:     r.id,
		Done:      r.summary.Done,
		Failed:    r.summary.Failed,
		Skipped:   r.summary.Skipped,
		Cancelled: r.summary.Cancelled,
		Duration:  duration,
	})

	logger.InfoContext(ctx, "Workflow run finished",
		"outcome", outcome,
		"done", r.summary.Done,
		"failed", r.summary.Failed,
		"skipped", r.summary.Skipped,
		"duration", duration)
}

// traverse walks the subtree of startID depth first. It returns false when the
// run must stop: the consumer quit or ctx was cancelled.
func (r *run) traverse(ctx context.Context, startID string) bool {
	stack := []string{startID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			r.emit(ctx, nil, Event{NodeID: id, State: StateCancelled, Message: err.Error()})

			return false
		}

		successors, ok := r.step(ctx, id)
		if !ok {
			return false
		}

		for i := len(successors) - 1; i >= 0; i-- {
			stack = append(stack, successors[i])
		}
	}

	return true
}

// step processes one node and returns the successors to visit.
func (r *run) step(ctx context.Context, id string) ([]string, bool) {
	node, err := r.engine.graph.FindByID(id)
	if err != nil {
		return nil, r.emit(ctx, nil, Event{NodeID: id, State: StateFailed, Message: err.Error()})
	}

	if r.visited[id] {
		return nil, r.emit(ctx, node, Event{NodeID: id, State: StateSkipped, Message: messageVisited})
	}

	r.visited[id] = true

	if !r.emit(ctx, node, Event{NodeID: id, State: StateReady}) {
		return nil, false
	}

	if node.Kind.IsPassive() {
		return r.successors(node), r.emit(ctx, node, Event{NodeID: id, State: StateSkipped, Message: passiveMessage(node)})
	}

	if !r.emit(ctx, node, Event{NodeID: id, State: StateRunning}) {
		return nil, false
	}

	message, next, err := r.run(ctx, node)
	if err != nil {
		r.engine.logger.WarnContext(ctx, "Node failed", "run_id", r.id, "node_id", id, "kind", node.Kind, "error", err)

		return nil, r.emit(ctx, node, Event{NodeID: id, State: StateFailed, Message: err.Error()})
	}

	return next, r.emit(ctx, node, Event{NodeID: id, State: StateDone, Message: message})
}

// run executes the node logic inside its own span. Panics are converted into
// errors so one node cannot abort the run.
func (r *run) run(ctx context.Context, node *models.Node) (message string, next []string, err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "node.execute",
		attribute.String(otelhelper.RunIDKey, r.id),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)))
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("node %s panicked: %v", node.ID, recovered)
		}

		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))
		}
	}()

	message, err = r.engine.runner.Run(ctx, node, r.vars)
	if err != nil {
		return "", nil, err
	}

	if node.Kind != models.KindCondition {
		return message, r.successors(node), nil
	}

	return r.branch(node)
}

// branch evaluates a CONDITION node and selects exactly one successor.
func (r *run) branch(node *models.Node) (string, []string, error) {
	expression := nodes.Expression(node)
	result := r.engine.interpreter.Evaluate(expression, r.vars)

	label := models.LabelNo
	yes, no := r.engine.graph.BranchTargets(node.ID)
	target := no

	if result {
		label = models.LabelYes
		target = yes
	}

	if target == "" {
		return "", nil, fmt.Errorf("%w: %q evaluated to %t but no %s branch is connected", ErrUnresolvedBranch, expression, result, label)
	}

	if _, ok := r.engine.graph.Connection(node.ID, target); !ok {
		return "", nil, fmt.Errorf("%w: %s branch points at %s, which is not connected", ErrUnresolvedBranch, label, target)
	}

	return fmt.Sprintf("%q evaluated to %t, following %s to %s", expression, result, label, target), []string{target}, nil
}

func (r *run) successors(node *models.Node) []string {
	outgoing := r.engine.graph.ConnectionsFrom(node.ID)

	next := make([]string, 0, len(outgoing))
	for _, conn := range outgoing {
		next = append(next, conn.TargetID)
	}

	return next
}

// emit hands the event to the consumer and the notifier. It returns false
// once the consumer stops ranging.
func (r *run) emit(ctx context.Context, node *models.Node, event Event) bool {
	kind := ""
	if node != nil {
		kind = string(node.Kind)
	}

	if event.State.Terminal() {
		r.summary.Add(event)
		r.engine.metrics.NodeState(kind, string(event.State))
	}

	r.notify(ctx, events.NodeStateChanged{
		BaseEvent: events.NewBaseEvent(events.NodeStateChangedEvent),
		RunID:     r.id,
		NodeID:    event.NodeID,
		NodeKind:  kind,
		State:     string(event.State),
		Message:   event.Message,
	})

	if r.stopped {
		return false
	}

	if !r.yield(event) {
		r.stopped = true

		return false
	}

	return true
}

func (r *run) notify(ctx context.Context, event events.Event) {
	if r.engine.notifier != nil {
		r.engine.notifier.Notify(ctx, event)
	}
}
