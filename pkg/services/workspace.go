package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/eventbus"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/execution"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/history"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/nodes"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/validation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWorkflowName names a workspace that was never saved or loaded.
const DefaultWorkflowName = "untitled"

// RunResult is the outcome of validating and executing the whole workflow.
type RunResult struct {
	Valid       bool                    `json:"valid"`
	Diagnostics []validation.Diagnostic `json:"diagnostics,omitempty"`
	Events      []execution.Event       `json:"events,omitempty"`
	Summary     execution.Summary       `json:"summary"`
}

// Workspace is the editing and execution surface over one workflow graph.
// Calls are serialized, so a Workspace may be shared by HTTP handlers.
// Event handlers run while the workspace is locked and must not call back
// into it.
type Workspace struct {
	mu sync.Mutex

	logger      *slog.Logger
	factory     *nodes.Factory
	notifier    *events.Notifier
	persistence persistence.Persistence
	metrics     *metrics.Recorder
	tracer      trace.Tracer
	runner      execution.Runner
	historySize int
	publisher   eventbus.EventPublisher

	name    string
	graph   *graph.Graph
	history *history.Manager
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithPersistence enables Save and Load.
func WithPersistence(p persistence.Persistence) WorkspaceOption {
	return func(w *Workspace) { w.persistence = p }
}

// WithHistorySize bounds the undo and redo stacks.
func WithHistorySize(size int) WorkspaceOption {
	return func(w *Workspace) { w.historySize = size }
}

func WithMetrics(recorder *metrics.Recorder) WorkspaceOption {
	return func(w *Workspace) { w.metrics = recorder }
}

func WithTracer(tracer trace.Tracer) WorkspaceOption {
	return func(w *Workspace) { w.tracer = tracer }
}

// WithRunner replaces the node logic used by Execute and Run.
func WithRunner(runner execution.Runner) WorkspaceOption {
	return func(w *Workspace) { w.runner = runner }
}

// WithEventBus publishes every workspace event to bus.
func WithEventBus(bus eventbus.EventPublisher) WorkspaceOption {
	return func(w *Workspace) { w.publisher = bus }
}

// NewWorkspace returns an empty workspace.
func NewWorkspace(factory *nodes.Factory, logger *slog.Logger, opts ...WorkspaceOption) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}

	if factory == nil {
		factory = nodes.NewFactory(logger)
	}

	w := &Workspace{
		logger:      logger.With("module", "workspace"),
		factory:     factory,
		notifier:    events.NewNotifier(logger),
		historySize: history.DefaultCapacity,
		name:        DefaultWorkflowName,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.publisher != nil {
		w.notifier.Subscribe(eventbus.Forward(w.publisher, w.logger))
	}

	w.reset(graph.New(logger))

	return w
}

func (w *Workspace) reset(g *graph.Graph) {
	w.graph = g
	w.history = history.NewManager(g, w.logger,
		history.WithCapacity(w.historySize),
		history.WithNotifier(w.notifier),
		history.WithMetrics(w.metrics),
	)
}

// Subscribe registers handler for every workspace event and returns a function
// removing it.
func (w *Workspace) Subscribe(handler events.Handler) func() {
	return w.notifier.Subscribe(handler)
}

// Name returns the workflow name used by Save.
func (w *Workspace) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.name
}

// NodeOption sets optional node fields at creation.
type NodeOption func(*models.Node)

func AtPosition(x, y float64) NodeOption {
	return func(n *models.Node) { n.Position = models.Position{X: x, Y: y} }
}

func WithDescription(description string) NodeOption {
	return func(n *models.Node) {
		if description != "" {
			n.Description = description
		}
	}
}

func WithMetadata(metadata map[string]string) NodeOption {
	return func(n *models.Node) { n.MergeMetadata(metadata) }
}

// Create builds a node and adds it through the history. An empty id is
// generated, an empty name becomes "Unnamed Node" and an empty payload takes
// the default of the kind.
func (w *Workspace) Create(
	ctx context.Context,
	kind models.NodeKind,
	id, name, payload string,
	opts ...NodeOption,
) (*models.Node, error) {
	if id == "" {
		id = w.factory.NextID()
	}

	if name == "" {
		name = nodes.UnnamedNode
	}

	if payload == "" {
		payload = nodes.DefaultPayload(kind)
	}

	node, err := w.factory.Create(kind, id, name, payload)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(node)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.history.Do(ctx, history.CreateNode(node)); err != nil {
		return nil, err
	}

	w.logger.InfoContext(ctx, "Node created", "node_id", node.ID, "kind", kind)

	return w.graph.MustFind(node.ID).Clone(), nil
}

// Connect links two nodes. A YES or NO label on a connection leaving a
// CONDITION node sets its branch target.
func (w *Workspace) Connect(ctx context.Context, sourceID, targetID, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.history.Do(ctx, history.ConnectNodes(sourceID, targetID, label))
}

func (w *Workspace) Disconnect(ctx context.Context, sourceID, targetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, err := history.DisconnectNodes(w.graph, sourceID, targetID)
	if err != nil {
		return err
	}

	return w.history.Do(ctx, action)
}

func (w *Workspace) Move(ctx context.Context, id string, x, y float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, err := history.MoveNode(w.graph, id, x, y)
	if err != nil {
		return err
	}

	return w.history.Do(ctx, action)
}

// Delete removes a node with its incident connections. Undo restores both.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, err := history.DeleteNode(w.graph, id)
	if err != nil {
		return err
	}

	return w.history.Do(ctx, action)
}

// Node returns a copy of the node.
func (w *Workspace) Node(id string) (*models.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	node, err := w.graph.FindByID(id)
	if err != nil {
		return nil, err
	}

	return node.Clone(), nil
}

// Nodes returns copies of every node in insertion order.
func (w *Workspace) Nodes() []*models.Node {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.graph.ListNodes()
	for i, node := range list {
		list[i] = node.Clone()
	}

	return list
}

func (w *Workspace) Connections() []models.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.graph.ListConnections()
}

// Validate checks nodeIDs with reachability measured from startID.
func (w *Workspace) Validate(ctx context.Context, startID string, nodeIDs []string) (bool, []validation.Diagnostic) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok, diagnostics := validation.New(w.graph, w.logger).Validate(startID, nodeIDs)
	w.validated(ctx, ok, diagnostics)

	return ok, diagnostics
}

// ValidateAll checks the whole graph from every START node.
func (w *Workspace) ValidateAll(ctx context.Context) (bool, []validation.Diagnostic) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.validateAll(ctx)
}

func (w *Workspace) validateAll(ctx context.Context) (bool, []validation.Diagnostic) {
	ok, diagnostics := validation.New(w.graph, w.logger).ValidateAll()
	w.validated(ctx, ok, diagnostics)

	return ok, diagnostics
}

func (w *Workspace) validated(ctx context.Context, ok bool, diagnostics []validation.Diagnostic) {
	var errorCount, warningCount int

	for _, d := range diagnostics {
		if d.Severity == validation.SeverityError {
			errorCount++
		} else {
			warningCount++
		}
	}

	w.logger.InfoContext(ctx, "Workflow validated", "ok", ok, "errors", errorCount, "warnings", warningCount)

	w.notifier.Notify(ctx, events.ValidationCompleted{
		BaseEvent: events.NewBaseEvent(events.ValidationCompletedEvent),
		OK:        ok,
		Errors:    errorCount,
		Warnings:  warningCount,
	})
}

// Execute streams a run from startIDs over a copy of the graph taken when
// Execute is called. Edits made while the run is consumed do not affect it.
func (w *Workspace) Execute(ctx context.Context, startIDs []string, vars map[string]string) iter.Seq[execution.Event] {
	w.mu.Lock()
	engine := w.engine(w.graph.Clone())
	w.mu.Unlock()

	return engine.Execute(ctx, startIDs, vars)
}

// Run validates the whole workflow and, when it is valid, executes it from
// every START node. An invalid workflow is not executed and returns
// ErrWorkflowInvalid with the diagnostics in the result.
func (w *Workspace) Run(ctx context.Context, vars map[string]string) (*RunResult, error) {
	w.mu.Lock()

	ok, diagnostics := w.validateAll(ctx)
	if !ok {
		w.mu.Unlock()

		return &RunResult{Diagnostics: diagnostics}, NewValidationError(
			"Run", "WORKFLOW_INVALID", "workflow has validation errors", ErrWorkflowInvalid)
	}

	snapshot := w.graph.Clone()
	w.mu.Unlock()

	starts := snapshot.FindStartNodes()
	startIDs := make([]string, 0, len(starts))

	for _, start := range starts {
		startIDs = append(startIDs, start.ID)
	}

	collected, summary := w.engine(snapshot).Collect(ctx, startIDs, vars)

	w.logger.InfoContext(ctx, "Workflow run finished",
		"outcome", summary.Outcome(), "done", summary.Done, "failed", summary.Failed, "skipped", summary.Skipped)

	return &RunResult{
		Valid:       true,
		Diagnostics: diagnostics,
		Events:      collected,
		Summary:     summary,
	}, nil
}

func (w *Workspace) engine(g *graph.Graph) *execution.Engine {
	opts := []execution.Option{
		execution.WithNotifier(w.notifier),
		execution.WithMetrics(w.metrics),
	}

	if w.runner != nil {
		opts = append(opts, execution.WithRunner(w.runner))
	}

	if w.tracer != nil {
		opts = append(opts, execution.WithTracer(w.tracer))
	}

	return execution.NewEngine(g, w.logger, opts...)
}

// Undo reverts the most recent edit. ok is false when there is nothing to undo.
func (w *Workspace) Undo(ctx context.Context) (history.Action, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.history.Undo(ctx)
}

// Redo re-applies the most recently undone edit.
func (w *Workspace) Redo(ctx context.Context) (history.Action, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.history.Redo(ctx)
}

// HistoryDepth returns the sizes of the undo and redo stacks.
func (w *Workspace) HistoryDepth() (undo, redo int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.history.UndoDepth(), w.history.RedoDepth()
}

// ClearAll removes every node and connection and forgets the history.
func (w *Workspace) ClearAll(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.graph.Clear()
	w.history.Clear()

	w.logger.InfoContext(ctx, "Workspace cleared")
	w.notifier.Notify(ctx, events.GraphChanged{
		BaseEvent: events.NewBaseEvent(events.GraphChangedEvent),
		Action:    "clear_all",
	})
}

// Snapshot captures the workflow as a document named after the workspace.
func (w *Workspace) Snapshot() *persistence.Document {
	w.mu.Lock()
	defer w.mu.Unlock()

	return persistence.FromGraph(w.name, w.graph)
}

// Restore replaces the workflow with doc and forgets the history. On error the
// workspace is left unchanged.
func (w *Workspace) Restore(ctx context.Context, doc *persistence.Document) error {
	if doc == nil {
		return NewValidationError("Restore", "DOCUMENT_REQUIRED", "document is required", ErrInvalidRequest)
	}

	if err := persistence.Validate(doc); err != nil {
		return &ServiceError{Op: "Restore", Code: "INVALID_DOCUMENT", Err: err}
	}

	g, err := doc.Build(w.factory, w.logger)
	if err != nil {
		return &ServiceError{
			Op:   "Restore",
			Code: "INVALID_DOCUMENT",
			Err:  fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err),
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.reset(g)

	if doc.Name != "" {
		w.name = doc.Name
	}

	w.logger.InfoContext(ctx, "Workflow restored", "name", w.name, "nodes", g.Len())
	w.notifier.Notify(ctx, events.GraphChanged{
		BaseEvent: events.NewBaseEvent(events.GraphChangedEvent),
		Action:    "restore",
	})

	return nil
}

// Save stores the workflow under name, which also becomes the workspace name.
func (w *Workspace) Save(ctx context.Context, name string) error {
	if w.persistence == nil {
		return &ServiceError{Op: "Save", Code: "NO_PERSISTENCE", Err: ErrNoPersistence}
	}

	if err := persistence.ValidateName(name); err != nil {
		return err
	}

	w.mu.Lock()
	doc := persistence.FromGraph(name, w.graph)
	w.mu.Unlock()

	if err := w.persistence.SaveWorkflow(ctx, doc); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", name, err)
	}

	w.mu.Lock()
	w.name = name
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Workflow saved", "name", name, "nodes", len(doc.Nodes))

	return nil
}

// Load replaces the workflow with the one stored under name.
func (w *Workspace) Load(ctx context.Context, name string) error {
	if w.persistence == nil {
		return &ServiceError{Op: "Load", Code: "NO_PERSISTENCE", Err: ErrNoPersistence}
	}

	doc, err := w.persistence.WorkflowByName(ctx, name)
	if err != nil {
		return err
	}

	if doc.Name == "" {
		doc.Name = name
	}

	return w.Restore(ctx, doc)
}

// Workflows lists the stored workflow names.
func (w *Workspace) Workflows(ctx context.Context) ([]string, error) {
	if w.persistence == nil {
		return nil, &ServiceError{Op: "Workflows", Code: "NO_PERSISTENCE", Err: ErrNoPersistence}
	}

	docs, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}

	return names, nil
}

// DeleteWorkflow removes the stored workflow. The open graph is left as it is.
func (w *Workspace) DeleteWorkflow(ctx context.Context, name string) error {
	if w.persistence == nil {
		return &ServiceError{Op: "DeleteWorkflow", Code: "NO_PERSISTENCE", Err: ErrNoPersistence}
	}

	if err := w.persistence.DeleteWorkflow(ctx, name); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "name", name)

	return nil
}

// HealthCheck reports whether the persistence layer is reachable.
func (w *Workspace) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}
