package history

import (
	"context"
	"log/slog"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
)

// DefaultCapacity bounds each stack when no capacity is configured.
const DefaultCapacity = 100

const (
	directionDo   = "do"
	directionUndo = "undo"
	directionRedo = "redo"
)

// Notifier receives a GraphChanged event for every applied action.
type Notifier interface {
	Notify(ctx context.Context, event events.Event)
}

// Manager applies actions to a graph and keeps the undo and redo stacks. The
// oldest entry is dropped when a stack is full.
type Manager struct {
	graph    *graph.Graph
	logger   *slog.Logger
	capacity int
	undo     []Action
	redo     []Action
	notifier Notifier
	metrics  *metrics.Recorder
}

type Option func(*Manager)

// WithCapacity bounds both stacks. Values below 1 select DefaultCapacity.
func WithCapacity(capacity int) Option {
	return func(m *Manager) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(m *Manager) { m.notifier = notifier }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = recorder }
}

func NewManager(g *graph.Graph, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	manager := &Manager{
		graph:    g,
		logger:   logger.With("component", "history"),
		capacity: DefaultCapacity,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// Do applies a, records it for undo and clears the redo stack. Nothing is
// recorded when the action fails.
func (m *Manager) Do(ctx context.Context, a Action) error {
	if err := Apply(m.graph, a); err != nil {
		m.logger.WarnContext(ctx, "Action failed", "action", a.Type, "error", err)

		return err
	}

	m.undo = m.push(m.undo, a)
	m.redo = nil

	m.applied(ctx, a, directionDo)

	return nil
}

// Undo reverts the most recent action and returns it. ok is false when there
// is nothing to undo. On error both stacks are left untouched.
func (m *Manager) Undo(ctx context.Context) (Action, bool, error) {
	if len(m.undo) == 0 {
		return Action{}, false, nil
	}

	a := m.undo[len(m.undo)-1]

	if err := Apply(m.graph, Invert(a)); err != nil {
		m.logger.ErrorContext(ctx, "Undo failed", "action", a.Type, "error", err)

		return Action{}, false, err
	}

	m.undo = m.undo[:len(m.undo)-1]
	m.redo = m.push(m.redo, a)

	m.applied(ctx, a, directionUndo)

	return a, true, nil
}

// Redo re-applies the most recently undone action and returns it. ok is false
// when there is nothing to redo.
func (m *Manager) Redo(ctx context.Context) (Action, bool, error) {
	if len(m.redo) == 0 {
		return Action{}, false, nil
	}

	a := m.redo[len(m.redo)-1]

	if err := Apply(m.graph, a); err != nil {
		m.logger.ErrorContext(ctx, "Redo failed", "action", a.Type, "error", err)

		return Action{}, false, err
	}

	m.redo = m.redo[:len(m.redo)-1]
	m.undo = m.push(m.undo, a)

	m.applied(ctx, a, directionRedo)

	return a, true, nil
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

func (m *Manager) UndoDepth() int { return len(m.undo) }

func (m *Manager) RedoDepth() int { return len(m.redo) }

func (m *Manager) Capacity() int { return m.capacity }

func (m *Manager) push(stack []Action, a Action) []Action {
	stack = append(stack, a)
	if len(stack) > m.capacity {
		stack = stack[len(stack)-m.capacity:]
	}

	return stack
}

func (m *Manager) applied(ctx context.Context, a Action, direction string) {
	m.logger.DebugContext(ctx, "Action applied", "action", a.String(), "direction", direction)
	m.metrics.Command(string(a.Type), direction)

	if m.notifier == nil {
		return
	}

	nodeID, sourceID, targetID := a.Subject()

	m.notifier.Notify(ctx, events.GraphChanged{
		BaseEvent: events.NewBaseEvent(events.GraphChangedEvent),
		Action:    string(a.Type),
		NodeID:    nodeID,
		SourceID:  sourceID,
		TargetID:  targetID,
		Undo:      direction == directionUndo,
	})
}
