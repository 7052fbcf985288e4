package history_test

import (
	"context"
	"testing"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/graph"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/history"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/testutil"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	nodes       map[string]models.Position
	kinds       map[string]models.NodeKind
	connections []models.Connection
}

func take(g *graph.Graph) snapshot {
	s := snapshot{
		nodes: make(map[string]models.Position),
		kinds: make(map[string]models.NodeKind),
	}

	for _, node := range g.ListNodes() {
		s.nodes[node.ID] = node.Position
		s.kinds[node.ID] = node.Kind
	}

	s.connections = g.ListConnections()

	return s
}

func assertSameGraph(t *testing.T, expected, actual snapshot) {
	t.Helper()

	assert.Equal(t, expected.nodes, actual.nodes)
	assert.Equal(t, expected.kinds, actual.kinds)
	assert.ElementsMatch(t, expected.connections, actual.connections)
}

func TestManager_RoundTripEveryAction(t *testing.T) {
	tests := []struct {
		name   string
		action func(t *testing.T, g *graph.Graph) history.Action
	}{
		{
			name: "create node",
			action: func(_ *testing.T, _ *graph.Graph) history.Action {
				return history.CreateNode(testutil.Node("new", models.KindTask))
			},
		},
		{
			name: "delete node with incident connections",
			action: func(t *testing.T, g *graph.Graph) history.Action {
				a, err := history.DeleteNode(g, "c")
				require.NoError(t, err)

				return a
			},
		},
		{
			name: "move node",
			action: func(t *testing.T, g *graph.Graph) history.Action {
				a, err := history.MoveNode(g, "yes_task", 420, 42)
				require.NoError(t, err)

				return a
			},
		},
		{
			name: "connect nodes",
			action: func(_ *testing.T, _ *graph.Graph) history.Action {
				return history.ConnectNodes("s", "e", "")
			},
		},
		{
			name: "disconnect labeled connection",
			action: func(t *testing.T, g *graph.Graph) history.Action {
				a, err := history.DisconnectNodes(g, "c", "no_task")
				require.NoError(t, err)

				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			g := testutil.BranchGraph(t)
			manager := history.NewManager(g, nil)

			before := take(g)

			require.NoError(t, manager.Do(ctx, tt.action(t, g)))
			after := take(g)

			undone, ok, err := manager.Undo(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assertSameGraph(t, before, take(g))

			redone, ok, err := manager.Redo(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, undone, redone)
			assertSameGraph(t, after, take(g))

			_, ok, err = manager.Undo(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assertSameGraph(t, before, take(g))
		})
	}
}

func TestManager_DeleteRestoresBranchTargets(t *testing.T) {
	ctx := context.Background()
	g := testutil.BranchGraph(t)
	manager := history.NewManager(g, nil)

	a, err := history.DeleteNode(g, "c")
	require.NoError(t, err)
	assert.Len(t, a.Connections, 3)

	require.NoError(t, manager.Do(ctx, a))
	assert.False(t, g.Has("c"))
	assert.Empty(t, g.ConnectionsTo("yes_task"))

	_, _, err = manager.Undo(ctx)
	require.NoError(t, err)

	yes, no := g.BranchTargets("c")
	assert.Equal(t, "yes_task", yes)
	assert.Equal(t, "no_task", no)
}

func explicitBranchGraph(t *testing.T) *graph.Graph {
	t.Helper()

	cond := testutil.Node("c", models.KindCondition)
	cond.Condition.YesTarget = "fast"
	cond.Condition.NoTarget = "slow"

	return testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s", models.KindStart),
			cond,
			testutil.Node("slow", models.KindEnd),
			testutil.Node("fast", models.KindEnd),
		},
		testutil.Conn("s", "c", ""),
		testutil.Conn("c", "slow", ""),
		testutil.Conn("c", "fast", ""),
	)
}

func TestManager_UndoRestoresExplicitBranchTargets(t *testing.T) {
	tests := []struct {
		name   string
		action func(t *testing.T, g *graph.Graph) history.Action
	}{
		{
			name: "disconnect unlabeled branch",
			action: func(t *testing.T, g *graph.Graph) history.Action {
				a, err := history.DisconnectNodes(g, "c", "fast")
				require.NoError(t, err)

				return a
			},
		},
		{
			name: "delete branch target",
			action: func(t *testing.T, g *graph.Graph) history.Action {
				a, err := history.DeleteNode(g, "fast")
				require.NoError(t, err)

				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			g := explicitBranchGraph(t)
			manager := history.NewManager(g, nil)

			ok, _ := validation.New(g, nil).Validate("s", g.NodeIDs())
			require.True(t, ok)

			require.NoError(t, manager.Do(ctx, tt.action(t, g)))
			assert.Empty(t, g.MustFind("c").Condition.YesTarget)

			_, applied, err := manager.Undo(ctx)
			require.NoError(t, err)
			require.True(t, applied)

			cond := g.MustFind("c").Condition
			require.NotNil(t, cond)
			assert.Equal(t, "fast", cond.YesTarget)
			assert.Equal(t, "slow", cond.NoTarget)

			ok, diagnostics := validation.New(g, nil).Validate("s", g.NodeIDs())
			assert.True(t, ok, "%v", diagnostics)

			_, applied, err = manager.Redo(ctx)
			require.NoError(t, err)
			require.True(t, applied)
			assert.Empty(t, g.MustFind("c").Condition.YesTarget)
			assert.Equal(t, "slow", g.MustFind("c").Condition.NoTarget)
		})
	}
}

func TestManager_DoClearsRedo(t *testing.T) {
	ctx := context.Background()
	g := testutil.LinearGraph(t)
	manager := history.NewManager(g, nil)

	require.NoError(t, manager.Do(ctx, history.CreateNode(testutil.Node("x", models.KindTask))))
	_, _, err := manager.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, manager.CanRedo())

	require.NoError(t, manager.Do(ctx, history.CreateNode(testutil.Node("y", models.KindTask))))
	assert.False(t, manager.CanRedo())

	_, ok, err := manager.Redo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_EmptyStacks(t *testing.T) {
	manager := history.NewManager(graph.New(nil), nil)

	_, ok, err := manager.Undo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = manager.Redo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_FailedActionIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	g := testutil.LinearGraph(t)
	manager := history.NewManager(g, nil)

	err := manager.Do(ctx, history.ConnectNodes("s", "ghost", ""))
	require.Error(t, err)
	assert.True(t, graph.IsNodeNotFound(err))
	assert.Zero(t, manager.UndoDepth())

	err = manager.Do(ctx, history.CreateNode(testutil.Node("s", models.KindStart)))
	require.Error(t, err)
	assert.True(t, graph.IsDuplicateNode(err))
	assert.Zero(t, manager.UndoDepth())
}

func TestManager_FailedUndoKeepsStacks(t *testing.T) {
	ctx := context.Background()
	g := testutil.LinearGraph(t)
	manager := history.NewManager(g, nil)

	require.NoError(t, manager.Do(ctx, history.ConnectNodes("s", "e", "")))

	// An edit made outside the manager invalidates the recorded action.
	g.RemoveConnection("s", "e")

	_, ok, err := manager.Undo(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, graph.IsConnectionNotFound(err))
	assert.Equal(t, 1, manager.UndoDepth())
	assert.Zero(t, manager.RedoDepth())
}

func TestManager_Capacity(t *testing.T) {
	ctx := context.Background()
	g := testutil.LinearGraph(t)
	manager := history.NewManager(g, nil, history.WithCapacity(2))

	for _, x := range []float64{10, 20, 30} {
		a, err := history.MoveNode(g, "t", x, 0)
		require.NoError(t, err)
		require.NoError(t, manager.Do(ctx, a))
	}

	assert.Equal(t, 2, manager.UndoDepth())

	for manager.CanUndo() {
		_, _, err := manager.Undo(ctx)
		require.NoError(t, err)
	}

	// The first move fell off the stack, so the node stays where it put it.
	assert.InDelta(t, 10, g.MustFind("t").Position.X, 0)
	assert.Equal(t, 2, manager.RedoDepth())
}

func TestManager_Clear(t *testing.T) {
	ctx := context.Background()
	manager := history.NewManager(testutil.LinearGraph(t), nil)

	require.NoError(t, manager.Do(ctx, history.ConnectNodes("s", "e", "")))
	_, _, err := manager.Undo(ctx)
	require.NoError(t, err)
	require.NoError(t, manager.Do(ctx, history.ConnectNodes("s", "t", "")))

	manager.Clear()

	assert.False(t, manager.CanUndo())
	assert.False(t, manager.CanRedo())
	assert.Equal(t, history.DefaultCapacity, manager.Capacity())
}

func TestManager_NotifiesAndCounts(t *testing.T) {
	ctx := context.Background()
	g := testutil.LinearGraph(t)
	notifier := events.NewNotifier(nil)
	reg := prometheus.NewRegistry()

	var changes []events.GraphChanged
	notifier.Subscribe(func(_ context.Context, event events.Event) {
		if changed, ok := event.(events.GraphChanged); ok {
			changes = append(changes, changed)
		}
	})

	manager := history.NewManager(g, nil, history.WithNotifier(notifier), history.WithMetrics(metrics.New(reg)))

	require.NoError(t, manager.Do(ctx, history.ConnectNodes("s", "e", "yes")))
	_, _, err := manager.Undo(ctx)
	require.NoError(t, err)
	_, _, err = manager.Redo(ctx)
	require.NoError(t, err)

	require.Len(t, changes, 3)
	assert.Equal(t, "connect_nodes", changes[0].Action)
	assert.Equal(t, "s", changes[0].SourceID)
	assert.Equal(t, "e", changes[0].TargetID)
	assert.False(t, changes[0].Undo)
	assert.True(t, changes[1].Undo)
	assert.False(t, changes[2].Undo)

	series, err := promtestutil.GatherAndCount(reg, "workflow_history_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series)
}
