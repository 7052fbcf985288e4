package execution_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/events"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/execution"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/mocks"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func states(collected []execution.Event, id string) []execution.State {
	var result []execution.State

	for _, event := range collected {
		if event.NodeID == id {
			result = append(result, event.State)
		}
	}

	return result
}

func TestEngine_LinearChainRunsOnlyActiveNodes(t *testing.T) {
	g := testutil.LinearGraph(t)

	runner := &mocks.MockRunner{}
	runner.On("Run", mock.Anything, "t", mock.Anything).Return("ran", nil).Once()

	engine := execution.NewEngine(g, nil, execution.WithRunner(runner))
	collected, summary := engine.Collect(context.Background(), []string{"s"}, nil)

	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Run", 1)

	for _, passive := range []string{"s", "d", "e"} {
		assert.Equal(t, []execution.State{execution.StateReady, execution.StateSkipped}, states(collected, passive), passive)
	}

	assert.Equal(t, []execution.State{execution.StateReady, execution.StateRunning, execution.StateDone}, states(collected, "t"))
	assert.Equal(t, execution.Summary{Done: 1, Skipped: 3}, summary)
	assert.Equal(t, "completed", summary.Outcome())
}

func TestEngine_DepthFirstOrder(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s", models.KindStart),
			testutil.Node("a", models.KindData),
			testutil.Node("a1", models.KindOutput),
			testutil.Node("b", models.KindData),
		},
		testutil.Conn("s", "a", ""),
		testutil.Conn("s", "b", ""),
		testutil.Conn("a", "a1", ""),
	)

	collected, _ := execution.NewEngine(g, nil).Collect(context.Background(), []string{"s"}, nil)

	var order []string
	for _, event := range collected {
		if event.State == execution.StateReady {
			order = append(order, event.NodeID)
		}
	}

	assert.Equal(t, []string{"s", "a", "a1", "b"}, order)
}

func TestEngine_ConditionBranching(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		taken    string
		notTaken string
	}{
		{name: "yes branch", vars: map[string]string{"score": "9"}, taken: "yes_task", notTaken: "no_task"},
		{name: "no branch", vars: map[string]string{"score": "2"}, taken: "no_task", notTaken: "yes_task"},
		{name: "missing variable", vars: nil, taken: "no_task", notTaken: "yes_task"},
		{name: "non numeric", vars: map[string]string{"score": "high"}, taken: "no_task", notTaken: "yes_task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testutil.BranchGraph(t)

			collected, summary := execution.NewEngine(g, nil).Collect(context.Background(), []string{"s"}, tt.vars)

			assert.Equal(t, []execution.State{execution.StateReady, execution.StateRunning, execution.StateDone}, states(collected, "c"))
			assert.Contains(t, states(collected, tt.taken), execution.StateDone)
			assert.Empty(t, states(collected, tt.notTaken))
			assert.Zero(t, summary.Failed)
		})
	}
}

func TestEngine_ConditionWithoutLabelsFails(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s", models.KindStart),
			testutil.Node("c", models.KindCondition),
			testutil.Node("a", models.KindEnd),
			testutil.Node("b", models.KindEnd),
		},
		testutil.Conn("s", "c", ""),
		testutil.Conn("c", "a", ""),
		testutil.Conn("c", "b", ""),
	)

	collected, summary := execution.NewEngine(g, nil).Collect(context.Background(), []string{"s"}, map[string]string{"score": "10"})

	assert.Equal(t, []execution.State{execution.StateReady, execution.StateRunning, execution.StateFailed}, states(collected, "c"))
	assert.Empty(t, states(collected, "a"))
	assert.Empty(t, states(collected, "b"))
	assert.Equal(t, 1, summary.Failed)

	last := collected[len(collected)-1]
	assert.Contains(t, last.Message, "unresolved branch")
}

func TestEngine_ExplicitBranchTargets(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s", models.KindStart),
			testutil.CreateTestNode(testutil.WithID("c"), testutil.WithCondition(`mode == "fast"`)),
			testutil.Node("fast", models.KindEnd),
			testutil.Node("slow", models.KindEnd),
		},
		testutil.Conn("s", "c", ""),
		testutil.Conn("c", "slow", ""),
		testutil.Conn("c", "fast", ""),
	)

	node := g.MustFind("c")
	node.Condition.YesTarget = "fast"
	node.Condition.NoTarget = "slow"

	collected, _ := execution.NewEngine(g, nil).Collect(context.Background(), []string{"s"}, map[string]string{"mode": "fast"})

	assert.NotEmpty(t, states(collected, "fast"))
	assert.Empty(t, states(collected, "slow"))
}

func TestEngine_BranchTargetOutsideConnectionsFails(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s", models.KindStart),
			testutil.CreateTestNode(testutil.WithID("c"), testutil.WithCondition(`mode == "fast"`)),
			testutil.Node("a", models.KindEnd),
			testutil.Node("b", models.KindEnd),
			testutil.Node("x", models.KindEnd),
		},
		testutil.Conn("s", "c", ""),
		testutil.Conn("c", "a", ""),
		testutil.Conn("c", "b", ""),
	)

	node := g.MustFind("c")
	node.Condition.YesTarget = "x"
	node.Condition.NoTarget = "b"

	collected, summary := execution.NewEngine(g, nil).Collect(context.Background(), []string{"s"}, map[string]string{"mode": "fast"})

	assert.Contains(t, states(collected, "c"), execution.StateFailed)
	assert.Empty(t, states(collected, "x"))
	assert.Equal(t, 1, summary.Failed)
}

func TestEngine_FailureIsContainedToItsSubtree(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("s1", models.KindStart),
			testutil.Node("bad", models.KindTask),
			testutil.Node("after_bad", models.KindTask),
			testutil.Node("s2", models.KindStart),
			testutil.Node("good", models.KindTask),
		},
		testutil.Conn("s1", "bad", ""),
		testutil.Conn("bad", "after_bad", ""),
		testutil.Conn("s2", "good", ""),
	)

	runner := &mocks.MockRunner{}
	runner.On("Run", mock.Anything, "bad", mock.Anything).Return("", errors.New("disk full"))
	runner.On("Run", mock.Anything, "good", mock.Anything).Return("ok", nil)

	collected, summary := execution.NewEngine(g, nil, execution.WithRunner(runner)).
		Collect(context.Background(), []string{"s1", "s2"}, nil)

	assert.Contains(t, states(collected, "bad"), execution.StateFailed)
	assert.Empty(t, states(collected, "after_bad"))
	assert.Contains(t, states(collected, "good"), execution.StateDone)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "failed", summary.Outcome())
	runner.AssertNotCalled(t, "Run", mock.Anything, "after_bad", mock.Anything)
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, *models.Node, map[string]string) (string, error) {
	panic("kaboom")
}

func TestEngine_PanicMarksNodeFailed(t *testing.T) {
	g := testutil.LinearGraph(t)

	collected, summary := execution.NewEngine(g, nil, execution.WithRunner(panicRunner{})).
		Collect(context.Background(), []string{"s"}, nil)

	require.Equal(t, []execution.State{execution.StateReady, execution.StateRunning, execution.StateFailed}, states(collected, "t"))
	assert.Equal(t, 1, summary.Failed)

	for _, event := range collected {
		if event.NodeID == "t" && event.State == execution.StateFailed {
			assert.Contains(t, event.Message, "kaboom")
		}
	}
}

func TestEngine_VisitedNodesAreSkipped(t *testing.T) {
	g := testutil.BuildGraph(t,
		[]*models.Node{
			testutil.Node("a", models.KindTask),
			testutil.Node("b", models.KindTask),
		},
		testutil.Conn("a", "b", ""),
		testutil.Conn("b", "a", ""),
	)

	collected, summary := execution.NewEngine(g, nil).Collect(context.Background(), []string{"a"}, nil)

	assert.Equal(t, []execution.State{
		execution.StateReady, execution.StateRunning, execution.StateDone, execution.StateSkipped,
	}, states(collected, "a"))
	assert.Equal(t, 2, summary.Done)
	assert.Equal(t, 1, summary.Skipped)
}

func TestEngine_FreshVisitedSetPerRun(t *testing.T) {
	g := testutil.LinearGraph(t)
	engine := execution.NewEngine(g, nil)

	first, _ := engine.Collect(context.Background(), []string{"s"}, nil)
	second, _ := engine.Collect(context.Background(), []string{"s"}, nil)

	assert.Equal(t, first, second)
}

func TestEngine_UnknownStartFails(t *testing.T) {
	g := testutil.LinearGraph(t)

	collected, summary := execution.NewEngine(g, nil).Collect(context.Background(), []string{"ghost", "s"}, nil)

	assert.Equal(t, []execution.State{execution.StateFailed}, states(collected, "ghost"))
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Failed)
}

func TestEngine_Cancellation(t *testing.T) {
	g := testutil.LinearGraph(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var collected []execution.Event

	for event := range execution.NewEngine(g, nil).Execute(ctx, []string{"s"}, nil) {
		collected = append(collected, event)

		if event.NodeID == "d" && event.State == execution.StateSkipped {
			cancel()
		}
	}

	last := collected[len(collected)-1]
	assert.Equal(t, execution.StateCancelled, last.State)
	assert.Equal(t, "t", last.NodeID)
	assert.Empty(t, states(collected, "e"))
}

func TestEngine_ConsumerCanStopEarly(t *testing.T) {
	g := testutil.LinearGraph(t)

	runner := &mocks.MockRunner{}

	count := 0
	for range execution.NewEngine(g, nil, execution.WithRunner(runner)).Execute(context.Background(), []string{"s"}, nil) {
		count++
		if count == 2 {
			break
		}
	}

	assert.Equal(t, 2, count)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_NotifiesAndRecordsMetrics(t *testing.T) {
	g := testutil.LinearGraph(t)
	notifier := events.NewNotifier(nil)
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)

	var received []events.Event
	notifier.Subscribe(func(_ context.Context, event events.Event) {
		received = append(received, event)
	})

	collected, _ := execution.NewEngine(g, nil, execution.WithNotifier(notifier), execution.WithMetrics(recorder)).
		Collect(context.Background(), []string{"s"}, nil)

	require.Len(t, received, len(collected)+2)
	assert.Equal(t, events.ExecutionStartedEvent, received[0].GetType())
	assert.Equal(t, events.ExecutionFinishedEvent, received[len(received)-1].GetType())

	finished, ok := received[len(received)-1].(events.ExecutionFinished)
	require.True(t, ok)
	assert.Equal(t, 1, finished.Done)
	assert.Equal(t, 3, finished.Skipped)

	changed, ok := received[1].(events.NodeStateChanged)
	require.True(t, ok)
	assert.Equal(t, "s", changed.NodeID)
	assert.Equal(t, string(models.KindStart), changed.NodeKind)
	assert.Equal(t, finished.RunID, changed.RunID)

	series, err := promtestutil.GatherAndCount(reg, "workflow_node_states_total")
	require.NoError(t, err)
	assert.Equal(t, 4, series)

	runs, err := promtestutil.GatherAndCount(reg, "workflow_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}
