package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := New(reg)

	recorder.NodeState("TASK", "DONE")
	recorder.NodeState("TASK", "DONE")
	recorder.NodeState("INFERENCE", "FAILED")
	recorder.Run("completed", 3*time.Millisecond)
	recorder.Command("create_node", "do")

	assert.InDelta(t, 2, testutil.ToFloat64(recorder.nodeStates.WithLabelValues("TASK", "DONE")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recorder.nodeStates.WithLabelValues("INFERENCE", "FAILED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recorder.runs.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recorder.commands.WithLabelValues("create_node", "do")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestRecorder_Nil(t *testing.T) {
	var recorder *Recorder

	assert.NotPanics(t, func() {
		recorder.NodeState("TASK", "DONE")
		recorder.Run("completed", time.Second)
		recorder.Command("move_node", "undo")
	})
}
