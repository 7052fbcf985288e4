package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	for _, expr := range []string{"*/5 * * * *", "0 3 * * 1-5", "@every 10s", "@daily"} {
		assert.NoError(t, Validate(expr), expr)
	}

	for _, expr := range []string{"", "* * *", "61 * * * *", "@sometimes"} {
		assert.Error(t, Validate(expr), expr)
	}
}

func TestScheduler_AddRemove(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("nightly", "0 2 * * *", noop))
	require.NoError(t, s.Add("hourly", "@hourly", noop))
	require.ErrorIs(t, s.Add("nightly", "0 3 * * *", noop), ErrDuplicateJob)
	require.Error(t, s.Add("broken", "not cron", noop))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hourly", entries[0].Name)
	assert.Equal(t, "nightly", entries[1].Name)
	assert.Equal(t, "0 2 * * *", entries[1].Schedule)

	require.NoError(t, s.Remove("hourly"))
	require.ErrorIs(t, s.Remove("hourly"), ErrJobNotFound)
	assert.Len(t, s.Entries(), 1)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(nil)

	var calls atomic.Int32

	require.NoError(t, s.Add("job", "@daily", func(context.Context) error {
		calls.Add(1)

		return errors.New("boom")
	}))

	require.EqualError(t, s.RunNow(t.Context(), "job"), "boom")
	assert.Equal(t, int32(1), calls.Load())
	require.ErrorIs(t, s.RunNow(t.Context(), "missing"), ErrJobNotFound)
}

func TestScheduler_FiresJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron clock")
	}

	s := New(nil)
	fired := make(chan struct{}, 1)

	type ctxKey struct{}

	ctx := context.WithValue(t.Context(), ctxKey{}, "run")

	require.NoError(t, s.Add("tick", "@every 1s", func(jobCtx context.Context) error {
		if jobCtx.Value(ctxKey{}) == "run" {
			select {
			case fired <- struct{}{}:
			default:
			}
		}

		panic("recovered by the cron chain")
	}))

	s.Start(ctx)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(stopCtx))
}
