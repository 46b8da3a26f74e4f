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

type countingEngine struct {
	matched atomic.Int32
	cleaned atomic.Int32
	expired atomic.Int32
	failing bool
}

func (e *countingEngine) MatchWaiting(context.Context) (int, error) {
	e.matched.Add(1)
	if e.failing {
		return 0, errors.New("boom")
	}
	return 1, nil
}

func (e *countingEngine) Cleanup(context.Context) (int, error) {
	e.cleaned.Add(1)
	if e.failing {
		return 0, errors.New("boom")
	}
	return 0, nil
}

func (e *countingEngine) ExpireIdle(context.Context) (int, error) {
	e.expired.Add(1)
	return 0, nil
}

func TestSchedulerRunsJobs(t *testing.T) {
	engine := &countingEngine{}
	s, err := New(engine, Intervals{MatchSweep: 20 * time.Millisecond, Cleanup: 30 * time.Millisecond})
	require.NoError(t, err)

	s.Start()
	defer s.Shutdown()

	assert.Eventually(t, func() bool {
		return engine.matched.Load() >= 2 && engine.cleaned.Load() >= 1 && engine.expired.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerKeepsRunningAfterFailures(t *testing.T) {
	engine := &countingEngine{failing: true}
	s, err := New(engine, Intervals{MatchSweep: 20 * time.Millisecond, Cleanup: 20 * time.Millisecond})
	require.NoError(t, err)

	s.Start()
	defer s.Shutdown()

	// Expiry still runs even when cleanup fails in the same tick.
	assert.Eventually(t, func() bool {
		return engine.matched.Load() >= 3 && engine.expired.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerRejectsInvalidInterval(t *testing.T) {
	_, err := New(&countingEngine{}, Intervals{MatchSweep: 0, Cleanup: time.Second})
	assert.Error(t, err)
}
