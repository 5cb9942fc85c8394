package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"notification_platform/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingExecutor counts passes and blocks until released, so tests can
// hold a pass in flight while firing additional ticks.
type blockingExecutor struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	started chan struct{}
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
	}
}

func (e *blockingExecutor) RunPass(_ context.Context, _ time.Time) (app.PassStats, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	e.started <- struct{}{}
	<-e.release
	return app.PassStats{}, nil
}

func (e *blockingExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func testWorker(executor app.Executor) *Worker {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewWorker(executor, l.WithField("component", "worker"), "* * * * *", time.Minute)
}

func TestTick_NonOverlap(t *testing.T) {
	executor := newBlockingExecutor()
	w := testWorker(executor)

	done := make(chan struct{})
	go func() {
		w.tick()
		close(done)
	}()

	// Wait until the first pass is inside the executor, then fire more ticks.
	select {
	case <-executor.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass never started")
	}
	w.tick()
	w.tick()
	assert.Equal(t, 1, executor.callCount(), "overlapping ticks must not start a second pass")

	close(executor.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass never finished")
	}

	// Guard released: the next tick runs a fresh pass.
	go w.tick()
	select {
	case <-executor.started:
	case <-time.After(2 * time.Second):
		t.Fatal("second pass never started")
	}
	assert.Equal(t, 2, executor.callCount())
}

// panicExecutor aborts its pass the hard way.
type panicExecutor struct{ calls int }

func (e *panicExecutor) RunPass(_ context.Context, _ time.Time) (app.PassStats, error) {
	e.calls++
	panic("boom")
}

func TestTick_GuardReleasedAfterPanic(t *testing.T) {
	executor := &panicExecutor{}
	w := testWorker(executor)

	require.Panics(t, func() { w.tick() })
	assert.False(t, w.passRunning.Load(), "guard must be released even when a pass panics")

	// Worker is not wedged: the next tick reaches the executor again.
	require.Panics(t, func() { w.tick() })
	assert.Equal(t, 2, executor.calls)
}

type nopExecutor struct{}

func (nopExecutor) RunPass(_ context.Context, _ time.Time) (app.PassStats, error) {
	return app.PassStats{}, nil
}

func TestStop_Idempotent(t *testing.T) {
	w := testWorker(nopExecutor{})
	require.NoError(t, w.Start())

	w.Stop()
	assert.NotPanics(t, func() { w.Stop() }, "stopping a stopped worker is a no-op")
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	w := NewWorker(nopExecutor{}, l.WithField("component", "worker"), "not a cron spec", time.Minute)
	assert.Error(t, w.Start())
}
