package tick

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/posebridge/internal/core/observability/log"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	panic bool
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Refresh() {
	r.add("refresh")
	if r.panic {
		panic("snapshot provider crashed")
	}
}

func (r *recorder) CommitTick() { r.add("commit") }

func TestTickOrder(t *testing.T) {
	rec := &recorder{}
	l := NewLoop(rec, rec, DefaultConfig(), log.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), func() { rec.add("task") })
	}()
	require.Eventually(t, func() bool { return len(l.tasks) == 1 }, time.Second, time.Millisecond)

	l.Tick()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"task", "refresh", "commit"}, rec.snapshot())
	assert.Equal(t, uint64(1), l.Ticks())
}

func TestPanicInStageDoesNotSkipCommit(t *testing.T) {
	rec := &recorder{panic: true}
	l := NewLoop(rec, rec, DefaultConfig(), log.NewNop())

	assert.NotPanics(t, l.Tick)
	assert.Equal(t, []string{"refresh", "commit"}, rec.snapshot())
}

func TestDoTimesOutWithoutTicks(t *testing.T) {
	rec := &recorder{}
	l := NewLoop(rec, rec, DefaultConfig(), log.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Do(ctx, func() {}), ErrTimeout)
}

func TestRunDrivesTicksUntilCancelled(t *testing.T) {
	rec := &recorder{}
	l := NewLoop(rec, rec, Config{Rate: 200}, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Ticks() >= 3 }, time.Second, time.Millisecond)

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	cancel()
	require.NoError(t, <-errCh)
}

func TestRunRejectsSecondCaller(t *testing.T) {
	rec := &recorder{}
	l := NewLoop(rec, rec, Config{Rate: 100}, log.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = l.Run(ctx) }()
	require.Eventually(t, func() bool { return l.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, l.Run(ctx), ErrAlreadyRunning)
}

func TestConfigInterval(t *testing.T) {
	assert.Equal(t, time.Second/60, Config{Rate: 60}.Interval())
	assert.Equal(t, time.Second/30, Config{}.Interval())
}

func TestDirectExecutor(t *testing.T) {
	ran := false
	require.NoError(t, Direct{}.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Direct{}.Do(ctx, func() {}), ErrTimeout)
}
