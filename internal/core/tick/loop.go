package tick

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeusync/posebridge/internal/core/observability/log"
)

// Refresher is the per-tick registry reconciliation.
type Refresher interface {
	Refresh()
}

// Committer is the per-tick skeletal write pass.
type Committer interface {
	CommitTick()
}

// Executor runs work on the tick context and waits for it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Config tunes the loop.
type Config struct {
	Rate      int `json:"rate" yaml:"rate" env:"POSEBRIDGE_TICK_RATE"`
	QueueSize int `json:"queueSize" yaml:"queueSize" env:"POSEBRIDGE_TICK_QUEUE_SIZE"`
}

func DefaultConfig() Config {
	return Config{Rate: 30, QueueSize: 256}
}

// Interval is the tick period for the configured rate.
func (c Config) Interval() time.Duration {
	if c.Rate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Rate)
}

type task struct {
	fn   func()
	done chan struct{}
}

// Loop is the single tick context. Each Tick drains queued round trips, then
// refreshes the registry, then commits bone writes.
type Loop struct {
	refresher Refresher
	committer Committer
	config    Config
	logger    log.Log

	tasks   chan task
	ticks   atomic.Uint64
	running atomic.Bool
}

var _ Executor = (*Loop)(nil)

func NewLoop(refresher Refresher, committer Committer, config Config, logger log.Log) *Loop {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	return &Loop{
		refresher: refresher,
		committer: committer,
		config:    config,
		logger:    logger.With(log.String("component", "tick")),
		tasks:     make(chan task, config.QueueSize),
	}
}

// Tick runs one simulation step. A host with its own frame callback calls
// this directly instead of Run.
func (l *Loop) Tick() {
	l.drain()
	l.safely("refresh", l.refresher.Refresh)
	l.safely("commit", l.committer.CommitTick)
	l.ticks.Add(1)
}

// Ticks returns how many ticks have completed.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Run drives Tick at the configured rate until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	interval := l.config.Interval()
	l.logger.Info("Tick loop started", log.Duration("interval", interval))
	defer l.logger.Info("Tick loop stopped", log.Uint64("ticks", l.Ticks()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Do queues fn for the next tick and waits for it to finish. It gives up when
// ctx is done, returning ErrTimeout; fn may still run later in that case.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ErrTimeout
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

func (l *Loop) drain() {
	for {
		select {
		case t := <-l.tasks:
			l.safely("task", t.fn)
			close(t.done)
		default:
			return
		}
	}
}

func (l *Loop) safely(stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Tick stage panicked",
				log.String("stage", stage),
				log.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}

// Direct runs work inline on the caller's goroutine. Suitable when the pose
// backend tolerates calls from any goroutine.
type Direct struct{}

func (Direct) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return ErrTimeout
	}
	fn()
	return nil
}
