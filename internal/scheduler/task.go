package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Task states.
const (
	StateIdle int32 = iota
	StateFetching
	StateApplying
	StateBackoff
)

// StateName returns a human-readable task state.
func StateName(s int32) string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateApplying:
		return "applying"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// task is one scheduled unit of work with its own state machine. A tick
// that arrives while a cycle is in flight is skipped, not queued.
type task struct {
	name      string
	state     atomic.Int32
	notBefore atomic.Int64 // unix nanos; ticks before this are suppressed
	bo        *backoff.ExponentialBackOff
	log       *logrus.Logger
}

func newTask(name string, log *logrus.Logger) *task {
	if log == nil {
		log = logrus.New()
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxInterval = 10 * time.Minute
	bo.MaxElapsedTime = 0 // never give up
	return &task{name: name, bo: bo, log: log}
}

// State returns the task's current state.
func (t *task) State() int32 {
	return t.state.Load()
}

// applying marks the transition from fetching provider data to applying
// it to storage.
func (t *task) applying() {
	t.state.CompareAndSwap(StateFetching, StateApplying)
}

// run executes one cycle if the task is idle and outside its backoff
// window. Returns false when the tick was skipped.
func (t *task) run(ctx context.Context, fn func(ctx context.Context) error) bool {
	now := time.Now()
	if now.UnixNano() < t.notBefore.Load() {
		return false
	}
	if !t.state.CompareAndSwap(StateIdle, StateFetching) &&
		!t.state.CompareAndSwap(StateBackoff, StateFetching) {
		return false
	}

	err := fn(ctx)
	if err != nil {
		delay := t.bo.NextBackOff()
		t.notBefore.Store(time.Now().Add(delay).UnixNano())
		t.state.Store(StateBackoff)
		t.log.WithError(err).WithFields(logrus.Fields{
			"task":    t.name,
			"backoff": delay,
		}).Error("cycle failed, backing off")
		return true
	}

	t.bo.Reset()
	t.notBefore.Store(0)
	t.state.Store(StateIdle)
	return true
}
