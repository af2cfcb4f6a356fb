// Package dispatch models the host's single event-processing thread. Every
// engine component runs its callbacks through a Scheduler, which executes them
// one at a time in the order they were posted.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrStopped = errors.New("dispatch: loop stopped")

// Timer is a callback scheduled with AfterFunc.
type Timer interface {
	// Stop guarantees the callback will not run afterwards. It returns false if
	// the callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler is the host's serial task queue.
//
// note: fault injection point
type Scheduler interface {
	// Post queues fn to run after every task queued before it.
	Post(fn func())
	// AfterFunc queues fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is a Scheduler that runs its tasks on the goroutine calling Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake   chan struct{}
	done   chan struct{}
	timers atomic.Int64
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued tasks until ctx is done. A loop can only be run once,
// tasks posted after Run returns are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.queue = nil
	close(l.done)
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// PendingTimers is the number of timers that have neither fired nor been stopped.
func (l *Loop) PendingTimers() int {
	return int(l.timers.Load())
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	loop  *Loop
	timer *time.Timer
	state atomic.Int32
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{loop: l}
	l.timers.Add(1)
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if !t.state.CompareAndSwap(timerPending, timerFired) {
				return
			}
			l.timers.Add(-1)
			fn()
		})
	})
	return t
}

func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.loop.timers.Add(-1)
	t.timer.Stop()
	return true
}
