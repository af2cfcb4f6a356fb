// Package poller waits for something to appear by probing it on a fixed
// interval with a bounded number of attempts.
package poller

import (
	"errors"
	"fmt"
	"time"

	"feedwarden/internal/components/dispatch"
)

var (
	// ErrNotFound is returned once every attempt failed.
	ErrNotFound = errors.New("poller: not found")
	// ErrNotReady is what a probe returns when the value does not exist yet.
	ErrNotReady = errors.New("poller: not ready")
	// ErrCanceled is what Wait.Err reports for an abandoned wait.
	ErrCanceled = errors.New("poller: canceled")
)

// Probe attempts to produce the awaited value. Any error, or a panic, counts
// as a failed attempt.
type Probe[T any] func() (T, error)

type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// OnFailure observes every failed attempt, errors other than ErrNotReady
	// are the probe's own failures.
	OnFailure func(attempt int, err error)
}

// Wait is an outstanding WaitFor call.
type Wait struct {
	timer    dispatch.Timer
	finished bool
	err      error
}

// Cancel abandons the wait. The pending tick is cleared and done is never
// called. Cancelling a finished wait is a no-op.
func (w *Wait) Cancel() {
	if w.finished {
		return
	}
	w.finished = true
	w.err = ErrCanceled
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Finished reports whether the wait resolved, failed, or was cancelled.
func (w *Wait) Finished() bool {
	return w.finished
}

// Err is nil while the wait is outstanding or after it resolved, ErrCanceled
// after Cancel, and the error passed to done after it failed.
func (w *Wait) Err() error {
	return w.err
}

// WaitFor probes on the scheduler, the first tick runs immediately and each
// following tick runs Interval after the previous one returned, so ticks never
// overlap. done receives the first value a probe produced, or ErrNotFound
// after MaxAttempts consecutive failures.
func WaitFor[T any](s dispatch.Scheduler, opts Options, probe Probe[T], done func(T, error)) *Wait {
	w := &Wait{}
	attempts := 0

	var tick func()
	tick = func() {
		w.timer = nil
		if w.finished {
			return
		}

		value, err := try(probe)
		if err == nil {
			w.finished = true
			done(value, nil)
			return
		}

		attempts++
		if opts.OnFailure != nil {
			opts.OnFailure(attempts, err)
		}
		if w.finished {
			// cancelled from inside OnFailure
			return
		}
		if attempts >= opts.MaxAttempts {
			w.finished = true
			w.err = fmt.Errorf("%w after %d attempts: %w", ErrNotFound, attempts, err)
			var zero T
			done(zero, w.err)
			return
		}
		w.timer = s.AfterFunc(opts.Interval, tick)
	}

	w.timer = s.AfterFunc(0, tick)
	return w
}

func try[T any](probe Probe[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return probe()
}
