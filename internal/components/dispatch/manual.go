package dispatch

import (
	"time"
)

// Manual is a Scheduler with virtual time. Nothing runs until RunPending or
// Advance is called, which makes delivery order fully deterministic.
// It is not safe for concurrent use.
type Manual struct {
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	m    *Manual
	due  time.Time
	seq  int
	fn   func()
	done bool
}

func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0).UTC()}
}

func (m *Manual) Now() time.Time {
	return m.now
}

func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.seq++
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

func (m *Manual) remove(t *manualTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// next returns the earliest timer due at or before limit, ties broken by creation order.
func (m *Manual) next(limit time.Time) *manualTimer {
	var earliest *manualTimer
	for _, t := range m.timers {
		if t.due.After(limit) {
			continue
		}
		if earliest == nil || t.due.Before(earliest.due) || (t.due.Equal(earliest.due) && t.seq < earliest.seq) {
			earliest = t
		}
	}
	return earliest
}

func (m *Manual) fire(t *manualTimer) {
	t.done = true
	m.remove(t)
	t.fn()
}

// RunPending runs queued tasks and due timers until neither remain, it
// returns the number of callbacks run.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		if len(m.queue) > 0 {
			fn := m.queue[0]
			m.queue = m.queue[1:]
			fn()
			ran++
			continue
		}
		if t := m.next(m.now); t != nil {
			m.fire(t)
			ran++
			continue
		}
		return ran
	}
}

// Advance moves virtual time forward by d, firing timers in due order and
// draining the task queue after each one.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.RunPending()
	for {
		t := m.next(target)
		if t == nil {
			break
		}
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.fire(t)
		m.RunPending()
	}
	m.now = target
	m.RunPending()
}

// PendingTimers is the number of timers that have neither fired nor been stopped.
func (m *Manual) PendingTimers() int {
	return len(m.timers)
}

// PendingTasks is the number of queued tasks.
func (m *Manual) PendingTasks() int {
	return len(m.queue)
}
