package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualOrdering(t *testing.T) {
	m := NewManual()
	var order []string

	m.AfterFunc(20*time.Millisecond, func() { order = append(order, "timer-20") })
	m.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "timer-10")
		m.Post(func() { order = append(order, "posted-by-10") })
	})
	m.Post(func() { order = append(order, "task") })

	require.Equal(t, 1, m.RunPending())
	require.Equal(t, []string{"task"}, order)
	require.Equal(t, 2, m.PendingTimers())

	m.Advance(15 * time.Millisecond)
	require.Equal(t, []string{"task", "timer-10", "posted-by-10"}, order)

	m.Advance(5 * time.Millisecond)
	require.Equal(t, []string{"task", "timer-10", "posted-by-10", "timer-20"}, order)
	require.Equal(t, 0, m.PendingTimers())
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	ran := false
	timer := m.AfterFunc(time.Millisecond, func() { ran = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	m.Advance(time.Second)
	require.False(t, ran)
	require.Equal(t, 0, m.PendingTimers())
}

func TestManualZeroDelayRunsOnRunPending(t *testing.T) {
	m := NewManual()
	ran := false
	m.AfterFunc(0, func() { ran = true })
	m.RunPending()
	require.True(t, ran)
}

func TestLoopRunsSerially(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go loop.Run(ctx)

	var mu sync.Mutex
	var order []int
	for i := range 50 {
		loop.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	require.NoError(t, loop.Do(ctx, func() {}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 50)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestLoopTimerStop(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fired := make(chan struct{}, 1)
	var timer Timer
	require.NoError(t, loop.Do(ctx, func() {
		timer = loop.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	}))
	require.Equal(t, 1, loop.PendingTimers())
	require.NoError(t, loop.Do(ctx, func() { require.True(t, timer.Stop()) }))
	require.Equal(t, 0, loop.PendingTimers())

	require.NoError(t, loop.Do(ctx, func() {
		loop.AfterFunc(time.Millisecond, func() { fired <- struct{}{} })
	}))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}
	require.Equal(t, 0, loop.PendingTimers())
}

func TestLoopDoAfterStop(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- loop.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	err := loop.Do(context.Background(), func() {})
	require.ErrorIs(t, err, ErrStopped)
}
