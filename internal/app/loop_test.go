package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(0)
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

// on runs fn on the loop and fails the test if it cannot.
func on(t *testing.T, l *Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Do(ctx, fn))
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	var snapshot []int
	on(t, l, func() { snapshot = append(snapshot, got...) })
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, snapshot)
}

func TestLoopSurvivesPanics(t *testing.T) {
	l := startLoop(t)
	l.Post(func() { panic("boom") })
	ran := false
	on(t, l, func() { ran = true })
	assert.True(t, ran)
}

func TestLoopAfterFiresOnce(t *testing.T) {
	l := startLoop(t)
	var n atomic.Int32
	on(t, l, func() { l.After(10*time.Millisecond, func() { n.Add(1) }) })
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, n.Load())
}

func TestLoopStoppedTimerNeverRuns(t *testing.T) {
	l := startLoop(t)
	var n atomic.Int32

	// the timer expires while the loop is busy; Stop still wins
	on(t, l, func() {
		timer := l.After(time.Millisecond, func() { n.Add(1) })
		time.Sleep(20 * time.Millisecond)
		timer.Stop()
	})
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestLoopEvery(t *testing.T) {
	l := startLoop(t)
	var n atomic.Int32
	var timer *Timer
	on(t, l, func() { timer = l.Every(10*time.Millisecond, func() { n.Add(1) }) })
	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	on(t, l, func() { timer.Stop() })
	stopped := n.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())
}

func TestLoopClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(1)
	go func() { _ = l.Run(ctx) }()
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrLoopClosed)
}
