package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrLoopClosed = errors.New("loop closed")

// Loop is the host event loop. All component state is mutated by tasks
// running on its goroutine; helpers post their results back with Post.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is done. Pending tasks are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	log.Debug().Str("module", "app.loop").Msg("loop started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "app.loop").Msg("loop stopped")
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.loop").Interface("panic", r).Msg("task panicked")
		}
	}()
	fn()
}

// Post queues fn. It reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Timer is a loop timer. Stop must be called on the loop; a stopped timer
// never runs its callback, even if it already fired.
type Timer struct {
	t       *time.Timer
	stopped bool
}

func (t *Timer) Stop() {
	if t == nil || t.stopped {
		return
	}
	t.stopped = true
	t.t.Stop()
}

// After runs fn on the loop once d elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	timer := &Timer{}
	timer.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if timer.stopped {
				return
			}
			timer.stopped = true
			fn()
		})
	})
	return timer
}

// Every runs fn on the loop every d, first after d. Ticks keep a fixed
// schedule and do not drift with task latency.
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	timer := &Timer{}
	next := time.Now().Add(d)
	var tick func()
	tick = func() {
		l.Post(func() {
			if timer.stopped {
				return
			}
			fn()
			if timer.stopped {
				return
			}
			next = next.Add(d)
			wait := time.Until(next)
			if wait < 0 {
				next = time.Now().Add(d)
				wait = d
			}
			timer.t.Reset(wait)
		})
	}
	timer.t = time.AfterFunc(d, tick)
	return timer
}
