package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
)

const (
	playTimeout     = 5 * time.Second
	wakeLockTimeout = 5 * time.Second
)

// AlertEngine turns a ring into a perceivable alert. It is the only owner of
// the audio element and the wake lock. Its methods must be called on the
// loop.
type AlertEngine struct {
	loop      *Loop
	audio     core.AudioElement
	locker    core.WakeLocker
	presenter core.Presenter

	unlocked  bool
	unlocking bool
	waiters   []func(bool)
	detach    []func()

	// gen invalidates results of superseded activations.
	gen      uint64
	active   bool
	expiry   *Timer
	lock     core.WakeLock
	lockStop chan struct{}

	unit time.Duration
}

func NewAlertEngine(loop *Loop, audio core.AudioElement, locker core.WakeLocker, presenter core.Presenter) *AlertEngine {
	return &AlertEngine{
		loop:      loop,
		audio:     audio,
		locker:    locker,
		presenter: presenter,
		unit:      time.Second,
	}
}

func (e *AlertEngine) Unlocked() bool { return e.unlocked }

// Active reports whether an alert is playing or starting.
func (e *AlertEngine) Active() bool { return e.active }

// WakeLockHeld reports whether the engine holds the wake lock.
func (e *AlertEngine) WakeLockHeld() bool { return e.lock != nil }

// ListenGestures unlocks audio on each gesture of src until it succeeds.
func (e *AlertEngine) ListenGestures(src core.GestureSource) {
	if e.unlocked {
		return
	}
	detach := src.OnGesture(func() {
		e.loop.Post(func() { e.Unlock(nil) })
	})
	e.detach = append(e.detach, detach)
}

// Unlock performs a silent play and stop. It must only run in response to
// a genuine user gesture. done, if set, receives the outcome.
func (e *AlertEngine) Unlock(done func(ok bool)) {
	if e.unlocked {
		if done != nil {
			done(true)
		}
		return
	}
	if done != nil {
		e.waiters = append(e.waiters, done)
	}
	if e.unlocking {
		return
	}
	e.unlocking = true

	e.audio.SetLoop(false)
	e.audio.SetVolume(0)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		err := e.audio.Play(ctx)
		e.loop.Post(func() { e.unlockResult(err) })
	}()
}

func (e *AlertEngine) unlockResult(err error) {
	e.unlocking = false
	if !e.active {
		e.audio.Pause()
		e.audio.Rewind()
	}

	ok := err == nil
	if ok {
		e.unlocked = true
		for _, d := range e.detach {
			d()
		}
		e.detach = nil
		log.Info().Str("module", "app.alert").Msg("audio unlocked")
		e.presenter.AudioUnlocked()
	} else {
		log.Warn().Err(err).Str("module", "app.alert").Msg("audio unlock failed, waiting for next gesture")
	}

	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		w(ok)
	}
}

// Activate starts the looping alert. It returns ErrAudioLocked without
// touching the audio element or the wake lock while audio is locked.
// Otherwise onResult receives the playback outcome, and for a bounded
// duration onExpire runs once the alert stopped itself.
func (e *AlertEngine) Activate(duration *int, onResult func(error), onExpire func()) error {
	if !e.unlocked {
		log.Info().Str("module", "app.alert").Msg("activate while audio locked")
		return core.ErrAudioLocked
	}
	if e.active {
		e.Deactivate()
	}

	e.gen++
	g := e.gen
	e.active = true

	e.audio.Rewind()
	e.audio.SetVolume(1)
	e.audio.SetLoop(true)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		err := e.audio.Play(ctx)
		e.loop.Post(func() { e.played(g, duration, err, onResult, onExpire) })
	}()
	return nil
}

func (e *AlertEngine) played(g uint64, duration *int, err error, onResult func(error), onExpire func()) {
	if g != e.gen {
		// deactivated while starting
		if err == nil && !e.active {
			e.audio.Pause()
			e.audio.Rewind()
		}
		return
	}

	if err != nil {
		e.active = false
		log.Warn().Err(err).Str("module", "app.alert").Msg("playback rejected")
		onResult(core.Wrap(core.KindPermission, "activate", err))
		return
	}

	log.Info().Str("module", "app.alert").Msg("alert playing")
	onResult(nil)
	if g != e.gen {
		return
	}

	if duration != nil && *duration > 0 {
		e.expiry = e.loop.After(time.Duration(*duration)*e.unit, func() {
			e.expiry = nil
			log.Info().Str("module", "app.alert").Int("duration", *duration).Msg("alert expired")
			e.Deactivate()
			if onExpire != nil {
				onExpire()
			}
		})
	}
	e.acquireWakeLock(g)
}

func (e *AlertEngine) acquireWakeLock(g uint64) {
	if e.locker == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), wakeLockTimeout)
		defer cancel()
		lock, err := e.locker.Acquire(ctx)
		if !e.loop.Post(func() { e.lockAcquired(g, lock, err) }) && lock != nil {
			_ = lock.Release()
		}
	}()
}

func (e *AlertEngine) lockAcquired(g uint64, lock core.WakeLock, err error) {
	if err != nil {
		log.Warn().Err(core.Wrap(core.KindResource, "wakelock", err)).Str("module", "app.alert").Msg("wake lock unavailable")
		return
	}
	if g != e.gen || !e.active {
		_ = lock.Release()
		return
	}

	e.lock = lock
	stop := make(chan struct{})
	e.lockStop = stop
	log.Debug().Str("module", "app.alert").Msg("wake lock acquired")

	go func() {
		select {
		case <-lock.Done():
			e.loop.Post(func() {
				if e.lock != lock {
					return
				}
				log.Info().Str("module", "app.alert").Msg("wake lock revoked")
				e.lock = nil
				close(e.lockStop)
				e.lockStop = nil
			})
		case <-stop:
		}
	}()
}

// Deactivate stops the alert and releases the wake lock. It is idempotent.
func (e *AlertEngine) Deactivate() {
	e.gen++
	e.expiry.Stop()
	e.expiry = nil

	if e.active {
		e.active = false
		e.audio.Pause()
		e.audio.Rewind()
		log.Info().Str("module", "app.alert").Msg("alert stopped")
	}

	if e.lock != nil {
		if err := e.lock.Release(); err != nil {
			log.Debug().Err(err).Str("module", "app.alert").Msg("wake lock release")
		}
		close(e.lockStop)
		e.lock = nil
		e.lockStop = nil
	}
}
