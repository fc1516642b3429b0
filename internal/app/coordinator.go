package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

const (
	DefaultRingInterval = 2 * time.Second
	DefaultRingBurst    = 3

	maxLimiters = 64
)

var (
	ErrTargetEmpty     = errors.New("target device required")
	ErrInvalidDuration = errors.New("duration out of range")
	ErrRingRateLimited = errors.New("too many rings to this device")
)

// Sender transmits outbound messages.
type Sender interface {
	Send(core.Outbound) error
}

// Alerter is the alert engine as seen by the coordinator.
type Alerter interface {
	Activate(duration *int, onResult func(error), onExpire func()) error
	Deactivate()
}

type CoordinatorConfig struct {
	// RingInterval and RingBurst bound how often one target can be rung.
	RingInterval time.Duration
	RingBurst    int
}

// Coordinator runs the ring session protocol on top of the transport. Its
// methods must be called on the loop.
type Coordinator struct {
	loop      *Loop
	self      domain.DeviceID
	sender    Sender
	alert     Alerter
	presenter core.Presenter
	book      *core.RingBook
	silent    *Timer

	limiters     map[string]*rate.Limiter
	ringInterval time.Duration
	ringBurst    int

	unit time.Duration
	now  func() time.Time
}

func NewCoordinator(loop *Loop, self domain.DeviceID, sender Sender, alert Alerter, presenter core.Presenter, cfg CoordinatorConfig) *Coordinator {
	if cfg.RingInterval <= 0 {
		cfg.RingInterval = DefaultRingInterval
	}
	if cfg.RingBurst <= 0 {
		cfg.RingBurst = DefaultRingBurst
	}
	return &Coordinator{
		loop:         loop,
		self:         self,
		sender:       sender,
		alert:        alert,
		presenter:    presenter,
		book:         core.NewRingBook(self, core.DefaultTombstones),
		limiters:     make(map[string]*rate.Limiter),
		ringInterval: cfg.RingInterval,
		ringBurst:    cfg.RingBurst,
		unit:         time.Second,
		now:          time.Now,
	}
}

// Attach registers the coordinator for every inbound message type.
func (c *Coordinator) Attach(t *Transport) {
	for _, typ := range []core.MessageType{
		core.TypeRingCommand,
		core.TypeStopCommand,
		core.TypeDeviceStatusChanged,
		core.TypePong,
	} {
		t.On(typ, c.Handle)
	}
}

// Current returns the live ring session, if any.
func (c *Coordinator) Current() (domain.RingSession, bool) { return c.book.Current() }

func (c *Coordinator) Handle(m core.Inbound) {
	switch v := m.(type) {
	case core.RingCommand:
		log.Info().Str("module", "app.coordinator").Str("session", v.SessionID.String()).
			Str("initiator", v.InitiatorName).Msg("ring command")
		effects := c.book.Announce(v, c.now())
		if effects == nil {
			log.Debug().Str("module", "app.coordinator").Str("session", v.SessionID.String()).Msg("ring for ended session ignored")
		}
		c.apply(effects)
	case core.StopCommand:
		effects := c.book.Stop(v.SessionID)
		if effects == nil {
			log.Debug().Str("module", "app.coordinator").Str("session", v.SessionID.String()).Msg("stop for unknown session")
			return
		}
		log.Info().Str("module", "app.coordinator").Str("session", v.SessionID.String()).Msg("stop command")
		c.apply(effects)
	case core.DeviceStatusChanged:
		log.Debug().Str("module", "app.coordinator").Str("device", string(v.DeviceID)).Bool("online", v.Online).Msg("device status")
		c.presenter.DeviceStatus(v.DeviceID, v.DeviceName, v.Online)
	case core.Pong:
		log.Debug().Str("module", "app.coordinator").Str("timestamp", v.Timestamp).Msg("pong")
	default:
		log.Warn().Str("module", "app.coordinator").Str("type", string(m.Type())).Msg("unhandled message")
	}
}

// Dismiss stops the live session on the user's request. It reports whether
// there was one.
func (c *Coordinator) Dismiss() bool {
	effects := c.book.Dismiss()
	if effects == nil {
		return false
	}
	log.Info().Str("module", "app.coordinator").Str("session", effects[0].Session.ID.String()).Msg("dismissed")
	c.apply(effects)
	return true
}

// InitiateRing asks the server to ring target. A nil duration leaves the
// length to the server.
func (c *Coordinator) InitiateRing(target string, duration *int) error {
	if target == "" {
		return ErrTargetEmpty
	}
	if duration != nil && (*duration <= 0 || int64(*duration) > core.MaxDurationSeconds) {
		return ErrInvalidDuration
	}
	if !c.limiter(target).Allow() {
		log.Warn().Str("module", "app.coordinator").Str("target", target).Msg("ring rate limited")
		return ErrRingRateLimited
	}
	log.Info().Str("module", "app.coordinator").Str("target", target).Msg("initiating ring")
	return c.sender.Send(core.RingStart{TargetDeviceID: target, DurationSeconds: duration})
}

func (c *Coordinator) limiter(target string) *rate.Limiter {
	l, ok := c.limiters[target]
	if !ok {
		if len(c.limiters) >= maxLimiters {
			c.pruneLimiters()
		}
		l = rate.NewLimiter(rate.Every(c.ringInterval), c.ringBurst)
		c.limiters[target] = l
	}
	return l
}

// pruneLimiters drops limiters that have refilled to a full burst; such a
// limiter allows exactly what a new one would.
func (c *Coordinator) pruneLimiters() {
	now := time.Now()
	for target, l := range c.limiters {
		if l.TokensAt(now) >= float64(c.ringBurst) {
			delete(c.limiters, target)
		}
	}
}

func (c *Coordinator) apply(effects []core.RingEffect) {
	for len(effects) > 0 {
		ef := effects[0]
		effects = effects[1:]
		s := ef.Session

		switch ef.Op {
		case core.RingOpActivate:
			id := s.ID
			err := c.alert.Activate(s.Duration,
				func(err error) { c.activated(id, err) },
				func() { c.apply(c.book.Expired(id)) },
			)
			if err != nil {
				log.Info().Err(err).Str("module", "app.coordinator").Str("session", id.String()).Msg("alert shown without sound")
				effects = append(effects, c.book.Activated(id, false)...)
			}
		case core.RingOpDeactivate:
			c.alert.Deactivate()
		case core.RingOpShowAlert:
			c.presenter.ShowRing(domain.RingAlert{
				SessionID: s.ID,
				Text:      s.AlertText(),
				Audible:   s.State == domain.RingActive && !s.Silent,
				Duration:  s.Duration,
			})
		case core.RingOpHideAlert:
			c.presenter.HideRing(s.ID)
		case core.RingOpSendStarted:
			c.send(core.RingStarted{SessionID: s.ID, DeviceID: c.self})
		case core.RingOpSendStopped:
			c.send(core.RingStopped{SessionID: s.ID, DeviceID: c.self})
		case core.RingOpArmSilentExpiry:
			id := s.ID
			c.silent.Stop()
			c.silent = c.loop.After(time.Duration(*s.Duration)*c.unit, func() {
				c.silent = nil
				c.apply(c.book.SilentLapsed(id))
			})
		case core.RingOpCancelSilentExpiry:
			c.silent.Stop()
			c.silent = nil
		}
	}
}

func (c *Coordinator) activated(id domain.SessionID, err error) {
	if err != nil {
		log.Info().Err(err).Str("module", "app.coordinator").Str("session", id.String()).Msg("activation failed")
	}
	c.apply(c.book.Activated(id, err == nil))
}

func (c *Coordinator) send(m core.Outbound) {
	if err := c.sender.Send(m); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("type", string(m.Type())).Msg("acknowledgement not sent")
	}
}
