package core

import (
	"time"

	"github.com/dkeye/Buzzer/internal/domain"
)

// DefaultTombstones is how many ended session ids are remembered.
const DefaultTombstones = 64

// RingOp is a side effect requested by the ring book.
type RingOp int

const (
	RingOpActivate RingOp = iota + 1
	RingOpDeactivate
	RingOpShowAlert
	RingOpHideAlert
	RingOpSendStarted
	RingOpSendStopped
	RingOpArmSilentExpiry
	RingOpCancelSilentExpiry
)

func (o RingOp) String() string {
	switch o {
	case RingOpActivate:
		return "activate"
	case RingOpDeactivate:
		return "deactivate"
	case RingOpShowAlert:
		return "show_alert"
	case RingOpHideAlert:
		return "hide_alert"
	case RingOpSendStarted:
		return "send_started"
	case RingOpSendStopped:
		return "send_stopped"
	case RingOpArmSilentExpiry:
		return "arm_silent_expiry"
	case RingOpCancelSilentExpiry:
		return "cancel_silent_expiry"
	default:
		return "unknown"
	}
}

// RingEffect carries a snapshot of the session it applies to.
type RingEffect struct {
	Op      RingOp
	Session domain.RingSession
}

// RingBook tracks the ring session of this device. At most one session is
// live; a new one supersedes it without a network round trip.
type RingBook struct {
	self    domain.DeviceID
	current *domain.RingSession

	ended    map[string]struct{}
	endedLog []string
	keep     int
}

func NewRingBook(self domain.DeviceID, tombstones int) *RingBook {
	if tombstones <= 0 {
		tombstones = DefaultTombstones
	}
	return &RingBook{
		self:  self,
		ended: make(map[string]struct{}, tombstones),
		keep:  tombstones,
	}
}

// Current returns a copy of the live session.
func (b *RingBook) Current() (domain.RingSession, bool) {
	if b.current == nil {
		return domain.RingSession{}, false
	}
	return *b.current, true
}

// Ended reports whether id belongs to a recently ended session.
func (b *RingBook) Ended(id domain.SessionID) bool {
	_, ok := b.ended[id.String()]
	return ok
}

// Announce handles an incoming ring_command.
func (b *RingBook) Announce(cmd RingCommand, now time.Time) []RingEffect {
	if cmd.SessionID.IsZero() || b.Ended(cmd.SessionID) {
		return nil
	}

	if cur := b.current; cur != nil && cur.ID.String() == cmd.SessionID.String() {
		cur.Initiator = cmd.InitiatorName
		if cur.State == domain.RingAnnounced {
			cur.Duration = cmd.DurationSeconds
		}
		return []RingEffect{b.effect(RingOpShowAlert)}
	}

	var out []RingEffect
	if b.current != nil {
		out = append(out, b.end(domain.RingStopped, false)...)
	}

	b.current = &domain.RingSession{
		ID:          cmd.SessionID,
		Initiator:   cmd.InitiatorName,
		Target:      b.self,
		Duration:    cmd.DurationSeconds,
		State:       domain.RingAnnounced,
		AnnouncedAt: now,
	}
	return append(out, b.effect(RingOpShowAlert), b.effect(RingOpActivate))
}

// Activated reports the alert engine's result for session id.
func (b *RingBook) Activated(id domain.SessionID, ok bool) []RingEffect {
	cur := b.current
	if cur == nil || cur.ID.String() != id.String() || cur.State != domain.RingAnnounced {
		return nil
	}

	if !ok {
		cur.State = domain.RingActive
		cur.Silent = true
		if cur.Bounded() {
			return []RingEffect{b.effect(RingOpArmSilentExpiry)}
		}
		return nil
	}

	cur.State = domain.RingAcknowledged
	started := b.effect(RingOpSendStarted)
	cur.State = domain.RingActive
	return []RingEffect{started, b.effect(RingOpShowAlert)}
}

// Stop handles a stop_command. Unknown or ended sessions are a no-op.
func (b *RingBook) Stop(id domain.SessionID) []RingEffect {
	cur := b.current
	if cur == nil || cur.ID.String() != id.String() {
		return nil
	}
	return b.end(domain.RingStopped, true)
}

// Dismiss stops the live session on the user's request.
func (b *RingBook) Dismiss() []RingEffect {
	if b.current == nil {
		return nil
	}
	return b.end(domain.RingStopped, true)
}

// Expired handles the audible self-expiry of session id.
func (b *RingBook) Expired(id domain.SessionID) []RingEffect {
	cur := b.current
	if cur == nil || cur.ID.String() != id.String() || cur.State != domain.RingActive || cur.Silent {
		return nil
	}
	return b.end(domain.RingStopped, true)
}

// SilentLapsed ends a silent bounded session once its duration passed.
// Nothing is sent.
func (b *RingBook) SilentLapsed(id domain.SessionID) []RingEffect {
	cur := b.current
	if cur == nil || cur.ID.String() != id.String() || !cur.Silent {
		return nil
	}
	return b.end(domain.RingExpired, false)
}

func (b *RingBook) end(state domain.RingState, ack bool) []RingEffect {
	cur := b.current
	silent := cur.Silent
	cur.State = state

	out := []RingEffect{b.effect(RingOpDeactivate)}
	if silent {
		out = append(out, b.effect(RingOpCancelSilentExpiry))
	}
	out = append(out, b.effect(RingOpHideAlert))
	if ack {
		out = append(out, b.effect(RingOpSendStopped))
	}

	b.remember(cur.ID.String())
	b.current = nil
	return out
}

func (b *RingBook) remember(id string) {
	if _, ok := b.ended[id]; ok {
		return
	}
	if len(b.endedLog) >= b.keep {
		delete(b.ended, b.endedLog[0])
		b.endedLog = b.endedLog[1:]
	}
	b.ended[id] = struct{}{}
	b.endedLog = append(b.endedLog, id)
}

func (b *RingBook) effect(op RingOp) RingEffect {
	return RingEffect{Op: op, Session: *b.current}
}
