package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrSessionIDEmpty = errors.New("ring session id empty")

// SessionID is the opaque, server-assigned ring session identifier.
// The server may encode it as a JSON string or a JSON number; the original
// encoding is kept so acknowledgements echo it back unchanged.
type SessionID struct {
	raw     string
	numeric bool
}

func NewSessionID(s string) SessionID { return SessionID{raw: s} }

func NumericSessionID(n int64) SessionID {
	return SessionID{raw: strconv.FormatInt(n, 10), numeric: true}
}

func (id SessionID) String() string { return id.raw }
func (id SessionID) IsZero() bool   { return id.raw == "" }

func (id SessionID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = SessionID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ring session id: %w", err)
	}
	*id = SessionID{raw: n.String(), numeric: true}
	return nil
}

// RingState is the lifecycle state of one ring session on this device.
type RingState int

const (
	RingAnnounced RingState = iota
	RingAcknowledged
	RingActive
	RingStopped
	RingExpired
)

func (s RingState) String() string {
	switch s {
	case RingAnnounced:
		return "announced"
	case RingAcknowledged:
		return "acknowledged"
	case RingActive:
		return "active"
	case RingStopped:
		return "stopped"
	case RingExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RingSession is one device-to-device buzz from announcement to stop.
// Duration is in seconds; nil means unbounded.
type RingSession struct {
	ID          SessionID
	Initiator   string
	Target      DeviceID
	Duration    *int
	State       RingState
	AnnouncedAt time.Time
	// Silent is set when the alert could not be made audible and no
	// ring_started was sent.
	Silent bool
}

// Bounded reports whether the session carries a positive duration.
func (s *RingSession) Bounded() bool { return s.Duration != nil && *s.Duration > 0 }

// AlertText is what the presentation layer shows while the session rings.
func (s *RingSession) AlertText() string {
	if s.Initiator == "" {
		return "Someone is ringing you!"
	}
	return s.Initiator + " is ringing you!"
}

// RingAlert is the presentation view of a ringing session.
type RingAlert struct {
	SessionID SessionID `json:"ring_session_id"`
	Text      string    `json:"text"`
	Audible   bool      `json:"audible"`
	Duration  *int      `json:"duration_seconds,omitempty"`
}
