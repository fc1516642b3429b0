package core

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dkeye/Buzzer/internal/domain"
)

// MessageType is the envelope discriminator shared by both directions.
type MessageType string

const (
	// Server -> device
	TypeRingCommand         MessageType = "ring_command"
	TypeStopCommand         MessageType = "stop_command"
	TypeDeviceStatusChanged MessageType = "device_status_changed"
	TypePong                MessageType = "pong"

	// Device -> server
	TypeHeartbeat   MessageType = "heartbeat"
	TypeRingStarted MessageType = "ring_started"
	TypeRingStopped MessageType = "ring_stopped"
	TypeRingStart   MessageType = "ring_start"
)

// MaxDurationSeconds is the longest ring duration that still fits a
// time.Duration. Longer rings are treated as unbounded.
const MaxDurationSeconds = int64(math.MaxInt64 / time.Second)

// Inbound is the closed set of messages the server sends to a device.
type Inbound interface {
	Type() MessageType
	inbound()
}

type RingCommand struct {
	SessionID     domain.SessionID
	InitiatorName string
	// DurationSeconds is nil for an unbounded ring.
	DurationSeconds *int
}

type StopCommand struct {
	SessionID domain.SessionID
}

type DeviceStatusChanged struct {
	DeviceID   domain.DeviceID
	DeviceName string
	Online     bool
}

type Pong struct {
	Timestamp string
}

func (RingCommand) Type() MessageType         { return TypeRingCommand }
func (StopCommand) Type() MessageType         { return TypeStopCommand }
func (DeviceStatusChanged) Type() MessageType { return TypeDeviceStatusChanged }
func (Pong) Type() MessageType                { return TypePong }

func (RingCommand) inbound()         {}
func (StopCommand) inbound()         {}
func (DeviceStatusChanged) inbound() {}
func (Pong) inbound()                {}

type wireInbound struct {
	Type            MessageType      `json:"type"`
	SessionID       domain.SessionID `json:"ring_session_id"`
	InitiatorName   string           `json:"initiator_name"`
	DurationSeconds *int             `json:"duration_seconds"`
	Duration        *int             `json:"duration"`
	DeviceID        domain.DeviceID  `json:"device_id"`
	DeviceName      string           `json:"device_name"`
	Online          *bool            `json:"online"`
	Timestamp       string           `json:"timestamp"`
}

// Decode parses one frame into its Inbound variant. Malformed frames wrap
// ErrMalformed, unrecognized discriminators wrap ErrUnknownType.
func Decode(data []byte) (Inbound, error) {
	var w wireInbound
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch w.Type {
	case TypeRingCommand:
		if w.SessionID.IsZero() {
			return nil, fmt.Errorf("%w: ring_command: %w", ErrMalformed, domain.ErrSessionIDEmpty)
		}
		d := w.DurationSeconds
		if d == nil {
			d = w.Duration
		}
		if d != nil && (*d <= 0 || int64(*d) > MaxDurationSeconds) {
			d = nil
		}
		return RingCommand{SessionID: w.SessionID, InitiatorName: w.InitiatorName, DurationSeconds: d}, nil
	case TypeStopCommand:
		if w.SessionID.IsZero() {
			return nil, fmt.Errorf("%w: stop_command: %w", ErrMalformed, domain.ErrSessionIDEmpty)
		}
		return StopCommand{SessionID: w.SessionID}, nil
	case TypeDeviceStatusChanged:
		if w.DeviceID == "" || w.Online == nil {
			return nil, fmt.Errorf("%w: device_status_changed without device_id/online", ErrMalformed)
		}
		return DeviceStatusChanged{DeviceID: w.DeviceID, DeviceName: w.DeviceName, Online: *w.Online}, nil
	case TypePong:
		return Pong{Timestamp: w.Timestamp}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}
}

// Outbound is the closed set of messages a device sends.
type Outbound interface {
	Type() MessageType
	outbound()
}

type Heartbeat struct {
	DeviceID  domain.DeviceID `json:"deviceId"`
	Timestamp string          `json:"timestamp"`
}

type RingStarted struct {
	SessionID domain.SessionID `json:"ring_session_id"`
	DeviceID  domain.DeviceID  `json:"device_id"`
}

type RingStopped struct {
	SessionID domain.SessionID `json:"ring_session_id"`
	DeviceID  domain.DeviceID  `json:"device_id"`
}

// RingStart asks the server to ring another device.
type RingStart struct {
	TargetDeviceID  string `json:"target_device_id"`
	DurationSeconds *int   `json:"duration_seconds"`
}

func (Heartbeat) Type() MessageType   { return TypeHeartbeat }
func (RingStarted) Type() MessageType { return TypeRingStarted }
func (RingStopped) Type() MessageType { return TypeRingStopped }
func (RingStart) Type() MessageType   { return TypeRingStart }

func (Heartbeat) outbound()   {}
func (RingStarted) outbound() {}
func (RingStopped) outbound() {}
func (RingStart) outbound()   {}

// Encode renders m with its type discriminator.
func Encode(m Outbound) ([]byte, error) {
	switch v := m.(type) {
	case Heartbeat:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Heartbeat
		}{v.Type(), v})
	case RingStarted:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			RingStarted
		}{v.Type(), v})
	case RingStopped:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			RingStopped
		}{v.Type(), v})
	case RingStart:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			RingStart
		}{v.Type(), v})
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", m)
	}
}
