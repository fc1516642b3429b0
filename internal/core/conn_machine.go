package core

import (
	"time"

	"github.com/dkeye/Buzzer/internal/domain"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultHeartbeatPeriod      = 30 * time.Second
)

// ConnOp is a side effect requested by the connection machine.
type ConnOp int

const (
	OpDial ConnOp = iota + 1
	OpClose
	OpStartHeartbeat
	OpStopHeartbeat
	OpScheduleRetry
	OpCancelRetry
	OpReport
)

func (o ConnOp) String() string {
	switch o {
	case OpDial:
		return "dial"
	case OpClose:
		return "close"
	case OpStartHeartbeat:
		return "start_heartbeat"
	case OpStopHeartbeat:
		return "stop_heartbeat"
	case OpScheduleRetry:
		return "schedule_retry"
	case OpCancelRetry:
		return "cancel_retry"
	case OpReport:
		return "report"
	default:
		return "unknown"
	}
}

// ConnCommand is executed by the transport in order.
type ConnCommand struct {
	Op     ConnOp
	Seq    uint64        // OpDial
	Delay  time.Duration // OpScheduleRetry
	State  domain.ConnState
	Status domain.ConnStatus // OpReport
}

// ConnMachine holds the connection state and decides what to do on each
// event. It performs no I/O.
//
// Every dial gets a new sequence number; results carrying an older one are
// ignored.
type ConnMachine struct {
	state       domain.ConnState
	attempts    int
	seq         uint64
	maxAttempts int
	delay       time.Duration
}

func NewConnMachine(maxAttempts int, delay time.Duration) *ConnMachine {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &ConnMachine{
		state:       domain.ConnDisconnected,
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

func (m *ConnMachine) State() domain.ConnState { return m.state }

// Attempts is the number of reconnections made since the last open.
func (m *ConnMachine) Attempts() int { return m.attempts }

// Seq is the sequence number of the current dial.
func (m *ConnMachine) Seq() uint64 { return m.seq }

// Connect is a no-op while Connecting or Connected. From Reconnecting the
// pending retry is replaced by an immediate dial that counts as that retry.
func (m *ConnMachine) Connect() []ConnCommand {
	switch m.state {
	case domain.ConnConnecting, domain.ConnConnected:
		return nil
	case domain.ConnReconnecting:
		return append([]ConnCommand{{Op: OpCancelRetry}}, m.RetryDue()...)
	default:
		m.attempts = 0
		return m.dial()
	}
}

// Opened reports a successful dial.
func (m *ConnMachine) Opened(seq uint64) []ConnCommand {
	if seq != m.seq || m.state != domain.ConnConnecting {
		return nil
	}
	m.state = domain.ConnConnected
	m.attempts = 0
	return []ConnCommand{
		{Op: OpStartHeartbeat},
		m.report(domain.StatusConnected),
	}
}

// Failed reports a failed dial or the loss of an open connection.
func (m *ConnMachine) Failed(seq uint64) []ConnCommand {
	if seq != m.seq {
		return nil
	}
	var out []ConnCommand
	switch m.state {
	case domain.ConnConnected:
		out = append(out, ConnCommand{Op: OpStopHeartbeat}, ConnCommand{Op: OpClose})
	case domain.ConnConnecting:
	default:
		return nil
	}

	if m.attempts >= m.maxAttempts {
		m.state = domain.ConnLost
		return append(out, m.report(domain.StatusLost))
	}
	m.state = domain.ConnReconnecting
	return append(out,
		ConnCommand{Op: OpScheduleRetry, Delay: m.delay},
		m.report(domain.StatusOffline),
	)
}

// RetryDue fires when the reconnect delay elapsed.
func (m *ConnMachine) RetryDue() []ConnCommand {
	if m.state != domain.ConnReconnecting {
		return nil
	}
	m.attempts++
	return m.dial()
}

// Disconnect cancels everything and suppresses reconnection.
func (m *ConnMachine) Disconnect() []ConnCommand {
	if m.state == domain.ConnDisconnected {
		return nil
	}
	// invalidates an in-flight dial
	m.seq++
	m.state = domain.ConnDisconnected
	m.attempts = 0
	return []ConnCommand{
		{Op: OpStopHeartbeat},
		{Op: OpCancelRetry},
		{Op: OpClose},
		m.report(domain.StatusOffline),
	}
}

func (m *ConnMachine) dial() []ConnCommand {
	m.seq++
	m.state = domain.ConnConnecting
	return []ConnCommand{{Op: OpDial, Seq: m.seq}}
}

func (m *ConnMachine) report(s domain.ConnStatus) ConnCommand {
	return ConnCommand{Op: OpReport, State: m.state, Status: s}
}
