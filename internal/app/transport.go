package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

// heartbeatTimeFormat matches the millisecond ISO timestamps the server logs.
const heartbeatTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type TransportConfig struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	HeartbeatPeriod      time.Duration
	DialTimeout          time.Duration
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxReconnectAttempts: core.DefaultMaxReconnectAttempts,
		ReconnectDelay:       core.DefaultReconnectDelay,
		HeartbeatPeriod:      core.DefaultHeartbeatPeriod,
		DialTimeout:          10 * time.Second,
	}
}

// Handler receives one decoded inbound message on the loop.
type Handler func(core.Inbound)

// Transport owns the persistent connection of one device. Its methods must
// be called on the loop.
type Transport struct {
	loop      *Loop
	dialer    core.Dialer
	presenter core.Presenter
	deviceID  domain.DeviceID
	token     string
	cfg       TransportConfig

	machine    *core.ConnMachine
	conn       core.Conn
	heartbeat  *Timer
	retry      *Timer
	cancelDial context.CancelFunc
	handlers   map[core.MessageType]Handler

	now func() time.Time
}

func NewTransport(loop *Loop, dialer core.Dialer, presenter core.Presenter, id domain.DeviceID, token string, cfg TransportConfig) *Transport {
	def := DefaultTransportConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = def.HeartbeatPeriod
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	return &Transport{
		loop:      loop,
		dialer:    dialer,
		presenter: presenter,
		deviceID:  id,
		token:     token,
		cfg:       cfg,
		machine:   core.NewConnMachine(cfg.MaxReconnectAttempts, cfg.ReconnectDelay),
		handlers:  make(map[core.MessageType]Handler),
		now:       time.Now,
	}
}

func (t *Transport) State() domain.ConnState { return t.machine.State() }

// On registers the handler of one message type, replacing any earlier one.
func (t *Transport) On(typ core.MessageType, h Handler) {
	if _, ok := t.handlers[typ]; ok {
		log.Debug().Str("module", "app.transport").Str("type", string(typ)).Msg("handler replaced")
	}
	t.handlers[typ] = h
}

func (t *Transport) Connect() {
	log.Info().Str("module", "app.transport").Str("state", t.machine.State().String()).Msg("connect")
	t.exec(t.machine.Connect())
}

func (t *Transport) Disconnect() {
	log.Info().Str("module", "app.transport").Msg("disconnect")
	t.exec(t.machine.Disconnect())
}

// Send transmits msg. Nothing is buffered while not connected.
func (t *Transport) Send(msg core.Outbound) error {
	if t.machine.State() != domain.ConnConnected || t.conn == nil {
		log.Warn().Str("module", "app.transport").Str("type", string(msg.Type())).
			Str("state", t.machine.State().String()).Msg("send while not connected")
		return core.ErrNotConnected
	}
	data, err := core.Encode(msg)
	if err != nil {
		return core.Wrap(core.KindProtocol, "encode", err)
	}
	if err := t.conn.Send(data); err != nil {
		log.Warn().Err(err).Str("module", "app.transport").Str("type", string(msg.Type())).Msg("send failed")
		return core.Wrap(core.KindTransport, "send", err)
	}
	return nil
}

func (t *Transport) exec(cmds []core.ConnCommand) {
	for _, c := range cmds {
		switch c.Op {
		case core.OpDial:
			t.dial(c.Seq)
		case core.OpClose:
			t.closeConn()
		case core.OpStartHeartbeat:
			t.heartbeat.Stop()
			t.heartbeat = t.loop.Every(t.cfg.HeartbeatPeriod, t.beat)
		case core.OpStopHeartbeat:
			t.heartbeat.Stop()
			t.heartbeat = nil
		case core.OpScheduleRetry:
			t.retry.Stop()
			t.retry = t.loop.After(c.Delay, func() {
				t.retry = nil
				t.exec(t.machine.RetryDue())
			})
		case core.OpCancelRetry:
			t.retry.Stop()
			t.retry = nil
		case core.OpReport:
			ev := log.Info()
			if c.State == domain.ConnLost {
				ev = log.Warn()
			}
			ev.Str("module", "app.transport").Str("state", c.State.String()).
				Int("attempts", t.machine.Attempts()).Msg(string(c.Status))
			t.presenter.ConnectionStatus(c.State, c.Status)
		}
	}
}

func (t *Transport) dial(seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.DialTimeout)
	t.cancelDial = cancel
	log.Debug().Str("module", "app.transport").Uint64("seq", seq).Int("attempt", t.machine.Attempts()).Msg("dialing")

	go func() {
		conn, err := t.dialer.Dial(ctx, t.deviceID, t.token)
		cancel()
		if !t.loop.Post(func() { t.dialed(seq, conn, err) }) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (t *Transport) dialed(seq uint64, conn core.Conn, err error) {
	if seq != t.machine.Seq() || t.machine.State() != domain.ConnConnecting {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	t.cancelDial = nil

	if err != nil {
		log.Warn().Err(err).Str("module", "app.transport").Int("attempt", t.machine.Attempts()).Msg("dial failed")
		t.exec(t.machine.Failed(seq))
		return
	}

	t.conn = conn
	// frames and close events queue behind this task
	conn.Start(core.ConnHandlers{
		OnMessage: func(f core.Frame) {
			t.loop.Post(func() { t.receive(seq, f) })
		},
		OnClose: func(err error) {
			t.loop.Post(func() { t.closed(seq, err) })
		},
	})
	t.exec(t.machine.Opened(seq))
}

func (t *Transport) receive(seq uint64, f core.Frame) {
	if seq != t.machine.Seq() {
		return
	}
	msg, err := core.Decode(f)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.transport").Msg("dropping inbound message")
		return
	}
	h, ok := t.handlers[msg.Type()]
	if !ok {
		log.Debug().Str("module", "app.transport").Str("type", string(msg.Type())).Msg("no handler")
		return
	}
	h(msg)
}

func (t *Transport) closed(seq uint64, err error) {
	if seq != t.machine.Seq() {
		return
	}
	log.Warn().Err(err).Str("module", "app.transport").Msg("connection closed")
	t.conn = nil
	t.exec(t.machine.Failed(seq))
}

func (t *Transport) closeConn() {
	if t.cancelDial != nil {
		t.cancelDial()
		t.cancelDial = nil
	}
	if t.conn == nil {
		return
	}
	c := t.conn
	t.conn = nil
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Str("module", "app.transport").Msg("close")
	}
}

func (t *Transport) beat() {
	_ = t.Send(core.Heartbeat{
		DeviceID:  t.deviceID,
		Timestamp: t.now().UTC().Format(heartbeatTimeFormat),
	})
}
