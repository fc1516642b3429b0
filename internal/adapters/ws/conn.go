package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Conn is one established connection. Frames are written by a single
// write pump; reads start with Start.
type Conn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
}

func newConn(ws *websocket.Conn, cfg Config) *Conn {
	return &Conn{
		conn:      ws,
		send:      make(chan core.Frame, cfg.SendBuffer),
		writeWait: cfg.WriteWait,
	}
}

func (c *Conn) Start(h core.ConnHandlers) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.writePump()
	go c.readPump(h)
}

// Send queues f without blocking.
func (c *Conn) Send(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
	return c.conn.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conn) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
			_ = c.conn.Close()
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
			_ = c.conn.Close()
			return
		}
	}
	log.Debug().Str("module", "adapters.ws").Msg("writePump channel closed")
}

func (c *Conn) readPump(h core.ConnHandlers) {
	var reason error
	defer func() {
		if c.isClosed() {
			reason = nil
		}
		_ = c.Close()
		log.Debug().Err(reason).Str("module", "adapters.ws").Msg("readPump closing")
		if h.OnClose != nil {
			h.OnClose(reason)
		}
	}()

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			reason = err
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	}
}
