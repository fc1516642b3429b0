// Package ws is the persistent connection to the buzzer server over
// gorilla/websocket.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

type Config struct {
	// ServerURL is the http(s) or ws(s) base of the server.
	ServerURL  string
	WriteWait  time.Duration
	ReadLimit  int64
	SendBuffer int
}

func DefaultConfig() Config {
	return Config{
		WriteWait:  5 * time.Second,
		ReadLimit:  32768,
		SendBuffer: 32,
	}
}

// Dialer connects to <ws(s)>://<server>/ws/<device_id>?token=<credential>.
type Dialer struct {
	cfg    Config
	base   *url.URL
	dialer *websocket.Dialer
}

func NewDialer(cfg Config) (*Dialer, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("server url: unsupported scheme %q", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("server url: missing host")
	}

	def := DefaultConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}

	return &Dialer{
		cfg:  cfg,
		base: base,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

// URL is the connection endpoint of device id.
func (d *Dialer) URL(id domain.DeviceID, token string) string {
	u := *d.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + url.PathEscape(string(id))
	q := url.Values{}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *Dialer) Dial(ctx context.Context, id domain.DeviceID, token string) (core.Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, d.URL(id, token), nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, core.Wrap(core.KindTransport, "dial", err)
	}
	ws.SetReadLimit(d.cfg.ReadLimit)
	log.Info().Str("module", "adapters.ws").Str("device", string(id)).Msg("connected")
	return newConn(ws, d.cfg), nil
}
