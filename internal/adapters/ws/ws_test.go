package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

// buzzServer accepts /ws/dev-1?token=good, pushes one ring_command and
// forwards what it receives.
func buzzServer(t *testing.T) (*httptest.Server, chan string, chan *websocket.Conn) {
	t.Helper()
	received := make(chan string, 8)
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/dev-1" || r.URL.Query().Get("token") != "good" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"ring_command","ring_session_id":"abc"}`))
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received, conns
}

func TestDialerURL(t *testing.T) {
	d, err := NewDialer(Config{ServerURL: "https://buzz.example.com/base/"})
	require.NoError(t, err)
	assert.Equal(t, "wss://buzz.example.com/base/ws/dev-1?token=a%2Bb", d.URL("dev-1", "a+b"))

	_, err = NewDialer(Config{ServerURL: "ftp://x"})
	assert.Error(t, err)
	_, err = NewDialer(Config{ServerURL: "http://"})
	assert.Error(t, err)
}

func TestConnRoundTrip(t *testing.T) {
	srv, received, conns := buzzServer(t)
	d, err := NewDialer(Config{ServerURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := d.Dial(ctx, domain.DeviceID("dev-1"), "good")
	require.NoError(t, err)

	frames := make(chan core.Frame, 4)
	closed := make(chan error, 1)
	conn.Start(core.ConnHandlers{
		OnMessage: func(f core.Frame) { frames <- f },
		OnClose:   func(err error) { closed <- err },
	})

	select {
	case f := <-frames:
		assert.Contains(t, string(f), "ring_command")
	case <-time.After(time.Second):
		t.Fatal("no frame")
	}

	require.NoError(t, conn.Send(core.Frame(`{"type":"heartbeat"}`)))
	select {
	case got := <-received:
		assert.Equal(t, `{"type":"heartbeat"}`, got)
	case <-time.After(time.Second):
		t.Fatal("server received nothing")
	}

	// server side drop is reported with a reason
	server := <-conns
	_ = server.Close()
	select {
	case err := <-closed:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("close not reported")
	}
	assert.ErrorIs(t, conn.Send(core.Frame("x")), ErrClosed)
}

func TestConnLocalCloseReportsNil(t *testing.T) {
	srv, _, _ := buzzServer(t)
	d, err := NewDialer(Config{ServerURL: srv.URL})
	require.NoError(t, err)

	conn, err := d.Dial(context.Background(), "dev-1", "good")
	require.NoError(t, err)
	closed := make(chan error, 1)
	conn.Start(core.ConnHandlers{
		OnMessage: func(core.Frame) {},
		OnClose:   func(err error) { closed <- err },
	})

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close not reported")
	}
}

func TestDialRejected(t *testing.T) {
	srv, _, _ := buzzServer(t)
	d, err := NewDialer(Config{ServerURL: strings.Replace(srv.URL, "http", "ws", 1)})
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "dev-1", "bad")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTransport))
	assert.Contains(t, err.Error(), "403")
}
