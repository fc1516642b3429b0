package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

type fakePresenter struct {
	mu       sync.Mutex
	statuses []domain.ConnStatus
	shown    []domain.RingAlert
	hidden   []domain.SessionID
	devices  map[domain.DeviceID]bool
	unlocked bool
	notif    []bool
	reasons  []string
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{devices: make(map[domain.DeviceID]bool)}
}

func (p *fakePresenter) ConnectionStatus(_ domain.ConnState, s domain.ConnStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, s)
}

func (p *fakePresenter) ShowRing(a domain.RingAlert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, a)
}

func (p *fakePresenter) HideRing(id domain.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = append(p.hidden, id)
}

func (p *fakePresenter) DeviceStatus(id domain.DeviceID, _ string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[id] = online
}

func (p *fakePresenter) AudioUnlocked() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocked = true
}

func (p *fakePresenter) NotificationsEnabled(enabled bool, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notif = append(p.notif, enabled)
	p.reasons = append(p.reasons, reason)
}

func (p *fakePresenter) Statuses() []domain.ConnStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ConnStatus(nil), p.statuses...)
}

func (p *fakePresenter) LastStatus() domain.ConnStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return ""
	}
	return p.statuses[len(p.statuses)-1]
}

func (p *fakePresenter) Hidden() []domain.SessionID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SessionID(nil), p.hidden...)
}

func (p *fakePresenter) Shown() []domain.RingAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RingAlert(nil), p.shown...)
}

type fakeConn struct {
	mu      sync.Mutex
	h       core.ConnHandlers
	started bool
	closed  bool
	sent    []core.Frame
}

func (c *fakeConn) Start(h core.ConnHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.h = h
	c.started = true
}

func (c *fakeConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// deliver injects an inbound frame the way the read pump would.
func (c *fakeConn) deliver(raw string) {
	c.mu.Lock()
	h := c.h
	c.mu.Unlock()
	h.OnMessage(core.Frame(raw))
}

// drop simulates the network going away.
func (c *fakeConn) drop(err error) {
	c.mu.Lock()
	h := c.h
	c.closed = true
	c.mu.Unlock()
	h.OnClose(err)
}

// sentOfType decodes every sent frame of the given type.
func (c *fakeConn) sentOfType(typ core.MessageType) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.sent {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			continue
		}
		if m["type"] == string(typ) {
			out = append(out, m)
		}
	}
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	fail  bool
	dials []time.Time
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, _ domain.DeviceID, _ string) (core.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, time.Now())
	if d.fail {
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) SetFail(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = v
}

func (d *fakeDialer) Dials() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.dials...)
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeAudio struct {
	mu      sync.Mutex
	plays   int
	pauses  int
	playing bool
	volume  float64
	playErr error
}

func (a *fakeAudio) SetVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = v
}

func (a *fakeAudio) SetLoop(bool) {}

func (a *fakeAudio) Play(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plays++
	if a.playErr != nil {
		return a.playErr
	}
	a.playing = true
	return nil
}

func (a *fakeAudio) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pauses++
	a.playing = false
}

func (a *fakeAudio) Rewind() {}

func (a *fakeAudio) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

func (a *fakeAudio) Plays() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plays
}

type fakeLock struct {
	done     chan struct{}
	released atomic.Bool
}

func (l *fakeLock) Release() error {
	l.released.Store(true)
	return nil
}

func (l *fakeLock) Done() <-chan struct{} { return l.done }

type fakeLocker struct {
	mu    sync.Mutex
	locks []*fakeLock
}

func (f *fakeLocker) Acquire(context.Context) (core.WakeLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &fakeLock{done: make(chan struct{})}
	f.locks = append(f.locks, l)
	return l, nil
}

// Held counts acquired locks not yet released.
func (f *fakeLocker) Held() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.locks {
		if !l.released.Load() {
			n++
		}
	}
	return n
}

type recordingSender struct {
	mu   sync.Mutex
	sent []core.Outbound
	err  error
}

func (s *recordingSender) Send(m core.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) Sent() []core.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Outbound(nil), s.sent...)
}
