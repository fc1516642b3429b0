package app

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

const testUnit = 20 * time.Millisecond

type ringRig struct {
	loop      *Loop
	transport *Transport
	engine    *AlertEngine
	coord     *Coordinator
	dialer    *fakeDialer
	audio     *fakeAudio
	locker    *fakeLocker
	presenter *fakePresenter
}

func newRingRig(t *testing.T, unlocked bool) *ringRig {
	t.Helper()
	r := &ringRig{
		loop:      startLoop(t),
		dialer:    &fakeDialer{},
		audio:     &fakeAudio{},
		locker:    &fakeLocker{},
		presenter: newFakePresenter(),
	}
	cfg := testTransportConfig()
	cfg.HeartbeatPeriod = time.Hour
	r.transport = NewTransport(r.loop, r.dialer, r.presenter, "self", "tok", cfg)
	r.engine = NewAlertEngine(r.loop, r.audio, r.locker, r.presenter)
	r.engine.unit = testUnit
	r.engine.unlocked = unlocked
	r.coord = NewCoordinator(r.loop, "self", r.transport, r.engine, r.presenter, CoordinatorConfig{})
	r.coord.unit = testUnit

	on(t, r.loop, func() {
		r.coord.Attach(r.transport)
		r.transport.Connect()
	})
	require.Eventually(t, func() bool { return r.presenter.LastStatus() == domain.StatusConnected }, time.Second, time.Millisecond)
	return r
}

func (r *ringRig) conn() *fakeConn { return r.dialer.Last() }

// Unlocked and connected device receives a five second ring: it plays,
// acknowledges, then stops itself and reports exactly one ring_stopped.
func TestCoordinatorBoundedRingScenario(t *testing.T) {
	r := newRingRig(t, true)
	c := r.conn()

	start := time.Now()
	c.deliver(`{"type":"ring_command","ring_session_id":"abc","duration_seconds":5}`)

	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 1 }, time.Second, time.Millisecond)
	started := c.sentOfType(core.TypeRingStarted)[0]
	assert.Equal(t, "abc", started["ring_session_id"])
	assert.Equal(t, "self", started["device_id"])
	assert.True(t, r.audio.Playing())

	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStopped)) == 1 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 5*testUnit)
	stopped := c.sentOfType(core.TypeRingStopped)[0]
	assert.Equal(t, "abc", stopped["ring_session_id"])
	assert.Equal(t, "self", stopped["device_id"])

	time.Sleep(5 * testUnit)
	assert.Len(t, c.sentOfType(core.TypeRingStopped), 1)
	assert.False(t, r.audio.Playing())
	assert.Equal(t, 1, r.audio.Plays())
	assert.Zero(t, r.locker.Held())
	assert.Equal(t, []domain.SessionID{domain.NewSessionID("abc")}, r.presenter.Hidden())

	var live bool
	on(t, r.loop, func() { _, live = r.coord.Current() })
	assert.False(t, live)
}

func TestCoordinatorHugeDurationDoesNotExpire(t *testing.T) {
	for _, d := range []string{"10000000000", "9223372036"} {
		t.Run(d, func(t *testing.T) {
			r := newRingRig(t, true)
			on(t, r.loop, func() {
				r.engine.unit = time.Second
				r.coord.unit = time.Second
			})
			c := r.conn()

			c.deliver(`{"type":"ring_command","ring_session_id":"big","duration_seconds":` + d + `}`)
			require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 1 }, time.Second, time.Millisecond)

			time.Sleep(100 * time.Millisecond)
			assert.Empty(t, c.sentOfType(core.TypeRingStopped))
			assert.True(t, r.audio.Playing())
		})
	}
}

func TestCoordinatorStopBeforeExpirySendsOnce(t *testing.T) {
	r := newRingRig(t, true)
	c := r.conn()

	c.deliver(`{"type":"ring_command","ring_session_id":7,"duration_seconds":5}`)
	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 1 }, time.Second, time.Millisecond)

	c.deliver(`{"type":"stop_command","ring_session_id":7}`)
	c.deliver(`{"type":"stop_command","ring_session_id":7}`)
	time.Sleep(8 * testUnit)

	stops := c.sentOfType(core.TypeRingStopped)
	require.Len(t, stops, 1)
	assert.EqualValues(t, 7, stops[0]["ring_session_id"])
	assert.False(t, r.audio.Playing())
	assert.Zero(t, r.locker.Held())
}

func TestCoordinatorLockedAudioShowsSilentAlert(t *testing.T) {
	r := newRingRig(t, false)
	c := r.conn()

	c.deliver(`{"type":"ring_command","ring_session_id":"s1","initiator_name":"Ann","duration_seconds":3}`)
	require.Eventually(t, func() bool { return len(r.presenter.Shown()) == 1 }, time.Second, time.Millisecond)

	shown := r.presenter.Shown()[0]
	assert.Equal(t, "Ann is ringing you!", shown.Text)
	assert.False(t, shown.Audible)

	var session domain.RingSession
	on(t, r.loop, func() { session, _ = r.coord.Current() })
	assert.Equal(t, domain.RingActive, session.State)
	assert.True(t, session.Silent)

	// visual alert lapses after the duration, nothing is sent
	require.Eventually(t, func() bool { return len(r.presenter.Hidden()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, c.sentOfType(core.TypeRingStarted))
	assert.Empty(t, c.sentOfType(core.TypeRingStopped))
	assert.Zero(t, r.audio.Plays())
	assert.Zero(t, r.locker.Held())
}

func TestCoordinatorDismiss(t *testing.T) {
	r := newRingRig(t, true)
	c := r.conn()

	c.deliver(`{"type":"ring_command","ring_session_id":"d"}`)
	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 1 }, time.Second, time.Millisecond)

	var dismissed, again bool
	on(t, r.loop, func() {
		dismissed = r.coord.Dismiss()
		again = r.coord.Dismiss()
	})
	assert.True(t, dismissed)
	assert.False(t, again)
	assert.Len(t, c.sentOfType(core.TypeRingStopped), 1)
	assert.False(t, r.audio.Playing())

	// the ended session does not ring again
	c.deliver(`{"type":"ring_command","ring_session_id":"d"}`)
	time.Sleep(2 * testUnit)
	assert.Equal(t, 1, r.audio.Plays())
}

func TestCoordinatorNewRingSupersedes(t *testing.T) {
	r := newRingRig(t, true)
	c := r.conn()

	c.deliver(`{"type":"ring_command","ring_session_id":"one"}`)
	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 1 }, time.Second, time.Millisecond)
	c.deliver(`{"type":"ring_command","ring_session_id":"two","initiator_name":"Bob"}`)
	require.Eventually(t, func() bool { return len(c.sentOfType(core.TypeRingStarted)) == 2 }, time.Second, time.Millisecond)

	assert.Empty(t, c.sentOfType(core.TypeRingStopped))
	var session domain.RingSession
	on(t, r.loop, func() { session, _ = r.coord.Current() })
	assert.Equal(t, "two", session.ID.String())
	assert.True(t, r.audio.Playing())
}

func TestCoordinatorDeviceStatus(t *testing.T) {
	r := newRingRig(t, true)
	r.conn().deliver(`{"type":"device_status_changed","device_id":"peer","online":true}`)
	r.conn().deliver(`{"type":"pong"}`)

	require.Eventually(t, func() bool {
		r.presenter.mu.Lock()
		defer r.presenter.mu.Unlock()
		return r.presenter.devices["peer"]
	}, time.Second, time.Millisecond)
}

func TestCoordinatorInitiateRing(t *testing.T) {
	l := startLoop(t)
	sender := &recordingSender{}
	c := NewCoordinator(l, "self", sender, nil, newFakePresenter(), CoordinatorConfig{
		RingInterval: time.Hour,
		RingBurst:    2,
	})

	on(t, l, func() {
		assert.ErrorIs(t, c.InitiateRing("", nil), ErrTargetEmpty)
		assert.ErrorIs(t, c.InitiateRing("peer", intPtr(0)), ErrInvalidDuration)
		assert.ErrorIs(t, c.InitiateRing("peer", intPtr(int(core.MaxDurationSeconds+1))), ErrInvalidDuration)

		assert.NoError(t, c.InitiateRing("peer", intPtr(10)))
		assert.NoError(t, c.InitiateRing("peer", nil))
		assert.ErrorIs(t, c.InitiateRing("peer", nil), ErrRingRateLimited)
		assert.NoError(t, c.InitiateRing("other", nil))
	})

	sent := sender.Sent()
	require.Len(t, sent, 3)
	first := sent[0].(core.RingStart)
	assert.Equal(t, "peer", first.TargetDeviceID)
	assert.Equal(t, 10, *first.DurationSeconds)
	assert.Nil(t, sent[1].(core.RingStart).DurationSeconds)
}

func TestCoordinatorPrunesRefilledLimiters(t *testing.T) {
	l := startLoop(t)
	c := NewCoordinator(l, "self", &recordingSender{}, nil, newFakePresenter(), CoordinatorConfig{
		RingInterval: time.Millisecond,
		RingBurst:    1,
	})

	on(t, l, func() {
		for i := 0; i < maxLimiters; i++ {
			assert.NoError(t, c.InitiateRing("peer-"+strconv.Itoa(i), nil))
		}
		assert.Len(t, c.limiters, maxLimiters)
	})
	time.Sleep(20 * time.Millisecond)
	on(t, l, func() {
		assert.NoError(t, c.InitiateRing("late", nil))
		assert.Len(t, c.limiters, 1)
	})
}

func TestCoordinatorKeepsExhaustedLimiters(t *testing.T) {
	l := startLoop(t)
	c := NewCoordinator(l, "self", &recordingSender{}, nil, newFakePresenter(), CoordinatorConfig{
		RingInterval: time.Hour,
		RingBurst:    1,
	})

	on(t, l, func() {
		for i := 0; i < maxLimiters; i++ {
			assert.NoError(t, c.InitiateRing("peer-"+strconv.Itoa(i), nil))
		}
		assert.NoError(t, c.InitiateRing("late", nil))
		assert.Len(t, c.limiters, maxLimiters+1)
		assert.ErrorIs(t, c.InitiateRing("peer-0", nil), ErrRingRateLimited)
	})
}
