package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

type registeringAPI struct {
	fakeAPI
	registered chan domain.DeviceRegistration
}

func (a *registeringAPI) RegisterDevice(_ context.Context, reg domain.DeviceRegistration) (*domain.Device, error) {
	a.registered <- reg
	return &domain.Device{DeviceID: reg.DeviceID, Name: reg.Name}, nil
}

func TestAgentLifecycle(t *testing.T) {
	dialer := &fakeDialer{}
	presenter := newFakePresenter()
	gestures := &fakeGestures{}
	audio := &fakeAudio{}
	api := &registeringAPI{registered: make(chan domain.DeviceRegistration, 1)}

	id := Identity{
		DeviceID:   domain.NewDeviceID(),
		DeviceName: "Desk",
		Info:       domain.DeviceInfo{Platform: "linux"},
		Token:      "tok",
	}
	agent := NewAgent(id, Platform{
		Dialer:     dialer,
		Audio:      audio,
		WakeLocker: &fakeLocker{},
		Push:       &fakePush{},
		API:        api,
		Presenter:  presenter,
		Gestures:   gestures,
	}, testTransportConfig(), CoordinatorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	reg := <-api.registered
	assert.Equal(t, id.DeviceID, reg.DeviceID)
	assert.Equal(t, "Desk", reg.Name)

	require.Eventually(t, func() bool { return presenter.LastStatus() == domain.StatusConnected }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return gestures.count() == 1 }, time.Second, time.Millisecond)

	// a gesture unlocks audio
	gestures.fire()
	require.Eventually(t, func() bool {
		s, err := agent.Snapshot(ctx)
		return err == nil && s.Unlocked
	}, time.Second, time.Millisecond)
	assert.Zero(t, gestures.count())

	require.NoError(t, agent.Ring(ctx, "peer", intPtr(10)))
	starts := dialer.Last().sentOfType(core.TypeRingStart)
	require.Len(t, starts, 1)
	assert.Equal(t, "peer", starts[0]["target_device_id"])
	assert.ErrorIs(t, agent.Ring(ctx, "", nil), ErrTargetEmpty)

	dialer.Last().deliver(`{"type":"ring_command","ring_session_id":"r1"}`)
	require.Eventually(t, func() bool {
		s, err := agent.Snapshot(ctx)
		return err == nil && s.Ringing != nil && s.Ringing.State == domain.RingActive
	}, time.Second, time.Millisecond)

	dismissed, err := agent.Dismiss(ctx)
	require.NoError(t, err)
	assert.True(t, dismissed)
	assert.Len(t, dialer.Last().sentOfType(core.TypeRingStopped), 1)

	outcome, err := agent.EnableNotifications(ctx)
	assert.Equal(t, OutcomeUnsupported, outcome)
	assert.ErrorIs(t, err, core.ErrPushUnsupported)

	conn := dialer.Last()
	cancel()
	require.NoError(t, <-done)
	assert.True(t, conn.Closed())
	assert.False(t, audio.Playing())
}
