package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// Identity is who this agent is towards the server.
type Identity struct {
	DeviceID   domain.DeviceID
	DeviceName string
	Info       domain.DeviceInfo
	Token      string
}

// Platform bundles the adapters the agent drives.
type Platform struct {
	Dialer     core.Dialer
	Audio      core.AudioElement
	WakeLocker core.WakeLocker
	Push       core.PushPlatform
	API        core.ServerAPI
	Presenter  core.Presenter
	Gestures   core.GestureSource
}

// Agent is the composition root of one device. Every component is created
// here and lives as long as Run.
type Agent struct {
	Identity Identity

	Loop        *Loop
	Transport   *Transport
	Alert       *AlertEngine
	Coordinator *Coordinator
	Push        *PushSubscriber

	api      core.ServerAPI
	gestures core.GestureSource
}

func NewAgent(id Identity, p Platform, tcfg TransportConfig, ccfg CoordinatorConfig) *Agent {
	loop := NewLoop(0)
	transport := NewTransport(loop, p.Dialer, p.Presenter, id.DeviceID, id.Token, tcfg)
	alert := NewAlertEngine(loop, p.Audio, p.WakeLocker, p.Presenter)
	return &Agent{
		Identity:    id,
		Loop:        loop,
		Transport:   transport,
		Alert:       alert,
		Coordinator: NewCoordinator(loop, id.DeviceID, transport, alert, p.Presenter, ccfg),
		Push:        NewPushSubscriber(p.Push, p.API, p.Presenter, id.DeviceID),
		api:         p.API,
		gestures:    p.Gestures,
	}
}

// Run registers the device, connects and serves until ctx is done. On
// return the alert is stopped and the transport disconnected.
func (a *Agent) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() { _ = a.Loop.Run(loopCtx) }()

	a.register(ctx)

	if err := a.Loop.Do(ctx, func() {
		a.Coordinator.Attach(a.Transport)
		if a.gestures != nil {
			a.Alert.ListenGestures(a.gestures)
		}
		a.Transport.Connect()
	}); err != nil {
		return err
	}

	go a.Push.Init(ctx)

	log.Info().Str("module", "app.agent").Str("device", string(a.Identity.DeviceID)).Msg("agent running")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Loop.Do(shutdownCtx, func() {
		a.Alert.Deactivate()
		a.Transport.Disconnect()
	}); err != nil {
		log.Error().Err(err).Str("module", "app.agent").Msg("shutdown")
	}
	log.Info().Str("module", "app.agent").Msg("agent stopped")
	return nil
}

func (a *Agent) register(ctx context.Context) {
	if a.api == nil {
		return
	}
	reg, err := domain.NewDeviceRegistration(a.Identity.DeviceID, a.Identity.DeviceName, a.Identity.Info)
	if err != nil {
		log.Error().Err(err).Str("module", "app.agent").Msg("invalid device registration")
		return
	}
	dev, err := a.api.RegisterDevice(ctx, *reg)
	if err != nil {
		// the connection still works for an already registered device
		log.Warn().Err(err).Str("module", "app.agent").Msg("device registration failed")
		return
	}
	log.Info().Str("module", "app.agent").Str("device", string(dev.DeviceID)).Str("name", dev.Name).Msg("device registered")
}

// Dismiss stops the ringing session, reporting whether one was live.
func (a *Agent) Dismiss(ctx context.Context) (bool, error) {
	var dismissed bool
	err := a.Loop.Do(ctx, func() { dismissed = a.Coordinator.Dismiss() })
	return dismissed, err
}

// Ring asks the server to ring another device.
func (a *Agent) Ring(ctx context.Context, target string, duration *int) error {
	var ringErr error
	if err := a.Loop.Do(ctx, func() { ringErr = a.Coordinator.InitiateRing(target, duration) }); err != nil {
		return err
	}
	return ringErr
}

// Reconnect is the explicit connect used to leave the Lost state.
func (a *Agent) Reconnect(ctx context.Context) error {
	return a.Loop.Do(ctx, a.Transport.Connect)
}

// EnableNotifications runs the permission flow of the push subscriber.
func (a *Agent) EnableNotifications(ctx context.Context) (PushOutcome, error) {
	return a.Push.RequestPermission(ctx)
}

// Snapshot is a consistent view of the agent state.
type Snapshot struct {
	Connection domain.ConnState
	Unlocked   bool
	Ringing    *domain.RingSession
}

func (a *Agent) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := a.Loop.Do(ctx, func() {
		s.Connection = a.Transport.State()
		s.Unlocked = a.Alert.Unlocked()
		if cur, ok := a.Coordinator.Current(); ok {
			s.Ringing = &cur
		}
	})
	return s, err
}
