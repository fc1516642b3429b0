package core

import (
	"context"

	"github.com/dkeye/Buzzer/internal/domain"
)

// Frame is one raw text frame of the persistent connection.
type Frame []byte

// ConnHandlers receive the events of one connection. They are called from
// the adapter's pump goroutines, never concurrently with each other.
type ConnHandlers struct {
	OnMessage func(Frame)
	// OnClose is called exactly once, with the reason (nil on local close).
	OnClose func(error)
}

// Conn abstracts one established persistent connection.
// Owned by the transport; the transport must Close() it.
type Conn interface {
	// Start begins delivering inbound frames. Frames received before Start
	// are held by the adapter.
	Start(h ConnHandlers)
	Send(Frame) error
	Close() error
}

// Dialer opens a connection addressed by device id and credential.
type Dialer interface {
	Dial(ctx context.Context, id domain.DeviceID, token string) (Conn, error)
}

// AudioElement is the single playback element. Only the alert engine
// touches it.
type AudioElement interface {
	SetVolume(v float64)
	SetLoop(loop bool)
	// Play returns once playback has started or was refused.
	Play(ctx context.Context) error
	Pause()
	Rewind()
}

// WakeLock keeps the display awake until released or revoked.
type WakeLock interface {
	Release() error
	// Done is closed when the platform revokes the lock.
	Done() <-chan struct{}
}

type WakeLocker interface {
	Acquire(ctx context.Context) (WakeLock, error)
}

// GestureSource delivers genuine user interactions.
type GestureSource interface {
	OnGesture(fn func()) (detach func())
}

// Presenter is the presentation collaborator.
type Presenter interface {
	ConnectionStatus(state domain.ConnState, status domain.ConnStatus)
	ShowRing(alert domain.RingAlert)
	HideRing(id domain.SessionID)
	DeviceStatus(id domain.DeviceID, name string, online bool)
	AudioUnlocked()
	// NotificationsEnabled toggles the "enable notifications" affordance.
	NotificationsEnabled(enabled bool, reason string)
}

// PushPlatform is the platform notification surface.
type PushPlatform interface {
	Supported() bool
	// RequiresStandalone reports whether push needs an installed context.
	RequiresStandalone() bool
	Standalone() bool
	// RegisterAgent registers the background delivery agent.
	RegisterAgent(ctx context.Context) error
	Permission() domain.Permission
	RequestPermission(ctx context.Context) (domain.Permission, error)
	// Subscription returns the current subscription, nil when there is
	// none or the platform revoked it.
	Subscription(ctx context.Context) (*domain.PushSubscription, error)
	Subscribe(ctx context.Context, serverKey string) (domain.PushSubscription, error)
	Unsubscribe(ctx context.Context) error
}

// ServerAPI is the request/response boundary of the buzzer server.
type ServerAPI interface {
	RegisterDevice(ctx context.Context, reg domain.DeviceRegistration) (*domain.Device, error)
	PushPublicKey(ctx context.Context) (string, error)
	SubmitSubscription(ctx context.Context, req domain.SubscriptionRequest) error
}
