package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

// InstallHint is shown when push needs an installed app context.
const InstallHint = "Notifications need the installed app. Add Buzzer to your home screen, then enable notifications again."

type PushOutcome int

const (
	OutcomeGranted PushOutcome = iota
	OutcomeDenied
	OutcomeNeedsInstall
	OutcomeUnsupported
)

func (o PushOutcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeDenied:
		return "denied"
	case OutcomeNeedsInstall:
		return "needs_install"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// PushSubscriber registers the out-of-band delivery channel. It does not
// depend on the transport and is safe for concurrent use; calls are
// serialized.
type PushSubscriber struct {
	platform  core.PushPlatform
	api       core.ServerAPI
	presenter core.Presenter
	deviceID  domain.DeviceID

	mu sync.Mutex
}

func NewPushSubscriber(platform core.PushPlatform, api core.ServerAPI, presenter core.Presenter, id domain.DeviceID) *PushSubscriber {
	return &PushSubscriber{
		platform:  platform,
		api:       api,
		presenter: presenter,
		deviceID:  id,
	}
}

// Init reports false when the platform cannot deliver push. When permission
// was granted earlier it subscribes right away.
func (p *PushSubscriber) Init(ctx context.Context) bool {
	if !p.platform.Supported() {
		log.Info().Str("module", "app.push").Msg("push messaging is not supported")
		p.presenter.NotificationsEnabled(false, core.ErrPushUnsupported.Error())
		return false
	}
	if err := p.platform.RegisterAgent(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.push").Msg("delivery agent registration failed")
		return false
	}

	if p.platform.Permission() == domain.PermissionGranted {
		if err := p.Subscribe(ctx); err != nil {
			log.Warn().Err(err).Str("module", "app.push").Msg("resubscribe failed")
		}
	} else {
		p.presenter.NotificationsEnabled(false, "")
	}
	return true
}

// RequestPermission asks the user for notification permission and
// subscribes on grant. A subscription failure after grant is returned
// alongside OutcomeGranted.
func (p *PushSubscriber) RequestPermission(ctx context.Context) (PushOutcome, error) {
	if !p.platform.Supported() {
		return OutcomeUnsupported, core.ErrPushUnsupported
	}
	if p.platform.RequiresStandalone() && !p.platform.Standalone() {
		log.Info().Str("module", "app.push").Msg("push needs installed context")
		p.presenter.NotificationsEnabled(false, InstallHint)
		return OutcomeNeedsInstall, fmt.Errorf("%w: %s", core.ErrStandaloneRequired, InstallHint)
	}

	perm, err := p.platform.RequestPermission(ctx)
	if err != nil {
		return OutcomeDenied, core.Wrap(core.KindPermission, "push", err)
	}
	if perm != domain.PermissionGranted {
		log.Info().Str("module", "app.push").Str("permission", string(perm)).Msg("permission not granted")
		p.presenter.NotificationsEnabled(false, core.ErrPermissionDenied.Error())
		return OutcomeDenied, core.ErrPermissionDenied
	}
	return OutcomeGranted, p.Subscribe(ctx)
}

// Subscribe binds a platform subscription to the server key and registers
// it with the server. There is no retry; the affordance stays visible on
// failure.
func (p *PushSubscriber) Subscribe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "app.push").Msg("failed to subscribe")
		p.presenter.NotificationsEnabled(false, err.Error())
		return err
	}
	p.presenter.NotificationsEnabled(true, "")
	return nil
}

func (p *PushSubscriber) subscribe(ctx context.Context) error {
	key, err := p.api.PushPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("fetch public key: %w", err)
	}
	if key == "" {
		return errors.New("fetch public key: empty key")
	}

	existing, err := p.platform.Subscription(ctx)
	if err != nil {
		return fmt.Errorf("read subscription: %w", err)
	}

	var sub domain.PushSubscription
	switch {
	case existing != nil && existing.ServerKey == key:
		sub = *existing
	default:
		if existing != nil {
			log.Info().Str("module", "app.push").Msg("server key changed, replacing subscription")
			if err := p.platform.Unsubscribe(ctx); err != nil {
				return fmt.Errorf("unsubscribe: %w", err)
			}
		}
		if sub, err = p.platform.Subscribe(ctx, key); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	req := domain.SubscriptionRequest{DeviceID: p.deviceID, Subscription: sub}
	if err := p.api.SubmitSubscription(ctx, req); err != nil {
		return fmt.Errorf("submit subscription: %w", err)
	}
	log.Info().Str("module", "app.push").Str("endpoint", sub.Endpoint).Msg("subscription sent to server")
	return nil
}
