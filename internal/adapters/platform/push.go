package platform

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/domain"
)

var ErrAgentNotRegistered = errors.New("push delivery agent not registered")

// PushStore persists the permission and the subscription.
type PushStore interface {
	Permission() domain.Permission
	SetPermission(p domain.Permission) error
	Subscription() *domain.PushSubscription
	SetSubscription(sub *domain.PushSubscription, privateKey string) error
}

type PushConfig struct {
	// Endpoint is the base URL of the push relay; empty disables push.
	Endpoint          string
	RequireStandalone bool
	Standalone        bool
}

// WebPush is a web-push style subscription surface: every subscription is
// an endpoint under the relay base URL plus a fresh P-256 key pair and
// auth secret.
type WebPush struct {
	cfg   PushConfig
	store PushStore

	mu         sync.Mutex
	registered bool
}

func NewWebPush(cfg PushConfig, store PushStore) *WebPush {
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &WebPush{cfg: cfg, store: store}
}

func (w *WebPush) Supported() bool          { return w.cfg.Endpoint != "" }
func (w *WebPush) RequiresStandalone() bool { return w.cfg.RequireStandalone }
func (w *WebPush) Standalone() bool         { return w.cfg.Standalone }

func (w *WebPush) RegisterAgent(ctx context.Context) error {
	u, err := url.Parse(w.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("push endpoint: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("push endpoint: invalid url %q", w.cfg.Endpoint)
	}
	w.mu.Lock()
	w.registered = true
	w.mu.Unlock()
	log.Info().Str("module", "adapters.platform").Str("endpoint", w.cfg.Endpoint).Msg("push delivery agent registered")
	return nil
}

func (w *WebPush) Permission() domain.Permission {
	return w.store.Permission()
}

// RequestPermission treats the request from the panel as the user's
// consent. A denial recorded in the state file is kept.
func (w *WebPush) RequestPermission(ctx context.Context) (domain.Permission, error) {
	switch p := w.store.Permission(); p {
	case domain.PermissionGranted, domain.PermissionDenied:
		return p, nil
	}
	if err := w.store.SetPermission(domain.PermissionGranted); err != nil {
		return domain.PermissionDefault, err
	}
	return domain.PermissionGranted, nil
}

// Subscription returns the stored subscription unless it no longer belongs
// to the configured relay, in which case it is dropped as revoked.
func (w *WebPush) Subscription(ctx context.Context) (*domain.PushSubscription, error) {
	sub := w.store.Subscription()
	if sub == nil {
		return nil, nil
	}
	if !strings.HasPrefix(sub.Endpoint, w.cfg.Endpoint+"/") {
		log.Info().Str("module", "adapters.platform").Str("endpoint", sub.Endpoint).Msg("stored subscription revoked")
		if err := w.store.SetSubscription(nil, ""); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sub, nil
}

func (w *WebPush) Subscribe(ctx context.Context, serverKey string) (domain.PushSubscription, error) {
	w.mu.Lock()
	registered := w.registered
	w.mu.Unlock()
	if !registered {
		return domain.PushSubscription{}, ErrAgentNotRegistered
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return domain.PushSubscription{}, fmt.Errorf("generate key: %w", err)
	}
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return domain.PushSubscription{}, fmt.Errorf("generate auth: %w", err)
	}

	enc := base64.RawURLEncoding
	sub := domain.PushSubscription{
		Endpoint: w.cfg.Endpoint + "/" + uuid.NewString(),
		Keys: domain.PushKeys{
			P256dh: enc.EncodeToString(priv.PublicKey().Bytes()),
			Auth:   enc.EncodeToString(secret),
		},
		ServerKey: serverKey,
	}
	if err := w.store.SetSubscription(&sub, enc.EncodeToString(priv.Bytes())); err != nil {
		return domain.PushSubscription{}, err
	}
	return sub, nil
}

func (w *WebPush) Unsubscribe(ctx context.Context) error {
	return w.store.SetSubscription(nil, "")
}
