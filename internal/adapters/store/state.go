// Package store keeps the agent's local state in a yaml file: the device
// identity and the push permission and subscription.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/dkeye/Buzzer/internal/domain"
)

// State is the persisted document.
type State struct {
	DeviceID     domain.DeviceID          `yaml:"device_id"`
	Permission   domain.Permission        `yaml:"permission,omitempty"`
	Subscription *domain.PushSubscription `yaml:"subscription,omitempty"`

	// PushPrivateKey is the private half of Subscription.Keys.P256dh.
	PushPrivateKey string `yaml:"push_private_key,omitempty"`
}

// Store is a State bound to a file. Every setter writes through.
type Store struct {
	path string

	mu    sync.RWMutex
	state State
}

// Open loads path, creating it with a fresh device id when it does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read state: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s.state); err != nil {
			return nil, fmt.Errorf("parse state %s: %w", path, err)
		}
	}

	if s.state.DeviceID != "" {
		id, err := domain.ParseDeviceID(string(s.state.DeviceID))
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", path, err)
		}
		s.state.DeviceID = id
		return s, nil
	}

	s.state.DeviceID = domain.NewDeviceID()
	if err := s.save(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "adapters.store").Str("device", string(s.state.DeviceID)).Str("path", path).Msg("new device identity")
	return s, nil
}

func (s *Store) DeviceID() domain.DeviceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DeviceID
}

func (s *Store) Permission() domain.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Permission == "" {
		return domain.PermissionDefault
	}
	return s.state.Permission
}

func (s *Store) SetPermission(p domain.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Permission = p
	return s.save()
}

// Subscription returns a copy of the stored subscription, nil if none.
func (s *Store) Subscription() *domain.PushSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Subscription == nil {
		return nil
	}
	sub := *s.state.Subscription
	return &sub
}

// SetSubscription stores sub with its private key; nil clears both.
func (s *Store) SetSubscription(sub *domain.PushSubscription, privateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub != nil {
		c := *sub
		sub = &c
	} else {
		privateKey = ""
	}
	s.state.Subscription = sub
	s.state.PushPrivateKey = privateKey
	return s.save()
}

func (s *Store) PushPrivateKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PushPrivateKey
}

// save must be called with mu held (or before s is shared).
func (s *Store) save() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("state dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
