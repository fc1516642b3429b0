package http

import (
	"maps"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/domain"
)

const eventBuffer = 16

// Event kinds pushed to panel subscribers.
const (
	EventConnection    = "connection"
	EventRing          = "ring"
	EventRingHidden    = "ring_hidden"
	EventDevice        = "device"
	EventAudio         = "audio_unlocked"
	EventNotifications = "notifications"
)

type Event struct {
	Kind string
	Data any
}

type DeviceBadge struct {
	Name   string `json:"name,omitempty"`
	Online bool   `json:"online"`
}

type NotificationsView struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// View is what the panel renders.
type View struct {
	Connection    string                          `json:"connection"`
	Status        domain.ConnStatus               `json:"status"`
	Ring          *domain.RingAlert               `json:"ring,omitempty"`
	Devices       map[domain.DeviceID]DeviceBadge `json:"devices"`
	AudioUnlocked bool                            `json:"audio_unlocked"`
	Notifications NotificationsView               `json:"notifications"`
}

// Board is the presentation layer behind the panel. It is the agent's
// Presenter and the source of user gestures.
type Board struct {
	mu   sync.RWMutex
	view View

	subs    map[int]chan Event
	nextSub int

	gestures    map[int]func()
	nextGesture int
}

func NewBoard() *Board {
	return &Board{
		view: View{
			Connection: domain.ConnDisconnected.String(),
			Status:     domain.StatusOffline,
			Devices:    make(map[domain.DeviceID]DeviceBadge),
		},
		subs:     make(map[int]chan Event),
		gestures: make(map[int]func()),
	}
}

// View returns a copy of the current view.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v := b.view
	v.Devices = maps.Clone(b.view.Devices)
	if v.Ring != nil {
		r := *v.Ring
		v.Ring = &r
	}
	return v
}

// Subscribe returns a stream of events. Events are dropped for a
// subscriber that does not keep up.
func (b *Board) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan Event, eventBuffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// publish must be called with mu held.
func (b *Board) publish(kind string, data any) {
	for id, ch := range b.subs {
		select {
		case ch <- Event{Kind: kind, Data: data}:
		default:
			log.Warn().Str("module", "adapters.http").Int("sub", id).Str("event", kind).Msg("subscriber slow, event dropped")
		}
	}
}

func (b *Board) ConnectionStatus(state domain.ConnState, status domain.ConnStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Connection = state.String()
	b.view.Status = status
	b.publish(EventConnection, gin.H{"connection": b.view.Connection, "status": status})
}

func (b *Board) ShowRing(alert domain.RingAlert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Ring = &alert
	b.publish(EventRing, alert)
}

func (b *Board) HideRing(id domain.SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view.Ring != nil && b.view.Ring.SessionID == id {
		b.view.Ring = nil
	}
	b.publish(EventRingHidden, gin.H{"ring_session_id": id})
}

func (b *Board) DeviceStatus(id domain.DeviceID, name string, online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	badge := b.view.Devices[id]
	if name != "" {
		badge.Name = name
	}
	badge.Online = online
	b.view.Devices[id] = badge
	b.publish(EventDevice, gin.H{"device_id": id, "name": badge.Name, "online": online})
}

func (b *Board) AudioUnlocked() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.AudioUnlocked = true
	b.publish(EventAudio, gin.H{"audio_unlocked": true})
}

func (b *Board) NotificationsEnabled(enabled bool, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.Notifications = NotificationsView{Enabled: enabled, Reason: reason}
	b.publish(EventNotifications, b.view.Notifications)
}

func (b *Board) OnGesture(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextGesture
	b.nextGesture++
	b.gestures[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.gestures, id)
	}
}

// Gesture delivers one user interaction to the listeners and reports how
// many were attached.
func (b *Board) Gesture() int {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.gestures))
	for _, fn := range b.gestures {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
