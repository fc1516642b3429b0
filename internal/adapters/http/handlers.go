package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/app"
	"github.com/dkeye/Buzzer/internal/core"
	"github.com/dkeye/Buzzer/internal/domain"
)

const requestTimeout = 10 * time.Second

// Agent is the device agent as driven by the panel.
type Agent interface {
	Snapshot(ctx context.Context) (app.Snapshot, error)
	Dismiss(ctx context.Context) (bool, error)
	Ring(ctx context.Context, target string, duration *int) error
	Reconnect(ctx context.Context) error
	EnableNotifications(ctx context.Context) (app.PushOutcome, error)
}

type RingRequest struct {
	TargetDeviceID  string `json:"target_device_id"`
	DurationSeconds *int   `json:"duration_seconds"`
}

type StatusResponse struct {
	DeviceID      domain.DeviceID                 `json:"device_id"`
	Connection    string                          `json:"connection"`
	Status        domain.ConnStatus               `json:"status"`
	AudioUnlocked bool                            `json:"audio_unlocked"`
	Ringing       *RingingView                    `json:"ringing,omitempty"`
	Devices       map[domain.DeviceID]DeviceBadge `json:"devices"`
	Notifications NotificationsView               `json:"notifications"`
}

type RingingView struct {
	SessionID domain.SessionID `json:"ring_session_id"`
	Initiator string           `json:"initiator_name,omitempty"`
	State     string           `json:"state"`
	Audible   bool             `json:"audible"`
	Duration  *int             `json:"duration_seconds,omitempty"`
}

type Handlers struct {
	agent    Agent
	board    *Board
	deviceID domain.DeviceID
}

func NewHandlers(agent Agent, board *Board, id domain.DeviceID) *Handlers {
	return &Handlers{agent: agent, board: board, deviceID: id}
}

func (h *Handlers) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	snap, err := h.agent.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	view := h.board.View()
	resp := StatusResponse{
		DeviceID:      h.deviceID,
		Connection:    snap.Connection.String(),
		Status:        view.Status,
		AudioUnlocked: snap.Unlocked,
		Devices:       view.Devices,
		Notifications: view.Notifications,
	}
	if s := snap.Ringing; s != nil {
		resp.Ringing = &RingingView{
			SessionID: s.ID,
			Initiator: s.Initiator,
			State:     s.State.String(),
			Audible:   !s.Silent,
			Duration:  s.Duration,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// events streams board events as server-sent events, starting with the
// current view.
func (h *Handlers) events(c *gin.Context) {
	events, cancel := h.board.Subscribe()
	defer cancel()

	log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("events subscriber")
	c.SSEvent("state", h.board.View())
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Kind, ev.Data)
			return true
		case <-done:
			return false
		}
	})
}

func (h *Handlers) gesture(c *gin.Context) {
	n := h.board.Gesture()
	c.JSON(http.StatusAccepted, gin.H{"listeners": n})
}

func (h *Handlers) dismiss(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	dismissed, err := h.agent.Dismiss(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": dismissed})
}

func (h *Handlers) ring(c *gin.Context) {
	var req RingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ring request"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	err := h.agent.Ring(ctx, req.TargetDeviceID, req.DurationSeconds)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	case errors.Is(err, app.ErrTargetEmpty), errors.Is(err, app.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrRingRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}

func (h *Handlers) reconnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.agent.Reconnect(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "connecting"})
}

func (h *Handlers) enableNotifications(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	outcome, err := h.agent.EnableNotifications(ctx)
	body := gin.H{"outcome": outcome.String()}
	if err != nil {
		body["error"] = err.Error()
	}

	code := http.StatusOK
	switch {
	case outcome == app.OutcomeUnsupported:
		code = http.StatusNotImplemented
	case outcome == app.OutcomeNeedsInstall:
		code = http.StatusConflict
	case outcome == app.OutcomeDenied:
		code = http.StatusForbidden
	case err != nil && core.IsKind(err, core.KindPermission):
		code = http.StatusForbidden
	case err != nil:
		code = http.StatusBadGateway
	}
	c.JSON(code, body)
}
