package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/service"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

type notificationHub interface {
	Snapshot() []models.Notification
	Subscribe(ctx context.Context) (<-chan models.NotificationEvent, error)
}

// NotificationHandler exposes the pending-request feed for admins.
type NotificationHandler struct {
	hub       notificationHub
	keepAlive time.Duration
}

// NewNotificationHandler builds a new handler. keepAlive is the idle ping interval on streams.
func NewNotificationHandler(hub notificationHub, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &NotificationHandler{hub: hub, keepAlive: keepAlive}
}

// List godoc
// @Summary List requests awaiting review
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	entries := filterForRole(h.hub.Snapshot(), claimsFromContext(c))
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"count": len(entries)})
}

// Stream godoc
// @Summary Stream pending-request changes as server-sent events
// @Description The first event is a snapshot. A client that falls behind is disconnected and should reconnect.
// @Tags Notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)
	ctx := c.Request.Context()
	events, err := h.hub.Subscribe(ctx)
	if err != nil {
		if errors.Is(err, service.ErrHubClosed) {
			response.Error(c, appErrors.Wrap(err, "UNAVAILABLE", http.StatusServiceUnavailable, "notification stream unavailable"))
			return
		}
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if event.Notification != nil && !visibleTo(*event.Notification, claims) {
				return true
			}
			if event.Type == models.NotificationSnapshot {
				event.Notifications = filterForRole(event.Notifications, claims)
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ticker.C:
			c.SSEvent("keepalive", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// filterForRole hides the other flow from single-flow admins.
func filterForRole(entries []models.Notification, claims *models.JWTClaims) []models.Notification {
	out := make([]models.Notification, 0, len(entries))
	for _, n := range entries {
		if visibleTo(n, claims) {
			out = append(out, n)
		}
	}
	return out
}

func visibleTo(n models.Notification, claims *models.JWTClaims) bool {
	switch {
	case claims == nil:
		return false
	case claims.Role == models.RoleSuperAdmin:
		return true
	case n.Kind == models.KindVisit:
		return claims.Role == models.RoleVisitAdmin
	case n.Kind == models.KindInternship:
		return claims.Role == models.RoleInternshipAdmin
	}
	return false
}
