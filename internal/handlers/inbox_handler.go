package handlers

import (
	"net/http"
	"time"

	"marketplace-service/internal/inbox"
	"marketplace-service/internal/models"
	"marketplace-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InboxHandler serves the notification inbox. Each authenticated viewer gets
// a reconciler session on first touch; the session keeps polling in the
// background for the life of the process.
type InboxHandler struct {
	logger   *zap.Logger
	sessions *inbox.SessionManager
}

// NewInboxHandler creates an inbox handler
func NewInboxHandler(logger *zap.Logger, sessions *inbox.SessionManager) *InboxHandler {
	return &InboxHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// GetInbox handles GET /api/v1/inbox
//
// @Summary      List notifications
// @Description  Returns the viewer's notification log, newest first. Pass refresh=true to reconcile against the marketplace before answering.
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Param        refresh  query     bool  false  "Run a reconciliation pass first"
// @Success      200      {object}  InboxResponse
// @Router       /inbox [get]
func (h *InboxHandler) GetInbox(c *gin.Context) {
	session := h.sessions.Session(middleware.GetViewer(c))

	if c.Query("refresh") == "true" {
		if err := session.RunPass(c.Request.Context()); err != nil {
			// Stale inbox beats no inbox: answer from the last good state
			h.logger.Warn("On-demand reconciliation failed",
				zap.String("viewer", session.Viewer()),
				zap.Error(err),
			)
		}
	}

	now := time.Now()
	notifications := session.Notifications()
	entries := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		entries[i] = toNotificationResponse(n, now)
	}

	c.JSON(http.StatusOK, InboxResponse{
		Notifications: entries,
		UnreadCount:   session.UnreadCount(),
	})
}

// GetUnreadCount handles GET /api/v1/inbox/unread-count
//
// @Summary      Unread notification count
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UnreadCountResponse
// @Router       /inbox/unread-count [get]
func (h *InboxHandler) GetUnreadCount(c *gin.Context) {
	session := h.sessions.Session(middleware.GetViewer(c))
	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: session.UnreadCount()})
}

// MarkRead handles POST /api/v1/inbox/:id/read
//
// @Summary      Mark one notification read
// @Description  Sets the read flag. The flag survives later reconciliation passes.
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  UnreadCountResponse
// @Failure      404  {object}  ErrorResponse  "Notification not found"
// @Router       /inbox/{id}/read [post]
func (h *InboxHandler) MarkRead(c *gin.Context) {
	session := h.sessions.Session(middleware.GetViewer(c))

	if err := session.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: session.UnreadCount()})
}

// MarkAllRead handles POST /api/v1/inbox/read-all
//
// @Summary      Mark every notification read
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UnreadCountResponse
// @Router       /inbox/read-all [post]
func (h *InboxHandler) MarkAllRead(c *gin.Context) {
	session := h.sessions.Session(middleware.GetViewer(c))

	if err := session.MarkAllRead(c.Request.Context()); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: 0})
}

// Remove handles DELETE /api/v1/inbox/:id
//
// @Summary      Delete one notification
// @Description  Removes the entry from the log. Deleted entries do not come back on later passes unless the service runs with RESURRECT_DELETED=true.
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  UnreadCountResponse
// @Failure      404  {object}  ErrorResponse  "Notification not found"
// @Router       /inbox/{id} [delete]
func (h *InboxHandler) Remove(c *gin.Context) {
	session := h.sessions.Session(middleware.GetViewer(c))

	if err := session.Remove(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: session.UnreadCount()})
}

func toNotificationResponse(n models.Notification, now time.Time) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		ProductID:     n.ProductID,
		ProductImage:  n.ProductImage,
		ProductName:   n.ProductName,
		ExporterEmail: n.ExporterEmail,
		Price:         n.Price,
		OriginCountry: n.OriginCountry,
		Timestamp:     n.Timestamp.Format(time.RFC3339),
		TimeAgo:       inbox.TimeAgo(n.Timestamp, now),
		Read:          n.Read,
	}
}
