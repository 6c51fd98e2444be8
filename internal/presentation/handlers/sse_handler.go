package handlers

import (
	"net/http"
	"time"

	"appdeck-core/internal/notification"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultHeartbeat = 30 * time.Second

// NotificationHandler streams hub notifications over Server-Sent Events
type NotificationHandler struct {
	hub *notification.Hub
	log *logrus.Entry

	// Heartbeat is the interval between keep-alive events
	Heartbeat time.Duration
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(hub *notification.Hub, log *logrus.Entry) *NotificationHandler {
	return &NotificationHandler{hub: hub, log: log, Heartbeat: defaultHeartbeat}
}

// Stream handles GET /notifications/stream
// @Summary Stream notifications
// @Description Streams notifications and domain events for a topic using Server-Sent Events. Topics are app:<id>, repo:<url> or * for everything.
// @Tags Notifications
// @Produce text/event-stream
// @Param topic query string true "Topic"
// @Param token query string false "Auth token (if not in header)"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	topic := c.Query("topic")
	if topic == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "topic query parameter is required",
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	sub := h.hub.Subscribe(topic, 100)
	defer h.hub.Unsubscribe(sub)

	log := h.log.WithFields(logrus.Fields{"topic": topic, "subscriber": sub.ID})
	log.Debug("notification stream opened")
	defer log.Debug("notification stream closed")

	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case n, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent(string(n.Level), n)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("heartbeat", "ping")
			c.Writer.Flush()
		}
	}
}
