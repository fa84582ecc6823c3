package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic_queue/internal/auth"
	"clinic_queue/internal/ws"
)

func (h *Handler) topics(c *gin.Context) (serverID string, topics []string) {
	serverID = c.Param("id")
	topics = []string{ws.ServerTopic(serverID)}
	if id := identity(c); id.Role == auth.RolePatient {
		topics = append(topics, ws.ConsumerTopic(id.Subject))
	}
	return serverID, topics
}

// WebSocket godoc
// @Summary		Live queue updates over WebSocket
// @Description	Sends the current queue_updated snapshot, then every change. Patients also receive consumer_called.
// @Tags			realtime
// @Param			id				path	string	true	"Server ID"
// @Param			access_token	query	string	false	"Bearer token for browser clients"
// @Router			/api/servers/{id}/ws [get]
func (h *Handler) WebSocket(c *gin.Context) {
	serverID, topics := h.topics(c)
	view, err := h.queue.ServerView(c.Request.Context(), serverID)
	if err != nil {
		h.fail(c, err)
		return
	}
	snapshot := &ws.Message{EventType: ws.EventQueueUpdated, ServerID: serverID, Data: view}
	if err := h.hub.Serve(c.Writer, c.Request, snapshot, topics...); err != nil {
		h.logger.WithError(err).WithField("server", serverID).Debug("websocket upgrade failed")
	}
}

// Events godoc
// @Summary		Live queue updates as Server-Sent Events
// @Tags			realtime
// @Produce		text/event-stream
// @Param			id				path	string	true	"Server ID"
// @Param			access_token	query	string	false	"Bearer token for browser clients"
// @Router			/api/servers/{id}/events [get]
func (h *Handler) Events(c *gin.Context) {
	serverID, topics := h.topics(c)
	view, err := h.queue.ServerView(c.Request.Context(), serverID)
	if err != nil {
		h.fail(c, err)
		return
	}
	sub := h.hub.Subscribe(topics...)
	if sub == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer h.hub.Unsubscribe(sub)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(ws.EventQueueUpdated, ws.Message{EventType: ws.EventQueueUpdated, ServerID: serverID, Data: view})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case frame, ok := <-sub.Send:
			if !ok {
				return false
			}
			c.SSEvent(frame.Event, string(frame.Payload))
			return true
		}
	})
}
