package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"clinic_queue/internal/audit"
	"clinic_queue/internal/auth"
	"clinic_queue/internal/models"
	"clinic_queue/internal/queue"
	"clinic_queue/internal/response"
	"clinic_queue/internal/ws"
)

// Queue is the orchestration surface the handlers drive.
type Queue interface {
	Admit(ctx context.Context, consumerID, serverID string) (queue.EntryView, error)
	Advance(ctx context.Context, serverID, actor string) (models.QueueEntry, error)
	Complete(ctx context.Context, entryID, actor string) (queue.Completion, error)
	Skip(ctx context.Context, entryID, actor string) (models.QueueEntry, error)
	Cancel(ctx context.Context, entryID, requestedBy string) (models.QueueEntry, error)
	CancelOwn(ctx context.Context, entryID, consumerID string) (models.QueueEntry, error)
	Entry(ctx context.Context, entryID string) (models.QueueEntry, error)
	ServerView(ctx context.Context, serverID string) (queue.ServerView, error)
	ConsumerStatus(ctx context.Context, consumerID string) (queue.ConsumerStatus, error)
	SetAccepting(ctx context.Context, serverID string, accepting bool, actor string) (queue.ServerSession, error)
	DayStats(ctx context.Context, serviceDay string) (queue.DayStats, error)
	ListServers(ctx context.Context, acceptingOnly bool) ([]queue.ServerSummary, error)
	Server(ctx context.Context, serverID string) (queue.ServerSummary, error)
}

type AuditHistory interface {
	History(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

type Handler struct {
	queue  Queue
	audit  AuditHistory
	hub    *ws.Hub
	logger logrus.FieldLogger
}

func New(q Queue, history AuditHistory, hub *ws.Hub, logger logrus.FieldLogger) *Handler {
	return &Handler{queue: q, audit: history, hub: hub, logger: logger}
}

// Register mounts the API under /api behind authMiddleware.
func (h *Handler) Register(r gin.IRouter, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api", authMiddleware)
	{
		api.GET("/servers", auth.Require(auth.ActionViewServers), h.ListServers)

		servers := api.Group("/servers/:id")
		servers.GET("", auth.Require(auth.ActionViewServers), h.Server)
		servers.POST("/queue", auth.Require(auth.ActionAdmit), h.Admit)
		servers.GET("/queue", auth.Require(auth.ActionViewQueue), h.ServerView)
		servers.POST("/next", auth.Require(auth.ActionAdvance), h.Advance)
		servers.PUT("/accepting", auth.Require(auth.ActionSetAccepting), h.SetAccepting)
		servers.GET("/ws", auth.Require(auth.ActionViewQueue), h.WebSocket)
		servers.GET("/events", auth.Require(auth.ActionViewQueue), h.Events)

		entries := api.Group("/entries/:id")
		entries.POST("/complete", auth.Require(auth.ActionComplete), h.Complete)
		entries.POST("/skip", auth.Require(auth.ActionSkip), h.Skip)
		entries.POST("/cancel", auth.Require(auth.ActionCancel), h.Cancel)

		api.GET("/queue/me", auth.Require(auth.ActionViewOwn), h.ConsumerStatus)
		api.GET("/stats/today", auth.Require(auth.ActionViewStats), h.DayStats)
		api.GET("/audit", auth.Require(auth.ActionViewAudit), h.AuditHistory)
	}
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c)
	return id
}

// fail maps a controller error onto the HTTP error envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	var qe *queue.Error
	if !errors.As(err, &qe) {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("unclassified error")
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Code: "INTERNAL", Message: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch qe.Kind {
	case queue.KindValidation:
		status = http.StatusBadRequest
	case queue.KindPrecondition, queue.KindConflict:
		status = http.StatusConflict
	case queue.KindNotFound:
		status = http.StatusNotFound
	case queue.KindTransient:
		status = http.StatusServiceUnavailable
	}

	body := response.ErrorResponse{Code: qe.Code, Message: qe.Message}
	if qe.Kind == queue.KindTransient || qe.Kind == queue.KindConflict {
		h.logger.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	} else if qe.Err != nil {
		body.Details = qe.Err.Error()
	}
	c.JSON(status, body)
}

func forbidden(c *gin.Context, details string) {
	c.JSON(http.StatusForbidden, response.ErrorResponse{
		Code:    "FORBIDDEN",
		Message: "not allowed to act on this resource",
		Details: details,
	})
}
