package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic_queue/internal/audit"
	"clinic_queue/internal/auth"
	"clinic_queue/internal/models"
	"clinic_queue/internal/response"
)

// ListServers godoc
// @Summary		Server directory
// @Description	Lists servers with the number of waiting entries
// @Tags			servers
// @Produce		json
// @Param			accepting	query	bool	false	"Only servers accepting new entries"
// @Security		BearerAuth
// @Success		200	{array}		queue.ServerSummary
// @Failure		400	{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Router			/api/servers [get]
func (h *Handler) ListServers(c *gin.Context) {
	var query struct {
		Accepting bool `form:"accepting"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "VALIDATION_ERROR", Message: "accepting must be true or false", Details: err.Error()})
		return
	}
	servers, err := h.queue.ListServers(c.Request.Context(), query.Accepting)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, servers)
}

// Server godoc
// @Summary		One server of the directory
// @Tags			servers
// @Produce		json
// @Param			id	path	string	true	"Server ID"
// @Security		BearerAuth
// @Success		200	{object}	queue.ServerSummary
// @Failure		404	{object}	response.ErrorResponse	"NOT_FOUND"
// @Router			/api/servers/{id} [get]
func (h *Handler) Server(c *gin.Context) {
	server, err := h.queue.Server(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, server)
}

// Admit godoc
// @Summary		Join a server's queue
// @Description	Admits the calling patient at the back of the server's queue
// @Tags			queue
// @Produce		json
// @Param			id	path	string	true	"Server ID"
// @Security		BearerAuth
// @Success		201	{object}	queue.EntryView
// @Failure		404	{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		409	{object}	response.ErrorResponse	"SERVER_UNAVAILABLE, ALREADY_QUEUED"
// @Failure		503	{object}	response.ErrorResponse	"UNAVAILABLE"
// @Router			/api/servers/{id}/queue [post]
func (h *Handler) Admit(c *gin.Context) {
	view, err := h.queue.Admit(c.Request.Context(), identity(c).Subject, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ServerView godoc
// @Summary		Live queue of a server
// @Tags			queue
// @Produce		json
// @Param			id	path	string	true	"Server ID"
// @Security		BearerAuth
// @Success		200	{object}	queue.ServerView
// @Failure		404	{object}	response.ErrorResponse	"NOT_FOUND"
// @Router			/api/servers/{id}/queue [get]
func (h *Handler) ServerView(c *gin.Context) {
	view, err := h.queue.ServerView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Advance godoc
// @Summary		Call the next patient
// @Description	Moves the oldest waiting entry into serving
// @Tags			server
// @Produce		json
// @Param			id	path	string	true	"Server ID"
// @Security		BearerAuth
// @Success		200	{object}	models.QueueEntry
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		409	{object}	response.ErrorResponse	"ALREADY_SERVING, QUEUE_EMPTY, CONFLICT"
// @Router			/api/servers/{id}/next [post]
func (h *Handler) Advance(c *gin.Context) {
	id := identity(c)
	serverID := c.Param("id")
	if !id.Operates(serverID) {
		forbidden(c, serverID)
		return
	}
	entry, err := h.queue.Advance(c.Request.Context(), serverID, id.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// SetAccepting godoc
// @Summary		Open or close a server for new patients
// @Tags			server
// @Accept			json
// @Produce		json
// @Param			id		path	string						true	"Server ID"
// @Param			body	body	response.AcceptingRequest	true	"New state"
// @Security		BearerAuth
// @Success		200	{object}	queue.ServerSession
// @Failure		400	{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Router			/api/servers/{id}/accepting [put]
func (h *Handler) SetAccepting(c *gin.Context) {
	id := identity(c)
	serverID := c.Param("id")
	if !id.Operates(serverID) {
		forbidden(c, serverID)
		return
	}
	var req response.AcceptingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "is_accepting is required",
			Details: err.Error(),
		})
		return
	}
	session, err := h.queue.SetAccepting(c.Request.Context(), serverID, *req.IsAccepting, id.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// operatesEntry loads the entry and checks the caller runs its server.
func (h *Handler) operatesEntry(c *gin.Context) bool {
	entry, err := h.queue.Entry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return false
	}
	if !identity(c).Operates(entry.ServerID) {
		forbidden(c, entry.ServerID)
		return false
	}
	return true
}

// Complete godoc
// @Summary		Finish serving an entry
// @Tags			server
// @Produce		json
// @Param			id	path	string	true	"Entry ID"
// @Security		BearerAuth
// @Success		200	{object}	queue.Completion
// @Failure		409	{object}	response.ErrorResponse	"INVALID_STATE"
// @Router			/api/entries/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	if !h.operatesEntry(c) {
		return
	}
	done, err := h.queue.Complete(c.Request.Context(), c.Param("id"), identity(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}

// Skip godoc
// @Summary		Mark an entry as a no-show
// @Tags			server
// @Produce		json
// @Param			id	path	string	true	"Entry ID"
// @Security		BearerAuth
// @Success		200	{object}	models.QueueEntry
// @Failure		409	{object}	response.ErrorResponse	"INVALID_STATE"
// @Router			/api/entries/{id}/skip [post]
func (h *Handler) Skip(c *gin.Context) {
	if !h.operatesEntry(c) {
		return
	}
	entry, err := h.queue.Skip(c.Request.Context(), c.Param("id"), identity(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Cancel godoc
// @Summary		Leave or withdraw from a queue
// @Description	Patients may cancel only their own entry; doctors any entry on their server; staff any entry
// @Tags			queue
// @Produce		json
// @Param			id	path	string	true	"Entry ID"
// @Security		BearerAuth
// @Success		200	{object}	models.QueueEntry
// @Failure		403	{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404	{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		409	{object}	response.ErrorResponse	"INVALID_STATE"
// @Router			/api/entries/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id := identity(c)
	var (
		entry models.QueueEntry
		err   error
	)
	if auth.CanPerform(id.Role, auth.ActionCancelAny) {
		if !h.operatesEntry(c) {
			return
		}
		entry, err = h.queue.Cancel(c.Request.Context(), c.Param("id"), id.Subject)
	} else {
		entry, err = h.queue.CancelOwn(c.Request.Context(), c.Param("id"), id.Subject)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ConsumerStatus godoc
// @Summary		Where am I in the queue
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	queue.ConsumerStatus
// @Router			/api/queue/me [get]
func (h *Handler) ConsumerStatus(c *gin.Context) {
	status, err := h.queue.ConsumerStatus(c.Request.Context(), identity(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// DayStats godoc
// @Summary		Per-server counts for a service day
// @Tags			stats
// @Produce		json
// @Param			day	query	string	false	"YYYY-MM-DD, defaults to today"
// @Security		BearerAuth
// @Success		200	{object}	queue.DayStats
// @Router			/api/stats/today [get]
func (h *Handler) DayStats(c *gin.Context) {
	stats, err := h.queue.DayStats(c.Request.Context(), c.Query("day"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AuditHistory godoc
// @Summary		Audit trail, newest first
// @Tags			audit
// @Produce		json
// @Param			server_id	query	string	false	"Server ID"
// @Param			action		query	string	false	"Action, e.g. QUEUE_JOIN"
// @Param			since		query	string	false	"RFC3339 lower bound"
// @Param			limit		query	int		false	"Max rows (default 100)"
// @Security		BearerAuth
// @Success		200	{array}	audit.Entry
// @Router			/api/audit [get]
func (h *Handler) AuditHistory(c *gin.Context) {
	filter := audit.Filter{
		ServerID: c.Query("server_id"),
		Action:   audit.Action(c.Query("action")),
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "VALIDATION_ERROR", Message: "since must be RFC3339", Details: err.Error()})
			return
		}
		filter.Since = since
	}
	var q struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "VALIDATION_ERROR", Message: "limit must be a number", Details: err.Error()})
		return
	}
	filter.Limit = q.Limit

	entries, err := h.audit.History(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("load audit history")
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{Code: "UNAVAILABLE", Message: "audit log temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
