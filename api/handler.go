// Package api serves the HTTP control API and the live state stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coverctl/cover"
	"coverctl/eventlog"
	"coverctl/scheduler"
)

const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errInvalidBodyPref = "invalid body: "
	errJournalDisabled = "event journal disabled"

	submitTimeout = 5 * time.Second
)

// Covers is the set of controlled covers.
type Covers interface {
	States() []cover.State
	State(name string) (cover.State, error)
	Submit(ctx context.Context, name string, req cover.Request) error
}

// Events reads back the event journal.
type Events interface {
	List(ctx context.Context, coverName string, limit int) ([]eventlog.Entry, error)
}

// Handler wires the HTTP layer to the covers.
type Handler struct {
	covers Covers
	events Events
	log    *zap.SugaredLogger
}

// NewHandler constructs a new HTTP handler. events may be nil when no journal is configured.
func NewHandler(covers Covers, events Events, log *zap.SugaredLogger) *Handler {
	return &Handler{covers: covers, events: events, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		api.GET("/covers", h.listCovers)

		covers := api.Group("/covers/:name")
		{
			covers.GET("", h.getCover)
			covers.GET("/events", h.getEvents)
			covers.POST("/open", h.command(cover.RequestOpen))
			covers.POST("/close", h.command(cover.RequestClose))
			covers.POST("/stop", h.command(cover.RequestStop))
			covers.POST("/program", h.command(cover.RequestProgram))
			// Body example: {"position":0.4}
			covers.POST("/position", h.setPosition)
		}
	}

	router.GET("/ws", h.wsConnect)
	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

func (h *Handler) listCovers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"covers": h.covers.States()})
}

func (h *Handler) getCover(c *gin.Context) {
	st, err := h.covers.State(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) command(request func() cover.Request) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.submit(c, request())
	}
}

type positionRequest struct {
	Position *float64 `json:"position" binding:"required"`
}

func (h *Handler) setPosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submit(c, cover.RequestPosition(*req.Position))
}

func (h *Handler) submit(c *gin.Context, req cover.Request) {
	name := c.Param("name")
	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	if err := h.covers.Submit(ctx, name, req); err != nil {
		h.respondError(c, err)
		return
	}
	if h.log != nil {
		h.log.Infow("request accepted", "cover", name, "request", req, "remote", c.ClientIP())
	}

	resp := gin.H{"status": statusAccepted}
	if st, err := h.covers.State(name); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) getEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errJournalDisabled})
		return
	}
	name := c.Param("name")
	if _, err := h.covers.State(name); err != nil {
		h.respondError(c, err)
		return
	}

	limit := 50
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = v
	}

	entries, err := h.events.List(c.Request.Context(), name, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": entries})
}

// respondError maps domain errors to HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, scheduler.ErrUnknownCover):
		code = http.StatusNotFound
	case errors.Is(err, cover.ErrInvalidPosition):
		code = http.StatusBadRequest
	case errors.Is(err, cover.ErrUnsupported):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError && h.log != nil {
		h.log.Errorw("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
