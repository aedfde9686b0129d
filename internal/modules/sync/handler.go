package sync

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
	db  *gorm.DB
}

func NewHandler(svc *Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/sync")

	g.GET("/updates", h.heartbeat)

	a := g.Group("", authMW, adminMW)
	a.GET("/events", h.listEvents)
	a.POST("/events/:id/claim", h.claimEvent)
	a.POST("/events/:id/complete", h.completeEvent)
	a.POST("/events/:id/fail", h.failEvent)
	a.POST("/cleanup", h.cleanup)
	a.GET("/stats", h.stats)
}

type syncEventResponse struct {
	ID        string                 `json:"id"`
	EventType models.SyncEventType   `json:"event_type"`
	PointID   string                 `json:"point_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Priority  int                    `json:"priority"`
	Status    models.SyncEventStatus `json:"status"`
	Retries   int                    `json:"retries"`
	Error     string                 `json:"error,omitempty"`
	Created   time.Time              `json:"created"`
}

func toEventResponse(e *models.SyncEventModel) syncEventResponse {
	return syncEventResponse{
		ID:        e.ID,
		EventType: e.EventType,
		PointID:   e.PointID,
		Metadata:  e.Metadata,
		Priority:  e.Priority,
		Status:    e.Status,
		Retries:   e.RetryCount,
		Error:     e.ErrorMessage,
		Created:   e.CreatedAt,
	}
}

// GET /sync/updates?since=<unix> — the heartbeat every map client polls.
func (h *Handler) heartbeat(c *gin.Context) {
	ctx := c.Request.Context()

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "Parametr since musi być znacznikiem czasu unix.")
			return
		}
		since = time.Unix(ts, 0)
	}

	events, err := h.svc.Poll(ctx, since)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]syncEventResponse, len(events))
	for i := range events {
		items[i] = toEventResponse(&events[i])
	}

	published, err := h.svc.PublishedCount(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	payload := gin.H{
		"sync_events":     items,
		"last_modified":   h.svc.LastModified(ctx),
		"server_time":     time.Now().Unix(),
		"published_count": published,
	}

	// The heartbeat runs under optional auth, so the admin middleware never
	// sees it; check the role directly.
	if middleware.IsAdmin(h.db, c) {
		counts, err := h.svc.CountPending(ctx)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		payload["pending_counts"] = counts
	}

	response.OK(c, payload)
}

func (h *Handler) listEvents(c *gin.Context) {
	q := pagination.FromContext(c)
	events, pag, err := h.svc.ListEvents(c.Request.Context(), q, c.Query("status"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]syncEventResponse, len(events))
	for i := range events {
		items[i] = toEventResponse(&events[i])
	}
	response.Paged(c, items, pag)
}

func (h *Handler) claimEvent(c *gin.Context) {
	event, err := h.svc.Claim(c.Request.Context(), c.Param("id"))
	if err == ErrEventResolved {
		response.Conflict(c, "To zdarzenie zostało już rozliczone.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if event == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toEventResponse(event))
}

func (h *Handler) completeEvent(c *gin.Context) {
	event, err := h.svc.MarkCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if event == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toEventResponse(event))
}

func (h *Handler) failEvent(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Message == "" {
		body.Message = "delivery failed"
	}

	event, err := h.svc.MarkFailed(c.Request.Context(), c.Param("id"), body.Message)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if event == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toEventResponse(event))
}

func (h *Handler) cleanup(c *gin.Context) {
	deleted, err := h.svc.Cleanup(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": deleted})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}
