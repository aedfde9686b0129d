package moderation

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/moderation", authMW, adminMW)

	g.POST("/points/:id/approve", h.approvePoint)
	g.POST("/points/:id/reject", h.rejectPoint)
	g.POST("/points/:id/trash", h.trashPoint)
	g.POST("/points/:id/reports/resolve", h.resolveReports)
	g.DELETE("/points/:id", h.hardDelete)

	g.POST("/history/:id/approve", h.approveEntry)
	g.POST("/history/:id/reject", h.rejectEntry)
}

type reasonDTO struct {
	Reason string `json:"reason"`
}

type resolveReportsDTO struct {
	Decision ReportDecision `json:"decision" binding:"required"`
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrWrongState):
		response.Conflict(c, "Ten wpis został już rozpatrzony albo ma inny typ.")
	case errors.Is(err, ErrBadTransition):
		response.Conflict(c, "Punkt nie jest w stanie pozwalającym na tę decyzję.")
	case errors.Is(err, ErrPointVanished):
		// Moderation routes are admin-only, so the raw detail is safe here.
		response.NotFoundMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) approvePoint(c *gin.Context) {
	point, err := h.svc.ApprovePoint(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"id": point.ID, "status": point.Status})
}

func (h *Handler) rejectPoint(c *gin.Context) {
	var dto reasonDTO
	_ = c.ShouldBindJSON(&dto)
	point, err := h.svc.RejectPoint(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"id": point.ID, "status": point.Status})
}

func (h *Handler) trashPoint(c *gin.Context) {
	var dto reasonDTO
	_ = c.ShouldBindJSON(&dto)
	point, err := h.svc.TrashPoint(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"id": point.ID, "status": point.Status})
}

func (h *Handler) resolveReports(c *gin.Context) {
	var dto resolveReportsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Decision != DecisionKeep && dto.Decision != DecisionRemove {
		response.BadRequest(c, "Decyzja musi mieć wartość keep albo remove.")
		return
	}
	resolved, err := h.svc.ResolveReports(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Decision)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"resolved": resolved, "decision": dto.Decision})
}

func (h *Handler) hardDelete(c *gin.Context) {
	if err := h.svc.HardDelete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	response.NoContent(c)
}

// approveEntry routes a history entry to the right approval flow based on its
// action type.
func (h *Handler) approveEntry(c *gin.Context) {
	ctx := c.Request.Context()
	moderatorID := middleware.CurrentUserID(c)
	id := c.Param("id")

	entry, err := h.svc.ApproveEdit(ctx, id, moderatorID)
	if errors.Is(err, ErrWrongState) {
		entry, err = h.svc.ApproveDeletion(ctx, id, moderatorID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"id": entry.ID, "action": entry.Action, "status": entry.Status})
}

func (h *Handler) rejectEntry(c *gin.Context) {
	var dto reasonDTO
	_ = c.ShouldBindJSON(&dto)

	ctx := c.Request.Context()
	moderatorID := middleware.CurrentUserID(c)
	id := c.Param("id")

	entry, err := h.svc.RejectEdit(ctx, id, moderatorID, dto.Reason)
	if errors.Is(err, ErrWrongState) {
		entry, err = h.svc.RejectDeletion(ctx, id, moderatorID, dto.Reason)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"id": entry.ID, "action": entry.Action, "status": entry.Status})
}
