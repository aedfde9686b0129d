package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrPointNotFound = errors.New("point not found")
	ErrPointNotLive  = errors.New("point is not published")
	ErrPendingExists = errors.New("point already has a pending proposal")
	ErrEmptyProposal = errors.New("proposal changes nothing")
)

type Service struct {
	db    *gorm.DB
	guard *restriction.Service
	sync  *syncmod.Service
}

func NewService(db *gorm.DB, guard *restriction.Service, sync *syncmod.Service) *Service {
	return &Service{db: db, guard: guard, sync: sync}
}

func (s *Service) loadPublished(ctx context.Context, pointID string) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", pointID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPointNotFound
		}
		return nil, err
	}
	if point.Status != models.PointStatusPublish {
		return nil, ErrPointNotLive
	}
	return &point, nil
}

// hasPending checks the single-proposal invariant: a point can hold at most
// one pending history entry, regardless of its action type.
func (s *Service) hasPending(ctx context.Context, pointID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.HistoryModel{}).
		Where("point_id = ? AND status = ?", pointID, models.HistoryStatusPending).
		Count(&count).Error
	return count > 0, err
}

func snapshotOf(p *models.PointModel) *models.PointSnapshot {
	return &models.PointSnapshot{
		Title:   p.Title,
		Type:    p.Type,
		Content: p.Content,
		Images:  p.Images,
	}
}

// ProposeEdit queues a community edit for moderation. The current point state
// is snapshotted so moderators can diff and rejections can be audited.
func (s *Service) ProposeEdit(ctx context.Context, pointID, userID string, proposal models.EditProposal) (*models.HistoryModel, error) {
	point, err := s.loadPublished(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureAllowed(ctx, userID, models.CapEditPlaces); err != nil {
		return nil, err
	}

	proposal.Title = strings.TrimSpace(proposal.Title)
	proposal.Content = strings.TrimSpace(proposal.Content)
	if proposal.Title == "" && proposal.Content == "" && proposal.Type == "" && len(proposal.NewImages) == 0 {
		return nil, ErrEmptyProposal
	}
	if proposal.Type != "" && !proposal.Type.Valid() {
		return nil, ErrEmptyProposal
	}

	pending, err := s.hasPending(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingExists
	}

	entry := models.HistoryModel{
		PointID: pointID,
		UserID:  userID,
		Action:  models.HistoryActionEdit,
		Status:  models.HistoryStatusPending,
		Old:     snapshotOf(point),
		Edit:    &proposal,
	}
	if err := entry.ValidatePayload(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}

	_, _ = s.sync.Enqueue(ctx, models.SyncEditSubmitted, pointID, map[string]interface{}{
		"history_id": entry.ID,
	})
	return &entry, nil
}

// ProposeDeletion queues a deletion request and flags the point so the map
// can badge it.
func (s *Service) ProposeDeletion(ctx context.Context, pointID, userID, reason string) (*models.HistoryModel, error) {
	point, err := s.loadPublished(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureAllowed(ctx, userID, models.CapEditPlaces); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyProposal
	}

	pending, err := s.hasPending(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingExists
	}

	entry := models.HistoryModel{
		PointID:  pointID,
		UserID:   userID,
		Action:   models.HistoryActionDeleteRequest,
		Status:   models.HistoryStatusPending,
		Old:      snapshotOf(point),
		Deletion: &models.DeletionProposal{Reason: reason},
	}
	if err := entry.ValidatePayload(); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(point).Updates(map[string]interface{}{
			"is_deletion_requested": true,
			"deletion_reason":       reason,
			"deletion_requested_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	_, _ = s.sync.Enqueue(ctx, models.SyncDeletionRequested, pointID, map[string]interface{}{
		"history_id": entry.ID,
	})
	return &entry, nil
}

// GetByID returns one history entry, nil when absent.
func (s *Service) GetByID(ctx context.Context, id string) (*models.HistoryModel, error) {
	var entry models.HistoryModel
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *Service) ListPending(ctx context.Context, q pagination.Query, action models.HistoryAction) ([]models.HistoryModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.HistoryModel{}).
		Where("status = ?", models.HistoryStatusPending).
		Order("created_at ASC")
	if action != "" {
		tx = tx.Where("action = ?", action)
	}
	var entries []models.HistoryModel
	pag, err := pagination.Paginate(tx, q, &entries)
	return entries, pag, err
}

// ListForPoint returns a point's full moderation trail, newest first.
func (s *Service) ListForPoint(ctx context.Context, q pagination.Query, pointID string) ([]models.HistoryModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.HistoryModel{}).
		Where("point_id = ?", pointID).
		Order("created_at DESC")
	var entries []models.HistoryModel
	pag, err := pagination.Paginate(tx, q, &entries)
	return entries, pag, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/points")
	g.POST("/:id/edits", authMW, h.proposeEdit)
	g.POST("/:id/deletion-requests", authMW, h.proposeDeletion)

	a := rg.Group("/history", authMW, adminMW)
	a.GET("", h.listPending)
	a.GET("/point/:pointId", h.listForPoint)
	a.GET("/:id", h.get)
}

type proposeEditDTO struct {
	Title   string           `json:"title"`
	Type    models.PointType `json:"type"`
	Content string           `json:"content"`
	Images  []models.Image   `json:"images"`
}

type proposeDeletionDTO struct {
	Reason string `json:"reason" binding:"required"`
}

type historyResponse struct {
	ID           string                    `json:"id"`
	PointID      string                    `json:"point_id"`
	UserID       string                    `json:"user_id,omitempty"`
	Action       models.HistoryAction      `json:"action"`
	Status       models.HistoryStatus      `json:"status"`
	Old          *models.PointSnapshot     `json:"old,omitempty"`
	Edit         *models.EditProposal      `json:"edit,omitempty"`
	Deletion     *models.DeletionProposal  `json:"deletion,omitempty"`
	RejectReason string                    `json:"reject_reason,omitempty"`
	ResolvedAt   *time.Time                `json:"resolved_at,omitempty"`
	ResolvedBy   string                    `json:"resolved_by,omitempty"`
	Created      time.Time                 `json:"created"`
}

func toResponse(e *models.HistoryModel) historyResponse {
	return historyResponse{
		ID:           e.ID,
		PointID:      e.PointID,
		UserID:       e.UserID,
		Action:       e.Action,
		Status:       e.Status,
		Old:          e.Old,
		Edit:         e.Edit,
		Deletion:     e.Deletion,
		RejectReason: e.RejectReason,
		ResolvedAt:   e.ResolvedAt,
		ResolvedBy:   e.ResolvedBy,
		Created:      e.CreatedAt,
	}
}

func (h *Handler) respondProposalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPointNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrPointNotLive):
		response.UnprocessableEntity(c, "Zmiany można proponować tylko dla opublikowanych punktów.")
	case errors.Is(err, ErrPendingExists):
		response.Conflict(c, "Ten punkt ma już propozycję czekającą na moderację.")
	case errors.Is(err, ErrEmptyProposal):
		response.BadRequest(c, "Propozycja nie zawiera żadnych zmian.")
	case errors.Is(err, restriction.ErrBanned):
		response.ForbiddenMsg(c, "Twoje konto jest zablokowane.")
	case errors.Is(err, restriction.ErrRestricted):
		response.ForbiddenMsg(c, "Nie możesz obecnie proponować zmian.")
	default:
		response.InternalError(c, err)
	}
}

// POST /points/:id/edits
func (h *Handler) proposeEdit(c *gin.Context) {
	var dto proposeEditDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.svc.ProposeEdit(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), models.EditProposal{
		Title:     dto.Title,
		Type:      dto.Type,
		Content:   dto.Content,
		NewImages: dto.Images,
	})
	if err != nil {
		h.respondProposalError(c, err)
		return
	}
	response.Created(c, toResponse(entry))
}

// POST /points/:id/deletion-requests
func (h *Handler) proposeDeletion(c *gin.Context) {
	var dto proposeDeletionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.svc.ProposeDeletion(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Reason)
	if err != nil {
		h.respondProposalError(c, err)
		return
	}
	response.Created(c, toResponse(entry))
}

// GET /history?action=
func (h *Handler) listPending(c *gin.Context) {
	q := pagination.FromContext(c)
	entries, pag, err := h.svc.ListPending(c.Request.Context(), q, models.HistoryAction(c.Query("action")))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]historyResponse, len(entries))
	for i := range entries {
		items[i] = toResponse(&entries[i])
	}
	response.Paged(c, items, pag)
}

// GET /history/point/:pointId
func (h *Handler) listForPoint(c *gin.Context) {
	q := pagination.FromContext(c)
	entries, pag, err := h.svc.ListForPoint(c.Request.Context(), q, c.Param("pointId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]historyResponse, len(entries))
	for i := range entries {
		items[i] = toResponse(&entries[i])
	}
	response.Paged(c, items, pag)
}

// GET /history/:id
func (h *Handler) get(c *gin.Context) {
	entry, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if entry == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(entry))
}
