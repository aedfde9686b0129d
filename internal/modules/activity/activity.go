package activity

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("activity")}
}

// Log records a moderation or contribution action. Failures are logged and
// swallowed; the audit trail must never abort the action it describes.
func (s *Service) Log(ctx context.Context, actorID, action, pointID string, details map[string]interface{}) {
	row := models.ActivityLogModel{
		ActorID: actorID,
		Action:  action,
		PointID: pointID,
		Details: details,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("activity log write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// List returns a filtered page of the audit trail, newest first.
func (s *Service) List(ctx context.Context, q pagination.Query, action, pointID, actorID string) ([]models.ActivityLogModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.ActivityLogModel{}).
		Order("created_at DESC")
	if action != "" {
		tx = tx.Where("action = ?", action)
	}
	if pointID != "" {
		tx = tx.Where("point_id = ?", pointID)
	}
	if actorID != "" {
		tx = tx.Where("actor_id = ?", actorID)
	}
	var rows []models.ActivityLogModel
	pag, err := pagination.Paginate(tx, q, &rows)
	return rows, pag, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/activity", authMW, adminMW)
	g.GET("", h.list)
}

type activityResponse struct {
	ID      string                 `json:"id"`
	ActorID string                 `json:"actor_id,omitempty"`
	Action  string                 `json:"action"`
	PointID string                 `json:"point_id,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Created time.Time              `json:"created"`
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, pag, err := h.svc.List(c.Request.Context(), q,
		c.Query("action"), c.Query("point_id"), c.Query("actor_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]activityResponse, len(rows))
	for i, row := range rows {
		items[i] = activityResponse{
			ID:      row.ID,
			ActorID: row.ActorID,
			Action:  row.Action,
			PointID: row.PointID,
			Details: row.Details,
			Created: row.CreatedAt,
		}
	}
	response.Paged(c, items, pag)
}
