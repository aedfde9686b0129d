package report

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
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrPointNotFound    = errors.New("point not found")
	ErrPointNotLive     = errors.New("point is not published")
	ErrAlreadyReported  = errors.New("user already has a pending report for this point")
	ErrDailyLimit       = errors.New("daily report limit reached")
	ErrAnonymousNoEmail = errors.New("anonymous report requires an email")
)

// SystemReporter marks reports filed automatically, e.g. on a heavily
// downvoted point.
const SystemReporter = ""

type Service struct {
	db      *gorm.DB
	limiter *dailylimit.Limiter
	guard   *restriction.Service
	sync    *syncmod.Service
}

func NewService(db *gorm.DB, limiter *dailylimit.Limiter, guard *restriction.Service, sync *syncmod.Service) *Service {
	return &Service{db: db, limiter: limiter, guard: guard, sync: sync}
}

// Add files a report against a published point and flags the point as
// reported. userID may be empty for anonymous reports, which then require an
// email address.
func (s *Service) Add(ctx context.Context, pointID, userID, email, reason string) (*models.ReportModel, error) {
	if userID == "" && strings.TrimSpace(email) == "" {
		return nil, ErrAnonymousNoEmail
	}

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

	if userID != "" {
		if err := s.guard.EnsureAllowed(ctx, userID, models.CapVoting); err != nil {
			return nil, err
		}
		reported, err := s.HasUserReported(ctx, pointID, userID)
		if err != nil {
			return nil, err
		}
		if reported {
			return nil, ErrAlreadyReported
		}
		ok, _, err := s.limiter.Consume(ctx, dailylimit.KindReports, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDailyLimit
		}
	}

	row := models.ReportModel{
		PointID: pointID,
		UserID:  userID,
		Email:   strings.TrimSpace(email),
		Reason:  strings.TrimSpace(reason),
		Status:  models.ReportPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.PointModel{}).
			Where("id = ?", pointID).
			Update("report_status", models.ReportStatusReported).Error
	})
	if err != nil {
		return nil, err
	}
	_, _ = s.sync.Enqueue(ctx, models.SyncReportAdded, pointID, map[string]interface{}{
		"report_id": row.ID,
	})
	return &row, nil
}

// AddSystem files an automatic report, bypassing user guards and limits.
func (s *Service) AddSystem(ctx context.Context, pointID, reason string) (*models.ReportModel, error) {
	row := models.ReportModel{
		PointID: pointID,
		UserID:  SystemReporter,
		Reason:  reason,
		Status:  models.ReportPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.PointModel{}).
			Where("id = ?", pointID).
			Update("report_status", models.ReportStatusReported).Error
	})
	if err != nil {
		return nil, err
	}
	_, _ = s.sync.Enqueue(ctx, models.SyncReportAdded, pointID, map[string]interface{}{
		"report_id": row.ID,
		"automatic": true,
	})
	return &row, nil
}

// HasUserReported reports whether the user already has a pending report for
// the point. Resolved reports do not block a fresh one.
func (s *Service) HasUserReported(ctx context.Context, pointID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReportModel{}).
		Where("point_id = ? AND user_id = ? AND status = ?", pointID, userID, models.ReportPending).
		Count(&count).Error
	return count > 0, err
}

// ResolveForPoint closes every pending report on a point with one decision and
// clears the point's reported flag. Returns how many reports were resolved.
func (s *Service) ResolveForPoint(ctx context.Context, tx *gorm.DB, pointID, decision string) (int64, error) {
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	now := time.Now()
	res := tx.Model(&models.ReportModel{}).
		Where("point_id = ? AND status = ?", pointID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":         models.ReportResolved,
			"admin_decision": decision,
			"resolved_at":    &now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	err := tx.Model(&models.PointModel{}).
		Where("id = ?", pointID).
		Update("report_status", models.ReportStatusResolved).Error
	return res.RowsAffected, err
}

// ListPending returns pending reports for the moderation queue, oldest first,
// optionally narrowed to one point.
func (s *Service) ListPending(ctx context.Context, q pagination.Query, pointID string) ([]models.ReportModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.ReportModel{}).
		Where("status = ?", models.ReportPending).
		Order("created_at ASC")
	if pointID != "" {
		tx = tx.Where("point_id = ?", pointID)
	}
	var rows []models.ReportModel
	pag, err := pagination.Paginate(tx, q, &rows)
	return rows, pag, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/points")
	g.POST("/:id/reports", h.create)
	g.GET("/:id/reports/mine", authMW, h.mine)

	a := rg.Group("/reports", authMW, adminMW)
	a.GET("", h.listPending)
}

type createReportDTO struct {
	Email  string `json:"email"`
	Reason string `json:"reason" binding:"required"`
}

type reportResponse struct {
	ID      string             `json:"id"`
	PointID string             `json:"point_id"`
	UserID  string             `json:"user_id,omitempty"`
	Email   string             `json:"email,omitempty"`
	Reason  string             `json:"reason"`
	Status  models.ReportState `json:"status"`
	Created time.Time          `json:"created"`
}

func toResponse(r *models.ReportModel, isAdmin bool) reportResponse {
	out := reportResponse{
		ID:      r.ID,
		PointID: r.PointID,
		Reason:  r.Reason,
		Status:  r.Status,
		Created: r.CreatedAt,
	}
	if isAdmin {
		out.UserID = r.UserID
		out.Email = r.Email
	}
	return out
}

// POST /points/:id/reports
func (h *Handler) create(c *gin.Context) {
	var dto createReportDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	row, err := h.svc.Add(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Email, dto.Reason)
	switch {
	case errors.Is(err, ErrPointNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrPointNotLive):
		response.UnprocessableEntity(c, "Można zgłaszać tylko opublikowane punkty.")
	case errors.Is(err, ErrAlreadyReported):
		response.Conflict(c, "Już zgłosiłeś ten punkt. Zgłoszenie czeka na moderację.")
	case errors.Is(err, ErrDailyLimit):
		response.TooManyRequests(c, "Wykorzystałeś dzienny limit zgłoszeń. Spróbuj jutro.")
	case errors.Is(err, ErrAnonymousNoEmail):
		response.BadRequest(c, "Anonimowe zgłoszenie wymaga adresu e-mail.")
	case errors.Is(err, restriction.ErrBanned):
		response.ForbiddenMsg(c, "Twoje konto jest zablokowane.")
	case errors.Is(err, restriction.ErrRestricted):
		response.ForbiddenMsg(c, "Nie możesz obecnie zgłaszać punktów.")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Created(c, toResponse(row, false))
	}
}

// GET /points/:id/reports/mine
func (h *Handler) mine(c *gin.Context) {
	reported, err := h.svc.HasUserReported(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"reported": reported})
}

// GET /reports?point_id=
func (h *Handler) listPending(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, pag, err := h.svc.ListPending(c.Request.Context(), q, c.Query("point_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]reportResponse, len(rows))
	for i := range rows {
		items[i] = toResponse(&rows[i], true)
	}
	response.Paged(c, items, pag)
}
