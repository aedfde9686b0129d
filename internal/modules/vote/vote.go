package vote

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/report"
	"github.com/jgmap/core/internal/modules/restriction"
	"github.com/jgmap/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// autoReportThreshold triggers an automatic report once a point's score
// (upvotes minus downvotes) falls this low.
const autoReportThreshold = -100

var (
	ErrPointNotFound = errors.New("point not found")
	ErrPointNotLive  = errors.New("point is not published")
)

// Score is the aggregated vote state of a point.
type Score struct {
	Up    int64 `json:"up"`
	Down  int64 `json:"down"`
	Score int64 `json:"score"`
}

type Service struct {
	db      *gorm.DB
	guard   *restriction.Service
	reports *report.Service
	log     *zap.Logger
}

func NewService(db *gorm.DB, guard *restriction.Service, reports *report.Service, log *zap.Logger) *Service {
	return &Service{db: db, guard: guard, reports: reports, log: log.Named("vote")}
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

// Cast applies a vote with toggle semantics: repeating the same vote removes
// it, a different vote replaces the old one. Returns the user's resulting
// vote ("" when removed) and the new score.
func (s *Service) Cast(ctx context.Context, pointID, userID string, requested models.VoteType) (models.VoteType, Score, error) {
	point, err := s.loadPublished(ctx, pointID)
	if err != nil {
		return "", Score{}, err
	}
	if err := s.guard.EnsureAllowed(ctx, userID, models.CapVoting); err != nil {
		return "", Score{}, err
	}

	var current models.VoteType
	var existing models.VoteModel
	err = s.db.WithContext(ctx).
		Where("point_id = ? AND user_id = ?", pointID, userID).
		First(&existing).Error
	switch {
	case err == nil:
		current = existing.Vote
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return "", Score{}, err
	}

	resulting := models.ResolveVoteToggle(current, requested)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current != "" {
			if err := tx.Unscoped().
				Where("point_id = ? AND user_id = ?", pointID, userID).
				Delete(&models.VoteModel{}).Error; err != nil {
				return err
			}
		}
		if resulting == "" {
			return nil
		}
		return tx.Create(&models.VoteModel{
			PointID: pointID,
			UserID:  userID,
			Vote:    resulting,
		}).Error
	})
	if err != nil {
		return "", Score{}, err
	}

	score, err := s.GetScore(ctx, pointID)
	if err != nil {
		return resulting, Score{}, err
	}
	s.maybeAutoReport(ctx, point, score)
	return resulting, score, nil
}

// GetScore derives the score from the vote rows; it is never stored.
func (s *Service) GetScore(ctx context.Context, pointID string) (Score, error) {
	var rows []struct {
		Vote  models.VoteType
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.VoteModel{}).
		Select("vote, COUNT(*) AS count").
		Where("point_id = ?", pointID).
		Group("vote").
		Scan(&rows).Error
	if err != nil {
		return Score{}, err
	}
	var score Score
	for _, row := range rows {
		switch row.Vote {
		case models.VoteUp:
			score.Up = row.Count
		case models.VoteDown:
			score.Down = row.Count
		}
	}
	score.Score = score.Up - score.Down
	return score, nil
}

// UserVote returns the caller's current vote on a point, "" when none.
func (s *Service) UserVote(ctx context.Context, pointID, userID string) (models.VoteType, error) {
	var row models.VoteModel
	err := s.db.WithContext(ctx).
		Where("point_id = ? AND user_id = ?", pointID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Vote, nil
}

func (s *Service) maybeAutoReport(ctx context.Context, point *models.PointModel, score Score) {
	if score.Score > autoReportThreshold {
		return
	}
	if point.ReportStatus == models.ReportStatusReported {
		return
	}
	if _, err := s.reports.AddSystem(ctx, point.ID, "Punkt osiągnął bardzo niską ocenę społeczności."); err != nil {
		s.log.Warn("auto report failed", zap.String("point_id", point.ID), zap.Error(err))
	}
}

// CastRelevance records whether a point is still relevant. Repeating the same
// answer withdraws it; a different answer replaces it.
func (s *Service) CastRelevance(ctx context.Context, pointID, userID string, relevant bool) (*bool, error) {
	if _, err := s.loadPublished(ctx, pointID); err != nil {
		return nil, err
	}
	if err := s.guard.EnsureAllowed(ctx, userID, models.CapVoting); err != nil {
		return nil, err
	}

	var existing models.RelevanceVoteModel
	err := s.db.WithContext(ctx).
		Where("point_id = ? AND user_id = ?", pointID, userID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Relevant == relevant {
			return nil, s.db.WithContext(ctx).Unscoped().Delete(&existing).Error
		}
		existing.Relevant = relevant
		return &relevant, s.db.WithContext(ctx).Model(&existing).Update("relevant", relevant).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.RelevanceVoteModel{PointID: pointID, UserID: userID, Relevant: relevant}
		return &relevant, s.db.WithContext(ctx).Create(&row).Error
	default:
		return nil, err
	}
}

// RelevanceSummary counts the still-relevant answers for a point.
func (s *Service) RelevanceSummary(ctx context.Context, pointID string) (yes, no int64, err error) {
	var rows []struct {
		Relevant bool
		Count    int64
	}
	err = s.db.WithContext(ctx).Model(&models.RelevanceVoteModel{}).
		Select("relevant, COUNT(*) AS count").
		Where("point_id = ?", pointID).
		Group("relevant").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		if row.Relevant {
			yes = row.Count
		} else {
			no = row.Count
		}
	}
	return yes, no, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/points")

	g.GET("/:id/votes", h.score)
	g.POST("/:id/votes", authMW, h.cast)
	g.GET("/:id/relevance", h.relevance)
	g.POST("/:id/relevance", authMW, h.castRelevance)
}

type castVoteDTO struct {
	Vote models.VoteType `json:"vote" binding:"required"`
}

func (h *Handler) cast(c *gin.Context) {
	var dto castVoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !dto.Vote.Valid() {
		response.BadRequest(c, "Głos musi mieć wartość up albo down.")
		return
	}

	resulting, score, err := h.svc.Cast(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Vote)
	switch {
	case errors.Is(err, ErrPointNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrPointNotLive):
		response.UnprocessableEntity(c, "Można oceniać tylko opublikowane punkty.")
	case errors.Is(err, restriction.ErrBanned):
		response.ForbiddenMsg(c, "Twoje konto jest zablokowane.")
	case errors.Is(err, restriction.ErrRestricted):
		response.ForbiddenMsg(c, "Nie możesz obecnie głosować.")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"vote": resulting, "score": score})
	}
}

func (h *Handler) score(c *gin.Context) {
	score, err := h.svc.GetScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	payload := gin.H{"score": score}
	if userID := middleware.CurrentUserID(c); userID != "" {
		vote, err := h.svc.UserVote(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		payload["vote"] = vote
	}
	response.OK(c, payload)
}

type castRelevanceDTO struct {
	Relevant *bool `json:"relevant" binding:"required"`
}

func (h *Handler) castRelevance(c *gin.Context) {
	var dto castRelevanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resulting, err := h.svc.CastRelevance(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), *dto.Relevant)
	switch {
	case errors.Is(err, ErrPointNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrPointNotLive):
		response.UnprocessableEntity(c, "Można oceniać tylko opublikowane punkty.")
	case errors.Is(err, restriction.ErrBanned):
		response.ForbiddenMsg(c, "Twoje konto jest zablokowane.")
	case errors.Is(err, restriction.ErrRestricted):
		response.ForbiddenMsg(c, "Nie możesz obecnie głosować.")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"relevant": resulting})
	}
}

func (h *Handler) relevance(c *gin.Context) {
	yes, no, err := h.svc.RelevanceSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"relevant": yes, "outdated": no})
}
