package restriction

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrBanned     = errors.New("user is banned")
	ErrRestricted = errors.New("capability is restricted for user")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Load returns the user and lazily clears a temporary ban whose deadline has
// passed. The cleared state is persisted, so the ban disappears on the first
// check after expiry.
func (s *Service) Load(ctx context.Context, userID string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if user.Banned && user.BanUntil != nil && !user.BanUntil.After(time.Now()) {
		user.Banned = false
		user.BanUntil = nil
		user.BanReason = ""
		if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
			"banned":     false,
			"ban_until":  nil,
			"ban_reason": "",
		}).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// EnsureAllowed verifies that a user may perform a capability-gated action.
func (s *Service) EnsureAllowed(ctx context.Context, userID string, cap models.Capability) error {
	user, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return gorm.ErrRecordNotFound
	}
	if user.BanActive(time.Now()) {
		return ErrBanned
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.UserRestrictionModel{}).
		Where("user_id = ? AND capability = ?", userID, cap).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRestricted
	}
	return nil
}

// Ban blocks a user, permanently when until is nil.
func (s *Service) Ban(ctx context.Context, userID string, until *time.Time, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"banned":     true,
			"ban_until":  until,
			"ban_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Unban lifts a ban immediately.
func (s *Service) Unban(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"banned":     false,
			"ban_until":  nil,
			"ban_reason": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Toggle flips a single capability restriction and reports the new state.
func (s *Service) Toggle(ctx context.Context, userID string, cap models.Capability) (bool, error) {
	var existing models.UserRestrictionModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND capability = ?", userID, cap).
		First(&existing).Error
	if err == nil {
		return false, s.db.WithContext(ctx).Unscoped().Delete(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	row := models.UserRestrictionModel{UserID: userID, Capability: cap}
	return true, s.db.WithContext(ctx).Create(&row).Error
}

// ListForUser returns all restricted capabilities of a user.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Capability, error) {
	var rows []models.UserRestrictionModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	caps := make([]models.Capability, len(rows))
	for i, row := range rows {
		caps[i] = row.Capability
	}
	return caps, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/users", authMW, adminMW)

	g.POST("/:id/ban", h.ban)
	g.DELETE("/:id/ban", h.unban)
	g.GET("/:id/restrictions", h.listRestrictions)
	g.POST("/:id/restrictions/:capability", h.toggleRestriction)
}

type banDTO struct {
	Reason string     `json:"reason"`
	Until  *time.Time `json:"until"`
}

func (h *Handler) ban(c *gin.Context) {
	var dto banDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Until != nil && !dto.Until.After(time.Now()) {
		response.BadRequest(c, "Termin blokady musi być w przyszłości.")
		return
	}
	err := h.svc.Ban(c.Request.Context(), c.Param("id"), dto.Until, dto.Reason)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFoundMsg(c, "Nie znaleziono takiego użytkownika.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) unban(c *gin.Context) {
	err := h.svc.Unban(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.NotFoundMsg(c, "Nie znaleziono takiego użytkownika.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listRestrictions(c *gin.Context) {
	caps, err := h.svc.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"restrictions": caps})
}

func (h *Handler) toggleRestriction(c *gin.Context) {
	cap := models.Capability(c.Param("capability"))
	if !cap.Valid() {
		response.BadRequest(c, "Nieznana zdolność: "+string(cap))
		return
	}
	restricted, err := h.svc.Toggle(c.Request.Context(), c.Param("id"), cap)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"capability": cap, "restricted": restricted})
}
