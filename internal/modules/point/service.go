package point

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jgmap/core/internal/config"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/activity"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"github.com/jgmap/core/internal/pkg/mail"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	excerptRunes = 160

	// publicListLimit is a safety valve; the whole published set is normally
	// well below it.
	publicListLimit = 5000
)

var (
	ErrNotFound       = errors.New("point not found")
	ErrOutOfBounds    = errors.New("coordinates outside the supported region")
	ErrCategoryNeeded = errors.New("issue pin requires a category")
	ErrDuplicate      = errors.New("a similar pin already exists nearby")
	ErrDailyLimit     = errors.New("daily submission limit reached")
	ErrNotOwner       = errors.New("point belongs to someone else")
	ErrNotEditable    = errors.New("point can no longer be edited directly")
)

type Service struct {
	db       *gorm.DB
	cfg      *config.AppConfig
	guard    *restriction.Service
	limiter  *dailylimit.Limiter
	sync     *syncmod.Service
	mailer   *mail.Sender
	activity *activity.Service
	log      *zap.Logger
}

func NewService(db *gorm.DB, cfg *config.AppConfig, guard *restriction.Service, limiter *dailylimit.Limiter, sync *syncmod.Service, mailer *mail.Sender, act *activity.Service, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		guard:    guard,
		limiter:  limiter,
		sync:     sync,
		mailer:   mailer,
		activity: act,
		log:      log.Named("point"),
	}
}

func capabilityFor(t models.PointType) models.Capability {
	switch t {
	case models.PointTypeCuriosity:
		return models.CapAddTrivia
	case models.PointTypeIssue:
		return models.CapAddEvents
	default:
		return models.CapAddPlaces
	}
}

func limitKindFor(t models.PointType) dailylimit.Kind {
	if t == models.PointTypeIssue {
		return dailylimit.KindReports
	}
	return dailylimit.KindPlaces
}

func makeExcerpt(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= excerptRunes {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}

// ListPublished returns the live map payload. Promo flags that expired are
// cleared on the way out and persisted.
func (s *Service) ListPublished(ctx context.Context, filter ListFilter) ([]models.PointModel, error) {
	tx := s.db.WithContext(ctx).
		Where("status = ?", models.PointStatusPublish).
		Order("created_at DESC").
		Limit(publicListLimit)
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}

	var points []models.PointModel
	if err := tx.Find(&points).Error; err != nil {
		return nil, err
	}
	s.expirePromos(ctx, points)
	return points, nil
}

// expirePromos lazily clears promo flags whose deadline passed.
func (s *Service) expirePromos(ctx context.Context, points []models.PointModel) {
	now := time.Now()
	var expired []string
	for i := range points {
		if points[i].PromoExpired(now) {
			points[i].IsPromo = false
			expired = append(expired, points[i].ID)
		}
	}
	if len(expired) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Model(&models.PointModel{}).
		Where("id IN ?", expired).
		Updates(map[string]interface{}{"is_promo": false, "promo_until": nil}).Error; err != nil {
		s.log.Warn("promo expiry persist failed", zap.Error(err))
	}
}

// GetByID returns a point. Unpublished points are visible only to their
// author and to admins.
func (s *Service) GetByID(ctx context.Context, id, viewerID string, isAdmin bool) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if point.Status != models.PointStatusPublish && !isAdmin && point.AuthorID != viewerID {
		return nil, ErrNotFound
	}
	s.expirePromos(ctx, []models.PointModel{point})
	if point.PromoExpired(time.Now()) {
		point.IsPromo = false
	}
	return &point, nil
}

// checkDuplicate rejects an issue pin when a pin of the same category already
// sits within the configured radius, among published and pending points.
func (s *Service) checkDuplicate(ctx context.Context, lat, lng float64, category string) error {
	radius := float64(s.cfg.Map.DuplicateRadiusM)
	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radius)

	var candidates []models.PointModel
	err := s.db.WithContext(ctx).
		Select("id, lat, lng").
		Where("type = ? AND category = ?", models.PointTypeIssue, category).
		Where("status IN ?", []models.PointStatus{models.PointStatusPublish, models.PointStatusPending}).
		Where("lat BETWEEN ? AND ?", minLat, maxLat).
		Where("lng BETWEEN ? AND ?", minLng, maxLng).
		Find(&candidates).Error
	if err != nil {
		return err
	}
	for _, cand := range candidates {
		if HaversineM(lat, lng, cand.Lat, cand.Lng) <= radius {
			return ErrDuplicate
		}
	}
	return nil
}

// Create validates and stores a new community submission in pending state.
func (s *Service) Create(ctx context.Context, dto *CreatePointDTO, authorID, ip string) (*models.PointModel, error) {
	if !dto.Type.Valid() {
		return nil, errors.New("unknown point type")
	}
	if !InBounds(s.cfg.Map, dto.Lat, dto.Lng) {
		return nil, ErrOutOfBounds
	}
	if dto.Type == models.PointTypeIssue {
		if strings.TrimSpace(dto.Category) == "" {
			return nil, ErrCategoryNeeded
		}
		if err := s.checkDuplicate(ctx, dto.Lat, dto.Lng, dto.Category); err != nil {
			return nil, err
		}
	}
	if err := s.guard.EnsureAllowed(ctx, authorID, capabilityFor(dto.Type)); err != nil {
		return nil, err
	}

	kind := limitKindFor(dto.Type)
	ok, _, err := s.limiter.Consume(ctx, kind, authorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDailyLimit
	}

	point := models.PointModel{
		Title:        strings.TrimSpace(dto.Title),
		Content:      strings.TrimSpace(dto.Content),
		Excerpt:      makeExcerpt(dto.Content),
		Lat:          dto.Lat,
		Lng:          dto.Lng,
		Type:         dto.Type,
		Category:     strings.TrimSpace(dto.Category),
		Address:      strings.TrimSpace(dto.Address),
		Website:      strings.TrimSpace(dto.Website),
		Phone:        strings.TrimSpace(dto.Phone),
		CTAText:      strings.TrimSpace(dto.CTAText),
		CTAURL:       strings.TrimSpace(dto.CTAURL),
		Images:       dto.Images,
		Status:       models.PointStatusPending,
		ReportStatus: models.ReportStatusAdded,
		AuthorID:     authorID,
		IPAddress:    ip,
	}
	if cap := point.MaxImages(s.cfg.Limits.MaxImages, s.cfg.Limits.MaxImagesPromo); len(point.Images) > cap {
		point.Images = point.Images[:cap]
	}

	if err := s.db.WithContext(ctx).Create(&point).Error; err != nil {
		// Give the unit back; nothing was stored.
		_ = s.limiter.Refund(ctx, kind, authorID)
		return nil, err
	}

	_, _ = s.sync.Enqueue(ctx, models.SyncPointCreated, point.ID, map[string]interface{}{
		"type": string(point.Type),
	})
	s.activity.Log(ctx, authorID, "point_submitted", point.ID, map[string]interface{}{
		"type":  string(point.Type),
		"title": point.Title,
	})
	s.notifyAdmins(point.Title, string(point.Type))
	return &point, nil
}

func (s *Service) notifyAdmins(title, kind string) {
	if s.cfg.AdminEmail == "" {
		return
	}
	go func() {
		err := s.mailer.SendAdminNotify(s.cfg.AdminEmail, mail.AdminNotifyData{
			Kind:       kind,
			PointTitle: title,
		})
		if err != nil {
			s.log.Warn("admin notify mail failed", zap.Error(err))
		}
	}()
}

// Update applies a partial update. Authors may only touch their own pending
// points; admins may edit anything directly, bypassing the proposal queue.
func (s *Service) Update(ctx context.Context, id string, dto *UpdatePointDTO, actorID string, isAdmin bool) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !isAdmin {
		if point.AuthorID != actorID {
			return nil, ErrNotOwner
		}
		if point.Status != models.PointStatusPending {
			return nil, ErrNotEditable
		}
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = strings.TrimSpace(*dto.Title)
	}
	if dto.Content != nil {
		updates["content"] = strings.TrimSpace(*dto.Content)
		updates["excerpt"] = makeExcerpt(*dto.Content)
	}
	if dto.Type != nil {
		if !dto.Type.Valid() {
			return nil, errors.New("unknown point type")
		}
		updates["type"] = *dto.Type
	}
	if dto.Category != nil {
		updates["category"] = strings.TrimSpace(*dto.Category)
	}
	if dto.Lat != nil || dto.Lng != nil {
		lat, lng := point.Lat, point.Lng
		if dto.Lat != nil {
			lat = *dto.Lat
		}
		if dto.Lng != nil {
			lng = *dto.Lng
		}
		if !InBounds(s.cfg.Map, lat, lng) {
			return nil, ErrOutOfBounds
		}
		updates["lat"] = lat
		updates["lng"] = lng
	}
	if dto.Address != nil {
		updates["address"] = strings.TrimSpace(*dto.Address)
	}
	if dto.Website != nil {
		updates["website"] = strings.TrimSpace(*dto.Website)
	}
	if dto.Phone != nil {
		updates["phone"] = strings.TrimSpace(*dto.Phone)
	}
	if dto.CTAText != nil {
		updates["cta_text"] = strings.TrimSpace(*dto.CTAText)
	}
	if dto.CTAURL != nil {
		updates["cta_url"] = strings.TrimSpace(*dto.CTAURL)
	}
	if dto.Images != nil {
		images := *dto.Images
		if cap := point.MaxImages(s.cfg.Limits.MaxImages, s.cfg.Limits.MaxImagesPromo); len(images) > cap {
			images = images[:cap]
		}
		updates["images"] = images
	}
	if len(updates) == 0 {
		return &point, nil
	}

	if err := s.db.WithContext(ctx).Model(&point).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if point.Status == models.PointStatusPublish {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointUpdated, point.ID, nil)
	}
	s.activity.Log(ctx, actorID, "point_updated", point.ID, nil)
	return &point, nil
}

// SoftDelete lets an author withdraw their own pending submission. The daily
// quota unit is returned.
func (s *Service) SoftDelete(ctx context.Context, id, actorID string) error {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if point.AuthorID != actorID {
		return ErrNotOwner
	}
	if point.Status != models.PointStatusPending {
		return ErrNotEditable
	}

	if err := s.db.WithContext(ctx).Delete(&point).Error; err != nil {
		return err
	}
	_ = s.limiter.Refund(ctx, limitKindFor(point.Type), actorID)
	s.activity.Log(ctx, actorID, "point_withdrawn", point.ID, nil)
	return nil
}

// ListMine returns the caller's own submissions across all states.
func (s *Service) ListMine(ctx context.Context, q pagination.Query, authorID string) ([]models.PointModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.PointModel{}).
		Where("author_id = ?", authorID).
		Order("created_at DESC")
	var points []models.PointModel
	pag, err := pagination.Paginate(tx, q, &points)
	return points, pag, err
}

// AdminFilter narrows the admin listing.
type AdminFilter struct {
	Status        models.PointStatus
	Type          models.PointType
	ReportedOnly  bool
	DeletionsOnly bool
}

// ListAdmin returns the moderation listing across every state.
func (s *Service) ListAdmin(ctx context.Context, q pagination.Query, filter AdminFilter) ([]models.PointModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.PointModel{}).
		Order("created_at DESC")
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	if filter.ReportedOnly {
		tx = tx.Where("report_status = ?", models.ReportStatusReported)
	}
	if filter.DeletionsOnly {
		tx = tx.Where("is_deletion_requested = ?", true)
	}
	var points []models.PointModel
	pag, err := pagination.Paginate(tx, q, &points)
	return points, pag, err
}

// SetPromo marks a point as sponsored until the given deadline (nil = no
// deadline).
func (s *Service) SetPromo(ctx context.Context, id string, until *time.Time, actorID string) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&point).Updates(map[string]interface{}{
		"is_promo":    true,
		"promo_until": until,
	}).Error; err != nil {
		return nil, err
	}
	point.IsPromo = true
	point.PromoUntil = until
	if point.Status == models.PointStatusPublish {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointUpdated, point.ID, nil)
	}
	s.activity.Log(ctx, actorID, "point_promoted", point.ID, nil)
	return &point, nil
}

// ClearPromo removes the sponsored flag.
func (s *Service) ClearPromo(ctx context.Context, id, actorID string) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&point).Updates(map[string]interface{}{
		"is_promo":    false,
		"promo_until": nil,
	}).Error; err != nil {
		return nil, err
	}
	point.IsPromo = false
	point.PromoUntil = nil
	if point.Status == models.PointStatusPublish {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointUpdated, point.ID, nil)
	}
	s.activity.Log(ctx, actorID, "point_promo_cleared", point.ID, nil)
	return &point, nil
}
