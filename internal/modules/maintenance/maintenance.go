package maintenance

import (
	"context"
	"time"

	"github.com/jgmap/core/internal/config"
	"github.com/jgmap/core/internal/models"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// pendingWarnAge is how long a submission may wait for moderation before
	// its author gets a reminder and the point is trashed.
	pendingWarnAge = 30 * 24 * time.Hour

	// trashPurgeAge is how long trashed points are kept before permanent
	// removal.
	trashPurgeAge = 90 * 24 * time.Hour
)

// Service runs the daily housekeeping pass. Every task is isolated: one
// failing task is logged and the rest still run.
type Service struct {
	db     *gorm.DB
	cfg    *config.AppConfig
	sync   *syncmod.Service
	mailer *mail.Sender
	log    *zap.Logger
}

func NewService(db *gorm.DB, cfg *config.AppConfig, sync *syncmod.Service, mailer *mail.Sender, log *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, sync: sync, mailer: mailer, log: log.Named("maintenance")}
}

// Run executes all housekeeping tasks and never returns an error for a single
// task failure.
func (s *Service) Run(ctx context.Context) error {
	tasks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"orphaned_rows", s.sweepOrphanedRows},
		{"out_of_region", s.flagOutOfRegion},
		{"empty_content", s.flagEmptyContent},
		{"expired_promos", s.disableExpiredPromos},
		{"stale_pending", s.trashStalePending},
		{"purge_trash", s.purgeOldTrash},
	}
	for _, task := range tasks {
		if err := task.fn(ctx); err != nil {
			s.log.Error("maintenance task failed", zap.String("task", task.name), zap.Error(err))
			continue
		}
		s.log.Debug("maintenance task done", zap.String("task", task.name))
	}
	return nil
}

// sweepOrphanedRows removes votes, reports and history rows whose point no
// longer exists.
func (s *Service) sweepOrphanedRows(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	orphans := "point_id NOT IN (SELECT id FROM points)"

	if err := db.Unscoped().Where(orphans).Delete(&models.VoteModel{}).Error; err != nil {
		return err
	}
	if err := db.Unscoped().Where(orphans).Delete(&models.RelevanceVoteModel{}).Error; err != nil {
		return err
	}
	if err := db.Unscoped().Where(orphans).Delete(&models.ReportModel{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where(orphans).Delete(&models.HistoryModel{}).Error
}

// flagOutOfRegion appends an admin note to published points whose coordinates
// drifted outside the configured region, so moderators can review them.
func (s *Service) flagOutOfRegion(ctx context.Context) error {
	m := s.cfg.Map
	var points []models.PointModel
	err := s.db.WithContext(ctx).
		Select("id, admin_note, lat, lng").
		Where("status = ?", models.PointStatusPublish).
		Where("lat < ? OR lat > ? OR lng < ? OR lng > ?", m.MinLat, m.MaxLat, m.MinLng, m.MaxLng).
		Where("admin_note NOT LIKE ?", "%poza obszarem mapy%").
		Find(&points).Error
	if err != nil {
		return err
	}
	for _, p := range points {
		note := p.AdminNote
		if note != "" {
			note += "\n"
		}
		note += "[auto] Punkt leży poza obszarem mapy."
		if err := s.db.WithContext(ctx).Model(&models.PointModel{}).
			Where("id = ?", p.ID).
			Update("admin_note", note).Error; err != nil {
			return err
		}
	}
	return nil
}

// flagEmptyContent marks published points that lost both title and content.
func (s *Service) flagEmptyContent(ctx context.Context) error {
	var points []models.PointModel
	err := s.db.WithContext(ctx).
		Select("id, admin_note").
		Where("status = ?", models.PointStatusPublish).
		Where("TRIM(title) = '' AND TRIM(content) = ''").
		Where("admin_note NOT LIKE ?", "%brak treści%").
		Find(&points).Error
	if err != nil {
		return err
	}
	for _, p := range points {
		note := p.AdminNote
		if note != "" {
			note += "\n"
		}
		note += "[auto] Punkt nie ma tytułu ani treści (brak treści)."
		if err := s.db.WithContext(ctx).Model(&models.PointModel{}).
			Where("id = ?", p.ID).
			Update("admin_note", note).Error; err != nil {
			return err
		}
	}
	return nil
}

// disableExpiredPromos clears sponsorship flags in bulk; the read path also
// does this lazily, this pass catches points nobody viewed.
func (s *Service) disableExpiredPromos(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&models.PointModel{}).
		Where("is_promo = ? AND promo_until IS NOT NULL AND promo_until <= ?", true, time.Now()).
		Updates(map[string]interface{}{"is_promo": false, "promo_until": nil}).Error
}

// trashStalePending moves month-old unreviewed submissions to trash and tells
// their authors.
func (s *Service) trashStalePending(ctx context.Context) error {
	cutoff := time.Now().Add(-pendingWarnAge)
	var points []models.PointModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PointStatusPending, cutoff).
		Find(&points).Error
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := s.db.WithContext(ctx).Model(&models.PointModel{}).
			Where("id = ?", p.ID).
			Update("status", models.PointStatusTrash).Error; err != nil {
			return err
		}
		s.notifyAuthor(ctx, p)
	}
	return nil
}

func (s *Service) notifyAuthor(ctx context.Context, p models.PointModel) {
	if p.AuthorID == "" {
		return
	}
	var user models.UserModel
	if err := s.db.WithContext(ctx).Select("mail").First(&user, "id = ?", p.AuthorID).Error; err != nil {
		return
	}
	if user.Mail == "" {
		return
	}
	if err := s.mailer.SendPendingExpiry(user.Mail, mail.DecisionData{PointTitle: p.Title}); err != nil {
		s.log.Warn("pending expiry mail failed", zap.String("point_id", p.ID), zap.Error(err))
	}
}

// purgeOldTrash permanently deletes points trashed long ago, together with
// their votes, reports and history.
func (s *Service) purgeOldTrash(ctx context.Context) error {
	cutoff := time.Now().Add(-trashPurgeAge)
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.PointModel{}).
		Where("status = ? AND updated_at < ?", models.PointStatusTrash, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("point_id IN ?", ids).Delete(&models.VoteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id IN ?", ids).Delete(&models.RelevanceVoteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id IN ?", ids).Delete(&models.ReportModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id IN ?", ids).Delete(&models.HistoryModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id IN ?", ids).Delete(&models.PointModel{}).Error
	})
}
