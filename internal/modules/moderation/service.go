package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jgmap/core/internal/config"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/activity"
	"github.com/jgmap/core/internal/modules/report"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"github.com/jgmap/core/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrWrongState    = errors.New("entry is not pending")
	ErrPointVanished = errors.New("point behind this entry no longer exists")
	ErrBadTransition = errors.New("status transition not allowed")
)

// ReportDecision is the bulk outcome for a point's pending reports.
type ReportDecision string

const (
	DecisionKeep   ReportDecision = "keep"
	DecisionRemove ReportDecision = "remove"
)

type Service struct {
	db       *gorm.DB
	cfg      *config.AppConfig
	sync     *syncmod.Service
	reports  *report.Service
	mailer   *mail.Sender
	limiter  *dailylimit.Limiter
	activity *activity.Service
	log      *zap.Logger
}

func NewService(db *gorm.DB, cfg *config.AppConfig, sync *syncmod.Service, reports *report.Service, mailer *mail.Sender, limiter *dailylimit.Limiter, act *activity.Service, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		sync:     sync,
		reports:  reports,
		mailer:   mailer,
		limiter:  limiter,
		activity: act,
		log:      log.Named("moderation"),
	}
}

func (s *Service) loadPoint(ctx context.Context, id string) (*models.PointModel, error) {
	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &point, nil
}

func (s *Service) userEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	var user models.UserModel
	if err := s.db.WithContext(ctx).Select("mail").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return strings.TrimSpace(user.Mail)
}

func (s *Service) notify(send func() error, what string) {
	go func() {
		if err := send(); err != nil {
			s.log.Warn("notification mail failed", zap.String("kind", what), zap.Error(err))
		}
	}()
}

// ApprovePoint publishes a pending submission.
func (s *Service) ApprovePoint(ctx context.Context, pointID, moderatorID string) (*models.PointModel, error) {
	point, err := s.loadPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if !point.Status.CanTransitionTo(models.PointStatusPublish) {
		return nil, ErrBadTransition
	}

	point.Status = models.PointStatusPublish
	if err := s.db.WithContext(ctx).Model(point).Update("status", point.Status).Error; err != nil {
		return nil, err
	}

	_, _ = s.sync.Enqueue(ctx, models.SyncPointApproved, point.ID, nil)
	s.activity.Log(ctx, moderatorID, "point_approved", point.ID, nil)

	if email := s.userEmail(ctx, point.AuthorID); email != "" {
		data := mail.DecisionData{PointTitle: point.Title}
		s.notify(func() error { return s.mailer.SendPointApproved(email, data) }, "point_approved")
	}
	return point, nil
}

func limitKindFor(t models.PointType) dailylimit.Kind {
	if t == models.PointTypeIssue {
		return dailylimit.KindReports
	}
	return dailylimit.KindPlaces
}

// RejectPoint trashes a pending submission and gives the author their daily
// quota unit back.
func (s *Service) RejectPoint(ctx context.Context, pointID, moderatorID, reason string) (*models.PointModel, error) {
	point, err := s.loadPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if point.Status != models.PointStatusPending {
		return nil, ErrBadTransition
	}

	point.Status = models.PointStatusTrash
	updates := map[string]interface{}{"status": point.Status}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["admin_note"] = appendNote(point.AdminNote, reason)
	}
	if err := s.db.WithContext(ctx).Model(point).Updates(updates).Error; err != nil {
		return nil, err
	}

	_ = s.limiter.Refund(ctx, limitKindFor(point.Type), point.AuthorID)
	s.activity.Log(ctx, moderatorID, "point_rejected", point.ID, map[string]interface{}{"reason": reason})

	if email := s.userEmail(ctx, point.AuthorID); email != "" {
		data := mail.DecisionData{PointTitle: point.Title, Reason: reason}
		s.notify(func() error { return s.mailer.SendPointRejected(email, data) }, "point_rejected")
	}
	return point, nil
}

// TrashPoint takes a published point off the map without deleting its data.
func (s *Service) TrashPoint(ctx context.Context, pointID, moderatorID, reason string) (*models.PointModel, error) {
	point, err := s.loadPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if !point.Status.CanTransitionTo(models.PointStatusTrash) {
		return nil, ErrBadTransition
	}
	wasLive := point.Status == models.PointStatusPublish

	point.Status = models.PointStatusTrash
	updates := map[string]interface{}{"status": point.Status}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["admin_note"] = appendNote(point.AdminNote, reason)
	}
	if err := s.db.WithContext(ctx).Model(point).Updates(updates).Error; err != nil {
		return nil, err
	}

	if wasLive {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointDeleted, point.ID, nil)
	}
	s.activity.Log(ctx, moderatorID, "point_trashed", point.ID, map[string]interface{}{"reason": reason})
	return point, nil
}

func appendNote(existing, note string) string {
	stamp := time.Now().Format("2006-01-02 15:04")
	line := "[" + stamp + "] " + note
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return existing + "\n" + line
}

func (s *Service) loadPendingEntry(ctx context.Context, historyID string, action models.HistoryAction) (*models.HistoryModel, error) {
	var entry models.HistoryModel
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", historyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if entry.Action != action || entry.Status != models.HistoryStatusPending {
		return nil, ErrWrongState
	}
	return &entry, nil
}

// ApproveEdit applies a pending edit proposal to its point. Proposed images
// are merged after the existing ones and the merged set is truncated to the
// point's cap.
func (s *Service) ApproveEdit(ctx context.Context, historyID, moderatorID string) (*models.HistoryModel, error) {
	entry, err := s.loadPendingEntry(ctx, historyID, models.HistoryActionEdit)
	if err != nil {
		return nil, err
	}

	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", entry.PointID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: point %s", ErrPointVanished, entry.PointID)
		}
		return nil, err
	}

	proposal := entry.Edit
	if proposal == nil {
		return nil, ErrWrongState
	}
	updates := map[string]interface{}{}
	if proposal.Title != "" {
		updates["title"] = proposal.Title
	}
	if proposal.Type != "" {
		updates["type"] = proposal.Type
	}
	if proposal.Content != "" {
		updates["content"] = proposal.Content
	}
	if len(proposal.NewImages) > 0 {
		cap := point.MaxImages(s.cfg.Limits.MaxImages, s.cfg.Limits.MaxImagesPromo)
		updates["images"] = models.MergeImages(point.Images, proposal.NewImages, cap)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&point).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Model(entry).Updates(map[string]interface{}{
			"status":      models.HistoryStatusApproved,
			"resolved_at": &now,
			"resolved_by": moderatorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	entry.Status = models.HistoryStatusApproved
	entry.ResolvedAt = &now
	entry.ResolvedBy = moderatorID

	_, _ = s.sync.Enqueue(ctx, models.SyncEditApproved, point.ID, map[string]interface{}{
		"history_id": entry.ID,
	})
	s.activity.Log(ctx, moderatorID, "edit_approved", point.ID, map[string]interface{}{"history_id": entry.ID})

	if email := s.userEmail(ctx, entry.UserID); email != "" {
		data := mail.DecisionData{PointTitle: point.Title}
		s.notify(func() error { return s.mailer.SendEditApproved(email, data) }, "edit_approved")
	}
	return entry, nil
}

// RejectEdit declines a pending edit proposal.
func (s *Service) RejectEdit(ctx context.Context, historyID, moderatorID, reason string) (*models.HistoryModel, error) {
	entry, err := s.loadPendingEntry(ctx, historyID, models.HistoryActionEdit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
		"status":        models.HistoryStatusRejected,
		"reject_reason": strings.TrimSpace(reason),
		"resolved_at":   &now,
		"resolved_by":   moderatorID,
	}).Error; err != nil {
		return nil, err
	}
	entry.Status = models.HistoryStatusRejected
	entry.RejectReason = strings.TrimSpace(reason)
	entry.ResolvedAt = &now
	entry.ResolvedBy = moderatorID

	_, _ = s.sync.Enqueue(ctx, models.SyncEditRejected, entry.PointID, map[string]interface{}{
		"history_id": entry.ID,
	})
	s.activity.Log(ctx, moderatorID, "edit_rejected", entry.PointID, map[string]interface{}{"reason": reason})

	if email := s.userEmail(ctx, entry.UserID); email != "" {
		title := ""
		if entry.Old != nil {
			title = entry.Old.Title
		}
		data := mail.DecisionData{PointTitle: title, Reason: entry.RejectReason}
		s.notify(func() error { return s.mailer.SendEditRejected(email, data) }, "edit_rejected")
	}
	return entry, nil
}

// ApproveDeletion grants a deletion request: the point leaves the map into
// trash and clients are told to drop it.
func (s *Service) ApproveDeletion(ctx context.Context, historyID, moderatorID string) (*models.HistoryModel, error) {
	entry, err := s.loadPendingEntry(ctx, historyID, models.HistoryActionDeleteRequest)
	if err != nil {
		return nil, err
	}

	var point models.PointModel
	if err := s.db.WithContext(ctx).First(&point, "id = ?", entry.PointID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: point %s", ErrPointVanished, entry.PointID)
		}
		return nil, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&point).Updates(map[string]interface{}{
			"status":                models.PointStatusTrash,
			"is_deletion_requested": false,
			"deletion_reason":       "",
			"deletion_requested_at": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Model(entry).Updates(map[string]interface{}{
			"status":      models.HistoryStatusApproved,
			"resolved_at": &now,
			"resolved_by": moderatorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	entry.Status = models.HistoryStatusApproved
	entry.ResolvedAt = &now
	entry.ResolvedBy = moderatorID

	_, _ = s.sync.Enqueue(ctx, models.SyncPointDeleted, point.ID, map[string]interface{}{
		"history_id": entry.ID,
	})
	s.activity.Log(ctx, moderatorID, "deletion_approved", point.ID, map[string]interface{}{"history_id": entry.ID})

	if email := s.userEmail(ctx, entry.UserID); email != "" {
		data := mail.DecisionData{PointTitle: point.Title}
		s.notify(func() error { return s.mailer.SendDeletionApproved(email, data) }, "deletion_approved")
	}
	return entry, nil
}

// RejectDeletion keeps the point on the map and clears its deletion badge.
func (s *Service) RejectDeletion(ctx context.Context, historyID, moderatorID, reason string) (*models.HistoryModel, error) {
	entry, err := s.loadPendingEntry(ctx, historyID, models.HistoryActionDeleteRequest)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PointModel{}).
			Where("id = ?", entry.PointID).
			Updates(map[string]interface{}{
				"is_deletion_requested": false,
				"deletion_reason":       "",
				"deletion_requested_at": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Model(entry).Updates(map[string]interface{}{
			"status":        models.HistoryStatusRejected,
			"reject_reason": strings.TrimSpace(reason),
			"resolved_at":   &now,
			"resolved_by":   moderatorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	entry.Status = models.HistoryStatusRejected
	entry.RejectReason = strings.TrimSpace(reason)
	entry.ResolvedAt = &now
	entry.ResolvedBy = moderatorID

	_, _ = s.sync.Enqueue(ctx, models.SyncDeletionRejected, entry.PointID, map[string]interface{}{
		"history_id": entry.ID,
	})
	s.activity.Log(ctx, moderatorID, "deletion_rejected", entry.PointID, map[string]interface{}{"reason": reason})

	if email := s.userEmail(ctx, entry.UserID); email != "" {
		title := ""
		if entry.Old != nil {
			title = entry.Old.Title
		}
		data := mail.DecisionData{PointTitle: title, Reason: entry.RejectReason}
		s.notify(func() error { return s.mailer.SendDeletionRejected(email, data) }, "deletion_rejected")
	}
	return entry, nil
}

// ResolveReports closes every pending report on a point with one decision.
// DecisionRemove additionally takes the point off the map.
func (s *Service) ResolveReports(ctx context.Context, pointID, moderatorID string, decision ReportDecision) (int64, error) {
	point, err := s.loadPoint(ctx, pointID)
	if err != nil {
		return 0, err
	}

	var resolved int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.reports.ResolveForPoint(ctx, tx, pointID, string(decision))
		if err != nil {
			return err
		}
		resolved = n
		if decision == DecisionRemove && point.Status == models.PointStatusPublish {
			return tx.Model(point).Update("status", models.PointStatusTrash).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	_, _ = s.sync.Enqueue(ctx, models.SyncReportResolved, pointID, map[string]interface{}{
		"decision": string(decision),
		"resolved": resolved,
	})
	if decision == DecisionRemove && point.Status == models.PointStatusPublish {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointDeleted, pointID, nil)
	}
	s.activity.Log(ctx, moderatorID, "reports_resolved", pointID, map[string]interface{}{
		"decision": string(decision),
		"count":    resolved,
	})
	return resolved, nil
}

// HardDelete permanently removes a point and everything attached to it in a
// single transaction.
func (s *Service) HardDelete(ctx context.Context, pointID, moderatorID string) error {
	point, err := s.loadPoint(ctx, pointID)
	if err != nil {
		return err
	}
	wasLive := point.Status == models.PointStatusPublish

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("point_id = ?", pointID).Delete(&models.VoteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id = ?", pointID).Delete(&models.RelevanceVoteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id = ?", pointID).Delete(&models.ReportModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("point_id = ?", pointID).Delete(&models.HistoryModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.PointModel{}, "id = ?", pointID).Error
	})
	if err != nil {
		return err
	}

	if wasLive {
		_, _ = s.sync.Enqueue(ctx, models.SyncPointDeleted, pointID, map[string]interface{}{
			"permanent": true,
		})
	}
	s.activity.Log(ctx, moderatorID, "point_purged", pointID, nil)
	return nil
}
