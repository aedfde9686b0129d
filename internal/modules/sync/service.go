package sync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/redis"
	"github.com/jgmap/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// pollLimit caps how many events a single heartbeat can carry.
	pollLimit = 100

	// cleanupAge is how long resolved events stay around for inspection.
	cleanupAge = 24 * time.Hour

	syncChannel = "jgmap:sync"
)

var ErrEventResolved = errors.New("sync event already resolved")

func watermarkKey() string { return redis.Key("last_modified") }

type Service struct {
	db  *gorm.DB
	r   *redis.Client
	log *zap.Logger
}

func NewService(db *gorm.DB, r *redis.Client, log *zap.Logger) *Service {
	return &Service{db: db, r: r, log: log.Named("sync")}
}

// Enqueue records a change event for map clients. It also bumps the
// last-modified watermark and purges the anonymous read cache, so the next
// heartbeat sees fresh data.
func (s *Service) Enqueue(ctx context.Context, eventType models.SyncEventType, pointID string, metadata map[string]interface{}) (*models.SyncEventModel, error) {
	event := models.SyncEventModel{
		EventType: eventType,
		PointID:   pointID,
		Metadata:  metadata,
		Priority:  models.SyncPriority(eventType),
		Status:    models.SyncStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}

	s.touchWatermark(ctx)
	if s.r != nil {
		if _, err := middleware.PurgeHTTPCache(ctx, s.r.Raw()); err != nil {
			s.log.Warn("read cache purge failed", zap.Error(err))
		}
		if err := s.r.Publish(ctx, syncChannel, string(eventType)); err != nil {
			s.log.Warn("sync publish failed", zap.Error(err))
		}
	}
	return &event, nil
}

func (s *Service) touchWatermark(ctx context.Context) {
	if s.r == nil {
		return
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.r.Set(ctx, watermarkKey(), now, 0); err != nil {
		s.log.Warn("watermark update failed", zap.Error(err))
	}
}

// LastModified returns the unix timestamp of the last accepted change, or 0
// when nothing has changed since the watermark was last reset.
func (s *Service) LastModified(ctx context.Context) int64 {
	if s.r == nil {
		return 0
	}
	raw, err := s.r.Get(ctx, watermarkKey())
	if err != nil || raw == "" {
		return 0
	}
	ts, _ := strconv.ParseInt(raw, 10, 64)
	return ts
}

// Poll returns unresolved events created after the given time, most urgent
// first. Events already handed out (processing) are included so a client that
// crashed mid-sync picks them up again.
func (s *Service) Poll(ctx context.Context, since time.Time) ([]models.SyncEventModel, error) {
	var events []models.SyncEventModel
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.SyncEventStatus{models.SyncStatusPending, models.SyncStatusProcessing}).
		Where("created_at > ?", since).
		Order("priority DESC, created_at DESC").
		Limit(pollLimit).
		Find(&events).Error
	return events, err
}

// Claim moves a pending event to processing.
func (s *Service) Claim(ctx context.Context, id string) (*models.SyncEventModel, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil || event == nil {
		return event, err
	}
	if event.Status.Terminal() {
		return nil, ErrEventResolved
	}
	event.Status = models.SyncStatusProcessing
	return event, s.db.WithContext(ctx).Model(event).Update("status", event.Status).Error
}

// MarkCompleted resolves an event successfully. Resolving an already terminal
// event is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, id string) (*models.SyncEventModel, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil || event == nil {
		return event, err
	}
	if event.Status.Terminal() {
		return event, nil
	}
	event.Status = models.SyncStatusCompleted
	event.ErrorMessage = ""
	return event, s.db.WithContext(ctx).Model(event).
		Updates(map[string]interface{}{"status": event.Status, "error_message": ""}).Error
}

// MarkFailed records a failed delivery attempt. Below the retry ceiling the
// event goes back to pending; at the ceiling it becomes terminally failed.
func (s *Service) MarkFailed(ctx context.Context, id, message string) (*models.SyncEventModel, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil || event == nil {
		return event, err
	}
	if !event.ApplyFailure(message) {
		return event, nil
	}
	return event, s.db.WithContext(ctx).Model(event).Updates(map[string]interface{}{
		"status":        event.Status,
		"retry_count":   event.RetryCount,
		"error_message": event.ErrorMessage,
	}).Error
}

// Cleanup hard-deletes resolved events older than a day. Pending and
// processing events are never touched.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-cleanupAge)
	res := s.db.WithContext(ctx).
		Unscoped().
		Where("status IN ?", []models.SyncEventStatus{models.SyncStatusCompleted, models.SyncStatusFailed}).
		Where("updated_at < ?", cutoff).
		Delete(&models.SyncEventModel{})
	return res.RowsAffected, res.Error
}

// Stats returns event counts grouped by status.
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status models.SyncEventStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.SyncEventModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{
		string(models.SyncStatusPending):    0,
		string(models.SyncStatusProcessing): 0,
		string(models.SyncStatusCompleted):  0,
		string(models.SyncStatusFailed):     0,
	}
	for _, row := range rows {
		out[string(row.Status)] = row.Count
	}
	return out, nil
}

// PendingCounts holds the moderation backlog shown to admins on heartbeat.
type PendingCounts struct {
	Points    int64 `json:"points"`
	Edits     int64 `json:"edits"`
	Reports   int64 `json:"reports"`
	Deletions int64 `json:"deletions"`
}

// CountPending recomputes the moderation backlog from live tables.
func (s *Service) CountPending(ctx context.Context) (PendingCounts, error) {
	var counts PendingCounts
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.PointModel{}).
		Where("status = ?", models.PointStatusPending).
		Count(&counts.Points).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.HistoryModel{}).
		Where("action = ? AND status = ?", models.HistoryActionEdit, models.HistoryStatusPending).
		Count(&counts.Edits).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.ReportModel{}).
		Joins("JOIN points ON points.id = point_reports.point_id AND points.status = ? AND points.deleted_at IS NULL", models.PointStatusPublish).
		Where("point_reports.status = ?", models.ReportPending).
		Distinct("point_reports.point_id").
		Count(&counts.Reports).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.HistoryModel{}).
		Joins("JOIN points ON points.id = point_history.point_id AND points.status = ? AND points.deleted_at IS NULL", models.PointStatusPublish).
		Where("point_history.action = ? AND point_history.status = ?", models.HistoryActionDeleteRequest, models.HistoryStatusPending).
		Count(&counts.Deletions).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// PublishedCount returns how many points are live on the map.
func (s *Service) PublishedCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PointModel{}).
		Where("status = ?", models.PointStatusPublish).
		Count(&n).Error
	return n, err
}

// ListEvents returns a filtered page of sync events for the admin panel.
func (s *Service) ListEvents(ctx context.Context, q pagination.Query, status string) ([]models.SyncEventModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.SyncEventModel{}).
		Order("priority DESC, created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var events []models.SyncEventModel
	pag, err := pagination.Paginate(tx, q, &events)
	return events, pag, err
}

func (s *Service) getEvent(ctx context.Context, id string) (*models.SyncEventModel, error) {
	var event models.SyncEventModel
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
