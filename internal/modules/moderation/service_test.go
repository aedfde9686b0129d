package moderation

import (
	"context"
	"strings"
	"testing"

	"github.com/jgmap/core/internal/config"
	"github.com/jgmap/core/internal/database"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/activity"
	"github.com/jgmap/core/internal/modules/report"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"github.com/jgmap/core/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAppendNote(t *testing.T) {
	first := appendNote("", "spam")
	if !strings.HasSuffix(first, "] spam") || !strings.HasPrefix(first, "[") {
		t.Fatalf("unexpected note format: %q", first)
	}

	second := appendNote(first, "duplikat")
	lines := strings.Split(second, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), second)
	}
	if lines[0] != first {
		t.Errorf("existing note was modified: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "] duplikat") {
		t.Errorf("new line malformed: %q", lines[1])
	}
}

func TestLimitKindFor(t *testing.T) {
	if got := limitKindFor(models.PointTypeIssue); got != dailylimit.KindReports {
		t.Errorf("issue points should draw from the reports quota, got %q", got)
	}
	if got := limitKindFor(models.PointTypeCuriosity); got != dailylimit.KindPlaces {
		t.Errorf("curiosities should draw from the places quota, got %q", got)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	guard := restriction.NewService(db)
	limiter := dailylimit.New(nil, 2, 10)
	syncSvc := syncmod.NewService(db, nil, zap.NewNop())
	reports := report.NewService(db, limiter, guard, syncSvc)
	act := activity.NewService(db, zap.NewNop())
	svc := NewService(db, &config.AppConfig{}, syncSvc, reports, mail.New(mail.Config{}), limiter, act, zap.NewNop())
	return svc, db
}

func unscopedCount(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Unscoped().Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestHardDeleteCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := models.UserModel{Username: "autor", Password: "x"}
	moderator := models.UserModel{Username: "moderator", Password: "x", Role: models.RoleAdmin}
	if err := db.Create(&author).Error; err != nil {
		t.Fatalf("seed author: %v", err)
	}
	if err := db.Create(&moderator).Error; err != nil {
		t.Fatalf("seed moderator: %v", err)
	}

	point := models.PointModel{
		Title:    "Dzika plaża",
		Lat:      53.43,
		Lng:      14.55,
		Type:     models.PointTypePlace,
		Status:   models.PointStatusPublish,
		AuthorID: author.ID,
	}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed point: %v", err)
	}

	attached := []interface{}{
		&models.VoteModel{PointID: point.ID, UserID: author.ID, Vote: models.VoteUp},
		&models.RelevanceVoteModel{PointID: point.ID, UserID: author.ID, Relevant: true},
		&models.ReportModel{PointID: point.ID, UserID: author.ID, Reason: "nieaktualne"},
		&models.HistoryModel{
			PointID: point.ID,
			UserID:  author.ID,
			Action:  models.HistoryActionEdit,
			Status:  models.HistoryStatusPending,
			Edit:    &models.EditProposal{Title: "Inna nazwa"},
		},
	}
	for _, row := range attached {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed attached row %T: %v", row, err)
		}
	}

	if err := svc.HardDelete(ctx, point.ID, moderator.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}

	if n := unscopedCount(t, db, &models.PointModel{}, "id = ?", point.ID); n != 0 {
		t.Errorf("point rows = %d, want 0", n)
	}
	for _, model := range []interface{}{
		&models.VoteModel{},
		&models.RelevanceVoteModel{},
		&models.ReportModel{},
		&models.HistoryModel{},
	} {
		if n := unscopedCount(t, db, model, "point_id = ?", point.ID); n != 0 {
			t.Errorf("%T rows = %d, want 0", model, n)
		}
	}

	// A live point that disappears must reach polling clients.
	var evt models.SyncEventModel
	err := db.First(&evt, "event_type = ? AND point_id = ?", models.SyncPointDeleted, point.ID).Error
	if err != nil {
		t.Fatalf("sync event missing: %v", err)
	}
	if evt.Metadata["permanent"] != true {
		t.Errorf("event metadata = %v, want permanent=true", evt.Metadata)
	}
}

func TestHardDeleteUnpublishedSkipsSyncEvent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	moderator := models.UserModel{Username: "moderator", Password: "x", Role: models.RoleAdmin}
	if err := db.Create(&moderator).Error; err != nil {
		t.Fatalf("seed moderator: %v", err)
	}
	point := models.PointModel{
		Title:  "Nigdy nie opublikowany",
		Lat:    51.1,
		Lng:    17.03,
		Type:   models.PointTypePlace,
		Status: models.PointStatusPending,
	}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed point: %v", err)
	}

	if err := svc.HardDelete(ctx, point.ID, moderator.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if n := unscopedCount(t, db, &models.SyncEventModel{}, "point_id = ?", point.ID); n != 0 {
		t.Errorf("sync events = %d, want 0 for never-published point", n)
	}
}
