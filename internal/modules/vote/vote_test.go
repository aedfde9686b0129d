package vote

import (
	"context"
	"strings"
	"testing"

	"github.com/jgmap/core/internal/database"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/report"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	syncSvc := syncmod.NewService(db, nil, zap.NewNop())
	reports := report.NewService(db, dailylimit.New(nil, 2, 10), guard, syncSvc)
	return NewService(db, guard, reports, zap.NewNop()), db
}

func seedVoter(t *testing.T, db *gorm.DB) string {
	t.Helper()
	user := models.UserModel{Username: "glosujacy", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func seedPublishedPoint(t *testing.T, db *gorm.DB, authorID string) string {
	t.Helper()
	point := models.PointModel{
		Title:    "Parking przy lesie",
		Lat:      52.2297,
		Lng:      21.0122,
		Type:     models.PointTypePlace,
		Status:   models.PointStatusPublish,
		AuthorID: authorID,
	}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed point: %v", err)
	}
	return point.ID
}

func countVoteRows(t *testing.T, db *gorm.DB, pointID string) int64 {
	t.Helper()
	var n int64
	if err := db.Unscoped().Model(&models.VoteModel{}).Where("point_id = ?", pointID).Count(&n).Error; err != nil {
		t.Fatalf("count votes: %v", err)
	}
	return n
}

func TestCastStoresDirection(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := seedVoter(t, db)
	pointID := seedPublishedPoint(t, db, userID)

	resulting, score, err := svc.Cast(ctx, pointID, userID, models.VoteUp)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if resulting != models.VoteUp {
		t.Errorf("resulting = %q, want %q", resulting, models.VoteUp)
	}
	if score.Up != 1 || score.Down != 0 || score.Score != 1 {
		t.Errorf("score = %+v, want up=1 down=0 score=1", score)
	}

	var row models.VoteModel
	if err := db.First(&row, "point_id = ? AND user_id = ?", pointID, userID).Error; err != nil {
		t.Fatalf("vote row missing: %v", err)
	}
	if row.Vote != models.VoteUp {
		t.Errorf("stored direction = %q, want %q", row.Vote, models.VoteUp)
	}
}

func TestCastRepeatWithdrawsVote(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := seedVoter(t, db)
	pointID := seedPublishedPoint(t, db, userID)

	if _, _, err := svc.Cast(ctx, pointID, userID, models.VoteUp); err != nil {
		t.Fatalf("first Cast: %v", err)
	}
	resulting, score, err := svc.Cast(ctx, pointID, userID, models.VoteUp)
	if err != nil {
		t.Fatalf("second Cast: %v", err)
	}
	if resulting != "" {
		t.Errorf("resulting = %q, want empty after withdrawal", resulting)
	}
	if score.Score != 0 || score.Up != 0 {
		t.Errorf("score = %+v, want all zero", score)
	}
	if n := countVoteRows(t, db, pointID); n != 0 {
		t.Errorf("vote rows = %d, want 0", n)
	}
}

func TestCastSwitchReplacesRow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := seedVoter(t, db)
	pointID := seedPublishedPoint(t, db, userID)

	if _, _, err := svc.Cast(ctx, pointID, userID, models.VoteUp); err != nil {
		t.Fatalf("up Cast: %v", err)
	}
	resulting, score, err := svc.Cast(ctx, pointID, userID, models.VoteDown)
	if err != nil {
		t.Fatalf("down Cast: %v", err)
	}
	if resulting != models.VoteDown {
		t.Errorf("resulting = %q, want %q", resulting, models.VoteDown)
	}
	if score.Up != 0 || score.Down != 1 || score.Score != -1 {
		t.Errorf("score = %+v, want up=0 down=1 score=-1", score)
	}
	if n := countVoteRows(t, db, pointID); n != 1 {
		t.Fatalf("vote rows = %d, want exactly 1", n)
	}

	vote, err := svc.UserVote(ctx, pointID, userID)
	if err != nil {
		t.Fatalf("UserVote: %v", err)
	}
	if vote != models.VoteDown {
		t.Errorf("UserVote = %q, want %q", vote, models.VoteDown)
	}
}

func TestCastRejectsUnpublishedPoint(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := seedVoter(t, db)

	point := models.PointModel{
		Title:    "Jeszcze w kolejce",
		Lat:      50.06,
		Lng:      19.94,
		Type:     models.PointTypePlace,
		Status:   models.PointStatusPending,
		AuthorID: userID,
	}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed point: %v", err)
	}

	if _, _, err := svc.Cast(ctx, point.ID, userID, models.VoteUp); err != ErrPointNotLive {
		t.Errorf("err = %v, want ErrPointNotLive", err)
	}
}
