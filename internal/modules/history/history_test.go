package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jgmap/core/internal/database"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
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
	syncSvc := syncmod.NewService(db, nil, zap.NewNop())
	return NewService(db, restriction.NewService(db), syncSvc), db
}

func seedUserAndPoint(t *testing.T, db *gorm.DB) (userID, pointID string) {
	t.Helper()
	user := models.UserModel{Username: "edytor", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	point := models.PointModel{
		Title:    "Stara nazwa",
		Lat:      54.35,
		Lng:      18.65,
		Type:     models.PointTypePlace,
		Status:   models.PointStatusPublish,
		AuthorID: user.ID,
	}
	if err := db.Create(&point).Error; err != nil {
		t.Fatalf("seed point: %v", err)
	}
	return user.ID, point.ID
}

func TestProposeEditBlocksSecondProposal(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID, pointID := seedUserAndPoint(t, db)

	entry, err := svc.ProposeEdit(ctx, pointID, userID, models.EditProposal{Title: "Lepsza nazwa"})
	if err != nil {
		t.Fatalf("first ProposeEdit: %v", err)
	}
	if entry.Status != models.HistoryStatusPending {
		t.Fatalf("entry status = %q, want pending", entry.Status)
	}

	if _, err := svc.ProposeEdit(ctx, pointID, userID, models.EditProposal{Title: "Trzecia nazwa"}); !errors.Is(err, ErrPendingExists) {
		t.Errorf("second edit: err = %v, want ErrPendingExists", err)
	}
	// The one-pending rule spans action types: a deletion request is
	// blocked by a pending edit as well.
	if _, err := svc.ProposeDeletion(ctx, pointID, userID, "duplikat"); !errors.Is(err, ErrPendingExists) {
		t.Errorf("deletion behind pending edit: err = %v, want ErrPendingExists", err)
	}

	var count int64
	if err := db.Model(&models.HistoryModel{}).Where("point_id = ?", pointID).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 1 {
		t.Errorf("history entries = %d, want 1", count)
	}
}

func TestResolvedEntryUnblocksNewProposal(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID, pointID := seedUserAndPoint(t, db)

	entry, err := svc.ProposeEdit(ctx, pointID, userID, models.EditProposal{Content: "Nowy opis"})
	if err != nil {
		t.Fatalf("ProposeEdit: %v", err)
	}
	err = db.Model(&models.HistoryModel{}).Where("id = ?", entry.ID).
		Update("status", models.HistoryStatusApproved).Error
	if err != nil {
		t.Fatalf("resolve entry: %v", err)
	}

	deletion, err := svc.ProposeDeletion(ctx, pointID, userID, "miejsce już nie istnieje")
	if err != nil {
		t.Fatalf("ProposeDeletion after resolution: %v", err)
	}
	if deletion.Action != models.HistoryActionDeleteRequest {
		t.Errorf("action = %q, want delete_request", deletion.Action)
	}

	var point models.PointModel
	if err := db.First(&point, "id = ?", pointID).Error; err != nil {
		t.Fatalf("reload point: %v", err)
	}
	if !point.IsDeletionRequested {
		t.Error("point not flagged as deletion requested")
	}
}

func TestProposeEditRejectsEmptyProposal(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID, pointID := seedUserAndPoint(t, db)

	if _, err := svc.ProposeEdit(ctx, pointID, userID, models.EditProposal{Title: "   "}); !errors.Is(err, ErrEmptyProposal) {
		t.Errorf("err = %v, want ErrEmptyProposal", err)
	}
}
