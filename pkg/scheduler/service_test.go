package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}
	database.Migrate(db)
	return db
}

func seedShift(t *testing.T, db *gorm.DB, id uint, start time.Time, capacity *int) {
	t.Helper()
	shift := database.Shift{
		ID:        id,
		Title:     fmt.Sprintf("Shift %d", id),
		StartTime: start,
		EndTime:   start.Add(4 * time.Hour),
		Capacity:  capacity,
		IsActive:  true,
	}
	if err := db.Create(&shift).Error; err != nil {
		t.Fatalf("could not seed shift: %v", err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, id uint, groupID *uint) {
	t.Helper()
	user := database.User{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		Email:        fmt.Sprintf("user%d@example.com", id),
		PasswordHash: "x",
		IsActive:     true,
		GroupID:      groupID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("could not seed user: %v", err)
	}
}

func pairs(assignments []database.Assignment) []string {
	var out []string
	for _, a := range assignments {
		out = append(out, fmt.Sprintf("%d:%d", a.ShiftID, a.UserID))
	}
	sort.Strings(out)
	return out
}

func TestGeneratePlanClearingIsReproducible(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(1))
	seedShift(t, db, 2, base.Add(6*time.Hour), intPtr(1))
	seedUser(t, db, 1, nil)
	seedUser(t, db, 2, nil)

	cfg := models.PlanConfig{ClearExisting: true, MaxShiftsPerUser: 10}

	first, err := svc.GeneratePlan(ctx, cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	var firstRows []database.Assignment
	db.Find(&firstRows)

	second, err := svc.GeneratePlan(ctx, cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	var secondRows []database.Assignment
	db.Find(&secondRows)

	if len(first.Assignments) != 2 || len(second.Assignments) != 2 {
		t.Fatalf("Expected 2 assignments per run, got %d and %d",
			len(first.Assignments), len(second.Assignments))
	}
	if fmt.Sprint(pairs(firstRows)) != fmt.Sprint(pairs(secondRows)) {
		t.Errorf("Clearing reruns diverged: %v vs %v", pairs(firstRows), pairs(secondRows))
	}
}

func TestGeneratePlanTagsRun(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(2))
	seedUser(t, db, 1, nil)
	seedUser(t, db, 2, nil)

	result, err := svc.GeneratePlan(context.Background(), models.PlanConfig{ClearExisting: true, MaxShiftsPerUser: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("Expected a run ID")
	}
	var rows []database.Assignment
	db.Find(&rows)
	for _, row := range rows {
		if row.PlanRunID != result.RunID {
			t.Errorf("Expected all rows tagged with run %s, got %q", result.RunID, row.PlanRunID)
		}
	}
}

// A manual assignment survives an incremental regeneration even after the
// volunteer opts out of that shift.
func TestIncrementalPreservesManualAfterOptOut(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(2))
	seedUser(t, db, 1, nil)
	seedUser(t, db, 2, nil)

	manual := database.Assignment{ShiftID: 1, UserID: 1, AssignedVia: "individual"}
	if err := db.Create(&manual).Error; err != nil {
		t.Fatalf("could not seed manual assignment: %v", err)
	}
	userID := uint(1)
	db.Create(&database.OptOut{UserID: &userID, ShiftID: 1})

	result, err := svc.GeneratePlan(ctx, models.PlanConfig{ClearExisting: false, MaxShiftsPerUser: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var count int64
	db.Model(&database.Assignment{}).
		Where("shift_id = ? AND user_id = ? AND plan_run_id = ''", 1, 1).Count(&count)
	if count != 1 {
		t.Error("Manual assignment was removed or rewritten by an incremental run")
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected an informational warning about the opted-out assignee")
	}
}

func TestGeneratePlanBadConfigWritesNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(2))
	seedUser(t, db, 1, nil)

	for _, limit := range []int{-1, 0} {
		_, err := svc.GeneratePlan(context.Background(), models.PlanConfig{MaxShiftsPerUser: limit})
		if !errors.Is(err, ErrBadConfig) {
			t.Fatalf("Expected ErrBadConfig for cap %d, got %v", limit, err)
		}
	}

	var count int64
	db.Model(&database.Assignment{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no writes after a config error, found %d rows", count)
	}
}

// A concurrent capacity change between the planning snapshot and the commit
// aborts the run and leaves prior state intact.
func TestGeneratePlanConflictAborts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(2))
	seedUser(t, db, 1, nil)

	svc.afterSnapshot = func() {
		db.Model(&database.Shift{}).Where("id = ?", 1).Update("capacity", 5)
	}

	_, err := svc.GeneratePlan(context.Background(), models.PlanConfig{ClearExisting: true, MaxShiftsPerUser: 10})
	if !errors.Is(err, ErrPlanConflict) {
		t.Fatalf("Expected ErrPlanConflict, got %v", err)
	}

	var count int64
	db.Model(&database.Assignment{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no assignments after an aborted run, got %d", count)
	}
}

func TestResetAllIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	for i := uint(1); i <= 3; i++ {
		seedShift(t, db, i, base.Add(time.Duration(i)*6*time.Hour), intPtr(4))
	}
	for i := uint(1); i <= 4; i++ {
		seedUser(t, db, i, nil)
	}

	if _, err := svc.GeneratePlan(ctx, models.PlanConfig{ClearExisting: true, MaxShiftsPerUser: 10}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	count, err := svc.ResetAll(ctx)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if count != 12 {
		t.Errorf("Expected 12 deleted assignments, got %d", count)
	}

	count, err = svc.ResetAll(ctx)
	if err != nil {
		t.Fatalf("second reset failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected second reset to delete 0, got %d", count)
	}
}

func TestAvailableUsersExcludesAssignedAndOptedOut(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	seedShift(t, db, 1, base, intPtr(5))
	seedUser(t, db, 1, nil)
	seedUser(t, db, 2, nil)
	seedUser(t, db, 3, nil)

	db.Create(&database.Assignment{ShiftID: 1, UserID: 1, AssignedVia: "individual"})
	userID := uint(2)
	db.Create(&database.OptOut{UserID: &userID, ShiftID: 1})

	users, err := svc.AvailableUsers(context.Background(), 1)
	if err != nil {
		t.Fatalf("AvailableUsers failed: %v", err)
	}

	if len(users) != 1 || users[0].ID != 3 {
		t.Errorf("Expected only user 3 available, got %+v", users)
	}
}
