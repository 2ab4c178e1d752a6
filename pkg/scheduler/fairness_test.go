package scheduler

import (
	"testing"

	"github.com/volunteerplanner/planner-api/pkg/models"
)

func TestTrackerRemainingAndRecord(t *testing.T) {
	tr := NewTracker(3)

	if got := tr.Remaining(1); got != 3 {
		t.Errorf("Expected remaining 3 for fresh user, got %d", got)
	}

	tr.Record(1, 1)
	tr.Record(1, 1)
	if got := tr.Remaining(1); got != 1 {
		t.Errorf("Expected remaining 1, got %d", got)
	}

	tr.Record(1, 1)
	if got := tr.Remaining(1); got != 0 {
		t.Errorf("Expected remaining 0 at the cap, got %d", got)
	}
}

func TestTrackerSeedCountsManualAssignments(t *testing.T) {
	tr := NewTracker(2)
	tr.Seed([]models.Assignment{
		{ShiftID: 1, UserID: 7, Via: models.ViaIndividual},
		{ShiftID: 2, UserID: 7, Via: models.ViaGroup},
		{ShiftID: 1, UserID: 8, Via: models.ViaIndividual},
	})

	if got := tr.Remaining(7); got != 0 {
		t.Errorf("Expected user 7 at the cap after seeding, got remaining %d", got)
	}
	if got := tr.Remaining(8); got != 1 {
		t.Errorf("Expected user 8 remaining 1, got %d", got)
	}
}

func TestTrackerRemainingNeverNegative(t *testing.T) {
	// Manual over-assignment can push a user past the cap.
	tr := NewTracker(1)
	tr.Record(5, 3)
	if got := tr.Remaining(5); got != 0 {
		t.Errorf("Expected remaining clamped to 0, got %d", got)
	}
}

func TestTrackerCanPlaceAll(t *testing.T) {
	tr := NewTracker(1)
	tr.Record(2, 1)

	if tr.CanPlaceAll([]uint{1, 2, 3}) {
		t.Error("Expected group with a capped member to be rejected")
	}
	if !tr.CanPlaceAll([]uint{1, 3}) {
		t.Error("Expected group of uncapped members to be accepted")
	}
}

func TestTrackerTotalLoad(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(1, 2)
	tr.Record(2, 1)

	if got := tr.TotalLoad([]uint{1, 2, 3}); got != 3 {
		t.Errorf("Expected total load 3, got %d", got)
	}
}
