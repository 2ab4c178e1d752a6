package scheduler

import "github.com/volunteerplanner/planner-api/pkg/models"

// Tracker counts assignments per user within a single plan run and enforces
// the per-user cap. It is created fresh for every run; callers pass it by
// handle so runs never share counters.
type Tracker struct {
	max    int
	counts map[uint]int
}

// NewTracker creates a tracker with the given per-user cap.
func NewTracker(maxShiftsPerUser int) *Tracker {
	return &Tracker{
		max:    maxShiftsPerUser,
		counts: make(map[uint]int),
	}
}

// Seed counts existing persisted assignments, used for incremental runs so
// prior load (engine-made and manual alike) consumes the fairness budget.
func (t *Tracker) Seed(assignments []models.Assignment) {
	for _, a := range assignments {
		t.counts[a.UserID]++
	}
}

// Count returns the assignments recorded so far for a user.
func (t *Tracker) Count(userID uint) int {
	return t.counts[userID]
}

// Remaining returns how many more assignments a user may take, never negative.
// Manually over-assigned users simply report zero.
func (t *Tracker) Remaining(userID uint) int {
	rem := t.max - t.counts[userID]
	if rem < 0 {
		return 0
	}
	return rem
}

// Record advances a user's counter by n.
func (t *Tracker) Record(userID uint, n int) {
	t.counts[userID] += n
}

// CanPlaceAll reports whether every listed user has capacity for one more
// assignment. Group placement is all-or-nothing; one member at the cap
// blocks the whole group.
func (t *Tracker) CanPlaceAll(userIDs []uint) bool {
	for _, id := range userIDs {
		if t.Remaining(id) < 1 {
			return false
		}
	}
	return true
}

// TotalLoad sums the current counters across the listed users. Used to order
// groups least-loaded first.
func (t *Tracker) TotalLoad(userIDs []uint) int {
	total := 0
	for _, id := range userIDs {
		total += t.counts[id]
	}
	return total
}
