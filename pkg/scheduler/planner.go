package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/volunteerplanner/planner-api/pkg/models"
)

// ErrBadConfig is returned for invalid run parameters before anything is
// read or written.
var ErrBadConfig = errors.New("invalid plan configuration")

// candidate is a placement unit: either a single user or a whole group whose
// members land together. It gives the fill loop one uniform shape for both.
type candidate struct {
	userIDs   []uint
	via       models.AssignedVia
	groupName string
}

func (c candidate) requiredSlots() int { return len(c.userIDs) }

// Plan computes a deterministic assignment plan over the snapshot. It never
// mutates the snapshot or persisted state; committing the result is the
// service's job. Identical snapshot and config always produce an identical
// assignment list.
func Plan(snap *models.Snapshot, cfg models.PlanConfig) (*models.PlanResult, error) {
	if cfg.MaxShiftsPerUser <= 0 {
		return nil, fmt.Errorf("%w: max_shifts_per_user must be positive, got %d", ErrBadConfig, cfg.MaxShiftsPerUser)
	}
	for _, sh := range snap.Shifts {
		if sh.Capacity != nil && *sh.Capacity < 0 {
			return nil, fmt.Errorf("%w: shift %d has negative capacity %d", ErrBadConfig, sh.ID, *sh.Capacity)
		}
	}

	resolver := NewResolver(snap)
	tracker := NewTracker(cfg.MaxShiftsPerUser)

	// Per-shift occupancy carried into the run. On clearing runs prior
	// assignments are about to be deleted, so the run starts from zero.
	onShift := make(map[uint]map[uint]bool)
	existing := snap.Assignments
	if cfg.ClearExisting {
		existing = nil
	}
	tracker.Seed(existing)
	for _, a := range existing {
		if onShift[a.ShiftID] == nil {
			onShift[a.ShiftID] = make(map[uint]bool)
		}
		onShift[a.ShiftID][a.UserID] = true
	}

	result := &models.PlanResult{
		Warnings: warnExistingConflicts(snap, resolver, existing),
	}

	// Earliest shifts fill first; ID breaks start-time ties so output is
	// reproducible.
	shifts := append([]models.Shift{}, snap.Shifts...)
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Start.Equal(shifts[j].Start) {
			return shifts[i].Start.Before(shifts[j].Start)
		}
		return shifts[i].ID < shifts[j].ID
	})

	for _, shift := range shifts {
		taken := onShift[shift.ID]
		if taken == nil {
			taken = make(map[uint]bool)
			onShift[shift.ID] = taken
		}
		occupied := len(taken)

		eligibleUsers := resolver.EligibleUsers(shift.ID)
		eligibleGroups := resolver.EligibleGroups(shift.ID)

		// In group mode a member of a group that is eligible here belongs
		// to the group unit and is never split off individually. Members
		// of groups blocked for this shift stay individually placeable.
		claimed := make(map[uint]bool)
		if cfg.UseGroups {
			for _, g := range eligibleGroups {
				claimed[g.ID] = true
			}
		}

		for {
			if shift.Capacity != nil && occupied >= *shift.Capacity {
				break
			}

			var pick *candidate
			if cfg.UseGroups {
				pick = pickGroup(eligibleGroups, tracker, taken, shift.Capacity, occupied)
			}
			if pick == nil {
				pick = pickIndividual(eligibleUsers, tracker, taken, claimed)
			}
			if pick == nil {
				break // under-filled, not an error
			}

			for _, id := range pick.userIDs {
				result.Assignments = append(result.Assignments, models.Assignment{
					ShiftID:   shift.ID,
					UserID:    id,
					Via:       pick.via,
					GroupName: pick.groupName,
				})
				tracker.Record(id, 1)
				taken[id] = true
			}
			occupied += pick.requiredSlots()
		}

		result.Coverage = append(result.Coverage, models.ShiftCoverage{
			ShiftID:  shift.ID,
			Title:    shift.Title,
			Assigned: occupied,
			Capacity: shift.Capacity,
			Filled:   shift.Capacity == nil || occupied >= *shift.Capacity,
		})
	}

	return result, nil
}

// pickGroup returns the least-loaded eligible group that fits the remaining
// capacity with every member under the fairness cap, ties broken by group ID.
// Returns nil when no group fits.
func pickGroup(groups []models.Group, tracker *Tracker, taken map[uint]bool, capacity *int, occupied int) *candidate {
	var best *models.Group
	bestLoad := 0

	for i := range groups {
		g := &groups[i]
		if capacity != nil && occupied+len(g.MemberIDs) > *capacity {
			continue
		}
		if !tracker.CanPlaceAll(g.MemberIDs) {
			continue
		}
		if anyTaken(g.MemberIDs, taken) {
			continue
		}
		load := tracker.TotalLoad(g.MemberIDs)
		if best == nil || load < bestLoad {
			best = g
			bestLoad = load
		}
	}

	if best == nil {
		return nil
	}
	return &candidate{
		userIDs:   append([]uint{}, best.MemberIDs...),
		via:       models.ViaGroup,
		groupName: best.Name,
	}
}

// pickIndividual returns the least-loaded eligible user with remaining
// capacity who is not already on the shift, ties broken by user ID.
// Users whose group ID is in claimedGroups are skipped.
func pickIndividual(users []models.User, tracker *Tracker, taken map[uint]bool, claimedGroups map[uint]bool) *candidate {
	var best *models.User
	bestCount := 0

	for i := range users {
		u := &users[i]
		if taken[u.ID] || tracker.Remaining(u.ID) < 1 {
			continue
		}
		if u.GroupID != nil && claimedGroups[*u.GroupID] {
			continue
		}
		count := tracker.Count(u.ID)
		if best == nil || count < bestCount {
			best = u
			bestCount = count
		}
	}

	if best == nil {
		return nil
	}
	return &candidate{userIDs: []uint{best.ID}, via: models.ViaIndividual}
}

func anyTaken(ids []uint, taken map[uint]bool) bool {
	for _, id := range ids {
		if taken[id] {
			return true
		}
	}
	return false
}

// warnExistingConflicts flags persisted assignments that contradict current
// opt-outs. They are informational only; non-clearing runs leave manual
// state untouched.
func warnExistingConflicts(snap *models.Snapshot, resolver *Resolver, existing []models.Assignment) []string {
	groupOf := make(map[uint]*uint, len(snap.Users))
	for _, u := range snap.Users {
		groupOf[u.ID] = u.GroupID
	}

	var warnings []string
	for _, a := range existing {
		if resolver.UserOptedOut(a.ShiftID, a.UserID, groupOf[a.UserID]) {
			warnings = append(warnings, fmt.Sprintf(
				"user %d holds an assignment on shift %d but has opted out", a.UserID, a.ShiftID))
		}
	}
	return warnings
}
