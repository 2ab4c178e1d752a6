package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/models"
)

// ErrPlanConflict means a concurrent write invalidated the snapshot a plan
// was computed from. The commit is rolled back; callers retry the whole run.
var ErrPlanConflict = errors.New("plan snapshot invalidated by concurrent change")

// Recorder receives engine events for metrics. A nil Recorder disables
// reporting.
type Recorder interface {
	RecordPlanRun(cleared bool)
	RecordAssignments(n int)
	RecordReset(n int64)
	RecordUnderfilled(n int)
}

// Service runs the plan lifecycle against the store: snapshot, compute,
// commit. Commits are serialized through mu so two concurrent generate
// requests can never interleave writes.
type Service struct {
	db      *gorm.DB
	mu      sync.Mutex
	Metrics Recorder

	// afterSnapshot, when set, runs between the planning snapshot and the
	// commit transaction. Test hook for driving conflict detection.
	afterSnapshot func()
}

// NewService creates a Service on top of a gorm DB handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Snapshot takes a consistent read of everything a plan run needs. Opt-out
// changes made after this point are not observed until the next run.
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &models.Snapshot{}

	var users []database.User
	if err := db.Where("is_active = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		snap.Users = append(snap.Users, models.User{ID: u.ID, Name: u.Username, GroupID: u.GroupID})
	}

	var groups []database.Group
	if err := db.Order("id").Find(&groups).Error; err != nil {
		return nil, err
	}
	activeMembers := make(map[uint][]uint)
	for _, u := range users {
		if u.GroupID != nil {
			activeMembers[*u.GroupID] = append(activeMembers[*u.GroupID], u.ID)
		}
	}
	for _, g := range groups {
		snap.Groups = append(snap.Groups, models.Group{
			ID:        g.ID,
			Name:      g.Name,
			Active:    g.IsActive,
			MemberIDs: activeMembers[g.ID],
		})
	}

	var shifts []database.Shift
	if err := db.Where("is_active = ?", true).Order("id").Find(&shifts).Error; err != nil {
		return nil, err
	}
	for _, sh := range shifts {
		snap.Shifts = append(snap.Shifts, models.Shift{
			ID:       sh.ID,
			Title:    sh.Title,
			Location: sh.Location,
			Start:    sh.StartTime,
			End:      sh.EndTime,
			Capacity: sh.Capacity,
		})
	}

	var optOuts []database.OptOut
	if err := db.Order("id").Find(&optOuts).Error; err != nil {
		return nil, err
	}
	for _, o := range optOuts {
		snap.OptOuts = append(snap.OptOuts, models.OptOut{UserID: o.UserID, GroupID: o.GroupID, ShiftID: o.ShiftID})
	}

	var assignments []database.Assignment
	if err := db.Order("id").Find(&assignments).Error; err != nil {
		return nil, err
	}
	for _, a := range assignments {
		snap.Assignments = append(snap.Assignments, models.Assignment{
			ShiftID:   a.ShiftID,
			UserID:    a.UserID,
			Via:       models.AssignedVia(a.AssignedVia),
			GroupName: a.GroupName,
			PlanRunID: a.PlanRunID,
		})
	}

	return snap, nil
}

// PreviewPlan computes a plan without committing it. Discarding the result
// has no side effects.
func (s *Service) PreviewPlan(ctx context.Context, cfg models.PlanConfig) (*models.PlanResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Plan(snap, cfg)
}

// GeneratePlan runs the full cycle: snapshot, compute, commit. The whole run
// holds the writer lock so concurrent generate requests serialize instead of
// interleaving. Either every planned assignment lands or none do.
func (s *Service) GeneratePlan(ctx context.Context, cfg models.PlanConfig) (*models.PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result, err := Plan(snap, cfg)
	if err != nil {
		return nil, err
	}

	result.RunID = uuid.NewString()
	for i := range result.Assignments {
		result.Assignments[i].PlanRunID = result.RunID
	}

	if s.afterSnapshot != nil {
		s.afterSnapshot()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSnapshotStillValid(tx, snap); err != nil {
			return err
		}

		if cfg.ClearExisting {
			if err := tx.Where("1 = 1").Delete(&database.Assignment{}).Error; err != nil {
				return err
			}
		}

		for _, a := range result.Assignments {
			row := database.Assignment{
				ShiftID:     a.ShiftID,
				UserID:      a.UserID,
				AssignedVia: string(a.Via),
				GroupName:   a.GroupName,
				PlanRunID:   a.PlanRunID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordPlanRun(cfg.ClearExisting)
		s.Metrics.RecordAssignments(len(result.Assignments))
		under := 0
		for _, c := range result.Coverage {
			if !c.Filled {
				under++
			}
		}
		s.Metrics.RecordUnderfilled(under)
	}

	return result, nil
}

// ResetAll deletes every assignment record and reports how many were removed.
// Calling it again is a no-op returning zero.
func (s *Service) ResetAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&database.Assignment{})
	if res.Error != nil {
		return 0, res.Error
	}
	if s.Metrics != nil {
		s.Metrics.RecordReset(res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// AvailableUsers is the read-only eligibility query behind the manual-add UI:
// users not opted out of the shift and not already assigned to it.
func (s *Service) AvailableUsers(ctx context.Context, shiftID uint) ([]models.User, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	assigned := make(map[uint]bool)
	for _, a := range snap.Assignments {
		if a.ShiftID == shiftID {
			assigned[a.UserID] = true
		}
	}

	resolver := NewResolver(snap)
	var out []models.User
	for _, u := range resolver.EligibleUsers(shiftID) {
		if !assigned[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

// checkSnapshotStillValid re-reads the shift catalog inside the commit
// transaction and aborts when capacity or the active set drifted since the
// planning snapshot was taken.
func checkSnapshotStillValid(tx *gorm.DB, snap *models.Snapshot) error {
	var current []database.Shift
	if err := tx.Where("is_active = ?", true).Order("id").Find(&current).Error; err != nil {
		return err
	}
	if len(current) != len(snap.Shifts) {
		return ErrPlanConflict
	}
	for i, sh := range current {
		want := snap.Shifts[i]
		if sh.ID != want.ID {
			return ErrPlanConflict
		}
		switch {
		case sh.Capacity == nil && want.Capacity == nil:
		case sh.Capacity != nil && want.Capacity != nil && *sh.Capacity == *want.Capacity:
		default:
			return ErrPlanConflict
		}
	}
	return nil
}
