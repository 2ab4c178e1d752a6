package models

import "time"

// AssignedVia records how an assignment was produced.
type AssignedVia string

const (
	// ViaIndividual marks an assignment placed for a single volunteer.
	ViaIndividual AssignedVia = "individual"
	// ViaGroup marks an assignment placed as part of a whole-group placement.
	ViaGroup AssignedVia = "group"
)

// Shift represents a time slot that needs filling
type Shift struct {
	ID       uint      `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Capacity *int      `json:"capacity"` // nil means unbounded
}

// User represents a volunteer available for shifts
type User struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	GroupID *uint  `json:"group_id,omitempty"` // at most one group
}

// Group represents a named unit of volunteers that is assigned together
type Group struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	MemberIDs []uint `json:"member_ids"`
}

// OptOut marks a user or a group as unavailable for a specific shift.
// Exactly one of UserID and GroupID is set.
type OptOut struct {
	UserID  *uint `json:"user_id,omitempty"`
	GroupID *uint `json:"group_id,omitempty"`
	ShiftID uint  `json:"shift_id"`
}

// Assignment represents a volunteer-shift pairing
type Assignment struct {
	ShiftID   uint        `json:"shift_id"`
	UserID    uint        `json:"user_id"`
	Via       AssignedVia `json:"assigned_via"`
	GroupName string      `json:"group_name,omitempty"` // set when Via == ViaGroup
	PlanRunID string      `json:"plan_run_id,omitempty"`
}

// Snapshot is the consistent read state a plan run computes over.
// The planner never mutates it.
type Snapshot struct {
	Shifts      []Shift
	Users       []User
	Groups      []Group
	OptOuts     []OptOut
	Assignments []Assignment // persisted state, used by incremental runs
}

// PlanConfig holds the run-wide parameters of a plan generation.
type PlanConfig struct {
	ClearExisting    bool `json:"clear_existing"`
	UseGroups        bool `json:"use_groups"`
	MaxShiftsPerUser int  `json:"max_shifts_per_user"`
}

// DefaultMaxShiftsPerUser is applied when a request leaves the cap unset.
const DefaultMaxShiftsPerUser = 10

// ShiftCoverage reports actual vs desired occupancy for one shift.
type ShiftCoverage struct {
	ShiftID  uint   `json:"shift_id"`
	Title    string `json:"title"`
	Assigned int    `json:"assigned"`
	Capacity *int   `json:"capacity"`
	Filled   bool   `json:"filled"`
}

// PlanResult is the outcome of one plan run.
type PlanResult struct {
	RunID       string          `json:"run_id"`
	Assignments []Assignment    `json:"assignments"`
	Coverage    []ShiftCoverage `json:"coverage"`
	Warnings    []string        `json:"warnings,omitempty"`
}
