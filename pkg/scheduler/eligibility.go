package scheduler

import (
	"sort"

	"github.com/volunteerplanner/planner-api/pkg/models"
)

// Resolver answers per-shift eligibility questions from a snapshot.
// It is a pure view over the snapshot and never mutates it.
type Resolver struct {
	users  []models.User  // sorted by ID
	groups []models.Group // active with >=1 active member, sorted by ID

	userOptOuts  map[uint]map[uint]bool // shiftID -> userID
	groupOptOuts map[uint]map[uint]bool // shiftID -> groupID
}

// NewResolver builds a Resolver from a snapshot. Inactive groups and groups
// without active members are dropped up front; they are never eligible.
func NewResolver(snap *models.Snapshot) *Resolver {
	r := &Resolver{
		userOptOuts:  make(map[uint]map[uint]bool),
		groupOptOuts: make(map[uint]map[uint]bool),
	}

	for _, o := range snap.OptOuts {
		if o.UserID != nil {
			if r.userOptOuts[o.ShiftID] == nil {
				r.userOptOuts[o.ShiftID] = make(map[uint]bool)
			}
			r.userOptOuts[o.ShiftID][*o.UserID] = true
		}
		if o.GroupID != nil {
			if r.groupOptOuts[o.ShiftID] == nil {
				r.groupOptOuts[o.ShiftID] = make(map[uint]bool)
			}
			r.groupOptOuts[o.ShiftID][*o.GroupID] = true
		}
	}

	r.users = append(r.users, snap.Users...)
	sort.Slice(r.users, func(i, j int) bool { return r.users[i].ID < r.users[j].ID })

	for _, g := range snap.Groups {
		if !g.Active || len(g.MemberIDs) == 0 {
			continue
		}
		members := append([]uint{}, g.MemberIDs...)
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		g.MemberIDs = members
		r.groups = append(r.groups, g)
	}
	sort.Slice(r.groups, func(i, j int) bool { return r.groups[i].ID < r.groups[j].ID })

	return r
}

// UserOptedOut reports whether a user is covered by an opt-out for the shift,
// either directly or through a group-level opt-out of their group.
func (r *Resolver) UserOptedOut(shiftID, userID uint, groupID *uint) bool {
	if r.userOptOuts[shiftID][userID] {
		return true
	}
	if groupID != nil && r.groupOptOuts[shiftID][*groupID] {
		return true
	}
	return false
}

// EligibleUsers returns the individuals available for a shift, ascending by ID.
func (r *Resolver) EligibleUsers(shiftID uint) []models.User {
	var out []models.User
	for _, u := range r.users {
		if r.UserOptedOut(shiftID, u.ID, u.GroupID) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// EligibleGroups returns the groups available for a shift, ascending by ID.
// A single member's direct opt-out excludes the whole group for that shift;
// the remaining members stay individually eligible.
func (r *Resolver) EligibleGroups(shiftID uint) []models.Group {
	var out []models.Group
	for _, g := range r.groups {
		if r.groupOptOuts[shiftID][g.ID] {
			continue
		}
		blocked := false
		for _, m := range g.MemberIDs {
			if r.userOptOuts[shiftID][m] {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		out = append(out, g)
	}
	return out
}
