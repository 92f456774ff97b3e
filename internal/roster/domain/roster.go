package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// ErrEmptyRosterName is returned when a roster name is blank after trimming.
var ErrEmptyRosterName = errors.New("roster name cannot be empty")

// ErrRosterUserNotFound is returned when a membership operation targets a
// user not on the roster.
var ErrRosterUserNotFound = errors.New("user is not a member of this roster")

// RosterName is a name unique within the owning team.
type RosterName struct{ value string }

// NewRosterName validates and constructs a RosterName.
func NewRosterName(value string) (RosterName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RosterName{}, ErrEmptyRosterName
	}
	return RosterName{value: value}, nil
}

func (n RosterName) String() string { return n.value }

// Equals implements sharedDomain.ValueObject.
func (n RosterName) Equals(other sharedDomain.ValueObject) bool {
	o, ok := other.(RosterName)
	return ok && n.value == o.value
}

// Member is a single roster_user row: membership carries an in-rotation
// flag and a dense, per-roster priority used for fairness tie-breaking
// and round-robin ordering.
type Member struct {
	UserID     uuid.UUID
	InRotation bool
	Priority   int
}

// Roster is a named group of users within a team. Deleting a roster
// cascades to its members and to the schedules that reference it (the
// application layer's TeamService.DeleteRoster deletes the schedules).
type Roster struct {
	sharedDomain.BaseAggregateRoot
	teamID  uuid.UUID
	name    RosterName
	members []Member
}

// NewRoster creates an empty roster owned by teamID.
func NewRoster(teamID uuid.UUID, name RosterName) *Roster {
	r := &Roster{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		teamID:            teamID,
		name:              name,
	}
	r.AddDomainEvent(NewRosterCreated(r.ID(), teamID, name.String()))
	return r
}

// RehydrateRoster reconstructs a Roster from persisted state.
func RehydrateRoster(entity sharedDomain.BaseEntity, version int, teamID uuid.UUID, name RosterName, members []Member) *Roster {
	return &Roster{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, version),
		teamID:            teamID,
		name:              name,
		members:           members,
	}
}

func (r *Roster) TeamID() uuid.UUID { return r.teamID }
func (r *Roster) Name() RosterName  { return r.name }

// Members returns a copy of the roster's members ordered by priority.
func (r *Roster) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// InRotationMembers returns members flagged in_rotation, priority-ordered.
func (r *Roster) InRotationMembers() []Member {
	all := r.Members()
	out := make([]Member, 0, len(all))
	for _, m := range all {
		if m.InRotation {
			out = append(out, m)
		}
	}
	return out
}

// AddMember adds userID to the roster at the next dense priority slot.
func (r *Roster) AddMember(userID uuid.UUID, inRotation bool) {
	for i, m := range r.members {
		if m.UserID == userID {
			r.members[i].InRotation = inRotation
			r.Touch()
			r.AddDomainEvent(NewRosterUserChanged(r.ID(), userID, inRotation, r.members[i].Priority, false))
			return
		}
	}
	priority := len(r.members)
	r.members = append(r.members, Member{UserID: userID, InRotation: inRotation, Priority: priority})
	r.Touch()
	r.AddDomainEvent(NewRosterUserChanged(r.ID(), userID, inRotation, priority, false))
}

// RemoveMember drops userID and re-densifies remaining priorities.
func (r *Roster) RemoveMember(userID uuid.UUID) error {
	idx := -1
	for i, m := range r.members {
		if m.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRosterUserNotFound
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	sort.Slice(r.members, func(i, j int) bool { return r.members[i].Priority < r.members[j].Priority })
	for i := range r.members {
		r.members[i].Priority = i
	}
	r.Touch()
	r.AddDomainEvent(NewRosterUserChanged(r.ID(), userID, false, -1, true))
	return nil
}

// Reprioritize assigns a new dense priority ordering, given the full
// desired ordering of user IDs. Any roster member absent from order
// keeps its relative position appended at the end.
func (r *Roster) Reprioritize(order []uuid.UUID) {
	index := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	sort.SliceStable(r.members, func(i, j int) bool {
		pi, oki := index[r.members[i].UserID]
		pj, okj := index[r.members[j].UserID]
		switch {
		case oki && okj:
			return pi < pj
		case oki:
			return true
		case okj:
			return false
		default:
			return r.members[i].Priority < r.members[j].Priority
		}
	})
	for i := range r.members {
		r.members[i].Priority = i
	}
	r.Touch()
}

// IsInRotation reports whether userID is an in-rotation member.
func (r *Roster) IsInRotation(userID uuid.UUID) bool {
	for _, m := range r.members {
		if m.UserID == userID {
			return m.InRotation
		}
	}
	return false
}
