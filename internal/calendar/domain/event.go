// Package domain models the materialized calendar: events, linked
// groups, and the temporal/override rules the mutation engine enforces.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// ErrStartNotBeforeEnd is returned when an event's start is not strictly
// before its end.
var ErrStartNotBeforeEnd = errors.New("event start must be before end")

// LinkIDLength is the length, in hex characters, of a link_id token.
const LinkIDLength = 128

// Event is the materialized shift: a (team, role, user, interval) tuple,
// optionally owned by a Schedule (schedule_id) and/or grouped with
// sibling events via a shared link_id.
type Event struct {
	sharedDomain.BaseAggregateRoot
	teamID     uuid.UUID
	roleID     uuid.UUID
	userID     uuid.UUID
	start      time.Time
	end        time.Time
	scheduleID *uuid.UUID
	linkID     *string
	note       *string
}

// NewEvent validates and constructs an Event. Temporal-policy checks
// (past-creation grace period, team membership) are enforced by the
// application-layer command handlers, which have access to "now" and
// roster membership; the aggregate only enforces start < end.
func NewEvent(teamID, roleID, userID uuid.UUID, start, end time.Time, scheduleID *uuid.UUID, note *string) (*Event, error) {
	if !start.Before(end) {
		return nil, ErrStartNotBeforeEnd
	}
	e := &Event{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		teamID:            teamID,
		roleID:            roleID,
		userID:            userID,
		start:             start,
		end:               end,
		scheduleID:        scheduleID,
		note:              note,
	}
	e.AddDomainEvent(NewEventCreated(e.ID(), teamID, roleID, userID, start, end))
	return e, nil
}

// RehydrateEvent reconstructs an Event from persisted state.
func RehydrateEvent(entity sharedDomain.BaseEntity, version int, teamID, roleID, userID uuid.UUID, start, end time.Time, scheduleID *uuid.UUID, linkID, note *string) *Event {
	return &Event{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, version),
		teamID:            teamID,
		roleID:            roleID,
		userID:            userID,
		start:             start,
		end:               end,
		scheduleID:        scheduleID,
		linkID:            linkID,
		note:              note,
	}
}

func (e *Event) TeamID() uuid.UUID      { return e.teamID }
func (e *Event) RoleID() uuid.UUID      { return e.roleID }
func (e *Event) UserID() uuid.UUID      { return e.userID }
func (e *Event) Start() time.Time       { return e.start }
func (e *Event) End() time.Time         { return e.end }
func (e *Event) ScheduleID() *uuid.UUID { return e.scheduleID }
func (e *Event) LinkID() *string        { return e.linkID }
func (e *Event) Note() *string          { return e.note }

// Range returns the event's interval as a TimeRange.
func (e *Event) Range() (sharedDomain.TimeRange, error) {
	return sharedDomain.NewTimeRange(e.start, e.end)
}

// Overlaps reports whether this event's interval intersects [start,end).
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.start.Before(end) && start.Before(e.end)
}

// SetLinkID assigns this event to a linked group.
func (e *Event) SetLinkID(linkID string) {
	e.linkID = &linkID
	e.Touch()
}

// BreakLink clears the link_id, detaching this event from any group.
// Per the spec, any single-event edit unconditionally breaks linkage.
func (e *Event) BreakLink() {
	if e.linkID == nil {
		return
	}
	e.linkID = nil
	e.Touch()
}

// EditFields carries the optional subset of mutable attributes an edit
// may change.
type EditFields struct {
	Start  *time.Time
	End    *time.Time
	UserID *uuid.UUID
	RoleID *uuid.UUID
	Note   *string
}

// Edit applies the given subset of fields, always breaking linkage (the
// spec's unconditional link-breaking rule for single-event edits), and
// returns the previous (user, role) pair so the caller can compute the
// notification target union.
func (e *Event) Edit(fields EditFields) (previousUserID, previousRoleID uuid.UUID) {
	previousUserID, previousRoleID = e.userID, e.roleID
	if fields.Start != nil {
		e.start = *fields.Start
	}
	if fields.End != nil {
		e.end = *fields.End
	}
	if fields.UserID != nil {
		e.userID = *fields.UserID
	}
	if fields.RoleID != nil {
		e.roleID = *fields.RoleID
	}
	if fields.Note != nil {
		e.note = fields.Note
	}
	e.BreakLink()
	e.Touch()
	e.AddDomainEvent(NewEventEdited(e.ID(), e.teamID, previousUserID, e.userID, previousRoleID, e.roleID))
	return previousUserID, previousRoleID
}

// Reassign changes only the event's user, preserving link_id (used by
// swap, which explicitly manages linkage per side).
func (e *Event) Reassign(userID uuid.UUID) {
	e.userID = userID
	e.Touch()
}

// Truncate shortens the event to [start, e.end) or [e.start, end),
// depending on which bound is supplied; used by override head/tail
// shortening. Exactly one of newStart/newEnd must be non-nil.
func (e *Event) Truncate(newStart, newEnd *time.Time) {
	if newStart != nil {
		e.start = *newStart
	}
	if newEnd != nil {
		e.end = *newEnd
	}
	e.Touch()
}
