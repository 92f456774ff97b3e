package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FilterOp is one of the §6 filter grammar's comparison operators.
type FilterOp string

const (
	FilterEq         FilterOp = "eq"
	FilterNe         FilterOp = "ne"
	FilterLt         FilterOp = "lt"
	FilterLe         FilterOp = "le"
	FilterGt         FilterOp = "gt"
	FilterGe         FilterOp = "ge"
	FilterContains   FilterOp = "contains"
	FilterStartswith FilterOp = "startswith"
	FilterEndswith   FilterOp = "endswith"
)

// Filter is one parsed `field` or `field__op` query parameter.
type Filter struct {
	Field string
	Op    FilterOp
	Value string
}

// ListQuery is the parameterized query built by the ingress filter-grammar
// parser; repositories translate it into a parameterized SQL query,
// never string-interpolated.
type ListQuery struct {
	Filters []Filter
	Fields  []string // optional projection; empty means all fields
	// IncludeSubscribed unions in events of teams the filtered team
	// subscribes to, restricted to each subscription's role.
	IncludeSubscribed bool
	Limit             int
	Offset            int
}

// EventRepository persists Event aggregates and answers the overlap and
// linked-group queries the mutation engine and scheduler depend on.
type EventRepository interface {
	Save(ctx context.Context, event *Event) error
	SaveAll(ctx context.Context, events []*Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Event, error)
	FindByLinkID(ctx context.Context, linkID string) ([]*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByLinkID(ctx context.Context, linkID string) error
	// DeleteFutureByTeam removes all events for a team starting at or
	// after cutoff; used by team soft-delete cascade.
	DeleteFutureByTeam(ctx context.Context, teamID uuid.UUID, cutoff time.Time) error

	// FindOverlapping returns events of (teamID, roleID) intersecting
	// [start, end), used to enforce invariant O.
	FindOverlapping(ctx context.Context, teamID, roleID uuid.UUID, start, end time.Time) ([]*Event, error)
	// FindBusy returns events for a user on a team intersecting
	// [start, end), regardless of role (double-booking check).
	FindBusy(ctx context.Context, teamID, userID uuid.UUID, start, end time.Time) ([]*Event, error)
	// FindByScheduleSince returns events produced by a schedule at or
	// after the given instant, ordered by start ascending; used by the
	// scheduler's fairness ranking and cursor resume.
	FindByScheduleSince(ctx context.Context, scheduleID uuid.UUID, since time.Time) ([]*Event, error)
	// LastBefore returns the most recent event (by end time, at or before
	// `before`) for (team, role, user); NextAfter returns the soonest one
	// (by start time, at or after `after`). Used for fairness ranking.
	LastBefore(ctx context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (*Event, error)
	NextAfter(ctx context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (*Event, error)

	// Query runs the filter-grammar list query (GET /api/v0/events).
	Query(ctx context.Context, q ListQuery) ([]*Event, error)
	// ForTeamSince returns a team's own events ending after cutoff,
	// optionally filtered by role, for the iCal projector.
	ForTeamSince(ctx context.Context, teamID uuid.UUID, cutoff time.Time, roleIDs []uuid.UUID) ([]*Event, error)
	// ForUserSince returns a user's events ending after cutoff, for the
	// iCal projector.
	ForUserSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*Event, error)
}
