package application

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/scheduling/domain"
)

// DefaultScheduler is the fair-use picker: it favors the candidate who
// has gone longest without an event of this (team, role), breaking ties
// by longest time until their next event, then roster priority, then
// user id, so the same inputs always produce the same assignment.
type DefaultScheduler struct{}

// NewDefaultScheduler constructs the fair-use picker.
func NewDefaultScheduler() *DefaultScheduler { return &DefaultScheduler{} }

// Name implements UserPicker.
func (s *DefaultScheduler) Name() string { return domain.SchedulerDefault }

type candidate struct {
	userID         uuid.UUID
	priority       int
	sinceLastEnd   time.Duration
	untilNextStart time.Duration
}

// Pick implements UserPicker.
func (s *DefaultScheduler) Pick(ctx context.Context, view CalendarView, pc PickContext) (uuid.UUID, bool, error) {
	const farFuture = 100 * 365 * 24 * time.Hour

	var pool []candidate
	for _, m := range pc.Roster.InRotationMembers() {
		isMember, err := view.IsTeamMember(ctx, pc.TeamID, m.UserID)
		if err != nil {
			return uuid.Nil, false, err
		}
		if !isMember {
			continue
		}
		busy, err := view.IsBusy(ctx, pc.TeamID, m.UserID, pc.Shift)
		if err != nil {
			return uuid.Nil, false, err
		}
		if busy {
			continue
		}

		lastEnd, err := view.LastShiftEnd(ctx, pc.TeamID, pc.RoleID, m.UserID, pc.Shift.Start())
		if err != nil {
			return uuid.Nil, false, err
		}
		nextStart, err := view.NextShiftStart(ctx, pc.TeamID, pc.RoleID, m.UserID, pc.Shift.Start())
		if err != nil {
			return uuid.Nil, false, err
		}

		c := candidate{userID: m.UserID, priority: m.Priority}
		if lastEnd.IsZero() {
			c.sinceLastEnd = farFuture
		} else {
			c.sinceLastEnd = pc.Shift.Start().Sub(lastEnd)
		}
		if nextStart.IsZero() {
			c.untilNextStart = farFuture
		} else {
			c.untilNextStart = nextStart.Sub(pc.Shift.Start())
		}
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return uuid.Nil, false, nil
	}

	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.sinceLastEnd != b.sinceLastEnd {
			return a.sinceLastEnd > b.sinceLastEnd
		}
		if a.untilNextStart != b.untilNextStart {
			return a.untilNextStart > b.untilNextStart
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return bytes.Compare(a.userID[:], b.userID[:]) < 0
	})
	return pool[0].userID, true, nil
}
