package application

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/scheduling/domain"
)

// RoundRobinScheduler walks the schedule's explicit user order cyclically,
// resuming after the cursor user. If the cursor user has left the order
// (membership churn), the walk restarts at position 0.
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler constructs the round-robin picker.
func NewRoundRobinScheduler() *RoundRobinScheduler { return &RoundRobinScheduler{} }

// Name implements UserPicker.
func (s *RoundRobinScheduler) Name() string { return domain.SchedulerRoundRobin }

// Pick implements UserPicker. One full cycle through the order is tried;
// if no entry is both in-rotation and free at the shift, the shift is
// skipped.
func (s *RoundRobinScheduler) Pick(ctx context.Context, view CalendarView, pc PickContext) (uuid.UUID, bool, error) {
	order := pc.Order
	if len(order) == 0 {
		return uuid.Nil, false, nil
	}

	start := 0
	if pc.LastUser != nil {
		for i, id := range order {
			if id == *pc.LastUser {
				start = i + 1
				break
			}
		}
	}

	for step := 0; step < len(order); step++ {
		userID := order[(start+step)%len(order)]
		if !pc.Roster.IsInRotation(userID) {
			continue
		}
		isMember, err := view.IsTeamMember(ctx, pc.TeamID, userID)
		if err != nil {
			return uuid.Nil, false, err
		}
		if !isMember {
			continue
		}
		busy, err := view.IsBusy(ctx, pc.TeamID, userID, pc.Shift)
		if err != nil {
			return uuid.Nil, false, err
		}
		if busy {
			continue
		}
		return userID, true, nil
	}
	return uuid.Nil, false, nil
}
