package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// DefaultAutoPopulateThreshold is applied when a schedule does not
// specify its own horizon.
const DefaultAutoPopulateThreshold = 21 * 24 * time.Hour

// Scheduler engine names registered in scheduling/application.Registry.
const (
	SchedulerDefault    = "default"
	SchedulerRoundRobin = "round_robin"
)

var (
	// ErrNonSimpleRequiresAdvancedMode is returned when a schedule's
	// events don't fit "simple mode" but advanced_mode is false.
	ErrNonSimpleRequiresAdvancedMode = errors.New("non-simple schedule events require advanced mode")
)

// Schedule is the template an auto-scheduler repeatedly instantiates into
// concrete events. It owns the ordered ScheduleEvent sequence, the
// optional round-robin ScheduleOrder, and the scheduler cursor
// (last_epoch_scheduled / last_scheduled_user_id).
type Schedule struct {
	sharedDomain.BaseAggregateRoot
	teamID                uuid.UUID
	rosterID              uuid.UUID
	roleID                uuid.UUID
	autoPopulateThreshold time.Duration
	advancedMode          bool
	schedulerID           string
	events                []ScheduleEvent
	order                 []uuid.UUID
	lastEpochScheduled    *time.Time
	lastScheduledUserID   *uuid.UUID
}

// NewSchedule creates a schedule template. Events must be set via
// SetEvents before the schedule can be populated.
func NewSchedule(teamID, rosterID, roleID uuid.UUID, schedulerID string, advancedMode bool, threshold time.Duration) *Schedule {
	if threshold <= 0 {
		threshold = DefaultAutoPopulateThreshold
	}
	s := &Schedule{
		BaseAggregateRoot:     sharedDomain.NewBaseAggregateRoot(),
		teamID:                teamID,
		rosterID:              rosterID,
		roleID:                roleID,
		autoPopulateThreshold: threshold,
		advancedMode:          advancedMode,
		schedulerID:           schedulerID,
	}
	s.AddDomainEvent(NewScheduleCreated(s.ID(), teamID, rosterID, roleID, schedulerID))
	return s
}

// RehydrateSchedule reconstructs a Schedule from persisted state.
func RehydrateSchedule(entity sharedDomain.BaseEntity, version int, teamID, rosterID, roleID uuid.UUID, threshold time.Duration, advancedMode bool, schedulerID string, events []ScheduleEvent, order []uuid.UUID, lastEpoch *time.Time, lastUser *uuid.UUID) *Schedule {
	return &Schedule{
		BaseAggregateRoot:     sharedDomain.RehydrateBaseAggregateRoot(entity, version),
		teamID:                teamID,
		rosterID:              rosterID,
		roleID:                roleID,
		autoPopulateThreshold: threshold,
		advancedMode:          advancedMode,
		schedulerID:           schedulerID,
		events:                events,
		order:                 order,
		lastEpochScheduled:    lastEpoch,
		lastScheduledUserID:   lastUser,
	}
}

func (s *Schedule) TeamID() uuid.UUID                    { return s.teamID }
func (s *Schedule) RosterID() uuid.UUID                  { return s.rosterID }
func (s *Schedule) RoleID() uuid.UUID                    { return s.roleID }
func (s *Schedule) AutoPopulateThreshold() time.Duration { return s.autoPopulateThreshold }
func (s *Schedule) AdvancedMode() bool                   { return s.advancedMode }
func (s *Schedule) SchedulerID() string                  { return s.schedulerID }
func (s *Schedule) Order() []uuid.UUID {
	out := make([]uuid.UUID, len(s.order))
	copy(out, s.order)
	return out
}
func (s *Schedule) LastEpochScheduled() *time.Time  { return s.lastEpochScheduled }
func (s *Schedule) LastScheduledUserID() *uuid.UUID { return s.lastScheduledUserID }

// Events returns the normalized ScheduleEvent sequence.
func (s *Schedule) Events() []ScheduleEvent {
	out := make([]ScheduleEvent, len(s.events))
	copy(out, s.events)
	return out
}

// SetEvents normalizes and stores the schedule's event template,
// enforcing the simple-mode/advanced-mode invariant.
func (s *Schedule) SetEvents(events []ScheduleEvent) error {
	normalized := NormalizeScheduleEvents(events)
	if !s.advancedMode && !IsSimpleMode(normalized) {
		return ErrNonSimpleRequiresAdvancedMode
	}
	s.events = normalized
	s.Touch()
	return nil
}

// SetOrder stores the round-robin cyclic user order.
func (s *Schedule) SetOrder(order []uuid.UUID) {
	s.order = order
	s.Touch()
}

// AdvanceCursor records the scheduler's progress after a shift is
// actually materialized into an event.
func (s *Schedule) AdvanceCursor(epoch time.Time, userID uuid.UUID) {
	s.lastEpochScheduled = &epoch
	s.lastScheduledUserID = &userID
	s.Touch()
}

// CycleDuration returns the span of one repetition of the schedule's
// event template: one week, unless the schedule is a single multi-week
// simple-mode event (e.g. the 2-week shape), in which case it is that
// event's own duration.
func (s *Schedule) CycleDuration() time.Duration {
	if len(s.events) == 1 && s.events[0].Duration > Week {
		return s.events[0].Duration
	}
	return Week
}
