package domain

import (
	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

const (
	ScheduleAggregateType = "Schedule"

	RoutingKeyScheduleCreated  = "scheduling.schedule.created"
	RoutingKeyScheduleAdvanced = "scheduling.schedule.advanced"
)

type ScheduleCreated struct {
	sharedDomain.BaseEvent
	TeamID      uuid.UUID `json:"team_id"`
	RosterID    uuid.UUID `json:"roster_id"`
	RoleID      uuid.UUID `json:"role_id"`
	SchedulerID string    `json:"scheduler_id"`
}

func NewScheduleCreated(scheduleID, teamID, rosterID, roleID uuid.UUID, schedulerID string) ScheduleCreated {
	return ScheduleCreated{
		BaseEvent:   sharedDomain.NewBaseEvent(scheduleID, ScheduleAggregateType, RoutingKeyScheduleCreated),
		TeamID:      teamID,
		RosterID:    rosterID,
		RoleID:      roleID,
		SchedulerID: schedulerID,
	}
}

type ScheduleAdvanced struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

func NewScheduleAdvanced(scheduleID, userID uuid.UUID) ScheduleAdvanced {
	return ScheduleAdvanced{
		BaseEvent: sharedDomain.NewBaseEvent(scheduleID, ScheduleAggregateType, RoutingKeyScheduleAdvanced),
		UserID:    userID,
	}
}
