package domain

import (
	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

const (
	// TeamAggregateType names the Team aggregate for event routing.
	TeamAggregateType = "Team"
	// RosterAggregateType names the Roster aggregate for event routing.
	RosterAggregateType = "Roster"

	RoutingKeyTeamCreated       = "roster.team.created"
	RoutingKeyTeamRenamed       = "roster.team.renamed"
	RoutingKeyTeamDeleted       = "roster.team.deleted"
	RoutingKeyRosterCreated     = "roster.roster.created"
	RoutingKeyRosterDeleted     = "roster.roster.deleted"
	RoutingKeyRosterUserChanged = "roster.roster_user.changed"
)

// TeamCreated is emitted when a new team is registered.
type TeamCreated struct {
	sharedDomain.BaseEvent
	Name               string `json:"name"`
	SchedulingTimezone string `json:"scheduling_timezone"`
}

func NewTeamCreated(teamID uuid.UUID, name, tz string) TeamCreated {
	return TeamCreated{
		BaseEvent:          sharedDomain.NewBaseEvent(teamID, TeamAggregateType, RoutingKeyTeamCreated),
		Name:               name,
		SchedulingTimezone: tz,
	}
}

// TeamRenamed is emitted when a team's display name changes.
type TeamRenamed struct {
	sharedDomain.BaseEvent
	Name string `json:"name"`
}

func NewTeamRenamed(teamID uuid.UUID, name string) TeamRenamed {
	return TeamRenamed{
		BaseEvent: sharedDomain.NewBaseEvent(teamID, TeamAggregateType, RoutingKeyTeamRenamed),
		Name:      name,
	}
}

// TeamDeleted is emitted when a team is soft-deleted. No subscriber
// consumes it; the future-event cascade runs in TeamService.DeleteTeam.
type TeamDeleted struct {
	sharedDomain.BaseEvent
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func NewTeamDeleted(teamID uuid.UUID, oldName, newName string) TeamDeleted {
	return TeamDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(teamID, TeamAggregateType, RoutingKeyTeamDeleted),
		OldName:   oldName,
		NewName:   newName,
	}
}

// RosterCreated is emitted when a roster is created for a team.
type RosterCreated struct {
	sharedDomain.BaseEvent
	TeamID uuid.UUID `json:"team_id"`
	Name   string    `json:"name"`
}

func NewRosterCreated(rosterID, teamID uuid.UUID, name string) RosterCreated {
	return RosterCreated{
		BaseEvent: sharedDomain.NewBaseEvent(rosterID, RosterAggregateType, RoutingKeyRosterCreated),
		TeamID:    teamID,
		Name:      name,
	}
}

// RosterDeleted describes the removal of a roster (and its schedules).
// TeamService.DeleteRoster does not raise it.
type RosterDeleted struct {
	sharedDomain.BaseEvent
	TeamID uuid.UUID `json:"team_id"`
}

func NewRosterDeleted(rosterID, teamID uuid.UUID) RosterDeleted {
	return RosterDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(rosterID, RosterAggregateType, RoutingKeyRosterDeleted),
		TeamID:    teamID,
	}
}

// RosterUserChanged is emitted whenever membership, rotation flag, or
// priority for a roster member changes.
type RosterUserChanged struct {
	sharedDomain.BaseEvent
	UserID     uuid.UUID `json:"user_id"`
	InRotation bool      `json:"in_rotation"`
	Priority   int       `json:"priority"`
	Removed    bool      `json:"removed"`
}

func NewRosterUserChanged(rosterID, userID uuid.UUID, inRotation bool, priority int, removed bool) RosterUserChanged {
	return RosterUserChanged{
		BaseEvent:  sharedDomain.NewBaseEvent(rosterID, RosterAggregateType, RoutingKeyRosterUserChanged),
		UserID:     userID,
		InRotation: inRotation,
		Priority:   priority,
		Removed:    removed,
	}
}
