package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

const (
	EventAggregateType = "Event"

	RoutingKeyEventCreated     = "calendar.event.created"
	RoutingKeyEventsLinked     = "calendar.events.linked"
	RoutingKeyEventEdited      = "calendar.event.edited"
	RoutingKeyEventDeleted     = "calendar.event.deleted"
	RoutingKeyEventSwapped     = "calendar.event.swapped"
	RoutingKeyEventSubstituted = "calendar.event.substituted"
)

// EventCreated is emitted for every new event, whether from a single
// create, a linked-group create, or an override insert.
type EventCreated struct {
	sharedDomain.BaseEvent
	TeamID uuid.UUID `json:"team_id"`
	RoleID uuid.UUID `json:"role_id"`
	UserID uuid.UUID `json:"user_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func NewEventCreated(eventID, teamID, roleID, userID uuid.UUID, start, end time.Time) EventCreated {
	return EventCreated{
		BaseEvent: sharedDomain.NewBaseEvent(eventID, EventAggregateType, RoutingKeyEventCreated),
		TeamID:    teamID,
		RoleID:    roleID,
		UserID:    userID,
		Start:     start,
		End:       end,
	}
}

// EventsLinked describes one linked-group create, carrying the whole
// group's event IDs. No command handler raises it.
type EventsLinked struct {
	sharedDomain.BaseEvent
	LinkID   string      `json:"link_id"`
	EventIDs []uuid.UUID `json:"event_ids"`
}

func NewEventsLinked(linkID string, eventIDs []uuid.UUID) EventsLinked {
	anchor := uuid.Nil
	if len(eventIDs) > 0 {
		anchor = eventIDs[0]
	}
	return EventsLinked{
		BaseEvent: sharedDomain.NewBaseEvent(anchor, EventAggregateType, RoutingKeyEventsLinked),
		LinkID:    linkID,
		EventIDs:  eventIDs,
	}
}

// EventEdited carries the old and new (user, role) so the notification
// sink can compute the affected-party union.
type EventEdited struct {
	sharedDomain.BaseEvent
	TeamID       uuid.UUID `json:"team_id"`
	PreviousUser uuid.UUID `json:"previous_user"`
	NewUser      uuid.UUID `json:"new_user"`
	PreviousRole uuid.UUID `json:"previous_role"`
	NewRole      uuid.UUID `json:"new_role"`
}

func NewEventEdited(eventID, teamID, previousUser, newUser, previousRole, newRole uuid.UUID) EventEdited {
	return EventEdited{
		BaseEvent:    sharedDomain.NewBaseEvent(eventID, EventAggregateType, RoutingKeyEventEdited),
		TeamID:       teamID,
		PreviousUser: previousUser,
		NewUser:      newUser,
		PreviousRole: previousRole,
		NewRole:      newRole,
	}
}

type EventDeleted struct {
	sharedDomain.BaseEvent
	TeamID uuid.UUID `json:"team_id"`
	UserID uuid.UUID `json:"user_id"`
	RoleID uuid.UUID `json:"role_id"`
}

func NewEventDeleted(eventID, teamID, userID, roleID uuid.UUID) EventDeleted {
	return EventDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(eventID, EventAggregateType, RoutingKeyEventDeleted),
		TeamID:    teamID,
		UserID:    userID,
		RoleID:    roleID,
	}
}

// EventSwapped describes one swap call, carrying both sides' users and
// roles. No command handler raises it.
type EventSwapped struct {
	sharedDomain.BaseEvent
	TeamID uuid.UUID   `json:"team_id"`
	UsersA []uuid.UUID `json:"users_a"`
	UsersB []uuid.UUID `json:"users_b"`
	RolesA []uuid.UUID `json:"roles_a"`
	RolesB []uuid.UUID `json:"roles_b"`
}

func NewEventSwapped(anchorEventID, teamID uuid.UUID, usersA, usersB, rolesA, rolesB []uuid.UUID) EventSwapped {
	return EventSwapped{
		BaseEvent: sharedDomain.NewBaseEvent(anchorEventID, EventAggregateType, RoutingKeyEventSwapped),
		TeamID:    teamID,
		UsersA:    usersA,
		UsersB:    usersB,
		RolesA:    rolesA,
		RolesB:    rolesB,
	}
}

// EventSubstituted describes one override call. No command handler
// raises it.
type EventSubstituted struct {
	sharedDomain.BaseEvent
	TeamID           uuid.UUID `json:"team_id"`
	RoleID           uuid.UUID `json:"role_id"`
	OriginalUserID   uuid.UUID `json:"original_user_id"`
	SubstituteUserID uuid.UUID `json:"substitute_user_id"`
}

func NewEventSubstituted(newEventID, teamID, roleID, originalUser, substituteUser uuid.UUID) EventSubstituted {
	return EventSubstituted{
		BaseEvent:        sharedDomain.NewBaseEvent(newEventID, EventAggregateType, RoutingKeyEventSubstituted),
		TeamID:           teamID,
		RoleID:           roleID,
		OriginalUserID:   originalUser,
		SubstituteUserID: substituteUser,
	}
}
