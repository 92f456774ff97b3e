package domain

import (
	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

const (
	UserAggregateType = "User"

	RoutingKeyUserCreated        = "identity.user.created"
	RoutingKeyUserUpdated        = "identity.user.updated"
	RoutingKeyUserContactAdded   = "identity.user.contact_added"
	RoutingKeyUserContactRemoved = "identity.user.contact_removed"
)

type UserCreated struct {
	sharedDomain.BaseEvent
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

func NewUserCreated(userID uuid.UUID, name, fullName string) UserCreated {
	return UserCreated{
		BaseEvent: sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserCreated),
		Name:      name,
		FullName:  fullName,
	}
}

type UserUpdated struct {
	sharedDomain.BaseEvent
	FullName string `json:"full_name"`
}

func NewUserUpdated(userID uuid.UUID, fullName string) UserUpdated {
	return UserUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserUpdated),
		FullName:  fullName,
	}
}

type UserContactAdded struct {
	sharedDomain.BaseEvent
	Mode        string `json:"mode"`
	Destination string `json:"destination"`
}

func NewUserContactAdded(userID uuid.UUID, mode, destination string) UserContactAdded {
	return UserContactAdded{
		BaseEvent:   sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserContactAdded),
		Mode:        mode,
		Destination: destination,
	}
}

type UserContactRemoved struct {
	sharedDomain.BaseEvent
	Mode string `json:"mode"`
}

func NewUserContactRemoved(userID uuid.UUID, mode string) UserContactRemoved {
	return UserContactRemoved{
		BaseEvent: sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserContactRemoved),
		Mode:      mode,
	}
}
