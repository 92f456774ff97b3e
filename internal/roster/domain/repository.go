package domain

import (
	"context"

	"github.com/google/uuid"
)

// TeamRepository persists Team aggregates.
type TeamRepository interface {
	Save(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id uuid.UUID) (*Team, error)
	FindByName(ctx context.Context, name TeamName) (*Team, error)
	FindActive(ctx context.Context) ([]*Team, error)
	ExistsByName(ctx context.Context, name TeamName) (bool, error)
}

// RosterRepository persists Roster aggregates.
type RosterRepository interface {
	Save(ctx context.Context, roster *Roster) error
	FindByID(ctx context.Context, id uuid.UUID) (*Roster, error)
	FindByTeamAndName(ctx context.Context, teamID uuid.UUID, name RosterName) (*Roster, error)
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]*Roster, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository answers the team_admin/team_user predicates that
// gate authorization and calendar membership checks.
type MembershipRepository interface {
	IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	IsTeamUser(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	AdminTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	AddAdmin(ctx context.Context, teamID, userID uuid.UUID) error
	AddUser(ctx context.Context, teamID, userID uuid.UUID) error
	RemoveAdmin(ctx context.Context, teamID, userID uuid.UUID) error
	RemoveUser(ctx context.Context, teamID, userID uuid.UUID) error
}

// SubscriptionRepository persists TeamSubscription relations: a one-way
// team-to-team relation making the source team's events of a given role
// visible in the subscriber's calendar and iCal projection.
type SubscriptionRepository interface {
	Subscribe(ctx context.Context, teamID, subscriptionID, roleID uuid.UUID) error
	Unsubscribe(ctx context.Context, teamID, subscriptionID, roleID uuid.UUID) error
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]Subscription, error)
}

// Subscription is one team_subscription row.
type Subscription struct {
	TeamID         uuid.UUID
	SubscriptionID uuid.UUID
	RoleID         uuid.UUID
}
