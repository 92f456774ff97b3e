package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
)

// Authorizer evaluates the user-on-user, team-admin, and calendar-member
// predicates. Application-authenticated requests bypass every predicate;
// so do god users.
type Authorizer struct {
	users       identityDomain.UserRepository
	teams       rosterDomain.TeamRepository
	memberships rosterDomain.MembershipRepository
}

// NewAuthorizer wires the repositories the predicates read from.
func NewAuthorizer(users identityDomain.UserRepository, teams rosterDomain.TeamRepository, memberships rosterDomain.MembershipRepository) *Authorizer {
	return &Authorizer{users: users, teams: teams, memberships: memberships}
}

// bypass reports whether the principal skips predicate evaluation
// entirely: application identity or the god bit.
func (a *Authorizer) bypass(p *Principal) bool {
	return p.IsApplication() || p.God
}

// CheckUserAuth allows a challenger to act on target if they are the same
// user, or the challenger administers some team the target belongs to.
func (a *Authorizer) CheckUserAuth(ctx context.Context, targetUserName string, p *Principal) error {
	if a.bypass(p) {
		return nil
	}
	if p.UserName == targetUserName {
		return nil
	}
	targetName, err := identityDomain.NewUserName(targetUserName)
	if err != nil {
		return core.Unauthorized("insufficient privileges to act on user %s", targetUserName)
	}
	target, err := a.users.FindByName(ctx, targetName)
	if err != nil || target == nil {
		return core.Unauthorized("insufficient privileges to act on user %s", targetUserName)
	}
	adminTeams, err := a.memberships.AdminTeamIDs(ctx, p.UserID)
	if err != nil {
		return core.Internal(err, "resolving admin teams")
	}
	for _, teamID := range adminTeams {
		isMember, err := a.memberships.IsTeamUser(ctx, teamID, target.ID())
		if err != nil {
			return core.Internal(err, "resolving team membership")
		}
		if isMember {
			return nil
		}
	}
	return core.Unauthorized("insufficient privileges to act on user %s", targetUserName)
}

// CheckTeamAuth allows team admins only.
func (a *Authorizer) CheckTeamAuth(ctx context.Context, teamID uuid.UUID, p *Principal) error {
	if a.bypass(p) {
		return nil
	}
	isAdmin, err := a.memberships.IsTeamAdmin(ctx, teamID, p.UserID)
	if err != nil {
		return core.Internal(err, "resolving team admin")
	}
	if !isAdmin {
		return core.Unauthorized("user %s is not an admin of the team", p.UserName)
	}
	return nil
}

// CheckCalendarAuth allows members (team_user rows) of the team.
func (a *Authorizer) CheckCalendarAuth(ctx context.Context, teamName rosterDomain.TeamName, p *Principal) error {
	if a.bypass(p) {
		return nil
	}
	team, err := a.teams.FindByName(ctx, teamName)
	if err != nil || team == nil {
		return core.Unauthorized("user %s may not modify calendar for team %s", p.UserName, teamName)
	}
	return a.CheckCalendarAuthByID(ctx, team.ID(), p)
}

// CheckCalendarAuthByID is CheckCalendarAuth keyed by team id.
func (a *Authorizer) CheckCalendarAuthByID(ctx context.Context, teamID uuid.UUID, p *Principal) error {
	if a.bypass(p) {
		return nil
	}
	isMember, err := a.memberships.IsTeamUser(ctx, teamID, p.UserID)
	if err != nil {
		return core.Internal(err, "resolving calendar membership")
	}
	if !isMember {
		return core.Unauthorized("user %s is not a member of the team", p.UserName)
	}
	return nil
}
