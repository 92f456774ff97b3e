// Package commands hosts the event mutation engine: one command/handler
// pair per calendar mutation, each running inside a single unit of work
// that encloses its reads, writes, audit entry, and notification
// enqueues.
package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// Notification is the sink payload for one successful mutation: the
// audit action plus the affected (user, role) sets the sink fans out to.
type Notification struct {
	Action        notificationDomain.Action
	TeamID        uuid.UUID
	TeamName      string
	Owner         string
	EventStart    time.Time
	AffectedUsers []uuid.UUID
	AffectedRoles []uuid.UUID
	Context       map[string]any
}

// Sink records the audit entry and enqueues notifications inside the
// mutation's transaction. Implemented by the notification application
// layer.
type Sink interface {
	Record(ctx context.Context, n Notification) error
}

// Deps bundles what every mutation handler needs. Handlers hold it as
// one field rather than taking nine constructor parameters each.
type Deps struct {
	Events     domain.EventRepository
	Users      identityDomain.UserRepository
	Teams      rosterDomain.TeamRepository
	Roles      rosterDomain.RoleRepository
	Members    rosterDomain.MembershipRepository
	Authorizer *authz.Authorizer
	Sink       Sink
	UoW        sharedApplication.UnitOfWork
	Clock      core.Clock
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return core.SystemClock()
	}
	return d.Clock()
}

// graceNow returns now - GRACE_PERIOD, the cutoff below which an instant
// counts as "in the past" for temporal-policy checks.
func (d Deps) graceNow() time.Time {
	return d.now().Add(-core.GracePeriod)
}

// resolveUser looks a user up by name; a miss is a Conflict (FK
// resolution failure), matching the 422 surface.
func (d Deps) resolveUser(ctx context.Context, name string) (*identityDomain.User, error) {
	userName, err := identityDomain.NewUserName(name)
	if err != nil {
		return nil, core.BadRequest("user name cannot be empty")
	}
	user, err := d.Users.FindByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.Conflict("user %s not found", name)
	}
	return user, nil
}

func (d Deps) resolveTeam(ctx context.Context, name string) (*rosterDomain.Team, error) {
	teamName, err := rosterDomain.NewTeamName(name)
	if err != nil {
		return nil, core.BadRequest("team name cannot be empty")
	}
	team, err := d.Teams.FindByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, core.Conflict("team %s not found", name)
	}
	return team, nil
}

func (d Deps) resolveRole(ctx context.Context, name string) (*rosterDomain.Role, error) {
	roleName, err := rosterDomain.NewRoleName(name)
	if err != nil {
		return nil, core.BadRequest("role name cannot be empty")
	}
	role, err := d.Roles.FindByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, core.Conflict("role %s not found", name)
	}
	return role, nil
}

// requireTeamMember enforces the event-user-must-belong-to-team rule.
func (d Deps) requireTeamMember(ctx context.Context, teamID, userID uuid.UUID, userName string) error {
	isMember, err := d.Members.IsTeamUser(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return core.BadRequest("user %s is not a member of the team", userName)
	}
	return nil
}

// teamNameByID resolves a team's display name for audit rows.
func (d Deps) teamNameByID(ctx context.Context, teamID uuid.UUID) (string, error) {
	team, err := d.Teams.FindByID(ctx, teamID)
	if err != nil {
		return "", err
	}
	if team == nil {
		return "", core.NotFound("team %s not found", teamID)
	}
	return team.Name().String(), nil
}

// NewLinkID mints a fresh 128-character hex link token.
func NewLinkID() string {
	buf := make([]byte, domain.LinkIDLength/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid pair so linking still works if it somehow does.
		return hex.EncodeToString([]byte(uuid.NewString() + uuid.NewString()))[:domain.LinkIDLength]
	}
	return hex.EncodeToString(buf)
}

// dedupe returns ids with duplicates removed, order preserved.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
