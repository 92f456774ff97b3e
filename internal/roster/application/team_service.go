// Package application hosts the roster-context operations that touch
// calendar correctness: team soft-deletion with its future-event
// cascade, and roster deletion cascading to schedules.
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	calendarDomain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	domain "github.com/oncall/oncall/internal/roster/domain"
	schedulingDomain "github.com/oncall/oncall/internal/scheduling/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// AuditAppender is the slice of the audit sink team operations need.
type AuditAppender interface {
	Append(ctx context.Context, entry *notificationDomain.AuditEntry) error
}

// TeamService implements the team lifecycle operations the calendar
// depends on.
type TeamService struct {
	teams     domain.TeamRepository
	rosters   domain.RosterRepository
	schedules schedulingDomain.ScheduleRepository
	events    calendarDomain.EventRepository
	deleted   domain.DeletedTeamRepository
	audit     AuditAppender
	uow       sharedApplication.UnitOfWork
	clock     core.Clock
}

// NewTeamService wires the service.
func NewTeamService(
	teams domain.TeamRepository,
	rosters domain.RosterRepository,
	schedules schedulingDomain.ScheduleRepository,
	events calendarDomain.EventRepository,
	deleted domain.DeletedTeamRepository,
	audit AuditAppender,
	uow sharedApplication.UnitOfWork,
	clock core.Clock,
) *TeamService {
	if clock == nil {
		clock = core.SystemClock
	}
	return &TeamService{
		teams: teams, rosters: rosters, schedules: schedules,
		events: events, deleted: deleted, audit: audit,
		uow: uow, clock: clock,
	}
}

// randomToken builds the replacement name a soft-deleted team is
// renamed to, freeing its original name for reuse.
func randomToken(old string) string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return "deleted-" + hex.EncodeToString(buf) + "-" + old
}

// DeleteTeam soft-deletes a team: rename to a random token, deactivate,
// record the deletion, and delete the team's future events. All in one
// transaction, with one audit row.
func (s *TeamService) DeleteTeam(ctx context.Context, teamName string, ownerName string) error {
	name, err := domain.NewTeamName(teamName)
	if err != nil {
		return core.BadRequest("invalid team name")
	}
	now := s.clock()
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		team, err := s.teams.FindByName(txCtx, name)
		if err != nil {
			return err
		}
		if team == nil {
			return core.NotFound("team %s not found", teamName)
		}
		oldName := team.Name().String()
		token := randomToken(oldName)

		team.SoftDelete(token)
		if err := s.teams.Save(txCtx, team); err != nil {
			return err
		}
		if err := s.deleted.Record(txCtx, domain.DeletedTeam{
			TeamID:       team.ID(),
			NewName:      token,
			OldName:      oldName,
			DeletionDate: now,
		}); err != nil {
			return err
		}
		if err := s.events.DeleteFutureByTeam(txCtx, team.ID(), now); err != nil {
			return err
		}
		contextJSON, err := json.Marshal(map[string]string{"new_name": token})
		if err != nil {
			return core.Internal(err, "marshaling audit context")
		}
		return s.audit.Append(txCtx, notificationDomain.NewAuditEntry(
			oldName, ownerName, notificationDomain.ActionTeamDeleted, now, string(contextJSON)))
	})
}

// DeleteRoster removes a roster, cascading to its schedules; the
// roster_user rows cascade in the store.
func (s *TeamService) DeleteRoster(ctx context.Context, teamID uuid.UUID, rosterName string, ownerName string) error {
	name, err := domain.NewRosterName(rosterName)
	if err != nil {
		return core.BadRequest("invalid roster name")
	}
	now := s.clock()
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		team, err := s.teams.FindByID(txCtx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return core.NotFound("team %s not found", teamID)
		}
		roster, err := s.rosters.FindByTeamAndName(txCtx, teamID, name)
		if err != nil {
			return err
		}
		if roster == nil {
			return core.NotFound("roster %s not found", rosterName)
		}
		schedules, err := s.schedules.FindByRoster(txCtx, roster.ID())
		if err != nil {
			return err
		}
		for _, schedule := range schedules {
			if err := s.schedules.Delete(txCtx, schedule.ID()); err != nil {
				return err
			}
		}
		if err := s.rosters.Delete(txCtx, roster.ID()); err != nil {
			return err
		}
		contextJSON, err := json.Marshal(map[string]string{"roster": rosterName})
		if err != nil {
			return core.Internal(err, "marshaling audit context")
		}
		return s.audit.Append(txCtx, notificationDomain.NewAuditEntry(
			team.Name().String(), ownerName, notificationDomain.ActionRosterDeleted, now, string(contextJSON)))
	})
}
