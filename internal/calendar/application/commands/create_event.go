package commands

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// CreateEventCommand creates one event from name-keyed inputs.
type CreateEventCommand struct {
	Start      time.Time
	End        time.Time
	User       string
	Team       string
	Role       string
	ScheduleID *uuid.UUID
	Note       *string
}

// Validate checks the command's self-contained shape.
func (c CreateEventCommand) Validate() error {
	if c.User == "" || c.Team == "" || c.Role == "" {
		return errors.New("user, team, and role are required")
	}
	if !c.Start.Before(c.End) {
		return errors.New("start must be before end")
	}
	return nil
}

// CreateEventHandler handles CreateEventCommand.
type CreateEventHandler struct {
	deps Deps
}

// NewCreateEventHandler creates the handler.
func NewCreateEventHandler(deps Deps) *CreateEventHandler {
	return &CreateEventHandler{deps: deps}
}

// Handle validates the temporal policy, resolves names, checks calendar
// membership, inserts the event, and records audit + notifications, all
// in one transaction. Returns the new event id.
func (h *CreateEventHandler) Handle(ctx context.Context, p *authz.Principal, cmd CreateEventCommand) (uuid.UUID, error) {
	if err := cmd.Validate(); err != nil {
		return uuid.Nil, core.BadRequest("%s", err.Error())
	}
	if cmd.Start.Before(h.deps.graceNow()) {
		return uuid.Nil, core.BadRequest("creating events in the past not allowed")
	}

	var eventID uuid.UUID
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		team, err := h.deps.resolveTeam(txCtx, cmd.Team)
		if err != nil {
			return err
		}
		if err := h.deps.Authorizer.CheckCalendarAuthByID(txCtx, team.ID(), p); err != nil {
			return err
		}
		user, err := h.deps.resolveUser(txCtx, cmd.User)
		if err != nil {
			return err
		}
		role, err := h.deps.resolveRole(txCtx, cmd.Role)
		if err != nil {
			return err
		}
		if err := h.deps.requireTeamMember(txCtx, team.ID(), user.ID(), cmd.User); err != nil {
			return err
		}

		event, err := domain.NewEvent(team.ID(), role.ID(), user.ID(), cmd.Start, cmd.End, cmd.ScheduleID, cmd.Note)
		if err != nil {
			return core.BadRequest("%s", err.Error())
		}
		sharedApplication.ApplyEventMetadata(event.DomainEvents(), sharedApplication.NewEventMetadata(p.UserID))
		if err := h.deps.Events.Save(txCtx, event); err != nil {
			return err
		}
		eventID = event.ID()

		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventCreated,
			TeamID:        team.ID(),
			TeamName:      team.Name().String(),
			Owner:         p.OwnerName(),
			EventStart:    cmd.Start,
			AffectedUsers: []uuid.UUID{user.ID()},
			AffectedRoles: []uuid.UUID{role.ID()},
			Context: map[string]any{
				"team":      team.Name().String(),
				"role":      cmd.Role,
				"full_name": user.FullName(),
				"start":     cmd.Start.Unix(),
				"end":       cmd.End.Unix(),
			},
		})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return eventID, nil
}
