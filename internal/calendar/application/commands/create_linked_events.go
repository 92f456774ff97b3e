package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// LinkedEventSpec is one event within a linked-group create. All specs
// share the group's user, team, and role.
type LinkedEventSpec struct {
	Start time.Time
	End   time.Time
	Note  *string
}

// CreateLinkedEventsCommand creates a group of events sharing one
// server-generated link_id.
type CreateLinkedEventsCommand struct {
	User   string
	Team   string
	Role   string
	Events []LinkedEventSpec
}

// CreateLinkedEventsResult carries the group token and member ids back
// to the caller.
type CreateLinkedEventsResult struct {
	LinkID   string
	EventIDs []uuid.UUID
}

// CreateLinkedEventsHandler handles CreateLinkedEventsCommand.
type CreateLinkedEventsHandler struct {
	deps Deps
}

// NewCreateLinkedEventsHandler creates the handler.
func NewCreateLinkedEventsHandler(deps Deps) *CreateLinkedEventsHandler {
	return &CreateLinkedEventsHandler{deps: deps}
}

// Handle validates every spec under the same rules as a single create,
// then inserts them all under one fresh link_id.
func (h *CreateLinkedEventsHandler) Handle(ctx context.Context, p *authz.Principal, cmd CreateLinkedEventsCommand) (*CreateLinkedEventsResult, error) {
	if len(cmd.Events) == 0 {
		return nil, core.BadRequest("linked event list cannot be empty")
	}
	if cmd.User == "" || cmd.Team == "" || cmd.Role == "" {
		return nil, core.BadRequest("user, team, and role are required")
	}
	graceNow := h.deps.graceNow()
	for _, spec := range cmd.Events {
		if !spec.Start.Before(spec.End) {
			return nil, core.BadRequest("start must be before end")
		}
		if spec.Start.Before(graceNow) {
			return nil, core.BadRequest("creating events in the past not allowed")
		}
	}

	result := &CreateLinkedEventsResult{LinkID: NewLinkID()}
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

		events := make([]*domain.Event, 0, len(cmd.Events))
		var firstStart time.Time
		for i, spec := range cmd.Events {
			event, err := domain.NewEvent(team.ID(), role.ID(), user.ID(), spec.Start, spec.End, nil, spec.Note)
			if err != nil {
				return core.BadRequest("%s", err.Error())
			}
			event.SetLinkID(result.LinkID)
			events = append(events, event)
			result.EventIDs = append(result.EventIDs, event.ID())
			if i == 0 || spec.Start.Before(firstStart) {
				firstStart = spec.Start
			}
		}
		if err := h.deps.Events.SaveAll(txCtx, events); err != nil {
			return err
		}

		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventCreated,
			TeamID:        team.ID(),
			TeamName:      team.Name().String(),
			Owner:         p.OwnerName(),
			EventStart:    firstStart,
			AffectedUsers: []uuid.UUID{user.ID()},
			AffectedRoles: []uuid.UUID{role.ID()},
			Context: map[string]any{
				"team":      team.Name().String(),
				"role":      cmd.Role,
				"full_name": user.FullName(),
				"link_id":   result.LinkID,
				"count":     len(cmd.Events),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
