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

// EditEventCommand applies a partial update to one event. Nil fields are
// left unchanged. Any edit through this path breaks the event's linkage.
type EditEventCommand struct {
	EventID uuid.UUID
	Start   *time.Time
	End     *time.Time
	User    *string
	Role    *string
	Note    *string
}

func (c EditEventCommand) empty() bool {
	return c.Start == nil && c.End == nil && c.User == nil && c.Role == nil && c.Note == nil
}

// EditEventHandler handles EditEventCommand.
type EditEventHandler struct {
	deps Deps
}

// NewEditEventHandler creates the handler.
func NewEditEventHandler(deps Deps) *EditEventHandler {
	return &EditEventHandler{deps: deps}
}

// Handle enforces the past-edit policy: once an event's start (old or
// new) falls behind now-GRACE_PERIOD, the only non-admin change allowed
// is extending the end time into the future with start, user, and role
// untouched. Any other past edit needs team-admin rights, and failing
// that surfaces as a bad request rather than an auth error.
func (h *EditEventHandler) Handle(ctx context.Context, p *authz.Principal, cmd EditEventCommand) error {
	if cmd.empty() {
		return core.BadRequest("no fields to update")
	}
	return sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		event, err := h.deps.Events.FindByID(txCtx, cmd.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return core.NotFound("event %s not found", cmd.EventID)
		}
		if err := h.deps.Authorizer.CheckCalendarAuthByID(txCtx, event.TeamID(), p); err != nil {
			return err
		}

		newStart := event.Start()
		if cmd.Start != nil {
			newStart = *cmd.Start
		}
		newEnd := event.End()
		if cmd.End != nil {
			newEnd = *cmd.End
		}
		if !newStart.Before(newEnd) {
			return core.BadRequest("start must be before end")
		}

		now := h.deps.now()
		graceNow := now.Add(-core.GracePeriod)
		if event.Start().Before(graceNow) || newStart.Before(graceNow) {
			endExtensionOnly := cmd.Start == nil && cmd.User == nil && cmd.Role == nil &&
				cmd.End != nil && cmd.End.After(now)
			if !endExtensionOnly {
				if authErr := h.deps.Authorizer.CheckTeamAuth(txCtx, event.TeamID(), p); authErr != nil {
					return core.BadRequest("editing events in the past not allowed")
				}
			}
		}

		fields := domain.EditFields{Start: cmd.Start, End: cmd.End, Note: cmd.Note}
		if cmd.User != nil {
			user, err := h.deps.resolveUser(txCtx, *cmd.User)
			if err != nil {
				return err
			}
			if err := h.deps.requireTeamMember(txCtx, event.TeamID(), user.ID(), *cmd.User); err != nil {
				return err
			}
			id := user.ID()
			fields.UserID = &id
		}
		if cmd.Role != nil {
			role, err := h.deps.resolveRole(txCtx, *cmd.Role)
			if err != nil {
				return err
			}
			id := role.ID()
			fields.RoleID = &id
		}

		previousUser, previousRole := event.Edit(fields)
		if err := h.deps.Events.Save(txCtx, event); err != nil {
			return err
		}

		teamName, err := h.deps.teamNameByID(txCtx, event.TeamID())
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventEdited,
			TeamID:        event.TeamID(),
			TeamName:      teamName,
			Owner:         p.OwnerName(),
			EventStart:    event.Start(),
			AffectedUsers: dedupe([]uuid.UUID{previousUser, event.UserID()}),
			AffectedRoles: dedupe([]uuid.UUID{previousRole, event.RoleID()}),
			Context: map[string]any{
				"team":  teamName,
				"start": event.Start().Unix(),
				"end":   event.End().Unix(),
			},
		})
	})
}
