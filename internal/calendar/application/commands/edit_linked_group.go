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

// EditLinkedGroupCommand applies one partial update to every member of a
// linked group. The group dissolves: all members lose their link_id.
type EditLinkedGroupCommand struct {
	LinkID string
	Start  *time.Time
	End    *time.Time
	User   *string
	Role   *string
	Note   *string
}

// EditLinkedGroupHandler handles EditLinkedGroupCommand.
type EditLinkedGroupHandler struct {
	deps Deps
}

// NewEditLinkedGroupHandler creates the handler.
func NewEditLinkedGroupHandler(deps Deps) *EditLinkedGroupHandler {
	return &EditLinkedGroupHandler{deps: deps}
}

// Handle requires team-admin rights and refuses once the group's earliest
// start is in the past.
func (h *EditLinkedGroupHandler) Handle(ctx context.Context, p *authz.Principal, cmd EditLinkedGroupCommand) error {
	if cmd.Start == nil && cmd.End == nil && cmd.User == nil && cmd.Role == nil && cmd.Note == nil {
		return core.BadRequest("no fields to update")
	}
	return sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		events, err := h.deps.Events.FindByLinkID(txCtx, cmd.LinkID)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return core.NotFound("linked events %s not found", cmd.LinkID)
		}
		teamID := events[0].TeamID()
		if err := h.deps.Authorizer.CheckTeamAuth(txCtx, teamID, p); err != nil {
			return err
		}

		minStart := events[0].Start()
		for _, ev := range events[1:] {
			if ev.Start().Before(minStart) {
				minStart = ev.Start()
			}
		}
		if minStart.Before(h.deps.graceNow()) {
			return core.BadRequest("editing linked events in the past not allowed")
		}

		fields := domain.EditFields{Start: cmd.Start, End: cmd.End, Note: cmd.Note}
		if cmd.User != nil {
			user, err := h.deps.resolveUser(txCtx, *cmd.User)
			if err != nil {
				return err
			}
			if err := h.deps.requireTeamMember(txCtx, teamID, user.ID(), *cmd.User); err != nil {
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

		affectedUsers := make([]uuid.UUID, 0, len(events)+1)
		affectedRoles := make([]uuid.UUID, 0, len(events)+1)
		for _, ev := range events {
			prevUser, prevRole := ev.Edit(fields)
			affectedUsers = append(affectedUsers, prevUser, ev.UserID())
			affectedRoles = append(affectedRoles, prevRole, ev.RoleID())
			if err := h.deps.Events.Save(txCtx, ev); err != nil {
				return err
			}
		}

		teamName, err := h.deps.teamNameByID(txCtx, teamID)
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventEdited,
			TeamID:        teamID,
			TeamName:      teamName,
			Owner:         p.OwnerName(),
			EventStart:    minStart,
			AffectedUsers: dedupe(affectedUsers),
			AffectedRoles: dedupe(affectedRoles),
			Context: map[string]any{
				"team":    teamName,
				"link_id": cmd.LinkID,
				"count":   len(events),
			},
		})
	})
}
