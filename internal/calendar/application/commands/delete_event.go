package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// DeleteEventCommand deletes one event.
type DeleteEventCommand struct {
	EventID uuid.UUID
}

// DeleteEventHandler handles DeleteEventCommand.
type DeleteEventHandler struct {
	deps Deps
}

// NewDeleteEventHandler creates the handler.
func NewDeleteEventHandler(deps Deps) *DeleteEventHandler {
	return &DeleteEventHandler{deps: deps}
}

// Handle allows any calendar member to delete a future event; events
// already started (beyond the grace period) cannot be deleted.
func (h *DeleteEventHandler) Handle(ctx context.Context, p *authz.Principal, cmd DeleteEventCommand) error {
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
		if event.Start().Before(h.deps.graceNow()) {
			return core.BadRequest("deleting events in the past not allowed")
		}
		if err := h.deps.Events.Delete(txCtx, cmd.EventID); err != nil {
			return err
		}

		teamName, err := h.deps.teamNameByID(txCtx, event.TeamID())
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventDeleted,
			TeamID:        event.TeamID(),
			TeamName:      teamName,
			Owner:         p.OwnerName(),
			EventStart:    event.Start(),
			AffectedUsers: []uuid.UUID{event.UserID()},
			AffectedRoles: []uuid.UUID{event.RoleID()},
			Context: map[string]any{
				"team":  teamName,
				"start": event.Start().Unix(),
				"end":   event.End().Unix(),
			},
		})
	})
}

// DeleteLinkedGroupCommand deletes every event in a linked group.
type DeleteLinkedGroupCommand struct {
	LinkID string
}

// DeleteLinkedGroupHandler handles DeleteLinkedGroupCommand.
type DeleteLinkedGroupHandler struct {
	deps Deps
}

// NewDeleteLinkedGroupHandler creates the handler.
func NewDeleteLinkedGroupHandler(deps Deps) *DeleteLinkedGroupHandler {
	return &DeleteLinkedGroupHandler{deps: deps}
}

// Handle refuses once the group's earliest start is in the past.
func (h *DeleteLinkedGroupHandler) Handle(ctx context.Context, p *authz.Principal, cmd DeleteLinkedGroupCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		events, err := h.deps.Events.FindByLinkID(txCtx, cmd.LinkID)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return core.NotFound("linked events %s not found", cmd.LinkID)
		}
		teamID := events[0].TeamID()
		if err := h.deps.Authorizer.CheckCalendarAuthByID(txCtx, teamID, p); err != nil {
			return err
		}

		minStart := events[0].Start()
		affectedUsers := make([]uuid.UUID, 0, len(events))
		affectedRoles := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			if ev.Start().Before(minStart) {
				minStart = ev.Start()
			}
			affectedUsers = append(affectedUsers, ev.UserID())
			affectedRoles = append(affectedRoles, ev.RoleID())
		}
		if minStart.Before(h.deps.graceNow()) {
			return core.BadRequest("deleting linked events in the past not allowed")
		}
		if err := h.deps.Events.DeleteByLinkID(txCtx, cmd.LinkID); err != nil {
			return err
		}

		teamName, err := h.deps.teamNameByID(txCtx, teamID)
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventDeleted,
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
