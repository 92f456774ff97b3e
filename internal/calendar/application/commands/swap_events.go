package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// SwapSide is one half of a swap: either a single event id or a linked
// group token.
type SwapSide struct {
	EventID uuid.UUID // set when Linked is false
	LinkID  string    // set when Linked is true
	Linked  bool
}

// SwapEventsCommand swaps the users between two sides. Linked sides keep
// their link_id; single-event sides lose theirs.
type SwapEventsCommand struct {
	First  SwapSide
	Second SwapSide
}

// SwapEventsHandler handles SwapEventsCommand.
type SwapEventsHandler struct {
	deps Deps
}

// NewSwapEventsHandler creates the handler.
func NewSwapEventsHandler(deps Deps) *SwapEventsHandler {
	return &SwapEventsHandler{deps: deps}
}

func (h *SwapEventsHandler) resolveSide(ctx context.Context, side SwapSide) ([]*domain.Event, error) {
	if side.Linked {
		events, err := h.deps.Events.FindByLinkID(ctx, side.LinkID)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return nil, core.NotFound("linked events %s not found", side.LinkID)
		}
		return events, nil
	}
	event, err := h.deps.Events.FindByID(ctx, side.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, core.NotFound("event %s not found", side.EventID)
	}
	return []*domain.Event{event}, nil
}

// sideUser verifies the side's events share one user and returns it.
func sideUser(events []*domain.Event) (uuid.UUID, error) {
	user := events[0].UserID()
	for _, ev := range events[1:] {
		if ev.UserID() != user {
			return uuid.Nil, core.BadRequest("linked events must all have the same user to be swapped")
		}
	}
	return user, nil
}

// Handle validates both sides share one team, none of the events starts
// before now-GRACE_PERIOD, and each side is user-uniform, then exchanges
// the users.
func (h *SwapEventsHandler) Handle(ctx context.Context, p *authz.Principal, cmd SwapEventsCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		first, err := h.resolveSide(txCtx, cmd.First)
		if err != nil {
			return err
		}
		second, err := h.resolveSide(txCtx, cmd.Second)
		if err != nil {
			return err
		}

		teamID := first[0].TeamID()
		graceNow := h.deps.graceNow()
		all := append(append([]*domain.Event{}, first...), second...)
		for _, ev := range all {
			if ev.TeamID() != teamID {
				return core.BadRequest("swapped events must belong to the same team")
			}
			if ev.Start().Before(graceNow) {
				return core.BadRequest("swapping events in the past not allowed")
			}
		}
		if err := h.deps.Authorizer.CheckCalendarAuthByID(txCtx, teamID, p); err != nil {
			return err
		}

		userA, err := sideUser(first)
		if err != nil {
			return err
		}
		userB, err := sideUser(second)
		if err != nil {
			return err
		}

		applySide := func(events []*domain.Event, newUser uuid.UUID, linked bool) error {
			for _, ev := range events {
				ev.Reassign(newUser)
				if !linked {
					ev.BreakLink()
				}
				if err := h.deps.Events.Save(txCtx, ev); err != nil {
					return err
				}
			}
			return nil
		}
		if err := applySide(first, userB, cmd.First.Linked); err != nil {
			return err
		}
		if err := applySide(second, userA, cmd.Second.Linked); err != nil {
			return err
		}

		affectedRoles := make([]uuid.UUID, 0, len(all))
		minStart := all[0].Start()
		for _, ev := range all {
			affectedRoles = append(affectedRoles, ev.RoleID())
			if ev.Start().Before(minStart) {
				minStart = ev.Start()
			}
		}
		teamName, err := h.deps.teamNameByID(txCtx, teamID)
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventSwapped,
			TeamID:        teamID,
			TeamName:      teamName,
			Owner:         p.OwnerName(),
			EventStart:    minStart,
			AffectedUsers: dedupe([]uuid.UUID{userA, userB}),
			AffectedRoles: dedupe(affectedRoles),
			Context: map[string]any{
				"team": teamName,
			},
		})
	})
}
