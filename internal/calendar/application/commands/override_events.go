package commands

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// OverrideEventsCommand substitutes a user over [Start, End) across a
// consecutive run of events, truncating, splitting, or deleting the
// originals as needed and inserting one new event for the substitute.
type OverrideEventsCommand struct {
	Start    time.Time
	End      time.Time
	EventIDs []uuid.UUID
	User     string
}

// OverrideEventsHandler handles OverrideEventsCommand.
type OverrideEventsHandler struct {
	deps Deps
}

// NewOverrideEventsHandler creates the handler.
func NewOverrideEventsHandler(deps Deps) *OverrideEventsHandler {
	return &OverrideEventsHandler{deps: deps}
}

// Handle runs the override state machine and returns the surviving
// original events plus the new override event, ordered by start.
func (h *OverrideEventsHandler) Handle(ctx context.Context, p *authz.Principal, cmd OverrideEventsCommand) ([]*domain.Event, error) {
	if len(cmd.EventIDs) == 0 {
		return nil, core.BadRequest("event_ids cannot be empty")
	}
	if cmd.User == "" {
		return nil, core.BadRequest("user is required")
	}
	if !cmd.Start.Before(cmd.End) {
		return nil, core.BadRequest("override start time must be before end time")
	}
	if cmd.Start.Before(h.deps.graceNow()) {
		return nil, core.BadRequest("override start time cannot be in the past")
	}

	var result []*domain.Event
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		events, err := h.deps.Events.FindByIDs(txCtx, cmd.EventIDs)
		if err != nil {
			return err
		}
		if len(events) != len(dedupe(cmd.EventIDs)) {
			return core.BadRequest("one or more listed events do not exist")
		}
		sort.Slice(events, func(i, j int) bool { return events[i].Start().Before(events[j].Start()) })

		teamID := events[0].TeamID()
		roleID := events[0].RoleID()
		originalUser := events[0].UserID()
		for i, ev := range events {
			if ev.TeamID() != teamID {
				return core.BadRequest("events must be from the same team")
			}
			if ev.RoleID() != roleID {
				return core.BadRequest("events must have the same role")
			}
			if ev.UserID() != originalUser {
				return core.BadRequest("events must have the same user")
			}
			if i > 0 && !events[i-1].End().Equal(ev.Start()) {
				return core.BadRequest("events must be consecutive")
			}
		}
		if err := h.deps.Authorizer.CheckCalendarAuthByID(txCtx, teamID, p); err != nil {
			return err
		}

		unionStart := events[0].Start()
		unionEnd := events[len(events)-1].End()
		if !cmd.Start.Before(unionEnd) || !unionStart.Before(cmd.End) {
			return core.BadRequest("override interval does not overlap the listed events")
		}
		// Truncate the override to the union of the listed events.
		overrideStart := cmd.Start
		if overrideStart.Before(unionStart) {
			overrideStart = unionStart
		}
		overrideEnd := cmd.End
		if overrideEnd.After(unionEnd) {
			overrideEnd = unionEnd
		}

		substitute, err := h.deps.resolveUser(txCtx, cmd.User)
		if err != nil {
			return err
		}
		if err := h.deps.requireTeamMember(txCtx, teamID, substitute.ID(), cmd.User); err != nil {
			return err
		}

		var survivors []*domain.Event
		for _, ev := range events {
			switch {
			// Override fully covers the event: delete it.
			case !overrideStart.After(ev.Start()) && !overrideEnd.Before(ev.End()):
				if err := h.deps.Events.Delete(txCtx, ev.ID()); err != nil {
					return err
				}
			// Override strictly interior: keep the head, insert the tail.
			case ev.Start().Before(overrideStart) && overrideEnd.Before(ev.End()):
				tail, err := domain.NewEvent(ev.TeamID(), ev.RoleID(), ev.UserID(), overrideEnd, ev.End(), ev.ScheduleID(), ev.Note())
				if err != nil {
					return err
				}
				start := overrideStart
				ev.Truncate(nil, &start)
				if err := h.deps.Events.Save(txCtx, ev); err != nil {
					return err
				}
				if err := h.deps.Events.Save(txCtx, tail); err != nil {
					return err
				}
				survivors = append(survivors, ev, tail)
			// Override covers the tail: shorten to [start, S).
			case ev.Start().Before(overrideStart):
				start := overrideStart
				ev.Truncate(nil, &start)
				if err := h.deps.Events.Save(txCtx, ev); err != nil {
					return err
				}
				survivors = append(survivors, ev)
			// Override covers the head: shorten to [E, end).
			default:
				end := overrideEnd
				ev.Truncate(&end, nil)
				if err := h.deps.Events.Save(txCtx, ev); err != nil {
					return err
				}
				survivors = append(survivors, ev)
			}
		}

		override, err := domain.NewEvent(teamID, roleID, substitute.ID(), overrideStart, overrideEnd, nil, nil)
		if err != nil {
			return err
		}
		if err := h.deps.Events.Save(txCtx, override); err != nil {
			return err
		}

		result = append(survivors, override)
		sort.Slice(result, func(i, j int) bool { return result[i].Start().Before(result[j].Start()) })

		teamName, err := h.deps.teamNameByID(txCtx, teamID)
		if err != nil {
			return err
		}
		return h.deps.Sink.Record(txCtx, Notification{
			Action:        notificationDomain.ActionEventSubstituted,
			TeamID:        teamID,
			TeamName:      teamName,
			Owner:         p.OwnerName(),
			EventStart:    overrideStart,
			AffectedUsers: dedupe([]uuid.UUID{originalUser, substitute.ID()}),
			AffectedRoles: []uuid.UUID{roleID},
			Context: map[string]any{
				"team":      teamName,
				"full_name": substitute.FullName(),
				"start":     overrideStart.Unix(),
				"end":       overrideEnd.Unix(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
