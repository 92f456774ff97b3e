// Package application hosts the notification side effects of the
// mutation engine (the audit + enqueue sink) and the long-running
// notifier loop with its reminder-sweeper and user-validator workers.
package application

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/calendar/application/commands"
	"github.com/oncall/oncall/internal/core"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/outbox"
)

// Sink writes the audit row and enqueues notifications for one mutation,
// inside the caller's transaction. It implements commands.Sink. When an
// outbox is attached, a copy of the mutation also lands there for
// out-of-process subscribers; this is additive and never required for
// core correctness.
type Sink struct {
	types    domain.TypeRepository
	settings domain.SettingRepository
	queue    domain.QueueRepository
	audit    domain.AuditRepository
	outbox   outbox.Repository
	clock    core.Clock
}

// NewSink wires the sink. The outbox may be nil.
func NewSink(types domain.TypeRepository, settings domain.SettingRepository, queue domain.QueueRepository, audit domain.AuditRepository, outboxRepo outbox.Repository, clock core.Clock) *Sink {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Sink{types: types, settings: settings, queue: queue, audit: audit, outbox: outboxRepo, clock: clock}
}

// Record implements commands.Sink.
func (s *Sink) Record(ctx context.Context, n commands.Notification) error {
	now := s.clock()
	contextJSON, err := json.Marshal(n.Context)
	if err != nil {
		return core.Internal(err, "marshaling notification context")
	}
	entry := domain.NewAuditEntry(n.TeamName, n.Owner, n.Action, now, string(contextJSON))
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}

	if s.outbox != nil {
		eventID := uuid.New()
		routingKey := "calendar." + n.Action.String()
		// The envelope matches eventbus.ConsumedEvent so the notifier's
		// consumers can dispatch on it after the outbox processor
		// publishes the row.
		envelope, err := json.Marshal(map[string]any{
			"event_id":       eventID,
			"aggregate_id":   n.TeamID,
			"aggregate_type": "Event",
			"routing_key":    routingKey,
			"occurred_at":    now,
			"payload": calendarMutationPayload{
				Action:     n.Action.String(),
				Team:       n.TeamName,
				Users:      n.AffectedUsers,
				EventStart: n.EventStart.Unix(),
				Context:    n.Context,
			},
		})
		if err != nil {
			return core.Internal(err, "marshaling outbox envelope")
		}
		msg := &outbox.Message{
			EventID:       eventID,
			AggregateType: "Event",
			AggregateID:   n.TeamID,
			EventType:     routingKey,
			RoutingKey:    routingKey,
			Payload:       envelope,
			CreatedAt:     now,
		}
		if err := s.outbox.Save(ctx, msg); err != nil {
			return err
		}
	}

	typ, err := s.types.FindByName(ctx, n.Action)
	if err != nil {
		return err
	}
	if typ == nil {
		// Unknown action types audit fine but fan out to nobody.
		return nil
	}

	settings, err := s.settings.FindForDispatch(ctx, n.TeamID, n.Action, n.AffectedRoles)
	if err != nil {
		return err
	}

	affected := make(map[uuid.UUID]struct{}, len(n.AffectedUsers))
	for _, id := range n.AffectedUsers {
		affected[id] = struct{}{}
	}

	var rows []*domain.QueueRow
	for _, setting := range settings {
		if setting.OnlyIfInvolved != nil && *setting.OnlyIfInvolved {
			if _, ok := affected[setting.UserID]; !ok {
				continue
			}
		}
		sendTime := now
		if typ.IsReminder {
			if setting.TimeBefore == nil {
				continue
			}
			sendTime = n.EventStart.Add(-*setting.TimeBefore)
			if !sendTime.After(now) {
				continue
			}
		}
		rows = append(rows, domain.NewQueueRow(setting.UserID, setting.Mode, n.Action, sendTime, string(contextJSON)))
	}
	if len(rows) == 0 {
		return nil
	}
	return s.queue.Enqueue(ctx, rows)
}
