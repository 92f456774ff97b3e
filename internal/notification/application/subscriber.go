package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/eventbus"
)

// calendarMutationPayload is the calendar-change payload the sink places
// on the outbox, consumed here after the processor publishes it.
type calendarMutationPayload struct {
	Action     string         `json:"action"`
	Team       string         `json:"team"`
	Users      []uuid.UUID    `json:"users"`
	EventStart int64          `json:"event_start"`
	Context    map[string]any `json:"context,omitempty"`
}

// ReminderSupersedeConsumer deactivates pending reminder rows for the
// users touched by a calendar change. Stale reminders are tolerated at
// send time regardless; this consumer is the additive retraction on top.
type ReminderSupersedeConsumer struct {
	queue  domain.QueueRepository
	logger *slog.Logger
	clock  core.Clock
}

// NewReminderSupersedeConsumer wires the consumer.
func NewReminderSupersedeConsumer(queue domain.QueueRepository, logger *slog.Logger, clock core.Clock) *ReminderSupersedeConsumer {
	if clock == nil {
		clock = core.SystemClock
	}
	return &ReminderSupersedeConsumer{queue: queue, logger: logger, clock: clock}
}

// EventTypes implements eventbus.EventConsumer. Creation never
// supersedes anything, so only the mutating actions are bound.
func (c *ReminderSupersedeConsumer) EventTypes() []string {
	return []string{
		"calendar." + domain.ActionEventEdited.String(),
		"calendar." + domain.ActionEventDeleted.String(),
		"calendar." + domain.ActionEventSwapped.String(),
		"calendar." + domain.ActionEventSubstituted.String(),
	}
}

// Handle implements eventbus.EventConsumer.
func (c *ReminderSupersedeConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload calendarMutationPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.logger.Warn("skipping calendar event with malformed payload",
			"routing_key", event.RoutingKey, "event_id", event.EventID.String(), "error", err)
		return nil
	}
	now := c.clock()
	for _, userID := range payload.Users {
		if err := c.queue.DeactivateReminders(ctx, userID, domain.ActionOncallReminder, now); err != nil {
			return err
		}
	}
	if len(payload.Users) > 0 {
		c.logger.Debug("superseded reminders deactivated",
			"routing_key", event.RoutingKey, "team", payload.Team, "users", len(payload.Users))
	}
	return nil
}
