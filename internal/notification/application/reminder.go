package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	domain "github.com/oncall/oncall/internal/notification/domain"
)

// ReminderCandidate is one reminder the sweeper would enqueue: a user's
// reminder setting joined against an upcoming event of theirs.
type ReminderCandidate struct {
	UserID   uuid.UUID
	Mode     identityDomain.ContactMode
	Type     domain.Action
	SendTime time.Time
	Context  string
}

// ReminderSource computes the reminder candidates whose send time lands
// within [now, now+horizon).
type ReminderSource interface {
	UpcomingReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]ReminderCandidate, error)
}

// ReminderSweeper periodically re-synthesizes reminder queue rows near
// the active horizon so reminders survive even when their original
// enqueue was lost or superseded. Duplicate enqueues are suppressed by
// (user, type, send_time).
type ReminderSweeper struct {
	source   ReminderSource
	queue    domain.QueueRepository
	interval time.Duration
	horizon  time.Duration
	logger   *slog.Logger
	clock    core.Clock
}

// NewReminderSweeper wires the sweeper.
func NewReminderSweeper(source ReminderSource, queue domain.QueueRepository, interval, horizon time.Duration, logger *slog.Logger, clock core.Clock) *ReminderSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	if clock == nil {
		clock = core.SystemClock
	}
	return &ReminderSweeper{source: source, queue: queue, interval: interval, horizon: horizon, logger: logger, clock: clock}
}

// Run blocks until ctx is cancelled.
func (s *ReminderSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderSweeper) sweep(ctx context.Context) {
	now := s.clock()
	candidates, err := s.source.UpcomingReminders(ctx, now, s.horizon)
	if err != nil {
		s.logger.Error("reminder sweep failed", "error", err)
		return
	}
	for _, c := range candidates {
		exists, err := s.queue.ExistsReminder(ctx, c.UserID, c.Type, c.SendTime)
		if err != nil {
			s.logger.Error("reminder de-dup check failed", "error", err)
			continue
		}
		if exists || !c.SendTime.After(now) {
			continue
		}
		row := domain.NewQueueRow(c.UserID, c.Mode, c.Type, c.SendTime, c.Context)
		if err := s.queue.Enqueue(ctx, []*domain.QueueRow{row}); err != nil {
			s.logger.Error("enqueueing reminder failed", "error", err)
		}
	}
}
