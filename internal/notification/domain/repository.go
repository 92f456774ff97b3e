package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TypeRepository resolves notification types by action name.
type TypeRepository interface {
	FindByName(ctx context.Context, name Action) (*Type, error)
	FindAll(ctx context.Context) ([]*Type, error)
}

// SettingRepository persists per-user notification settings.
type SettingRepository interface {
	Save(ctx context.Context, setting *Setting) error
	FindByID(ctx context.Context, id uuid.UUID) (*Setting, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Setting, error)
	// FindForDispatch returns every setting matching (team, type) whose
	// role set intersects roleIDs; the sink applies the involvement and
	// reminder filters on top.
	FindForDispatch(ctx context.Context, teamID uuid.UUID, typ Action, roleIDs []uuid.UUID) ([]*Setting, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// QueueRepository persists the outbound notification queue.
type QueueRepository interface {
	Enqueue(ctx context.Context, rows []*QueueRow) error
	// Due returns the joined pending messages with active=1 and
	// send_time <= now, ready for the sender pool.
	Due(ctx context.Context, now time.Time) ([]*PendingMessage, error)
	// MarkSent and MarkFailed each run as their own small transaction,
	// keyed by queue id.
	MarkSent(ctx context.Context, queueID uuid.UUID) error
	MarkFailed(ctx context.Context, queueID uuid.UUID) error
	// ExistsReminder supports reminder-sweeper idempotency, de-duplicating
	// on (user, type, send_time).
	ExistsReminder(ctx context.Context, userID uuid.UUID, typ Action, sendTime time.Time) (bool, error)
	// DeactivateReminders marks superseded reminder rows inactive when the
	// underlying event is edited or deleted (additive guarantee; the
	// notifier also tolerates stale rows).
	DeactivateReminders(ctx context.Context, userID uuid.UUID, typ Action, sendTimeAfter time.Time) error
}

// AuditRepository persists the append-only audit log.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	// Search supports GET /api/v0/audit with optional team/action filters.
	Search(ctx context.Context, teamName string, action *Action, limit int) ([]*AuditEntry, error)
}
