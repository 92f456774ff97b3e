package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLQueueRepository implements domain.QueueRepository. MarkSent and
// MarkFailed are deliberately their own small statements: the notifier
// finalizes each row independently of the polling read.
type SQLQueueRepository struct {
	conn database.Connection
}

// NewSQLQueueRepository creates the repository.
func NewSQLQueueRepository(conn database.Connection) *SQLQueueRepository {
	return &SQLQueueRepository{conn: conn}
}

func (r *SQLQueueRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLQueueRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Enqueue inserts pending rows.
func (r *SQLQueueRepository) Enqueue(ctx context.Context, rows []*domain.QueueRow) error {
	query := r.rebind(`
		INSERT INTO notification_queue (id, user_id, mode, type, send_time, context, active, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	exec := r.exec(ctx)
	for _, row := range rows {
		if _, err := exec.Exec(ctx, query,
			row.ID.String(),
			row.UserID.String(),
			row.Mode.String(),
			row.Type.String(),
			row.SendTime.Unix(),
			row.Context,
			boolToInt(row.Active),
			boolToInt(row.Sent),
		); err != nil {
			return err
		}
	}
	return nil
}

// Due returns joined pending messages with active=1 and send_time <= now.
// The user's contact destination for the row's mode and the type's
// subject/body templates are materialized in the same read.
func (r *SQLQueueRepository) Due(ctx context.Context, now time.Time) ([]*domain.PendingMessage, error) {
	query := r.rebind(`
		SELECT q.id, q.user_id, u.name, q.mode, COALESCE(uc.destination, ''),
		       nt.subject, nt.body, q.context
		FROM notification_queue q
		JOIN "user" u ON u.id = q.user_id
		JOIN notification_type nt ON nt.name = q.type
		LEFT JOIN user_contact uc ON uc.user_id = q.user_id AND uc.mode = q.mode
		WHERE q.active = 1 AND q.send_time <= ?
		ORDER BY q.send_time
	`)
	rows, err := r.exec(ctx).Query(ctx, query, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PendingMessage
	for rows.Next() {
		var m domain.PendingMessage
		var id, userID, mode string
		if err := rows.Scan(&id, &userID, &m.UserName, &mode, &m.Destination, &m.Subject, &m.Body, &m.Context); err != nil {
			return nil, err
		}
		if m.QueueID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if m.UserID, err = uuid.Parse(userID); err != nil {
			return nil, err
		}
		parsedMode, err := identityDomain.ParseContactMode(mode)
		if err != nil {
			continue
		}
		m.Mode = parsedMode
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MarkSent finalizes a delivered row.
func (r *SQLQueueRepository) MarkSent(ctx context.Context, queueID uuid.UUID) error {
	query := r.rebind(`UPDATE notification_queue SET active = 0, sent = 1 WHERE id = ?`)
	_, err := r.exec(ctx).Exec(ctx, query, queueID.String())
	return err
}

// MarkFailed finalizes a failed row; delivery failure is terminal.
func (r *SQLQueueRepository) MarkFailed(ctx context.Context, queueID uuid.UUID) error {
	query := r.rebind(`UPDATE notification_queue SET active = 0, sent = 0 WHERE id = ?`)
	_, err := r.exec(ctx).Exec(ctx, query, queueID.String())
	return err
}

// ExistsReminder answers the sweeper's de-dup probe.
func (r *SQLQueueRepository) ExistsReminder(ctx context.Context, userID uuid.UUID, typ domain.Action, sendTime time.Time) (bool, error) {
	query := r.rebind(`SELECT COUNT(1) FROM notification_queue WHERE user_id = ? AND type = ? AND send_time = ?`)
	var count int
	if err := r.exec(ctx).QueryRow(ctx, query, userID.String(), typ.String(), sendTime.Unix()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeactivateReminders marks a user's future reminder rows of the type
// inactive (superseded by a calendar change).
func (r *SQLQueueRepository) DeactivateReminders(ctx context.Context, userID uuid.UUID, typ domain.Action, sendTimeAfter time.Time) error {
	query := r.rebind(`
		UPDATE notification_queue SET active = 0
		WHERE user_id = ? AND type = ? AND active = 1 AND sent = 0 AND send_time > ?
	`)
	_, err := r.exec(ctx).Exec(ctx, query, userID.String(), typ.String(), sendTimeAfter.Unix())
	return err
}
