package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLAuditRepository implements domain.AuditRepository. The table is
// append-only; nothing here updates or deletes.
type SQLAuditRepository struct {
	conn database.Connection
}

// NewSQLAuditRepository creates the repository.
func NewSQLAuditRepository(conn database.Connection) *SQLAuditRepository {
	return &SQLAuditRepository{conn: conn}
}

// Append inserts one audit row.
func (r *SQLAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	query := database.Rebind(r.conn.Driver(), `
		INSERT INTO audit_log (id, team_name, owner_name, action_name, timestamp, context)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		entry.ID.String(),
		entry.TeamName,
		entry.OwnerName,
		entry.ActionName.String(),
		entry.Timestamp.Unix(),
		entry.Context,
	)
	return err
}

// Search lists entries for a team, optionally filtered by action, most
// recent first.
func (r *SQLAuditRepository) Search(ctx context.Context, teamName string, action *domain.Action, limit int) ([]*domain.AuditEntry, error) {
	query := `SELECT id, team_name, owner_name, action_name, timestamp, context FROM audit_log WHERE team_name = ?`
	args := []any{teamName}
	if action != nil {
		query += ` AND action_name = ?`
		args = append(args, action.String())
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, database.Rebind(r.conn.Driver(), query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var id, actionName string
		var timestamp int64
		if err := rows.Scan(&id, &e.TeamName, &e.OwnerName, &actionName, &timestamp, &e.Context); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		e.ID = parsed
		e.ActionName = domain.Action(actionName)
		e.Timestamp = time.Unix(timestamp, 0).UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
