// Package persistence implements the notification-context repositories:
// types, settings, the outbound queue, the audit log, and the reminder
// sweeper's candidate source.
package persistence

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLTypeRepository implements domain.TypeRepository.
type SQLTypeRepository struct {
	conn database.Connection
}

// NewSQLTypeRepository creates the repository.
func NewSQLTypeRepository(conn database.Connection) *SQLTypeRepository {
	return &SQLTypeRepository{conn: conn}
}

// FindByName loads one type; nil when absent.
func (r *SQLTypeRepository) FindByName(ctx context.Context, name domain.Action) (*domain.Type, error) {
	query := database.Rebind(r.conn.Driver(),
		`SELECT id, name, is_reminder, subject, body FROM notification_type WHERE name = ?`)
	types, err := r.query(ctx, query, name.String())
	if err != nil || len(types) == 0 {
		return nil, err
	}
	return types[0], nil
}

// FindAll lists every type.
func (r *SQLTypeRepository) FindAll(ctx context.Context) ([]*domain.Type, error) {
	return r.query(ctx, `SELECT id, name, is_reminder, subject, body FROM notification_type ORDER BY name`)
}

// Seed inserts a type if absent (bootstrap path).
func (r *SQLTypeRepository) Seed(ctx context.Context, typ domain.Type) error {
	if typ.ID == uuid.Nil {
		typ.ID = uuid.New()
	}
	query := database.Rebind(r.conn.Driver(), `
		INSERT INTO notification_type (id, name, is_reminder, subject, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		typ.ID.String(), typ.Name.String(), boolToInt(typ.IsReminder), typ.Subject, typ.Body)
	return err
}

func (r *SQLTypeRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Type, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Type
	for rows.Next() {
		var t domain.Type
		var id, name string
		var isReminder int
		if err := rows.Scan(&id, &name, &isReminder, &t.Subject, &t.Body); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		t.ID = parsed
		t.Name = domain.Action(name)
		t.IsReminder = isReminder == 1
		out = append(out, &t)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
