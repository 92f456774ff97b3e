package persistence

import (
	"context"
	"fmt"

	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLApplicationRepository resolves API-client names to their shared
// HMAC keys; it implements authz.ApplicationRepository.
type SQLApplicationRepository struct {
	conn database.Connection
}

// NewSQLApplicationRepository creates the repository.
func NewSQLApplicationRepository(conn database.Connection) *SQLApplicationRepository {
	return &SQLApplicationRepository{conn: conn}
}

// FindKey returns the shared key for the named application.
func (r *SQLApplicationRepository) FindKey(ctx context.Context, name string) (string, error) {
	query := database.Rebind(r.conn.Driver(), `SELECT key FROM application WHERE name = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, name)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("unknown application %s", name)
	}
	var key string
	if err := rows.Scan(&key); err != nil {
		return "", err
	}
	return key, nil
}

// Register stores an application credential (provisioning path).
func (r *SQLApplicationRepository) Register(ctx context.Context, name, key string) error {
	query := database.Rebind(r.conn.Driver(), `
		INSERT INTO application (name, key) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET key = excluded.key
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, name, key)
	return err
}
