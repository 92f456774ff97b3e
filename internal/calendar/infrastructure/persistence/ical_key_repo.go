package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLIcalKeyRepository implements domain.IcalKeyRepository.
type SQLIcalKeyRepository struct {
	conn database.Connection
}

// NewSQLIcalKeyRepository creates the repository.
func NewSQLIcalKeyRepository(conn database.Connection) *SQLIcalKeyRepository {
	return &SQLIcalKeyRepository{conn: conn}
}

func (r *SQLIcalKeyRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save stores a freshly minted key.
func (r *SQLIcalKeyRepository) Save(ctx context.Context, key *domain.IcalKey) error {
	query := r.rebind(`
		INSERT INTO ical_key (key, requester, name, type, time_created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			requester = excluded.requester,
			name = excluded.name,
			type = excluded.type
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		key.Key.String(), key.Requester, key.Name, string(key.Type), key.TimeCreated.Unix())
	return err
}

// FindByKey loads one key; nil when absent.
func (r *SQLIcalKeyRepository) FindByKey(ctx context.Context, key uuid.UUID) (*domain.IcalKey, error) {
	query := r.rebind(`SELECT key, requester, name, type, time_created FROM ical_key WHERE key = ?`)
	keys, err := r.query(ctx, query, key.String())
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	return keys[0], nil
}

// FindByRequester lists a user's minted keys.
func (r *SQLIcalKeyRepository) FindByRequester(ctx context.Context, requester string) ([]*domain.IcalKey, error) {
	query := r.rebind(`SELECT key, requester, name, type, time_created FROM ical_key WHERE requester = ? ORDER BY time_created`)
	return r.query(ctx, query, requester)
}

// Delete revokes a key.
func (r *SQLIcalKeyRepository) Delete(ctx context.Context, key uuid.UUID) error {
	query := r.rebind(`DELETE FROM ical_key WHERE key = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, key.String())
	return err
}

func (r *SQLIcalKeyRepository) query(ctx context.Context, query string, args ...any) ([]*domain.IcalKey, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.IcalKey
	for rows.Next() {
		var k domain.IcalKey
		var key, typ string
		var created int64
		if err := rows.Scan(&key, &k.Requester, &k.Name, &typ, &created); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(key)
		if err != nil {
			return nil, err
		}
		k.Key = parsed
		k.Type = domain.IcalKeyType(typ)
		k.TimeCreated = time.Unix(created, 0).UTC()
		out = append(out, &k)
	}
	return out, rows.Err()
}
