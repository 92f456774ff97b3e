// Package persistence implements the calendar repositories over the
// shared database abstraction. Queries are written once with `?`
// placeholders and rebound per driver.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/calendar/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLEventRepository implements domain.EventRepository for both drivers.
type SQLEventRepository struct {
	conn database.Connection
}

// NewSQLEventRepository creates the repository.
func NewSQLEventRepository(conn database.Connection) *SQLEventRepository {
	return &SQLEventRepository{conn: conn}
}

func (r *SQLEventRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLEventRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const eventColumns = `id, team_id, role_id, user_id, start, "end", schedule_id, link_id, note, created_at, updated_at, version`

// Save upserts one event.
func (r *SQLEventRepository) Save(ctx context.Context, event *domain.Event) error {
	query := r.rebind(`
		INSERT INTO event (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			team_id = excluded.team_id,
			role_id = excluded.role_id,
			user_id = excluded.user_id,
			start = excluded.start,
			"end" = excluded."end",
			schedule_id = excluded.schedule_id,
			link_id = excluded.link_id,
			note = excluded.note,
			updated_at = excluded.updated_at,
			version = event.version + 1
	`)
	var scheduleID *string
	if sid := event.ScheduleID(); sid != nil {
		s := sid.String()
		scheduleID = &s
	}
	_, err := r.exec(ctx).Exec(ctx, query,
		event.ID().String(),
		event.TeamID().String(),
		event.RoleID().String(),
		event.UserID().String(),
		event.Start().Unix(),
		event.End().Unix(),
		scheduleID,
		event.LinkID(),
		event.Note(),
		event.CreatedAt().Unix(),
		event.UpdatedAt().Unix(),
		event.Version(),
	)
	return err
}

// SaveAll upserts a batch.
func (r *SQLEventRepository) SaveAll(ctx context.Context, events []*domain.Event) error {
	for _, event := range events {
		if err := r.Save(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads one event; nil when absent.
func (r *SQLEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := r.rebind(`SELECT ` + eventColumns + ` FROM event WHERE id = ?`)
	events, err := r.queryEvents(ctx, query, id.String())
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// FindByIDs loads a set of events by id.
func (r *SQLEventRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := r.rebind(fmt.Sprintf(`SELECT %s FROM event WHERE id IN (%s)`, eventColumns, placeholders))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return r.queryEvents(ctx, query, args...)
}

// FindByLinkID loads a linked group ordered by start.
func (r *SQLEventRepository) FindByLinkID(ctx context.Context, linkID string) ([]*domain.Event, error) {
	query := r.rebind(`SELECT ` + eventColumns + ` FROM event WHERE link_id = ? ORDER BY start`)
	return r.queryEvents(ctx, query, linkID)
}

// Delete removes one event.
func (r *SQLEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := r.rebind(`DELETE FROM event WHERE id = ?`)
	_, err := r.exec(ctx).Exec(ctx, query, id.String())
	return err
}

// DeleteByLinkID removes a whole linked group.
func (r *SQLEventRepository) DeleteByLinkID(ctx context.Context, linkID string) error {
	query := r.rebind(`DELETE FROM event WHERE link_id = ?`)
	_, err := r.exec(ctx).Exec(ctx, query, linkID)
	return err
}

// DeleteFutureByTeam removes a team's events starting at or after cutoff
// (team soft-delete cascade).
func (r *SQLEventRepository) DeleteFutureByTeam(ctx context.Context, teamID uuid.UUID, cutoff time.Time) error {
	query := r.rebind(`DELETE FROM event WHERE team_id = ? AND start >= ?`)
	_, err := r.exec(ctx).Exec(ctx, query, teamID.String(), cutoff.Unix())
	return err
}

// FindOverlapping returns (team, role) events intersecting [start, end).
func (r *SQLEventRepository) FindOverlapping(ctx context.Context, teamID, roleID uuid.UUID, start, end time.Time) ([]*domain.Event, error) {
	query := r.rebind(`
		SELECT ` + eventColumns + ` FROM event
		WHERE team_id = ? AND role_id = ? AND start < ? AND "end" > ?
		ORDER BY start
	`)
	return r.queryEvents(ctx, query, teamID.String(), roleID.String(), end.Unix(), start.Unix())
}

// FindBusy returns the user's team events intersecting [start, end),
// regardless of role.
func (r *SQLEventRepository) FindBusy(ctx context.Context, teamID, userID uuid.UUID, start, end time.Time) ([]*domain.Event, error) {
	query := r.rebind(`
		SELECT ` + eventColumns + ` FROM event
		WHERE team_id = ? AND user_id = ? AND start < ? AND "end" > ?
		ORDER BY start
	`)
	return r.queryEvents(ctx, query, teamID.String(), userID.String(), end.Unix(), start.Unix())
}

// FindByScheduleSince returns a schedule's events starting at or after
// since, ordered by start.
func (r *SQLEventRepository) FindByScheduleSince(ctx context.Context, scheduleID uuid.UUID, since time.Time) ([]*domain.Event, error) {
	query := r.rebind(`
		SELECT ` + eventColumns + ` FROM event
		WHERE schedule_id = ? AND start >= ?
		ORDER BY start
	`)
	return r.queryEvents(ctx, query, scheduleID.String(), since.Unix())
}

// LastBefore returns the user's most recent (team, role) event ending at
// or before the instant.
func (r *SQLEventRepository) LastBefore(ctx context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (*domain.Event, error) {
	query := r.rebind(`
		SELECT ` + eventColumns + ` FROM event
		WHERE team_id = ? AND role_id = ? AND user_id = ? AND "end" <= ?
		ORDER BY "end" DESC LIMIT 1
	`)
	events, err := r.queryEvents(ctx, query, teamID.String(), roleID.String(), userID.String(), before.Unix())
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// NextAfter returns the user's soonest (team, role) event starting at or
// after the instant.
func (r *SQLEventRepository) NextAfter(ctx context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (*domain.Event, error) {
	query := r.rebind(`
		SELECT ` + eventColumns + ` FROM event
		WHERE team_id = ? AND role_id = ? AND user_id = ? AND start >= ?
		ORDER BY start LIMIT 1
	`)
	events, err := r.queryEvents(ctx, query, teamID.String(), roleID.String(), userID.String(), after.Unix())
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// Query runs the filter-grammar list query against the joined tables.
func (r *SQLEventRepository) Query(ctx context.Context, q domain.ListQuery) ([]*domain.Event, error) {
	where, args, err := buildEventFilter(q.Filters)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT e.id, e.team_id, e.role_id, e.user_id, e.start, e."end",
		       e.schedule_id, e.link_id, e.note, e.created_at, e.updated_at, e.version
		FROM event e
		JOIN team t ON t.id = e.team_id
		JOIN role ro ON ro.id = e.role_id
		JOIN "user" u ON u.id = e.user_id
	`
	if where != "" {
		query += " WHERE " + where
	}
	query += ` ORDER BY e.start`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}
	return r.queryEvents(ctx, r.rebind(query), args...)
}

// ForTeamSince returns a team's events ending after cutoff, optionally
// restricted to roles, for the iCal projector.
func (r *SQLEventRepository) ForTeamSince(ctx context.Context, teamID uuid.UUID, cutoff time.Time, roleIDs []uuid.UUID) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event WHERE team_id = ? AND "end" > ?`
	args := []any{teamID.String(), cutoff.Unix()}
	if len(roleIDs) > 0 {
		query += ` AND role_id IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(roleIDs)), ", ") + `)`
		for _, id := range roleIDs {
			args = append(args, id.String())
		}
	}
	query += ` ORDER BY start`
	return r.queryEvents(ctx, r.rebind(query), args...)
}

// ForUserSince returns a user's events ending after cutoff.
func (r *SQLEventRepository) ForUserSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*domain.Event, error) {
	query := r.rebind(`SELECT ` + eventColumns + ` FROM event WHERE user_id = ? AND "end" > ? ORDER BY start`)
	return r.queryEvents(ctx, query, userID.String(), cutoff.Unix())
}

func (r *SQLEventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row database.Row) (*domain.Event, error) {
	var (
		id, teamID, roleID, userID string
		start, end                 int64
		scheduleID, linkID, note   *string
		createdAt, updatedAt       int64
		version                    int
	)
	if err := row.Scan(&id, &teamID, &roleID, &userID, &start, &end, &scheduleID, &linkID, &note, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}
	eventID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	team, err := uuid.Parse(teamID)
	if err != nil {
		return nil, err
	}
	role, err := uuid.Parse(roleID)
	if err != nil {
		return nil, err
	}
	user, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	var schedulePtr *uuid.UUID
	if scheduleID != nil {
		sid, err := uuid.Parse(*scheduleID)
		if err != nil {
			return nil, err
		}
		schedulePtr = &sid
	}
	entity := sharedDomain.RehydrateBaseEntity(eventID, time.Unix(createdAt, 0).UTC(), time.Unix(updatedAt, 0).UTC())
	return domain.RehydrateEvent(entity, version, team, role, user,
		time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC(), schedulePtr, linkID, note), nil
}
