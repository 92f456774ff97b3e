package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/calendar/application/queries"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLEventReader implements queries.EventReader with joined reads.
type SQLEventReader struct {
	conn database.Connection
}

// NewSQLEventReader creates the reader.
func NewSQLEventReader(conn database.Connection) *SQLEventReader {
	return &SQLEventReader{conn: conn}
}

func (r *SQLEventReader) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLEventReader) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const viewSelect = `
	SELECT e.id, e.start, e."end", u.name, u.full_name, t.name, ro.name,
	       e.schedule_id, e.link_id, e.note
	FROM event e
	JOIN team t ON t.id = e.team_id
	JOIN role ro ON ro.id = e.role_id
	JOIN "user" u ON u.id = e.user_id
`

// Get loads one joined event view; nil when absent.
func (r *SQLEventReader) Get(ctx context.Context, id uuid.UUID) (*queries.EventView, error) {
	views, err := r.queryViews(ctx, r.rebind(viewSelect+` WHERE e.id = ?`), id.String())
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return views[0], nil
}

// List runs the filter query; when IncludeSubscribed is set and a team
// filter is present, subscribed teams' events of the subscribed role are
// unioned in.
func (r *SQLEventReader) List(ctx context.Context, q domain.ListQuery) ([]*queries.EventView, error) {
	where, args, err := buildEventFilter(q.Filters)
	if err != nil {
		return nil, err
	}
	query := viewSelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY e.start"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}
	views, err := r.queryViews(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	if q.IncludeSubscribed {
		subscribed, err := r.subscribedViews(ctx, q.Filters)
		if err != nil {
			return nil, err
		}
		views = append(views, subscribed...)
	}
	return views, nil
}

// subscribedViews expands a `team` filter through team_subscription and
// fetches the source teams' events of each subscription's role, with any
// remaining filters still applied.
func (r *SQLEventReader) subscribedViews(ctx context.Context, filters []domain.Filter) ([]*queries.EventView, error) {
	var teamName string
	rest := make([]domain.Filter, 0, len(filters))
	for _, f := range filters {
		if f.Field == "team" && (f.Op == domain.FilterEq || f.Op == "") {
			teamName = f.Value
			continue
		}
		rest = append(rest, f)
	}
	if teamName == "" {
		return nil, nil
	}
	where, args, err := buildEventFilter(rest)
	if err != nil {
		return nil, err
	}
	query := viewSelect + `
		JOIN team_subscription ts ON ts.subscription_id = e.team_id AND ts.role_id = e.role_id
		JOIN team sub ON sub.id = ts.team_id
		WHERE sub.name = ?`
	allArgs := append([]any{teamName}, args...)
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY e.start"
	return r.queryViews(ctx, r.rebind(query), allArgs...)
}

// CurrentOncall returns who is on call for the team at instant now.
func (r *SQLEventReader) CurrentOncall(ctx context.Context, teamID uuid.UUID, roleName *string, now time.Time) ([]*queries.OncallView, error) {
	query := `
		SELECT u.name, u.full_name, t.name, ro.name, e.start, e."end"
		FROM event e
		JOIN team t ON t.id = e.team_id
		JOIN role ro ON ro.id = e.role_id
		JOIN "user" u ON u.id = e.user_id
		WHERE e.team_id = ? AND e.start <= ? AND e."end" > ?`
	args := []any{teamID.String(), now.Unix(), now.Unix()}
	if roleName != nil {
		query += ` AND ro.name = ?`
		args = append(args, *roleName)
	}
	query += ` ORDER BY ro.name, e.start`

	rows, err := r.exec(ctx).Query(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queries.OncallView
	for rows.Next() {
		var v queries.OncallView
		var start, end int64
		if err := rows.Scan(&v.User, &v.FullName, &v.Team, &v.Role, &start, &end); err != nil {
			return nil, err
		}
		v.Start = time.Unix(start, 0).UTC()
		v.End = time.Unix(end, 0).UTC()
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range out {
		contacts, err := r.contactsByUserName(ctx, v.User)
		if err != nil {
			return nil, err
		}
		v.Contacts = contacts
	}
	return out, nil
}

const icalSelect = `
	SELECT e.id, e.start, e."end", t.name, ro.name, u.id, u.name, u.full_name
	FROM event e
	JOIN team t ON t.id = e.team_id
	JOIN role ro ON ro.id = e.role_id
	JOIN "user" u ON u.id = e.user_id
`

// TeamIcalFeed returns the projector rows for a team feed.
func (r *SQLEventReader) TeamIcalFeed(ctx context.Context, teamID uuid.UUID, cutoff time.Time, roleNames []string, includeSubscribed bool, excludedTeams []string) ([]*queries.IcalEvent, error) {
	query := icalSelect + ` WHERE e.team_id = ? AND e."end" > ?`
	args := []any{teamID.String(), cutoff.Unix()}
	query, args = appendRoleAndExclusions(query, args, roleNames, excludedTeams)
	query += ` ORDER BY e.start`
	feed, err := r.queryIcal(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	if includeSubscribed {
		subQuery := icalSelect + `
			JOIN team_subscription ts ON ts.subscription_id = e.team_id AND ts.role_id = e.role_id
			WHERE ts.team_id = ? AND e."end" > ?`
		subArgs := []any{teamID.String(), cutoff.Unix()}
		subQuery, subArgs = appendRoleAndExclusions(subQuery, subArgs, roleNames, excludedTeams)
		subQuery += ` ORDER BY e.start`
		subscribed, err := r.queryIcal(ctx, r.rebind(subQuery), subArgs...)
		if err != nil {
			return nil, err
		}
		feed = append(feed, subscribed...)
	}
	return feed, nil
}

func appendRoleAndExclusions(query string, args []any, roleNames, excludedTeams []string) (string, []any) {
	if len(roleNames) > 0 {
		query += ` AND ro.name IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(roleNames)), ", ") + `)`
		for _, n := range roleNames {
			args = append(args, n)
		}
	}
	if len(excludedTeams) > 0 {
		query += ` AND t.name NOT IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(excludedTeams)), ", ") + `)`
		for _, n := range excludedTeams {
			args = append(args, n)
		}
	}
	return query, args
}

// UserIcalFeed returns the projector rows for a user feed.
func (r *SQLEventReader) UserIcalFeed(ctx context.Context, userID uuid.UUID, cutoff time.Time, roleNames []string) ([]*queries.IcalEvent, error) {
	query := icalSelect + ` WHERE e.user_id = ? AND e."end" > ?`
	args := []any{userID.String(), cutoff.Unix()}
	query, args = appendRoleAndExclusions(query, args, roleNames, nil)
	query += ` ORDER BY e.start`
	return r.queryIcal(ctx, r.rebind(query), args...)
}

func (r *SQLEventReader) queryIcal(ctx context.Context, query string, args ...any) ([]*queries.IcalEvent, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queries.IcalEvent
	for rows.Next() {
		var ev queries.IcalEvent
		var id, userID string
		var start, end int64
		if err := rows.Scan(&id, &start, &end, &ev.Team, &ev.Role, &userID, &ev.User, &ev.FullName); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		ev.ID = parsed
		ev.Start = time.Unix(start, 0).UTC()
		ev.End = time.Unix(end, 0).UTC()
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ev := range out {
		contacts, err := r.contactsByUserName(ctx, ev.User)
		if err != nil {
			return nil, err
		}
		ev.Contacts = contacts
		ev.Email = contacts["email"]
	}
	return out, nil
}

func (r *SQLEventReader) contactsByUserName(ctx context.Context, userName string) (map[string]string, error) {
	query := r.rebind(`
		SELECT uc.mode, uc.destination
		FROM user_contact uc
		JOIN "user" u ON u.id = uc.user_id
		WHERE u.name = ?
	`)
	rows, err := r.exec(ctx).Query(ctx, query, userName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make(map[string]string)
	for rows.Next() {
		var mode, destination string
		if err := rows.Scan(&mode, &destination); err != nil {
			return nil, err
		}
		contacts[mode] = destination
	}
	return contacts, rows.Err()
}

func (r *SQLEventReader) queryViews(ctx context.Context, query string, args ...any) ([]*queries.EventView, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queries.EventView
	for rows.Next() {
		var v queries.EventView
		var id string
		var start, end int64
		var scheduleID *string
		if err := rows.Scan(&id, &start, &end, &v.User, &v.FullName, &v.Team, &v.Role, &scheduleID, &v.LinkID, &v.Note); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		v.ID = parsed
		v.Start = time.Unix(start, 0).UTC()
		v.End = time.Unix(end, 0).UTC()
		if scheduleID != nil {
			sid, err := uuid.Parse(*scheduleID)
			if err == nil {
				v.ScheduleID = &sid
			}
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
