package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	"github.com/oncall/oncall/internal/notification/application"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLReminderSource implements application.ReminderSource by joining
// upcoming events against reminder-type settings of their users.
type SQLReminderSource struct {
	conn database.Connection
}

// NewSQLReminderSource creates the source.
func NewSQLReminderSource(conn database.Connection) *SQLReminderSource {
	return &SQLReminderSource{conn: conn}
}

// UpcomingReminders joins each future event to its user's reminder
// settings for the event's team and role, and yields one candidate per
// match whose computed send time lands within [now, now+horizon).
func (s *SQLReminderSource) UpcomingReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]application.ReminderCandidate, error) {
	query := database.Rebind(s.conn.Driver(), `
		SELECT e.user_id, ns.mode, ns.type, ns.time_before, e.start, t.name, ro.name, u.full_name
		FROM event e
		JOIN team t ON t.id = e.team_id
		JOIN role ro ON ro.id = e.role_id
		JOIN "user" u ON u.id = e.user_id
		JOIN notification_setting ns ON ns.user_id = e.user_id AND ns.team_id = e.team_id
		JOIN setting_role sr ON sr.setting_id = ns.id AND sr.role_id = e.role_id
		JOIN notification_type nt ON nt.name = ns.type AND nt.is_reminder = 1
		WHERE ns.time_before IS NOT NULL
		  AND e.start > ?
		  AND e.start - ns.time_before >= ?
		  AND e.start - ns.time_before < ?
	`)
	rows, err := database.ExecutorFromContext(ctx, s.conn).Query(ctx, query,
		now.Unix(), now.Unix(), now.Add(horizon).Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []application.ReminderCandidate
	for rows.Next() {
		var (
			userID, mode, typ, teamName, roleName, fullName string
			timeBefore, eventStart                          int64
		)
		if err := rows.Scan(&userID, &mode, &typ, &timeBefore, &eventStart, &teamName, &roleName, &fullName); err != nil {
			return nil, err
		}
		parsedUser, err := uuid.Parse(userID)
		if err != nil {
			return nil, err
		}
		parsedMode, err := identityDomain.ParseContactMode(mode)
		if err != nil {
			continue
		}
		contextJSON, err := json.Marshal(map[string]any{
			"team":      teamName,
			"role":      roleName,
			"full_name": fullName,
			"start":     eventStart,
		})
		if err != nil {
			continue
		}
		out = append(out, application.ReminderCandidate{
			UserID:   parsedUser,
			Mode:     parsedMode,
			Type:     domain.Action(typ),
			SendTime: time.Unix(eventStart-timeBefore, 0).UTC(),
			Context:  string(contextJSON),
		})
	}
	return out, rows.Err()
}
