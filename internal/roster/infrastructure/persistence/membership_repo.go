package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLMembershipRepository implements domain.MembershipRepository over the
// team_admin and team_user relation tables.
type SQLMembershipRepository struct {
	conn database.Connection
}

// NewSQLMembershipRepository creates the repository.
func NewSQLMembershipRepository(conn database.Connection) *SQLMembershipRepository {
	return &SQLMembershipRepository{conn: conn}
}

func (r *SQLMembershipRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLMembershipRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

func (r *SQLMembershipRepository) existsIn(ctx context.Context, table string, teamID, userID uuid.UUID) (bool, error) {
	query := r.rebind(`SELECT COUNT(1) FROM ` + table + ` WHERE team_id = ? AND user_id = ?`)
	var count int
	if err := r.exec(ctx).QueryRow(ctx, query, teamID.String(), userID.String()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsTeamAdmin answers the team-admin predicate.
func (r *SQLMembershipRepository) IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	return r.existsIn(ctx, "team_admin", teamID, userID)
}

// IsTeamUser answers the calendar-member predicate.
func (r *SQLMembershipRepository) IsTeamUser(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	return r.existsIn(ctx, "team_user", teamID, userID)
}

// AdminTeamIDs lists the teams a user administers.
func (r *SQLMembershipRepository) AdminTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := r.rebind(`SELECT team_id FROM team_admin WHERE user_id = ?`)
	rows, err := r.exec(ctx).Query(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLMembershipRepository) add(ctx context.Context, table string, teamID, userID uuid.UUID) error {
	query := r.rebind(`INSERT INTO ` + table + ` (team_id, user_id) VALUES (?, ?) ON CONFLICT (team_id, user_id) DO NOTHING`)
	_, err := r.exec(ctx).Exec(ctx, query, teamID.String(), userID.String())
	return err
}

func (r *SQLMembershipRepository) remove(ctx context.Context, table string, teamID, userID uuid.UUID) error {
	query := r.rebind(`DELETE FROM ` + table + ` WHERE team_id = ? AND user_id = ?`)
	_, err := r.exec(ctx).Exec(ctx, query, teamID.String(), userID.String())
	return err
}

// AddAdmin grants team-admin. Admins are members too, so the team_user
// row rides along.
func (r *SQLMembershipRepository) AddAdmin(ctx context.Context, teamID, userID uuid.UUID) error {
	if err := r.add(ctx, "team_admin", teamID, userID); err != nil {
		return err
	}
	return r.add(ctx, "team_user", teamID, userID)
}

// AddUser grants calendar membership.
func (r *SQLMembershipRepository) AddUser(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.add(ctx, "team_user", teamID, userID)
}

// RemoveAdmin revokes team-admin, leaving plain membership intact.
func (r *SQLMembershipRepository) RemoveAdmin(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.remove(ctx, "team_admin", teamID, userID)
}

// RemoveUser revokes calendar membership and any admin bit with it.
func (r *SQLMembershipRepository) RemoveUser(ctx context.Context, teamID, userID uuid.UUID) error {
	if err := r.remove(ctx, "team_admin", teamID, userID); err != nil {
		return err
	}
	return r.remove(ctx, "team_user", teamID, userID)
}
