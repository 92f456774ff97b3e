package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLDeletedTeamRepository implements domain.DeletedTeamRepository.
type SQLDeletedTeamRepository struct {
	conn database.Connection
}

// NewSQLDeletedTeamRepository creates the repository.
func NewSQLDeletedTeamRepository(conn database.Connection) *SQLDeletedTeamRepository {
	return &SQLDeletedTeamRepository{conn: conn}
}

// Record stores one soft-deletion.
func (r *SQLDeletedTeamRepository) Record(ctx context.Context, deleted domain.DeletedTeam) error {
	query := database.Rebind(r.conn.Driver(), `
		INSERT INTO deleted_team (team_id, new_name, old_name, deletion_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (team_id) DO UPDATE SET
			new_name = excluded.new_name,
			old_name = excluded.old_name,
			deletion_date = excluded.deletion_date
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		deleted.TeamID.String(), deleted.NewName, deleted.OldName, deleted.DeletionDate.Unix())
	return err
}

// FindByTeam loads a deletion record; nil when absent.
func (r *SQLDeletedTeamRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) (*domain.DeletedTeam, error) {
	query := database.Rebind(r.conn.Driver(),
		`SELECT team_id, new_name, old_name, deletion_date FROM deleted_team WHERE team_id = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, teamID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var d domain.DeletedTeam
	var id string
	var deletionDate int64
	if err := rows.Scan(&id, &d.NewName, &d.OldName, &deletionDate); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	d.TeamID = parsed
	d.DeletionDate = time.Unix(deletionDate, 0).UTC()
	return &d, nil
}

// SQLPinnedTeamRepository implements domain.PinnedTeamRepository.
type SQLPinnedTeamRepository struct {
	conn database.Connection
}

// NewSQLPinnedTeamRepository creates the repository.
func NewSQLPinnedTeamRepository(conn database.Connection) *SQLPinnedTeamRepository {
	return &SQLPinnedTeamRepository{conn: conn}
}

// Pin stores one pinned-team row; duplicates surface as driver unique
// violations for the 422 mapping.
func (r *SQLPinnedTeamRepository) Pin(ctx context.Context, userID, teamID uuid.UUID) error {
	query := database.Rebind(r.conn.Driver(), `INSERT INTO pinned_team (user_id, team_id) VALUES (?, ?)`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, userID.String(), teamID.String())
	return err
}

// Unpin removes one pinned-team row.
func (r *SQLPinnedTeamRepository) Unpin(ctx context.Context, userID, teamID uuid.UUID) error {
	query := database.Rebind(r.conn.Driver(), `DELETE FROM pinned_team WHERE user_id = ? AND team_id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, userID.String(), teamID.String())
	return err
}

// FindByUser lists a user's pinned team ids.
func (r *SQLPinnedTeamRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := database.Rebind(r.conn.Driver(), `SELECT team_id FROM pinned_team WHERE user_id = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, userID.String())
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
