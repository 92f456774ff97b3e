package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLRosterRepository implements domain.RosterRepository. Members are
// persisted as roster_user rows rewritten wholesale on save; rosters are
// small, so the simplicity beats a diff.
type SQLRosterRepository struct {
	conn database.Connection
}

// NewSQLRosterRepository creates the repository.
func NewSQLRosterRepository(conn database.Connection) *SQLRosterRepository {
	return &SQLRosterRepository{conn: conn}
}

func (r *SQLRosterRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLRosterRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save upserts the roster row and rewrites its membership rows.
func (r *SQLRosterRepository) Save(ctx context.Context, roster *domain.Roster) error {
	query := r.rebind(`
		INSERT INTO roster (id, team_id, name, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at,
			version = roster.version + 1
	`)
	exec := r.exec(ctx)
	if _, err := exec.Exec(ctx, query,
		roster.ID().String(),
		roster.TeamID().String(),
		roster.Name().String(),
		roster.CreatedAt().Unix(),
		roster.UpdatedAt().Unix(),
		roster.Version(),
	); err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, r.rebind(`DELETE FROM roster_user WHERE roster_id = ?`), roster.ID().String()); err != nil {
		return err
	}
	insert := r.rebind(`INSERT INTO roster_user (roster_id, user_id, in_rotation, roster_priority) VALUES (?, ?, ?, ?)`)
	for _, m := range roster.Members() {
		if _, err := exec.Exec(ctx, insert, roster.ID().String(), m.UserID.String(), boolToInt(m.InRotation), m.Priority); err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads one roster with its members; nil when absent.
func (r *SQLRosterRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Roster, error) {
	query := r.rebind(`SELECT id, team_id, name, created_at, updated_at, version FROM roster WHERE id = ?`)
	rosters, err := r.query(ctx, query, id.String())
	if err != nil || len(rosters) == 0 {
		return nil, err
	}
	return rosters[0], nil
}

// FindByTeamAndName loads a roster by its team-scoped name.
func (r *SQLRosterRepository) FindByTeamAndName(ctx context.Context, teamID uuid.UUID, name domain.RosterName) (*domain.Roster, error) {
	query := r.rebind(`SELECT id, team_id, name, created_at, updated_at, version FROM roster WHERE team_id = ? AND name = ?`)
	rosters, err := r.query(ctx, query, teamID.String(), name.String())
	if err != nil || len(rosters) == 0 {
		return nil, err
	}
	return rosters[0], nil
}

// FindByTeam lists a team's rosters.
func (r *SQLRosterRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Roster, error) {
	query := r.rebind(`SELECT id, team_id, name, created_at, updated_at, version FROM roster WHERE team_id = ? ORDER BY name`)
	return r.query(ctx, query, teamID.String())
}

// Delete removes a roster; roster_user rows cascade.
func (r *SQLRosterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx, r.rebind(`DELETE FROM roster WHERE id = ?`), id.String())
	return err
}

func (r *SQLRosterRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Roster, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type rosterRow struct {
		id, teamID           uuid.UUID
		name                 domain.RosterName
		createdAt, updatedAt time.Time
		version              int
	}
	var rowData []rosterRow
	for rows.Next() {
		var (
			id, teamID, name     string
			createdAt, updatedAt int64
			version              int
		)
		if err := rows.Scan(&id, &teamID, &name, &createdAt, &updatedAt, &version); err != nil {
			return nil, err
		}
		rosterID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		team, err := uuid.Parse(teamID)
		if err != nil {
			return nil, err
		}
		rosterName, err := domain.NewRosterName(name)
		if err != nil {
			return nil, err
		}
		rowData = append(rowData, rosterRow{
			id: rosterID, teamID: team, name: rosterName,
			createdAt: time.Unix(createdAt, 0).UTC(), updatedAt: time.Unix(updatedAt, 0).UTC(),
			version: version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var rosters []*domain.Roster
	for _, row := range rowData {
		members, err := r.members(ctx, row.id)
		if err != nil {
			return nil, err
		}
		entity := sharedDomain.RehydrateBaseEntity(row.id, row.createdAt, row.updatedAt)
		rosters = append(rosters, domain.RehydrateRoster(entity, row.version, row.teamID, row.name, members))
	}
	return rosters, nil
}

func (r *SQLRosterRepository) members(ctx context.Context, rosterID uuid.UUID) ([]domain.Member, error) {
	query := r.rebind(`SELECT user_id, in_rotation, roster_priority FROM roster_user WHERE roster_id = ? ORDER BY roster_priority`)
	rows, err := r.exec(ctx).Query(ctx, query, rosterID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var userID string
		var inRotation, priority int
		if err := rows.Scan(&userID, &inRotation, &priority); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(userID)
		if err != nil {
			return nil, err
		}
		members = append(members, domain.Member{UserID: id, InRotation: inRotation == 1, Priority: priority})
	}
	return members, rows.Err()
}
