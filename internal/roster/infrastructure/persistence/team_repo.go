// Package persistence implements the roster-context repositories: teams,
// rosters, memberships, roles, subscriptions, and services.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLTeamRepository implements domain.TeamRepository.
type SQLTeamRepository struct {
	conn database.Connection
}

// NewSQLTeamRepository creates the repository.
func NewSQLTeamRepository(conn database.Connection) *SQLTeamRepository {
	return &SQLTeamRepository{conn: conn}
}

func (r *SQLTeamRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLTeamRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const teamColumns = `id, name, active, scheduling_timezone, override_phone, iris_plan, description, created_at, updated_at, version`

// Save upserts a team.
func (r *SQLTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	query := r.rebind(`
		INSERT INTO team (` + teamColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			scheduling_timezone = excluded.scheduling_timezone,
			override_phone = excluded.override_phone,
			iris_plan = excluded.iris_plan,
			description = excluded.description,
			updated_at = excluded.updated_at,
			version = team.version + 1
	`)
	_, err := r.exec(ctx).Exec(ctx, query,
		team.ID().String(),
		team.Name().String(),
		boolToInt(team.Active()),
		team.SchedulingTimezone(),
		team.OverridePhone(),
		team.IrisEscalationPlan(),
		team.Description(),
		team.CreatedAt().Unix(),
		team.UpdatedAt().Unix(),
		team.Version(),
	)
	return err
}

// FindByID loads one team; nil when absent.
func (r *SQLTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	query := r.rebind(`SELECT ` + teamColumns + ` FROM team WHERE id = ?`)
	teams, err := r.query(ctx, query, id.String())
	if err != nil || len(teams) == 0 {
		return nil, err
	}
	return teams[0], nil
}

// FindByName loads one active team by name.
func (r *SQLTeamRepository) FindByName(ctx context.Context, name domain.TeamName) (*domain.Team, error) {
	query := r.rebind(`SELECT ` + teamColumns + ` FROM team WHERE name = ? AND active = 1`)
	teams, err := r.query(ctx, query, name.String())
	if err != nil || len(teams) == 0 {
		return nil, err
	}
	return teams[0], nil
}

// FindActive lists all active teams.
func (r *SQLTeamRepository) FindActive(ctx context.Context) ([]*domain.Team, error) {
	return r.query(ctx, `SELECT `+teamColumns+` FROM team WHERE active = 1 ORDER BY name`)
}

// ExistsByName reports whether an active team holds the name.
func (r *SQLTeamRepository) ExistsByName(ctx context.Context, name domain.TeamName) (bool, error) {
	query := r.rebind(`SELECT COUNT(1) FROM team WHERE name = ? AND active = 1`)
	var count int
	if err := r.exec(ctx).QueryRow(ctx, query, name.String()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLTeamRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Team, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		var (
			id, name, tz, description string
			active                    int
			overridePhone, irisPlan   *string
			createdAt, updatedAt      int64
			version                   int
		)
		if err := rows.Scan(&id, &name, &active, &tz, &overridePhone, &irisPlan, &description, &createdAt, &updatedAt, &version); err != nil {
			return nil, err
		}
		teamID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		teamName, err := domain.NewTeamName(name)
		if err != nil {
			return nil, err
		}
		entity := sharedDomain.RehydrateBaseEntity(teamID, time.Unix(createdAt, 0).UTC(), time.Unix(updatedAt, 0).UTC())
		team := domain.RehydrateTeam(entity, version, teamName, active == 1, tz, overridePhone, irisPlan, description)
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
