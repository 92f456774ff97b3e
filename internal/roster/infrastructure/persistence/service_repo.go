package persistence

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLServiceRepository implements domain.ServiceRepository.
type SQLServiceRepository struct {
	conn database.Connection
}

// NewSQLServiceRepository creates the repository.
func NewSQLServiceRepository(conn database.Connection) *SQLServiceRepository {
	return &SQLServiceRepository{conn: conn}
}

func (r *SQLServiceRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save upserts a service.
func (r *SQLServiceRepository) Save(ctx context.Context, service *domain.Service) error {
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	query := r.rebind(`
		INSERT INTO service (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, service.ID.String(), service.Name)
	return err
}

// FindByName loads one service; nil when absent.
func (r *SQLServiceRepository) FindByName(ctx context.Context, name string) (*domain.Service, error) {
	query := r.rebind(`SELECT id, name FROM service WHERE name = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var id, serviceName string
	if err := rows.Scan(&id, &serviceName); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &domain.Service{ID: parsed, Name: serviceName}, nil
}

// TeamIDsForService lists the teams mapped to the service.
func (r *SQLServiceRepository) TeamIDsForService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	query := r.rebind(`SELECT team_id FROM team_service WHERE service_id = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, serviceID.String())
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

// MapTeam attaches a team to the service.
func (r *SQLServiceRepository) MapTeam(ctx context.Context, serviceID, teamID uuid.UUID) error {
	query := r.rebind(`INSERT INTO team_service (team_id, service_id) VALUES (?, ?) ON CONFLICT (team_id, service_id) DO NOTHING`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, teamID.String(), serviceID.String())
	return err
}

// UnmapTeam detaches a team from the service.
func (r *SQLServiceRepository) UnmapTeam(ctx context.Context, serviceID, teamID uuid.UUID) error {
	query := r.rebind(`DELETE FROM team_service WHERE team_id = ? AND service_id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query, teamID.String(), serviceID.String())
	return err
}
