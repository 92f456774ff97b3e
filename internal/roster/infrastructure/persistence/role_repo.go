package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLRoleRepository implements domain.RoleRepository.
type SQLRoleRepository struct {
	conn database.Connection
}

// NewSQLRoleRepository creates the repository.
func NewSQLRoleRepository(conn database.Connection) *SQLRoleRepository {
	return &SQLRoleRepository{conn: conn}
}

func (r *SQLRoleRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save upserts a role.
func (r *SQLRoleRepository) Save(ctx context.Context, role *domain.Role) error {
	query := r.rebind(`
		INSERT INTO role (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		role.ID().String(), role.Name().String(), role.CreatedAt().Unix(), role.UpdatedAt().Unix())
	return err
}

// FindByID loads one role; nil when absent.
func (r *SQLRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	return r.findOne(ctx, r.rebind(`SELECT id, name, created_at, updated_at FROM role WHERE id = ?`), id.String())
}

// FindByName loads one role by name; nil when absent.
func (r *SQLRoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	return r.findOne(ctx, r.rebind(`SELECT id, name, created_at, updated_at FROM role WHERE name = ?`), name.String())
}

func (r *SQLRoleRepository) findOne(ctx context.Context, query string, arg any) (*domain.Role, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		id, name             string
		createdAt, updatedAt int64
	)
	if err := rows.Scan(&id, &name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	roleName, err := domain.NewRoleName(name)
	if err != nil {
		return nil, err
	}
	entity := sharedDomain.RehydrateBaseEntity(roleID, time.Unix(createdAt, 0).UTC(), time.Unix(updatedAt, 0).UTC())
	return domain.RehydrateRole(entity, roleName), nil
}
