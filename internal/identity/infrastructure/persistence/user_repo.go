// Package persistence implements the identity repositories: users with
// their contact rows, and the application table backing HMAC auth.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/identity/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLUserRepository implements domain.UserRepository.
type SQLUserRepository struct {
	conn database.Connection
}

// NewSQLUserRepository creates the repository.
func NewSQLUserRepository(conn database.Connection) *SQLUserRepository {
	return &SQLUserRepository{conn: conn}
}

func (r *SQLUserRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLUserRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save upserts the user row and rewrites its contact rows.
func (r *SQLUserRepository) Save(ctx context.Context, user *domain.User) error {
	query := r.rebind(`
		INSERT INTO "user" (id, name, full_name, time_zone, photo_url, active, god, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			full_name = excluded.full_name,
			time_zone = excluded.time_zone,
			photo_url = excluded.photo_url,
			active = excluded.active,
			god = excluded.god,
			updated_at = excluded.updated_at,
			version = "user".version + 1
	`)
	exec := r.exec(ctx)
	if _, err := exec.Exec(ctx, query,
		user.ID().String(),
		user.Name().String(),
		user.FullName(),
		user.TimeZone(),
		user.PhotoURL(),
		boolToInt(user.Active()),
		boolToInt(user.God()),
		user.CreatedAt().Unix(),
		user.UpdatedAt().Unix(),
		user.Version(),
	); err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, r.rebind(`DELETE FROM user_contact WHERE user_id = ?`), user.ID().String()); err != nil {
		return err
	}
	insert := r.rebind(`INSERT INTO user_contact (user_id, mode, destination) VALUES (?, ?, ?)`)
	for _, c := range user.Contacts() {
		if _, err := exec.Exec(ctx, insert, user.ID().String(), c.Mode.String(), c.Destination); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, name, full_name, time_zone, photo_url, active, god, created_at, updated_at, version`

// FindByID loads one user with contacts; nil when absent.
func (r *SQLUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	users, err := r.query(ctx, r.rebind(`SELECT `+userColumns+` FROM "user" WHERE id = ?`), id.String())
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// FindByName loads one user by handle; nil when absent.
func (r *SQLUserRepository) FindByName(ctx context.Context, name domain.UserName) (*domain.User, error) {
	users, err := r.query(ctx, r.rebind(`SELECT `+userColumns+` FROM "user" WHERE name = ?`), name.String())
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// ExistsByName reports whether the handle is taken.
func (r *SQLUserRepository) ExistsByName(ctx context.Context, name domain.UserName) (bool, error) {
	var count int
	query := r.rebind(`SELECT COUNT(1) FROM "user" WHERE name = ?`)
	if err := r.exec(ctx).QueryRow(ctx, query, name.String()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindWithFutureEventsMissingCallContact supports the user validator.
func (r *SQLUserRepository) FindWithFutureEventsMissingCallContact(ctx context.Context) ([]*domain.User, error) {
	query := r.rebind(`
		SELECT DISTINCT ` + qualify(userColumns, "u") + `
		FROM "user" u
		JOIN event e ON e.user_id = u.id AND e.start > ?
		WHERE NOT EXISTS (
			SELECT 1 FROM user_contact uc WHERE uc.user_id = u.id AND uc.mode = 'call'
		)
	`)
	return r.query(ctx, query, time.Now().UTC().Unix())
}

func qualify(columns, alias string) string {
	out := ""
	for i, c := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(columns); i++ {
		if i == len(columns) || columns[i] == ',' {
			col := columns[start:i]
			for len(col) > 0 && col[0] == ' ' {
				col = col[1:]
			}
			if col != "" {
				out = append(out, col)
			}
			start = i + 1
		}
	}
	return out
}

func (r *SQLUserRepository) query(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type userRow struct {
		id                           uuid.UUID
		name                         domain.UserName
		fullName, timeZone, photoURL string
		active, god                  bool
		createdAt, updatedAt         time.Time
		version                      int
	}
	var rowData []userRow
	for rows.Next() {
		var (
			id, name, fullName, timeZone, photoURL string
			active, god                            int
			createdAt, updatedAt                   int64
			version                                int
		)
		if err := rows.Scan(&id, &name, &fullName, &timeZone, &photoURL, &active, &god, &createdAt, &updatedAt, &version); err != nil {
			return nil, err
		}
		userID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		userName, err := domain.NewUserName(name)
		if err != nil {
			return nil, err
		}
		rowData = append(rowData, userRow{
			id: userID, name: userName, fullName: fullName, timeZone: timeZone, photoURL: photoURL,
			active: active == 1, god: god == 1,
			createdAt: time.Unix(createdAt, 0).UTC(), updatedAt: time.Unix(updatedAt, 0).UTC(),
			version: version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var users []*domain.User
	for _, row := range rowData {
		contacts, err := r.contacts(ctx, row.id)
		if err != nil {
			return nil, err
		}
		entity := sharedDomain.RehydrateBaseEntity(row.id, row.createdAt, row.updatedAt)
		users = append(users, domain.RehydrateUser(entity, row.version, row.name, row.fullName, row.timeZone, row.photoURL, row.active, row.god, contacts))
	}
	return users, nil
}

func (r *SQLUserRepository) contacts(ctx context.Context, userID uuid.UUID) ([]domain.Contact, error) {
	query := r.rebind(`SELECT mode, destination FROM user_contact WHERE user_id = ? ORDER BY mode`)
	rows, err := r.exec(ctx).Query(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var mode, destination string
		if err := rows.Scan(&mode, &destination); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseContactMode(mode)
		if err != nil {
			continue
		}
		contacts = append(contacts, domain.Contact{Mode: parsed, Destination: destination})
	}
	return contacts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
