package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLSettingRepository implements domain.SettingRepository. Role bindings
// live in setting_role and are rewritten on save.
type SQLSettingRepository struct {
	conn database.Connection
}

// NewSQLSettingRepository creates the repository.
func NewSQLSettingRepository(conn database.Connection) *SQLSettingRepository {
	return &SQLSettingRepository{conn: conn}
}

func (r *SQLSettingRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLSettingRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const settingColumns = `id, user_id, team_id, mode, type, time_before, only_if_involved`

// Save upserts a setting and its role bindings.
func (r *SQLSettingRepository) Save(ctx context.Context, setting *domain.Setting) error {
	query := r.rebind(`
		INSERT INTO notification_setting (` + settingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			mode = excluded.mode,
			type = excluded.type,
			time_before = excluded.time_before,
			only_if_involved = excluded.only_if_involved
	`)
	var timeBefore *int64
	if setting.TimeBefore != nil {
		seconds := int64(*setting.TimeBefore / time.Second)
		timeBefore = &seconds
	}
	var onlyIfInvolved *int
	if setting.OnlyIfInvolved != nil {
		v := boolToInt(*setting.OnlyIfInvolved)
		onlyIfInvolved = &v
	}
	exec := r.exec(ctx)
	if _, err := exec.Exec(ctx, query,
		setting.ID.String(),
		setting.UserID.String(),
		setting.TeamID.String(),
		setting.Mode.String(),
		setting.Type.String(),
		timeBefore,
		onlyIfInvolved,
	); err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, r.rebind(`DELETE FROM setting_role WHERE setting_id = ?`), setting.ID.String()); err != nil {
		return err
	}
	insert := r.rebind(`INSERT INTO setting_role (setting_id, role_id) VALUES (?, ?)`)
	for _, roleID := range setting.RoleIDs {
		if _, err := exec.Exec(ctx, insert, setting.ID.String(), roleID.String()); err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads one setting; nil when absent.
func (r *SQLSettingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Setting, error) {
	settings, err := r.query(ctx, r.rebind(`SELECT `+settingColumns+` FROM notification_setting WHERE id = ?`), id.String())
	if err != nil || len(settings) == 0 {
		return nil, err
	}
	return settings[0], nil
}

// FindByUser lists one user's settings.
func (r *SQLSettingRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Setting, error) {
	return r.query(ctx, r.rebind(`SELECT `+settingColumns+` FROM notification_setting WHERE user_id = ?`), userID.String())
}

// FindForDispatch returns settings matching (team, type) whose role set
// intersects roleIDs.
func (r *SQLSettingRepository) FindForDispatch(ctx context.Context, teamID uuid.UUID, typ domain.Action, roleIDs []uuid.UUID) ([]*domain.Setting, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(roleIDs)), ", ")
	query := r.rebind(`
		SELECT DISTINCT ns.id, ns.user_id, ns.team_id, ns.mode, ns.type, ns.time_before, ns.only_if_involved
		FROM notification_setting ns
		JOIN setting_role sr ON sr.setting_id = ns.id
		WHERE ns.team_id = ? AND ns.type = ? AND sr.role_id IN (` + placeholders + `)
	`)
	args := []any{teamID.String(), typ.String()}
	for _, id := range roleIDs {
		args = append(args, id.String())
	}
	return r.query(ctx, query, args...)
}

// Delete removes a setting; role bindings cascade.
func (r *SQLSettingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx, r.rebind(`DELETE FROM notification_setting WHERE id = ?`), id.String())
	return err
}

func (r *SQLSettingRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Setting, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Setting
	for rows.Next() {
		var s domain.Setting
		var id, userID, teamID, mode, typ string
		var timeBefore *int64
		var onlyIfInvolved *int
		if err := rows.Scan(&id, &userID, &teamID, &mode, &typ, &timeBefore, &onlyIfInvolved); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if s.UserID, err = uuid.Parse(userID); err != nil {
			return nil, err
		}
		if s.TeamID, err = uuid.Parse(teamID); err != nil {
			return nil, err
		}
		parsedMode, err := identityDomain.ParseContactMode(mode)
		if err != nil {
			return nil, err
		}
		s.Mode = parsedMode
		s.Type = domain.Action(typ)
		if timeBefore != nil {
			d := time.Duration(*timeBefore) * time.Second
			s.TimeBefore = &d
		}
		if onlyIfInvolved != nil {
			b := *onlyIfInvolved == 1
			s.OnlyIfInvolved = &b
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, s := range out {
		roleIDs, err := r.roles(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.RoleIDs = roleIDs
	}
	return out, nil
}

func (r *SQLSettingRepository) roles(ctx context.Context, settingID uuid.UUID) ([]uuid.UUID, error) {
	query := r.rebind(`SELECT role_id FROM setting_role WHERE setting_id = ?`)
	rows, err := r.exec(ctx).Query(ctx, query, settingID.String())
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
