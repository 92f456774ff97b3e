// Package persistence implements the schedule repository, including the
// owned schedule_event template rows and the round-robin order.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/scheduling/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLScheduleRepository implements domain.ScheduleRepository.
type SQLScheduleRepository struct {
	conn database.Connection
}

// NewSQLScheduleRepository creates the repository.
func NewSQLScheduleRepository(conn database.Connection) *SQLScheduleRepository {
	return &SQLScheduleRepository{conn: conn}
}

func (r *SQLScheduleRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLScheduleRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const scheduleColumns = `id, team_id, roster_id, role_id, advanced_mode, auto_populate_threshold, scheduler_name, last_epoch_scheduled, last_scheduled_user_id, created_at, updated_at, version`

// Save upserts the schedule row and rewrites its template and order rows.
func (r *SQLScheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	query := r.rebind(`
		INSERT INTO schedule (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			roster_id = excluded.roster_id,
			role_id = excluded.role_id,
			advanced_mode = excluded.advanced_mode,
			auto_populate_threshold = excluded.auto_populate_threshold,
			scheduler_name = excluded.scheduler_name,
			last_epoch_scheduled = excluded.last_epoch_scheduled,
			last_scheduled_user_id = excluded.last_scheduled_user_id,
			updated_at = excluded.updated_at,
			version = schedule.version + 1
	`)
	var lastEpoch *int64
	if t := schedule.LastEpochScheduled(); t != nil {
		unix := t.Unix()
		lastEpoch = &unix
	}
	var lastUser *string
	if id := schedule.LastScheduledUserID(); id != nil {
		s := id.String()
		lastUser = &s
	}
	exec := r.exec(ctx)
	if _, err := exec.Exec(ctx, query,
		schedule.ID().String(),
		schedule.TeamID().String(),
		schedule.RosterID().String(),
		schedule.RoleID().String(),
		boolToInt(schedule.AdvancedMode()),
		int(schedule.AutoPopulateThreshold()/(24*time.Hour)),
		schedule.SchedulerID(),
		lastEpoch,
		lastUser,
		schedule.CreatedAt().Unix(),
		schedule.UpdatedAt().Unix(),
		schedule.Version(),
	); err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, r.rebind(`DELETE FROM schedule_event WHERE schedule_id = ?`), schedule.ID().String()); err != nil {
		return err
	}
	insertEvent := r.rebind(`INSERT INTO schedule_event (schedule_id, start, duration) VALUES (?, ?, ?)`)
	for _, ev := range schedule.Events() {
		if _, err := exec.Exec(ctx, insertEvent, schedule.ID().String(), int64(ev.StartOffset/time.Second), int64(ev.Duration/time.Second)); err != nil {
			return err
		}
	}

	if _, err := exec.Exec(ctx, r.rebind(`DELETE FROM schedule_order WHERE schedule_id = ?`), schedule.ID().String()); err != nil {
		return err
	}
	insertOrder := r.rebind(`INSERT INTO schedule_order (schedule_id, user_id, priority) VALUES (?, ?, ?)`)
	for i, userID := range schedule.Order() {
		if _, err := exec.Exec(ctx, insertOrder, schedule.ID().String(), userID.String(), i); err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads one schedule; nil when absent.
func (r *SQLScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	schedules, err := r.query(ctx, r.rebind(`SELECT `+scheduleColumns+` FROM schedule WHERE id = ?`), id.String())
	if err != nil || len(schedules) == 0 {
		return nil, err
	}
	return schedules[0], nil
}

// FindByTeam lists a team's schedules.
func (r *SQLScheduleRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Schedule, error) {
	return r.query(ctx, r.rebind(`SELECT `+scheduleColumns+` FROM schedule WHERE team_id = ? ORDER BY created_at`), teamID.String())
}

// FindByRoster lists a roster's schedules (cascade target on roster
// delete).
func (r *SQLScheduleRepository) FindByRoster(ctx context.Context, rosterID uuid.UUID) ([]*domain.Schedule, error) {
	return r.query(ctx, r.rebind(`SELECT `+scheduleColumns+` FROM schedule WHERE roster_id = ? ORDER BY created_at`), rosterID.String())
}

// FindActive lists schedules of active teams.
func (r *SQLScheduleRepository) FindActive(ctx context.Context) ([]*domain.Schedule, error) {
	return r.query(ctx, `
		SELECT `+qualify(scheduleColumns, "s")+`
		FROM schedule s
		JOIN team t ON t.id = s.team_id
		WHERE t.active = 1
		ORDER BY s.created_at
	`)
}

// Delete removes a schedule; template and order rows cascade.
func (r *SQLScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx, r.rebind(`DELETE FROM schedule WHERE id = ?`), id.String())
	return err
}

func (r *SQLScheduleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := r.exec(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scheduleRow struct {
		id, teamID, rosterID, roleID uuid.UUID
		advancedMode                 bool
		thresholdDays                int
		schedulerName                string
		lastEpoch                    *time.Time
		lastUser                     *uuid.UUID
		createdAt, updatedAt         time.Time
		version                      int
	}
	var rowData []scheduleRow
	for rows.Next() {
		var (
			id, teamID, rosterID, roleID, schedulerName string
			advancedMode, thresholdDays, version        int
			lastEpoch                                   *int64
			lastUser                                    *string
			createdAt, updatedAt                        int64
		)
		if err := rows.Scan(&id, &teamID, &rosterID, &roleID, &advancedMode, &thresholdDays, &schedulerName, &lastEpoch, &lastUser, &createdAt, &updatedAt, &version); err != nil {
			return nil, err
		}
		row := scheduleRow{
			advancedMode:  advancedMode == 1,
			thresholdDays: thresholdDays,
			schedulerName: schedulerName,
			createdAt:     time.Unix(createdAt, 0).UTC(),
			updatedAt:     time.Unix(updatedAt, 0).UTC(),
			version:       version,
		}
		if row.id, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if row.teamID, err = uuid.Parse(teamID); err != nil {
			return nil, err
		}
		if row.rosterID, err = uuid.Parse(rosterID); err != nil {
			return nil, err
		}
		if row.roleID, err = uuid.Parse(roleID); err != nil {
			return nil, err
		}
		if lastEpoch != nil {
			t := time.Unix(*lastEpoch, 0).UTC()
			row.lastEpoch = &t
		}
		if lastUser != nil {
			parsed, err := uuid.Parse(*lastUser)
			if err != nil {
				return nil, err
			}
			row.lastUser = &parsed
		}
		rowData = append(rowData, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var schedules []*domain.Schedule
	for _, row := range rowData {
		events, err := r.events(ctx, row.id)
		if err != nil {
			return nil, err
		}
		order, err := r.order(ctx, row.id)
		if err != nil {
			return nil, err
		}
		entity := sharedDomain.RehydrateBaseEntity(row.id, row.createdAt, row.updatedAt)
		schedule := domain.RehydrateSchedule(entity, row.version,
			row.teamID, row.rosterID, row.roleID,
			time.Duration(row.thresholdDays)*24*time.Hour,
			row.advancedMode, row.schedulerName, events, order, row.lastEpoch, row.lastUser)
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func (r *SQLScheduleRepository) events(ctx context.Context, scheduleID uuid.UUID) ([]domain.ScheduleEvent, error) {
	query := r.rebind(`SELECT start, duration FROM schedule_event WHERE schedule_id = ? ORDER BY start`)
	rows, err := r.exec(ctx).Query(ctx, query, scheduleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ScheduleEvent
	for rows.Next() {
		var start, duration int64
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, err
		}
		events = append(events, domain.ScheduleEvent{
			StartOffset: time.Duration(start) * time.Second,
			Duration:    time.Duration(duration) * time.Second,
		})
	}
	return events, rows.Err()
}

func (r *SQLScheduleRepository) order(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	query := r.rebind(`SELECT user_id FROM schedule_order WHERE schedule_id = ? ORDER BY priority`)
	rows, err := r.exec(ctx).Query(ctx, query, scheduleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var order []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		order = append(order, id)
	}
	return order, rows.Err()
}

func qualify(columns, alias string) string {
	out := ""
	field := ""
	flush := func() {
		if field == "" {
			return
		}
		if out != "" {
			out += ", "
		}
		out += alias + "." + field
		field = ""
	}
	for i := 0; i < len(columns); i++ {
		switch columns[i] {
		case ',':
			flush()
		case ' ':
		default:
			field += string(columns[i])
		}
	}
	flush()
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
