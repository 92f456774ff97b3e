package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	domain "github.com/oncall/oncall/internal/scheduling/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
)

// ScheduleService is the CRUD surface for schedule templates. All writes
// run in a unit of work; simple-mode shape violations surface as bad
// requests at this boundary.
type ScheduleService struct {
	schedules domain.ScheduleRepository
	rosters   rosterDomain.RosterRepository
	roles     rosterDomain.RoleRepository
	uow       sharedApplication.UnitOfWork
}

// NewScheduleService wires the schedule CRUD surface.
func NewScheduleService(schedules domain.ScheduleRepository, rosters rosterDomain.RosterRepository, roles rosterDomain.RoleRepository, uow sharedApplication.UnitOfWork) *ScheduleService {
	return &ScheduleService{schedules: schedules, rosters: rosters, roles: roles, uow: uow}
}

// CreateScheduleInput is the POST /teams/{team}/schedules body.
type CreateScheduleInput struct {
	TeamID       uuid.UUID
	RosterID     uuid.UUID
	RoleName     string
	SchedulerID  string
	AdvancedMode bool
	Threshold    time.Duration
	Events       []domain.ScheduleEvent
	Order        []uuid.UUID
}

// Create validates and persists a new schedule template.
func (s *ScheduleService) Create(ctx context.Context, in CreateScheduleInput) (uuid.UUID, error) {
	roleName, err := rosterDomain.NewRoleName(in.RoleName)
	if err != nil {
		return uuid.Nil, core.BadRequest("invalid role name")
	}
	var id uuid.UUID
	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		role, err := s.roles.FindByName(txCtx, roleName)
		if err != nil {
			return err
		}
		if role == nil {
			return core.Conflict("role %s not found", in.RoleName)
		}
		roster, err := s.rosters.FindByID(txCtx, in.RosterID)
		if err != nil {
			return err
		}
		if roster == nil {
			return core.NotFound("roster %s not found", in.RosterID)
		}

		schedule := domain.NewSchedule(in.TeamID, in.RosterID, role.ID(), in.SchedulerID, in.AdvancedMode, in.Threshold)
		if err := schedule.SetEvents(in.Events); err != nil {
			if errors.Is(err, domain.ErrNonSimpleRequiresAdvancedMode) {
				return core.BadRequest("schedule events do not fit simple mode; enable advanced mode")
			}
			return core.BadRequest("invalid schedule events")
		}
		if len(in.Order) > 0 {
			schedule.SetOrder(in.Order)
		}
		if err := s.schedules.Save(txCtx, schedule); err != nil {
			return err
		}
		id = schedule.ID()
		return nil
	})
	return id, err
}

// UpdateScheduleInput carries the optional subset of mutable attributes.
type UpdateScheduleInput struct {
	Events    []domain.ScheduleEvent // nil means unchanged
	Order     []uuid.UUID            // nil means unchanged
	Threshold *time.Duration
}

// Update applies a partial update to a schedule.
func (s *ScheduleService) Update(ctx context.Context, id uuid.UUID, in UpdateScheduleInput) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		schedule, err := s.schedules.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return core.NotFound("schedule %s not found", id)
		}
		if in.Events != nil {
			if err := schedule.SetEvents(in.Events); err != nil {
				if errors.Is(err, domain.ErrNonSimpleRequiresAdvancedMode) {
					return core.BadRequest("schedule events do not fit simple mode; enable advanced mode")
				}
				return core.BadRequest("invalid schedule events")
			}
		}
		if in.Order != nil {
			schedule.SetOrder(in.Order)
		}
		return s.schedules.Save(txCtx, schedule)
	})
}

// Delete removes a schedule template. Materialized events are left in
// place; only future auto-population stops.
func (s *ScheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		schedule, err := s.schedules.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return core.NotFound("schedule %s not found", id)
		}
		return s.schedules.Delete(txCtx, id)
	})
}

// Get loads one schedule.
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, core.NotFound("schedule %s not found", id)
	}
	return schedule, nil
}

// ForTeam lists a team's schedules.
func (s *ScheduleService) ForTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Schedule, error) {
	return s.schedules.FindByTeam(ctx, teamID)
}
