package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	calendarDomain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	domain "github.com/oncall/oncall/internal/scheduling/domain"
	sharedApplication "github.com/oncall/oncall/internal/shared/application"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/pkg/observability"
)

// eventSink receives materialized events. The canonical sink is the
// event repository; preview substitutes an in-memory shadow.
type eventSink interface {
	Save(ctx context.Context, event *calendarDomain.Event) error
}

// Engine materializes schedule templates into concrete events over the
// sliding horizon, respecting the one-event-per-(team,role)-instant
// invariant and never touching pre-existing events.
type Engine struct {
	teams     rosterDomain.TeamRepository
	rosters   rosterDomain.RosterRepository
	schedules domain.ScheduleRepository
	events    calendarDomain.EventRepository
	members   rosterDomain.MembershipRepository
	registry  *Registry
	uow       sharedApplication.UnitOfWork
	logger    *slog.Logger
	metrics   observability.Metrics
	clock     core.Clock
}

// NewEngine wires the scheduler engine.
func NewEngine(
	teams rosterDomain.TeamRepository,
	rosters rosterDomain.RosterRepository,
	schedules domain.ScheduleRepository,
	events calendarDomain.EventRepository,
	members rosterDomain.MembershipRepository,
	registry *Registry,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
	metrics observability.Metrics,
	clock core.Clock,
) *Engine {
	if clock == nil {
		clock = core.SystemClock
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Engine{
		teams:     teams,
		rosters:   rosters,
		schedules: schedules,
		events:    events,
		members:   members,
		registry:  registry,
		uow:       uow,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// RunCycle processes every active team once. Each team runs in its own
// transaction; a failing team is logged and skipped so the rest of the
// cycle still runs.
func (e *Engine) RunCycle(ctx context.Context) {
	started := e.clock()
	teams, err := e.teams.FindActive(ctx)
	if err != nil {
		e.logger.Error("scheduler cycle aborted: listing active teams", "error", err)
		return
	}
	for _, team := range teams {
		team := team
		err := sharedApplication.WithUnitOfWork(ctx, e.uow, func(txCtx context.Context) error {
			return e.populateTeam(txCtx, team)
		})
		if err != nil {
			e.logger.Error("scheduling team failed", "team", team.Name().String(), "error", err)
			e.metrics.Counter("scheduler.team_errors", 1)
			continue
		}
	}
	e.metrics.Timing("scheduler.cycle", e.clock().Sub(started))
}

// populateTeam materializes all of one team's schedules up to each
// schedule's own horizon.
func (e *Engine) populateTeam(ctx context.Context, team *rosterDomain.Team) error {
	schedules, err := e.schedules.FindByTeam(ctx, team.ID())
	if err != nil {
		return err
	}
	now := e.clock()
	for _, schedule := range schedules {
		from := now
		if last := schedule.LastEpochScheduled(); last != nil {
			from = last.Add(schedule.CycleDuration())
			if from.Before(now) {
				from = now
			}
		}
		until := now.Add(schedule.AutoPopulateThreshold())
		if err := e.populate(ctx, team, schedule, from, until, e.events, e.baseView()); err != nil {
			return err
		}
		if err := e.schedules.Save(ctx, schedule); err != nil {
			return err
		}
	}
	return nil
}

// Populate is the manual populate endpoint: materialize one schedule from
// startTime forward to its horizon. Fails if startTime is in the past
// beyond the grace period.
func (e *Engine) Populate(ctx context.Context, scheduleID uuid.UUID, startTime time.Time) error {
	now := e.clock()
	if startTime.Before(now.Add(-core.GracePeriod)) {
		return core.BadRequest("populate start time cannot be in the past")
	}
	return sharedApplication.WithUnitOfWork(ctx, e.uow, func(txCtx context.Context) error {
		schedule, team, err := e.loadScheduleTeam(txCtx, scheduleID)
		if err != nil {
			return err
		}
		until := now.Add(schedule.AutoPopulateThreshold())
		if err := e.populate(txCtx, team, schedule, startTime, until, e.events, e.baseView()); err != nil {
			return err
		}
		return e.schedules.Save(txCtx, schedule)
	})
}

// Preview materializes one schedule into a session-scoped shadow store
// and returns the would-be events without committing anything.
func (e *Engine) Preview(ctx context.Context, scheduleID uuid.UUID, startTime time.Time) ([]*calendarDomain.Event, error) {
	schedule, team, err := e.loadScheduleTeam(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	if startTime.IsZero() {
		startTime = now
	}
	until := now.Add(schedule.AutoPopulateThreshold())

	shadow := newShadowStore(e.baseView())
	if err := e.populate(ctx, team, schedule, startTime, until, shadow, shadow); err != nil {
		return nil, err
	}
	return shadow.events, nil
}

func (e *Engine) loadScheduleTeam(ctx context.Context, scheduleID uuid.UUID) (*domain.Schedule, *rosterDomain.Team, error) {
	schedule, err := e.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, err
	}
	if schedule == nil {
		return nil, nil, core.NotFound("schedule %s not found", scheduleID)
	}
	team, err := e.teams.FindByID(ctx, schedule.TeamID())
	if err != nil {
		return nil, nil, err
	}
	if team == nil {
		return nil, nil, core.NotFound("team for schedule %s not found", scheduleID)
	}
	return schedule, team, nil
}

// populate runs the core materialization loop for one schedule over
// [from, until). Shifts whose interval intersects any existing
// (team, role) event are skipped: pre-existing events, manual overrides
// included, are fixed points. The cursor advances only for shifts that
// actually produced an event.
func (e *Engine) populate(ctx context.Context, team *rosterDomain.Team, schedule *domain.Schedule, from, until time.Time, sink eventSink, view CalendarView) error {
	loc, err := team.Location()
	if err != nil {
		return core.BadRequest("team %s has invalid scheduling timezone", team.Name().String())
	}
	picker, err := e.registry.Get(schedule.SchedulerID())
	if err != nil {
		return core.BadRequest("schedule references unknown scheduler %s", schedule.SchedulerID())
	}
	roster, err := e.rosters.FindByID(ctx, schedule.RosterID())
	if err != nil {
		return err
	}
	if roster == nil {
		return core.NotFound("roster for schedule %s not found", schedule.ID())
	}

	produced := 0
	for _, shift := range ExpandShifts(schedule.Events(), from, until, loc) {
		overlap, err := view.HasOverlap(ctx, team.ID(), schedule.RoleID(), shift)
		if err != nil {
			return err
		}
		if overlap {
			continue
		}

		pc := PickContext{
			TeamID:   team.ID(),
			RoleID:   schedule.RoleID(),
			Roster:   roster,
			Order:    schedule.Order(),
			LastUser: schedule.LastScheduledUserID(),
			Shift:    shift,
		}
		userID, found, err := picker.Pick(ctx, view, pc)
		if err != nil {
			return err
		}
		if !found {
			e.logger.Warn("no eligible user for shift, skipping",
				"team", team.Name().String(), "schedule", schedule.ID().String(), "shift_start", shift.Start())
			continue
		}

		scheduleID := schedule.ID()
		event, err := calendarDomain.NewEvent(team.ID(), schedule.RoleID(), userID, shift.Start(), shift.End(), &scheduleID, nil)
		if err != nil {
			return err
		}
		if err := sink.Save(ctx, event); err != nil {
			return err
		}
		schedule.AdvanceCursor(shift.Start(), userID)
		produced++
	}
	if produced > 0 {
		e.metrics.Counter("scheduler.events_created", int64(produced), observability.T("team", team.Name().String()))
	}
	return nil
}

// baseView adapts the event and membership repositories to CalendarView.
func (e *Engine) baseView() CalendarView {
	return &repoView{events: e.events, members: e.members}
}

type repoView struct {
	events  calendarDomain.EventRepository
	members rosterDomain.MembershipRepository
}

func (v *repoView) IsBusy(ctx context.Context, teamID, userID uuid.UUID, shift sharedDomain.TimeRange) (bool, error) {
	busy, err := v.events.FindBusy(ctx, teamID, userID, shift.Start(), shift.End())
	if err != nil {
		return false, err
	}
	return len(busy) > 0, nil
}

func (v *repoView) HasOverlap(ctx context.Context, teamID, roleID uuid.UUID, shift sharedDomain.TimeRange) (bool, error) {
	overlapping, err := v.events.FindOverlapping(ctx, teamID, roleID, shift.Start(), shift.End())
	if err != nil {
		return false, err
	}
	return len(overlapping) > 0, nil
}

func (v *repoView) LastShiftEnd(ctx context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (time.Time, error) {
	event, err := v.events.LastBefore(ctx, teamID, roleID, userID, before)
	if err != nil {
		return time.Time{}, err
	}
	if event == nil {
		return time.Time{}, nil
	}
	return event.End(), nil
}

func (v *repoView) NextShiftStart(ctx context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (time.Time, error) {
	event, err := v.events.NextAfter(ctx, teamID, roleID, userID, after)
	if err != nil {
		return time.Time{}, err
	}
	if event == nil {
		return time.Time{}, nil
	}
	return event.Start(), nil
}

func (v *repoView) IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	return v.members.IsTeamUser(ctx, teamID, userID)
}

// shadowStore is the preview backing: events save into memory and the
// view overlays them on top of the canonical calendar so later shifts in
// the same preview see earlier ones as busy.
type shadowStore struct {
	base   CalendarView
	events []*calendarDomain.Event
}

func newShadowStore(base CalendarView) *shadowStore {
	return &shadowStore{base: base}
}

func (s *shadowStore) Save(_ context.Context, event *calendarDomain.Event) error {
	s.events = append(s.events, event)
	return nil
}

func (s *shadowStore) IsBusy(ctx context.Context, teamID, userID uuid.UUID, shift sharedDomain.TimeRange) (bool, error) {
	for _, ev := range s.events {
		if ev.TeamID() == teamID && ev.UserID() == userID && ev.Overlaps(shift.Start(), shift.End()) {
			return true, nil
		}
	}
	return s.base.IsBusy(ctx, teamID, userID, shift)
}

func (s *shadowStore) HasOverlap(ctx context.Context, teamID, roleID uuid.UUID, shift sharedDomain.TimeRange) (bool, error) {
	for _, ev := range s.events {
		if ev.TeamID() == teamID && ev.RoleID() == roleID && ev.Overlaps(shift.Start(), shift.End()) {
			return true, nil
		}
	}
	return s.base.HasOverlap(ctx, teamID, roleID, shift)
}

func (s *shadowStore) LastShiftEnd(ctx context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (time.Time, error) {
	last, err := s.base.LastShiftEnd(ctx, teamID, roleID, userID, before)
	if err != nil {
		return time.Time{}, err
	}
	for _, ev := range s.events {
		if ev.TeamID() == teamID && ev.RoleID() == roleID && ev.UserID() == userID &&
			!ev.End().After(before) && ev.End().After(last) {
			last = ev.End()
		}
	}
	return last, nil
}

func (s *shadowStore) NextShiftStart(ctx context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (time.Time, error) {
	next, err := s.base.NextShiftStart(ctx, teamID, roleID, userID, after)
	if err != nil {
		return time.Time{}, err
	}
	for _, ev := range s.events {
		if ev.TeamID() != teamID || ev.RoleID() != roleID || ev.UserID() != userID {
			continue
		}
		if ev.Start().Before(after) {
			continue
		}
		if next.IsZero() || ev.Start().Before(next) {
			next = ev.Start()
		}
	}
	return next, nil
}

func (s *shadowStore) IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	return s.base.IsTeamMember(ctx, teamID, userID)
}
