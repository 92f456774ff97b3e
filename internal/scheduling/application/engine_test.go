package application

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarDomain "github.com/oncall/oncall/internal/calendar/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	domain "github.com/oncall/oncall/internal/scheduling/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
	"github.com/oncall/oncall/pkg/observability"
)

// monday is 2023-11-06 00:00 UTC, a Monday, so week anchoring is exact.
var monday = time.Date(2023, 11, 6, 0, 0, 0, 0, time.UTC)

type memoryEvents struct {
	events []*calendarDomain.Event
}

func (r *memoryEvents) Save(_ context.Context, e *calendarDomain.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *memoryEvents) SaveAll(ctx context.Context, events []*calendarDomain.Event) error {
	for _, e := range events {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryEvents) FindByID(_ context.Context, id uuid.UUID) (*calendarDomain.Event, error) {
	for _, e := range r.events {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memoryEvents) FindByIDs(_ context.Context, _ []uuid.UUID) ([]*calendarDomain.Event, error) {
	return nil, nil
}

func (r *memoryEvents) FindByLinkID(_ context.Context, _ string) ([]*calendarDomain.Event, error) {
	return nil, nil
}

func (r *memoryEvents) Delete(_ context.Context, _ uuid.UUID) error      { return nil }
func (r *memoryEvents) DeleteByLinkID(_ context.Context, _ string) error { return nil }
func (r *memoryEvents) DeleteFutureByTeam(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (r *memoryEvents) FindOverlapping(_ context.Context, teamID, roleID uuid.UUID, start, end time.Time) ([]*calendarDomain.Event, error) {
	var out []*calendarDomain.Event
	for _, e := range r.events {
		if e.TeamID() == teamID && e.RoleID() == roleID && e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEvents) FindBusy(_ context.Context, teamID, userID uuid.UUID, start, end time.Time) ([]*calendarDomain.Event, error) {
	var out []*calendarDomain.Event
	for _, e := range r.events {
		if e.TeamID() == teamID && e.UserID() == userID && e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEvents) FindByScheduleSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]*calendarDomain.Event, error) {
	return nil, nil
}

func (r *memoryEvents) LastBefore(_ context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (*calendarDomain.Event, error) {
	var best *calendarDomain.Event
	for _, e := range r.events {
		if e.TeamID() != teamID || e.RoleID() != roleID || e.UserID() != userID || e.End().After(before) {
			continue
		}
		if best == nil || e.End().After(best.End()) {
			best = e
		}
	}
	return best, nil
}

func (r *memoryEvents) NextAfter(_ context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (*calendarDomain.Event, error) {
	var best *calendarDomain.Event
	for _, e := range r.events {
		if e.TeamID() != teamID || e.RoleID() != roleID || e.UserID() != userID || e.Start().Before(after) {
			continue
		}
		if best == nil || e.Start().Before(best.Start()) {
			best = e
		}
	}
	return best, nil
}

func (r *memoryEvents) Query(_ context.Context, _ calendarDomain.ListQuery) ([]*calendarDomain.Event, error) {
	return nil, nil
}

func (r *memoryEvents) ForTeamSince(_ context.Context, _ uuid.UUID, _ time.Time, _ []uuid.UUID) ([]*calendarDomain.Event, error) {
	return nil, nil
}

func (r *memoryEvents) ForUserSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]*calendarDomain.Event, error) {
	return nil, nil
}

type memoryTeams struct {
	teams map[uuid.UUID]*rosterDomain.Team
}

func (r *memoryTeams) Save(_ context.Context, t *rosterDomain.Team) error {
	r.teams[t.ID()] = t
	return nil
}
func (r *memoryTeams) FindByID(_ context.Context, id uuid.UUID) (*rosterDomain.Team, error) {
	return r.teams[id], nil
}
func (r *memoryTeams) FindByName(_ context.Context, name rosterDomain.TeamName) (*rosterDomain.Team, error) {
	for _, t := range r.teams {
		if t.Name().Equals(name) {
			return t, nil
		}
	}
	return nil, nil
}
func (r *memoryTeams) FindActive(_ context.Context) ([]*rosterDomain.Team, error) {
	var out []*rosterDomain.Team
	for _, t := range r.teams {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}
func (r *memoryTeams) ExistsByName(_ context.Context, _ rosterDomain.TeamName) (bool, error) {
	return false, nil
}

type memoryRosters struct {
	rosters map[uuid.UUID]*rosterDomain.Roster
}

func (r *memoryRosters) Save(_ context.Context, roster *rosterDomain.Roster) error {
	r.rosters[roster.ID()] = roster
	return nil
}
func (r *memoryRosters) FindByID(_ context.Context, id uuid.UUID) (*rosterDomain.Roster, error) {
	return r.rosters[id], nil
}
func (r *memoryRosters) FindByTeamAndName(_ context.Context, _ uuid.UUID, _ rosterDomain.RosterName) (*rosterDomain.Roster, error) {
	return nil, nil
}
func (r *memoryRosters) FindByTeam(_ context.Context, _ uuid.UUID) ([]*rosterDomain.Roster, error) {
	return nil, nil
}
func (r *memoryRosters) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type memorySchedules struct {
	schedules map[uuid.UUID]*domain.Schedule
}

func (r *memorySchedules) Save(_ context.Context, s *domain.Schedule) error {
	r.schedules[s.ID()] = s
	return nil
}
func (r *memorySchedules) FindByID(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return r.schedules[id], nil
}
func (r *memorySchedules) FindByTeam(_ context.Context, teamID uuid.UUID) ([]*domain.Schedule, error) {
	var out []*domain.Schedule
	for _, s := range r.schedules {
		if s.TeamID() == teamID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (r *memorySchedules) FindByRoster(_ context.Context, _ uuid.UUID) ([]*domain.Schedule, error) {
	return nil, nil
}
func (r *memorySchedules) FindActive(_ context.Context) ([]*domain.Schedule, error) { return nil, nil }
func (r *memorySchedules) Delete(_ context.Context, _ uuid.UUID) error              { return nil }

type allMembers struct{}

func (allMembers) IsTeamAdmin(_ context.Context, _, _ uuid.UUID) (bool, error) { return false, nil }
func (allMembers) IsTeamUser(_ context.Context, _, _ uuid.UUID) (bool, error)  { return true, nil }
func (allMembers) AdminTeamIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (allMembers) AddAdmin(_ context.Context, _, _ uuid.UUID) error    { return nil }
func (allMembers) AddUser(_ context.Context, _, _ uuid.UUID) error     { return nil }
func (allMembers) RemoveAdmin(_ context.Context, _, _ uuid.UUID) error { return nil }
func (allMembers) RemoveUser(_ context.Context, _, _ uuid.UUID) error  { return nil }

type engineFixture struct {
	engine   *Engine
	events   *memoryEvents
	team     *rosterDomain.Team
	roster   *rosterDomain.Roster
	schedule *domain.Schedule
	userA    uuid.UUID
	userB    uuid.UUID
	userC    uuid.UUID
}

// orderedIDs returns three uuids with ascending byte order so the final
// fairness tie-break is deterministic in the test.
func orderedIDs() (a, b, c uuid.UUID) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids[0], ids[1], ids[2]
}

func newEngineFixture(t *testing.T, schedulerID string, events []domain.ScheduleEvent, thresholdDays int) *engineFixture {
	t.Helper()
	teamName, err := rosterDomain.NewTeamName("ops")
	require.NoError(t, err)
	team, err := rosterDomain.NewTeam(teamName, "UTC")
	require.NoError(t, err)

	rosterName, err := rosterDomain.NewRosterName("weekly")
	require.NoError(t, err)
	roster := rosterDomain.NewRoster(team.ID(), rosterName)
	a, b, c := orderedIDs()
	roster.AddMember(a, true)
	roster.AddMember(b, true)
	roster.AddMember(c, true)

	schedule := domain.RehydrateSchedule(
		sharedDomain.RehydrateBaseEntity(uuid.New(), monday, monday), 0,
		team.ID(), roster.ID(), uuid.New(),
		time.Duration(thresholdDays)*24*time.Hour,
		true, schedulerID, domain.NormalizeScheduleEvents(events), []uuid.UUID{a, b, c}, nil, nil)

	eventRepo := &memoryEvents{}
	teams := &memoryTeams{teams: map[uuid.UUID]*rosterDomain.Team{team.ID(): team}}
	rosters := &memoryRosters{rosters: map[uuid.UUID]*rosterDomain.Roster{roster.ID(): roster}}
	schedules := &memorySchedules{schedules: map[uuid.UUID]*domain.Schedule{schedule.ID(): schedule}}

	registry := NewRegistry()
	registry.Register(NewDefaultScheduler())
	registry.Register(NewRoundRobinScheduler())

	engine := NewEngine(teams, rosters, schedules, eventRepo, allMembers{}, registry,
		noopUoW{}, slog.Default(), observability.NoopMetrics{},
		func() time.Time { return monday })

	return &engineFixture{
		engine:   engine,
		events:   eventRepo,
		team:     team,
		roster:   roster,
		schedule: schedule,
		userA:    a, userB: b, userC: c,
	}
}

type noopUoW struct{}

func (noopUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (noopUoW) Commit(context.Context) error                       { return nil }
func (noopUoW) Rollback(context.Context) error                     { return nil }

// twelveHourShifts builds n consecutive 12h schedule events starting at
// the week anchor.
func twelveHourShifts(n int) []domain.ScheduleEvent {
	var out []domain.ScheduleEvent
	for i := 0; i < n; i++ {
		out = append(out, domain.ScheduleEvent{
			StartOffset: time.Duration(i) * 12 * time.Hour,
			Duration:    12 * time.Hour,
		})
	}
	return out
}

func TestFairUseDeterminism(t *testing.T) {
	// Seven 12h shifts, three users, no prior events: fairness falls
	// through to priority then id, producing the A,B,C,A,B,C,A rotation.
	// Shifts are spaced a day apart so the normalizer doesn't coalesce
	// them into one block.
	events := []domain.ScheduleEvent{
		{StartOffset: 0, Duration: 12 * time.Hour},
		{StartOffset: 24 * time.Hour, Duration: 12 * time.Hour},
		{StartOffset: 48 * time.Hour, Duration: 12 * time.Hour},
		{StartOffset: 72 * time.Hour, Duration: 12 * time.Hour},
		{StartOffset: 96 * time.Hour, Duration: 12 * time.Hour},
		{StartOffset: 120 * time.Hour, Duration: 12 * time.Hour},
		{StartOffset: 144 * time.Hour, Duration: 12 * time.Hour},
	}
	f := newEngineFixture(t, domain.SchedulerDefault, events, 7)

	f.engine.RunCycle(context.Background())

	require.Len(t, f.events.events, 7)
	sort.Slice(f.events.events, func(i, j int) bool {
		return f.events.events[i].Start().Before(f.events.events[j].Start())
	})
	want := []uuid.UUID{f.userA, f.userB, f.userC, f.userA, f.userB, f.userC, f.userA}
	for i, e := range f.events.events {
		assert.Equal(t, want[i], e.UserID(), "shift %d", i)
	}

	// Cursor advanced to the last materialized shift.
	require.NotNil(t, f.schedule.LastEpochScheduled())
	assert.Equal(t, monday.Add(144*time.Hour), *f.schedule.LastEpochScheduled())
}

func TestSchedulerSkipsOverlappingShifts(t *testing.T) {
	events := []domain.ScheduleEvent{
		{StartOffset: 0, Duration: 12 * time.Hour},
		{StartOffset: 24 * time.Hour, Duration: 12 * time.Hour},
	}
	f := newEngineFixture(t, domain.SchedulerDefault, events, 2)

	// A pre-existing manual event of the same team and role blocks the
	// first shift entirely.
	fixed, err := calendarDomain.NewEvent(f.team.ID(), f.schedule.RoleID(), f.userC,
		monday.Add(6*time.Hour), monday.Add(8*time.Hour), nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.events.Save(context.Background(), fixed))

	f.engine.RunCycle(context.Background())

	var produced []*calendarDomain.Event
	for _, e := range f.events.events {
		if e.ScheduleID() != nil {
			produced = append(produced, e)
		}
	}
	require.Len(t, produced, 1)
	assert.Equal(t, monday.Add(24*time.Hour), produced[0].Start())
}

func TestRoundRobinResume(t *testing.T) {
	events := []domain.ScheduleEvent{
		{StartOffset: 0, Duration: 12 * time.Hour},
		{StartOffset: 24 * time.Hour, Duration: 12 * time.Hour},
	}
	f := newEngineFixture(t, domain.SchedulerRoundRobin, events, 2)
	f.schedule.AdvanceCursor(monday.Add(-7*24*time.Hour), f.userA)

	f.engine.RunCycle(context.Background())

	require.Len(t, f.events.events, 2)
	sort.Slice(f.events.events, func(i, j int) bool {
		return f.events.events[i].Start().Before(f.events.events[j].Start())
	})
	assert.Equal(t, f.userB, f.events.events[0].UserID())
	assert.Equal(t, f.userC, f.events.events[1].UserID())
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	f := newEngineFixture(t, domain.SchedulerDefault, twelveHourShifts(2), 2)

	previewed, err := f.engine.Preview(context.Background(), f.schedule.ID(), monday)
	require.NoError(t, err)
	assert.NotEmpty(t, previewed)
	assert.Empty(t, f.events.events)
}

func TestPreviewWithZeroThresholdIsEmpty(t *testing.T) {
	f := newEngineFixture(t, domain.SchedulerDefault, twelveHourShifts(2), 0)

	previewed, err := f.engine.Preview(context.Background(), f.schedule.ID(), monday)
	require.NoError(t, err)
	assert.Empty(t, previewed)
}

func TestPopulateRejectsPastStart(t *testing.T) {
	f := newEngineFixture(t, domain.SchedulerDefault, twelveHourShifts(2), 2)

	err := f.engine.Populate(context.Background(), f.schedule.ID(), monday.Add(-48*time.Hour))
	require.Error(t, err)
}
