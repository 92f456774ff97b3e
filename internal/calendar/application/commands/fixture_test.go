package commands

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/authz"
	domain "github.com/oncall/oncall/internal/calendar/domain"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// fixedNow anchors every temporal-policy test.
var fixedNow = time.Unix(1_700_000_000, 0).UTC()

func fixedClock() time.Time { return fixedNow }

// in returns fixedNow offset by d, the idiom tests use for "future" and
// "past" instants.
func in(d time.Duration) time.Time { return fixedNow.Add(d) }

type fakeEventRepo struct {
	events map[uuid.UUID]*domain.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*domain.Event)}
}

func (r *fakeEventRepo) Save(_ context.Context, event *domain.Event) error {
	r.events[event.ID()] = event
	return nil
}

func (r *fakeEventRepo) SaveAll(ctx context.Context, events []*domain.Event) error {
	for _, e := range events {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeEventRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	return r.events[id], nil
}

func (r *fakeEventRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, id := range ids {
		if e, ok := r.events[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) FindByLinkID(_ context.Context, linkID string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.LinkID() != nil && *e.LinkID() == linkID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start().Before(out[j].Start()) })
	return out, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) DeleteByLinkID(ctx context.Context, linkID string) error {
	group, _ := r.FindByLinkID(ctx, linkID)
	for _, e := range group {
		delete(r.events, e.ID())
	}
	return nil
}

func (r *fakeEventRepo) DeleteFutureByTeam(_ context.Context, teamID uuid.UUID, cutoff time.Time) error {
	for id, e := range r.events {
		if e.TeamID() == teamID && !e.Start().Before(cutoff) {
			delete(r.events, id)
		}
	}
	return nil
}

func (r *fakeEventRepo) FindOverlapping(_ context.Context, teamID, roleID uuid.UUID, start, end time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.TeamID() == teamID && e.RoleID() == roleID && e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) FindBusy(_ context.Context, teamID, userID uuid.UUID, start, end time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.TeamID() == teamID && e.UserID() == userID && e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) FindByScheduleSince(_ context.Context, scheduleID uuid.UUID, since time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.ScheduleID() != nil && *e.ScheduleID() == scheduleID && !e.Start().Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start().Before(out[j].Start()) })
	return out, nil
}

func (r *fakeEventRepo) LastBefore(_ context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (*domain.Event, error) {
	var best *domain.Event
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

func (r *fakeEventRepo) NextAfter(_ context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (*domain.Event, error) {
	var best *domain.Event
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

func (r *fakeEventRepo) Query(_ context.Context, _ domain.ListQuery) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start().Before(out[j].Start()) })
	return out, nil
}

func (r *fakeEventRepo) ForTeamSince(_ context.Context, teamID uuid.UUID, cutoff time.Time, _ []uuid.UUID) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.TeamID() == teamID && e.End().After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ForUserSince(_ context.Context, userID uuid.UUID, cutoff time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range r.events {
		if e.UserID() == userID && e.End().After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	byName map[string]*identityDomain.User
}

func (r *fakeUserRepo) Save(_ context.Context, u *identityDomain.User) error {
	r.byName[u.Name().String()] = u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identityDomain.User, error) {
	for _, u := range r.byName {
		if u.ID() == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByName(_ context.Context, name identityDomain.UserName) (*identityDomain.User, error) {
	return r.byName[name.String()], nil
}

func (r *fakeUserRepo) ExistsByName(_ context.Context, name identityDomain.UserName) (bool, error) {
	_, ok := r.byName[name.String()]
	return ok, nil
}

func (r *fakeUserRepo) FindWithFutureEventsMissingCallContact(_ context.Context) ([]*identityDomain.User, error) {
	return nil, nil
}

type fakeTeamRepo struct {
	byName map[string]*rosterDomain.Team
}

func (r *fakeTeamRepo) Save(_ context.Context, t *rosterDomain.Team) error {
	r.byName[t.Name().String()] = t
	return nil
}

func (r *fakeTeamRepo) FindByID(_ context.Context, id uuid.UUID) (*rosterDomain.Team, error) {
	for _, t := range r.byName {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTeamRepo) FindByName(_ context.Context, name rosterDomain.TeamName) (*rosterDomain.Team, error) {
	return r.byName[name.String()], nil
}

func (r *fakeTeamRepo) FindActive(_ context.Context) ([]*rosterDomain.Team, error) {
	var out []*rosterDomain.Team
	for _, t := range r.byName {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ExistsByName(_ context.Context, name rosterDomain.TeamName) (bool, error) {
	_, ok := r.byName[name.String()]
	return ok, nil
}

type fakeRoleRepo struct {
	byName map[string]*rosterDomain.Role
}

func (r *fakeRoleRepo) Save(_ context.Context, role *rosterDomain.Role) error {
	r.byName[role.Name().String()] = role
	return nil
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*rosterDomain.Role, error) {
	for _, role := range r.byName {
		if role.ID() == id {
			return role, nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) FindByName(_ context.Context, name rosterDomain.RoleName) (*rosterDomain.Role, error) {
	return r.byName[name.String()], nil
}

type memberKey struct{ team, user uuid.UUID }

type fakeMembershipRepo struct {
	admins  map[memberKey]bool
	members map[memberKey]bool
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{admins: make(map[memberKey]bool), members: make(map[memberKey]bool)}
}

func (r *fakeMembershipRepo) IsTeamAdmin(_ context.Context, teamID, userID uuid.UUID) (bool, error) {
	return r.admins[memberKey{teamID, userID}], nil
}

func (r *fakeMembershipRepo) IsTeamUser(_ context.Context, teamID, userID uuid.UUID) (bool, error) {
	return r.members[memberKey{teamID, userID}], nil
}

func (r *fakeMembershipRepo) AdminTeamIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for k, ok := range r.admins {
		if ok && k.user == userID {
			out = append(out, k.team)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) AddAdmin(_ context.Context, teamID, userID uuid.UUID) error {
	r.admins[memberKey{teamID, userID}] = true
	r.members[memberKey{teamID, userID}] = true
	return nil
}

func (r *fakeMembershipRepo) AddUser(_ context.Context, teamID, userID uuid.UUID) error {
	r.members[memberKey{teamID, userID}] = true
	return nil
}

func (r *fakeMembershipRepo) RemoveAdmin(_ context.Context, teamID, userID uuid.UUID) error {
	delete(r.admins, memberKey{teamID, userID})
	return nil
}

func (r *fakeMembershipRepo) RemoveUser(_ context.Context, teamID, userID uuid.UUID) error {
	delete(r.admins, memberKey{teamID, userID})
	delete(r.members, memberKey{teamID, userID})
	return nil
}

type fakeSink struct {
	recorded []Notification
}

func (s *fakeSink) Record(_ context.Context, n Notification) error {
	s.recorded = append(s.recorded, n)
	return nil
}

type noopUoW struct{}

func (noopUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (noopUoW) Commit(context.Context) error                       { return nil }
func (noopUoW) Rollback(context.Context) error                     { return nil }

// fixture wires a team with members jdoe and asmith, a "primary" role,
// and empty calendar state.
type fixture struct {
	deps    Deps
	events  *fakeEventRepo
	sink    *fakeSink
	members *fakeMembershipRepo

	team  *rosterDomain.Team
	role  *rosterDomain.Role
	jdoe  *identityDomain.User
	smith *identityDomain.User

	principal *authz.Principal
}

func newFixture() *fixture {
	teamName, _ := rosterDomain.NewTeamName("t")
	team, _ := rosterDomain.NewTeam(teamName, "UTC")
	roleName, _ := rosterDomain.NewRoleName("primary")
	role := rosterDomain.NewRole(roleName)

	jdoeName, _ := identityDomain.NewUserName("jdoe")
	jdoe := identityDomain.NewUser(jdoeName, "John Doe", "UTC")
	smithName, _ := identityDomain.NewUserName("asmith")
	smith := identityDomain.NewUser(smithName, "Alice Smith", "UTC")

	events := newFakeEventRepo()
	users := &fakeUserRepo{byName: map[string]*identityDomain.User{"jdoe": jdoe, "asmith": smith}}
	teams := &fakeTeamRepo{byName: map[string]*rosterDomain.Team{"t": team}}
	roles := &fakeRoleRepo{byName: map[string]*rosterDomain.Role{"primary": role}}
	members := newFakeMembershipRepo()
	_ = members.AddUser(context.Background(), team.ID(), jdoe.ID())
	_ = members.AddUser(context.Background(), team.ID(), smith.ID())

	sink := &fakeSink{}
	f := &fixture{
		deps: Deps{
			Events:     events,
			Users:      users,
			Teams:      teams,
			Roles:      roles,
			Members:    members,
			Authorizer: authz.NewAuthorizer(users, teams, members),
			Sink:       sink,
			UoW:        noopUoW{},
			Clock:      fixedClock,
		},
		events:  events,
		sink:    sink,
		members: members,
		team:    team,
		role:    role,
		jdoe:    jdoe,
		smith:   smith,
		principal: &authz.Principal{
			UserID:   jdoe.ID(),
			UserName: "jdoe",
		},
	}
	return f
}

// seedEvent places an event directly into the store, bypassing the
// temporal policy, so past-state tests can set up history.
func (f *fixture) seedEvent(user *identityDomain.User, start, end time.Time) *domain.Event {
	entity := sharedDomain.RehydrateBaseEntity(uuid.New(), fixedNow, fixedNow)
	event := domain.RehydrateEvent(entity, 0,
		f.team.ID(), f.role.ID(), user.ID(), start, end, nil, nil, nil)
	f.events.events[event.ID()] = event
	return event
}

func (f *fixture) seedLinked(user *identityDomain.User, linkID string, ranges ...[2]time.Time) []*domain.Event {
	var out []*domain.Event
	for _, r := range ranges {
		event := f.seedEvent(user, r[0], r[1])
		event.SetLinkID(linkID)
		out = append(out, event)
	}
	return out
}
