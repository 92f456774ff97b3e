package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// PickContext carries everything a user picker may consult for one shift.
type PickContext struct {
	TeamID   uuid.UUID
	RoleID   uuid.UUID
	Roster   *rosterDomain.Roster
	Order    []uuid.UUID // round-robin cyclic order, possibly empty
	LastUser *uuid.UUID  // scheduler cursor
	Shift    sharedDomain.TimeRange
}

// CalendarView answers the busy/membership questions pickers ask. The
// canonical implementation reads the event table; preview wraps it with
// a shadow overlay so uncommitted preview events also count as busy.
type CalendarView interface {
	// IsBusy reports whether the user has any event on the team
	// intersecting the shift, regardless of role.
	IsBusy(ctx context.Context, teamID, userID uuid.UUID, shift sharedDomain.TimeRange) (bool, error)
	// HasOverlap reports whether any (team, role) event intersects the
	// shift (invariant: at most one event per team+role per instant).
	HasOverlap(ctx context.Context, teamID, roleID uuid.UUID, shift sharedDomain.TimeRange) (bool, error)
	// LastShiftEnd returns when the user's most recent (team, role) event
	// ending at or before the shift start ended; zero time if none.
	LastShiftEnd(ctx context.Context, teamID, roleID, userID uuid.UUID, before time.Time) (time.Time, error)
	// NextShiftStart returns when the user's soonest (team, role) event
	// starting at or after the shift start begins; zero time if none.
	NextShiftStart(ctx context.Context, teamID, roleID, userID uuid.UUID, after time.Time) (time.Time, error)
	// IsTeamMember reports team_user membership at query time.
	IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
}

// UserPicker chooses the user for one shift, or reports that the shift
// must be skipped (no eligible candidate).
type UserPicker interface {
	Name() string
	Pick(ctx context.Context, view CalendarView, pc PickContext) (uuid.UUID, bool, error)
}

// Registry maps scheduler names to their picker implementations.
type Registry struct {
	mu      sync.RWMutex
	pickers map[string]UserPicker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pickers: make(map[string]UserPicker)}
}

// Register adds a picker under its name, replacing any previous one.
func (r *Registry) Register(p UserPicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickers[p.Name()] = p
}

// Get resolves a scheduler name.
func (r *Registry) Get(name string) (UserPicker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pickers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scheduler %q", name)
	}
	return p, nil
}

// Names lists registered scheduler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pickers))
	for n := range r.pickers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
