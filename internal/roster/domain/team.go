// Package domain models teams, rosters, and team membership: the
// ownership structure that schedules and events hang off of.
package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

var (
	// ErrEmptyTeamName is returned when a team name is blank after trimming.
	ErrEmptyTeamName = errors.New("team name cannot be empty")
	// ErrInvalidTimezone is returned when a scheduling timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("scheduling timezone is not a valid IANA zone")
)

// TeamName is a validated, unique-among-active team name.
type TeamName struct {
	value string
}

// NewTeamName validates and constructs a TeamName.
func NewTeamName(value string) (TeamName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return TeamName{}, ErrEmptyTeamName
	}
	return TeamName{value: value}, nil
}

func (n TeamName) String() string { return n.value }

// Equals implements sharedDomain.ValueObject.
func (n TeamName) Equals(other sharedDomain.ValueObject) bool {
	o, ok := other.(TeamName)
	return ok && n.value == o.value
}

// Team is the aggregate root owning a scheduling timezone, an optional
// Iris escalation plan, and the soft-delete lifecycle described by the
// spec: deletion renames the team to a random token and cascades future
// event removal (the latter is done at the application layer by
// TeamService.DeleteTeam, since events live in a different bounded
// context).
type Team struct {
	sharedDomain.BaseAggregateRoot
	name               TeamName
	active             bool
	schedulingTimezone string
	overridePhone      *string
	irisEscalationPlan *string
	description        string
}

// NewTeam creates a new active team.
func NewTeam(name TeamName, schedulingTimezone string) (*Team, error) {
	if _, err := time.LoadLocation(schedulingTimezone); err != nil {
		return nil, ErrInvalidTimezone
	}
	t := &Team{
		BaseAggregateRoot:  sharedDomain.NewBaseAggregateRoot(),
		name:               name,
		active:             true,
		schedulingTimezone: schedulingTimezone,
	}
	t.AddDomainEvent(NewTeamCreated(t.ID(), name.String(), schedulingTimezone))
	return t, nil
}

// RehydrateTeam reconstructs a Team from persisted state.
func RehydrateTeam(entity sharedDomain.BaseEntity, version int, name TeamName, active bool, tz string, overridePhone, irisPlan *string, description string) *Team {
	return &Team{
		BaseAggregateRoot:  sharedDomain.RehydrateBaseAggregateRoot(entity, version),
		name:               name,
		active:             active,
		schedulingTimezone: tz,
		overridePhone:      overridePhone,
		irisEscalationPlan: irisPlan,
		description:        description,
	}
}

func (t *Team) Name() TeamName              { return t.name }
func (t *Team) Active() bool                { return t.active }
func (t *Team) SchedulingTimezone() string  { return t.schedulingTimezone }
func (t *Team) OverridePhone() *string      { return t.overridePhone }
func (t *Team) IrisEscalationPlan() *string { return t.irisEscalationPlan }
func (t *Team) Description() string         { return t.description }
func (t *Team) Location() (*time.Location, error) {
	return time.LoadLocation(t.schedulingTimezone)
}

// Rename changes the team's display name.
func (t *Team) Rename(name TeamName) {
	if t.name.Equals(name) {
		return
	}
	t.name = name
	t.Touch()
	t.AddDomainEvent(NewTeamRenamed(t.ID(), name.String()))
}

// SetDescription updates the free-form description.
func (t *Team) SetDescription(description string) {
	t.description = description
	t.Touch()
}

// SetOverridePhone sets or clears the team's override phone number.
func (t *Team) SetOverridePhone(phone *string) {
	t.overridePhone = phone
	t.Touch()
}

// SetIrisEscalationPlan sets or clears the Iris escalation plan name.
func (t *Team) SetIrisEscalationPlan(plan *string) {
	t.irisEscalationPlan = plan
	t.Touch()
}

// SoftDelete renames the team to a random token and marks it inactive.
// The caller is responsible for persisting a DeletedTeam record carrying
// the old/new names, and for the cascading deletion of future events.
func (t *Team) SoftDelete(newToken string) {
	if !t.active {
		return
	}
	oldName := t.name.String()
	t.name = TeamName{value: newToken}
	t.active = false
	t.Touch()
	t.AddDomainEvent(NewTeamDeleted(t.ID(), oldName, newToken))
}
