// Package queries hosts the calendar read side: joined event views for
// the list/get endpoints, current-oncall resolution, and the feed the
// iCal projector renders from.
package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
)

// EventView is an event joined to its user, team, and role names.
type EventView struct {
	ID         uuid.UUID  `json:"id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	User       string     `json:"user"`
	FullName   string     `json:"full_name"`
	Team       string     `json:"team"`
	Role       string     `json:"role"`
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`
	LinkID     *string    `json:"link_id,omitempty"`
	Note       *string    `json:"note,omitempty"`
}

// OncallView is one currently-on-call user with reachability info.
type OncallView struct {
	User     string            `json:"user"`
	FullName string            `json:"full_name"`
	Team     string            `json:"team"`
	Role     string            `json:"role"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Contacts map[string]string `json:"contacts"`
}

// IcalEvent is the projector's input row: an event joined to everything
// RFC5545 rendering needs.
type IcalEvent struct {
	ID       uuid.UUID
	Start    time.Time
	End      time.Time
	Team     string
	Role     string
	User     string
	FullName string
	Email    string
	Contacts map[string]string
}

// EventReader answers the joined read queries; implemented over the
// relational store with joins rather than aggregate rehydration.
type EventReader interface {
	Get(ctx context.Context, id uuid.UUID) (*EventView, error)
	List(ctx context.Context, q domain.ListQuery) ([]*EventView, error)
	// CurrentOncall returns who is on call for the team at instant now,
	// optionally restricted to one role name.
	CurrentOncall(ctx context.Context, teamID uuid.UUID, roleName *string, now time.Time) ([]*OncallView, error)
	// TeamIcalFeed returns a team's events ending after cutoff, with
	// subscribed teams' events unioned in when includeSubscribed, minus
	// any team named in excludedTeams.
	TeamIcalFeed(ctx context.Context, teamID uuid.UUID, cutoff time.Time, roleNames []string, includeSubscribed bool, excludedTeams []string) ([]*IcalEvent, error)
	// UserIcalFeed returns a user's events ending after cutoff.
	UserIcalFeed(ctx context.Context, userID uuid.UUID, cutoff time.Time, roleNames []string) ([]*IcalEvent, error)
}

// EventQueryService wraps EventReader with the name resolution the HTTP
// surface needs.
type EventQueryService struct {
	reader   EventReader
	teams    rosterDomain.TeamRepository
	services rosterDomain.ServiceRepository
}

// NewEventQueryService wires the read side.
func NewEventQueryService(reader EventReader, teams rosterDomain.TeamRepository, services rosterDomain.ServiceRepository) *EventQueryService {
	return &EventQueryService{reader: reader, teams: teams, services: services}
}

// Get loads one joined event view.
func (s *EventQueryService) Get(ctx context.Context, id uuid.UUID) (*EventView, error) {
	view, err := s.reader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, core.NotFound("event %s not found", id)
	}
	return view, nil
}

// List runs the filter-grammar query.
func (s *EventQueryService) List(ctx context.Context, q domain.ListQuery) ([]*EventView, error) {
	return s.reader.List(ctx, q)
}

// TeamOncall resolves the team by name and returns its current on-call
// users, optionally for a single role.
func (s *EventQueryService) TeamOncall(ctx context.Context, teamName string, roleName *string, now time.Time) ([]*OncallView, error) {
	name, err := rosterDomain.NewTeamName(teamName)
	if err != nil {
		return nil, core.BadRequest("invalid team name")
	}
	team, err := s.teams.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, core.NotFound("team %s not found", teamName)
	}
	return s.reader.CurrentOncall(ctx, team.ID(), roleName, now)
}

// ServiceOncall returns current on-call across every team mapped to the
// service.
func (s *EventQueryService) ServiceOncall(ctx context.Context, serviceName string, roleName *string, now time.Time) ([]*OncallView, error) {
	service, err := s.services.FindByName(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	if service == nil {
		return nil, core.NotFound("service %s not found", serviceName)
	}
	teamIDs, err := s.services.TeamIDsForService(ctx, service.ID)
	if err != nil {
		return nil, err
	}
	var out []*OncallView
	for _, teamID := range teamIDs {
		views, err := s.reader.CurrentOncall(ctx, teamID, roleName, now)
		if err != nil {
			return nil, err
		}
		out = append(out, views...)
	}
	return out, nil
}
