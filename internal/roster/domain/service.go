package domain

import (
	"context"

	"github.com/google/uuid"
)

// Service is an external service name mapped to one or more owning teams
// (team_service rows); /services/{s}/oncall resolves through it.
type Service struct {
	ID   uuid.UUID
	Name string
}

// ServiceRepository persists services and the team_service mapping.
type ServiceRepository interface {
	Save(ctx context.Context, service *Service) error
	FindByName(ctx context.Context, name string) (*Service, error)
	// TeamIDsForService returns the teams mapped to the service.
	TeamIDsForService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error)
	MapTeam(ctx context.Context, serviceID, teamID uuid.UUID) error
	UnmapTeam(ctx context.Context, serviceID, teamID uuid.UUID) error
}
