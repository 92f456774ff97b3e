package domain

import (
	"context"

	"github.com/google/uuid"
)

// ScheduleRepository persists Schedule aggregates.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *Schedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]*Schedule, error)
	FindByRoster(ctx context.Context, rosterID uuid.UUID) ([]*Schedule, error)
	FindActive(ctx context.Context) ([]*Schedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
