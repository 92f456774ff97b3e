package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeletedTeam retains the old and new names of a soft-deleted team so the
// rename-to-random-token step stays reversible for operators.
type DeletedTeam struct {
	TeamID       uuid.UUID
	NewName      string
	OldName      string
	DeletionDate time.Time
}

// DeletedTeamRepository records team soft-deletions.
type DeletedTeamRepository interface {
	Record(ctx context.Context, deleted DeletedTeam) error
	FindByTeam(ctx context.Context, teamID uuid.UUID) (*DeletedTeam, error)
}

// PinnedTeamRepository persists a user's pinned teams (dashboard shortcut
// rows; duplicates surface as conflicts).
type PinnedTeamRepository interface {
	Pin(ctx context.Context, userID, teamID uuid.UUID) error
	Unpin(ctx context.Context, userID, teamID uuid.UUID) error
	FindByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
