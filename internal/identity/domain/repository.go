package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists User aggregates.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByName(ctx context.Context, name UserName) (*User, error)
	ExistsByName(ctx context.Context, name UserName) (bool, error)
	// FindWithFutureEventsMissingCallContact supports the user validator:
	// users who own future events yet have no `call` contact.
	FindWithFutureEventsMissingCallContact(ctx context.Context) ([]*User, error)
}
