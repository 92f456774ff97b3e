package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// ErrEmptyRoleName is returned when a role name is blank after trimming.
var ErrEmptyRoleName = errors.New("role name cannot be empty")

// RoleName is a global role label (e.g. "primary", "secondary").
type RoleName struct{ value string }

// NewRoleName validates and constructs a RoleName.
func NewRoleName(value string) (RoleName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RoleName{}, ErrEmptyRoleName
	}
	return RoleName{value: value}, nil
}

func (n RoleName) String() string { return n.value }

// Equals implements sharedDomain.ValueObject.
func (n RoleName) Equals(other sharedDomain.ValueObject) bool {
	o, ok := other.(RoleName)
	return ok && n.value == o.value
}

// Role is a lookup entity shared by schedules, events, and notification
// settings. It carries no behavior beyond identity + name.
type Role struct {
	sharedDomain.BaseEntity
	name RoleName
}

// NewRole creates a new role.
func NewRole(name RoleName) *Role {
	return &Role{BaseEntity: sharedDomain.NewBaseEntity(), name: name}
}

// RehydrateRole reconstructs a Role from persisted state.
func RehydrateRole(entity sharedDomain.BaseEntity, name RoleName) *Role {
	return &Role{BaseEntity: entity, name: name}
}

func (r *Role) Name() RoleName { return r.name }

// RoleRepository resolves role names to ids; a miss surfaces as a
// Conflict/Integrity error at the application layer (FK resolution).
type RoleRepository interface {
	Save(ctx context.Context, role *Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)
	FindByName(ctx context.Context, name RoleName) (*Role, error)
}
