package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

var (
	// ErrSettingNeedsExactlyOneQualifier is returned when a setting carries
	// neither or both of time_before / only_if_involved.
	ErrSettingNeedsExactlyOneQualifier = errors.New("notification setting requires exactly one of time_before or only_if_involved")
	// ErrReminderRequiresTimeBefore is returned when a reminder-type setting
	// carries only_if_involved instead of time_before.
	ErrReminderRequiresTimeBefore = errors.New("reminder notification settings require time_before")
	// ErrNonReminderRequiresInvolvement is returned when a non-reminder
	// setting carries time_before instead of only_if_involved.
	ErrNonReminderRequiresInvolvement = errors.New("non-reminder notification settings require only_if_involved")
	// ErrSettingNeedsRoles is returned when a setting names no roles.
	ErrSettingNeedsRoles = errors.New("notification setting requires at least one role")
)

// Type is one notification_type row: the action name plus whether it is a
// reminder (time-anchored) type and its message templates.
type Type struct {
	ID         uuid.UUID
	Name       Action
	IsReminder bool
	Subject    string
	Body       string
}

// Setting declares how one user wants to hear about one team's calendar.
// Exactly one of TimeBefore (reminder types) or OnlyIfInvolved (action
// types) is set, matching the type's is_reminder flag.
type Setting struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	TeamID         uuid.UUID
	Mode           identityDomain.ContactMode
	Type           Action
	RoleIDs        []uuid.UUID
	TimeBefore     *time.Duration
	OnlyIfInvolved *bool
}

// NewSetting validates and constructs a Setting against its type's
// reminder flag.
func NewSetting(userID, teamID uuid.UUID, mode identityDomain.ContactMode, typ Type, roleIDs []uuid.UUID, timeBefore *time.Duration, onlyIfInvolved *bool) (*Setting, error) {
	if len(roleIDs) == 0 {
		return nil, ErrSettingNeedsRoles
	}
	if (timeBefore == nil) == (onlyIfInvolved == nil) {
		return nil, ErrSettingNeedsExactlyOneQualifier
	}
	if typ.IsReminder && timeBefore == nil {
		return nil, ErrReminderRequiresTimeBefore
	}
	if !typ.IsReminder && onlyIfInvolved == nil {
		return nil, ErrNonReminderRequiresInvolvement
	}
	return &Setting{
		ID:             uuid.New(),
		UserID:         userID,
		TeamID:         teamID,
		Mode:           mode,
		Type:           typ.Name,
		RoleIDs:        roleIDs,
		TimeBefore:     timeBefore,
		OnlyIfInvolved: onlyIfInvolved,
	}, nil
}

// AppliesToRole reports whether the setting covers roleID.
func (s *Setting) AppliesToRole(roleID uuid.UUID) bool {
	for _, r := range s.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}
