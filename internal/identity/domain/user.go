package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	sharedDomain "github.com/oncall/oncall/internal/shared/domain"
)

// ErrEmptyUserName is returned when a user name is blank after trimming.
var ErrEmptyUserName = errors.New("user name cannot be empty")

// UserName is a unique login/handle, distinct from the free-form FullName.
type UserName struct{ value string }

// NewUserName validates and constructs a UserName.
func NewUserName(value string) (UserName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return UserName{}, ErrEmptyUserName
	}
	return UserName{value: value}, nil
}

func (n UserName) String() string { return n.value }

// Equals implements sharedDomain.ValueObject.
func (n UserName) Equals(other sharedDomain.ValueObject) bool {
	o, ok := other.(UserName)
	return ok && n.value == o.value
}

// Contact is a single reachability channel owned by a user.
type Contact struct {
	Mode        ContactMode
	Destination string
}

// User is a team-roster participant. The `god` bit, when set, bypasses
// every authorization predicate in the system (see internal/authz).
type User struct {
	sharedDomain.BaseAggregateRoot
	name     UserName
	fullName string
	timeZone string
	photoURL string
	active   bool
	god      bool
	contacts []Contact
}

// NewUser creates a new active, non-god user.
func NewUser(name UserName, fullName, timeZone string) *User {
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		fullName:          fullName,
		timeZone:          timeZone,
		active:            true,
	}
	u.AddDomainEvent(NewUserCreated(u.ID(), name.String(), fullName))
	return u
}

// RehydrateUser reconstructs a User from persisted state.
func RehydrateUser(entity sharedDomain.BaseEntity, version int, name UserName, fullName, timeZone, photoURL string, active, god bool, contacts []Contact) *User {
	return &User{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, version),
		name:              name,
		fullName:          fullName,
		timeZone:          timeZone,
		photoURL:          photoURL,
		active:            active,
		god:               god,
		contacts:          contacts,
	}
}

func (u *User) Name() UserName   { return u.name }
func (u *User) FullName() string { return u.fullName }
func (u *User) TimeZone() string { return u.timeZone }
func (u *User) PhotoURL() string { return u.photoURL }
func (u *User) Active() bool     { return u.active }
func (u *User) God() bool        { return u.god }

// Contacts returns a copy of the user's contact rows.
func (u *User) Contacts() []Contact {
	out := make([]Contact, len(u.contacts))
	copy(out, u.contacts)
	return out
}

// HasContactMode reports whether the user owns a contact of the given mode.
func (u *User) HasContactMode(mode ContactMode) bool {
	for _, c := range u.contacts {
		if c.Mode == mode {
			return true
		}
	}
	return false
}

// UpdateProfile updates the mutable profile fields.
func (u *User) UpdateProfile(fullName, timeZone, photoURL string) {
	u.fullName = fullName
	u.timeZone = timeZone
	u.photoURL = photoURL
	u.Touch()
	u.AddDomainEvent(NewUserUpdated(u.ID(), fullName))
}

// SetActive toggles the user's active flag.
func (u *User) SetActive(active bool) {
	if u.active == active {
		return
	}
	u.active = active
	u.Touch()
}

// SetGod toggles the authorization-bypass bit. Only callable by a
// provisioning path; never exposed to non-admin mutation.
func (u *User) SetGod(god bool) {
	u.god = god
	u.Touch()
}

// AddContact appends a reachability channel, replacing any existing
// contact of the same mode.
func (u *User) AddContact(mode ContactMode, destination string) {
	for i, c := range u.contacts {
		if c.Mode == mode {
			u.contacts[i].Destination = destination
			u.Touch()
			return
		}
	}
	u.contacts = append(u.contacts, Contact{Mode: mode, Destination: destination})
	u.Touch()
	u.AddDomainEvent(NewUserContactAdded(u.ID(), string(mode), destination))
}

// RemoveContact drops a reachability channel of the given mode.
func (u *User) RemoveContact(mode ContactMode) {
	for i, c := range u.contacts {
		if c.Mode == mode {
			u.contacts = append(u.contacts[:i], u.contacts[i+1:]...)
			u.Touch()
			u.AddDomainEvent(NewUserContactRemoved(u.ID(), string(mode)))
			return
		}
	}
}
