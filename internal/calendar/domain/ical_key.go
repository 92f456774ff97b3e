package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownIcalKeyType is returned for a key type outside {user, team}.
var ErrUnknownIcalKeyType = errors.New("ical key type must be user or team")

// IcalKeyType says which kind of principal an IcalKey renders.
type IcalKeyType string

const (
	IcalKeyUser IcalKeyType = "user"
	IcalKeyTeam IcalKeyType = "team"
)

// IcalKey grants unauthenticated read access to one principal's iCal
// projection. The key itself is a uuid4, handed out to the requester.
type IcalKey struct {
	Key         uuid.UUID
	Requester   string // user name that minted the key
	Name        string // principal name (user or team) the key renders
	Type        IcalKeyType
	TimeCreated time.Time
}

// NewIcalKey mints a fresh key for the given principal.
func NewIcalKey(requester, name string, typ IcalKeyType, now time.Time) (*IcalKey, error) {
	if typ != IcalKeyUser && typ != IcalKeyTeam {
		return nil, ErrUnknownIcalKeyType
	}
	return &IcalKey{
		Key:         uuid.New(),
		Requester:   requester,
		Name:        name,
		Type:        typ,
		TimeCreated: now,
	}, nil
}

// IcalKeyRepository persists public iCal access keys.
type IcalKeyRepository interface {
	Save(ctx context.Context, key *IcalKey) error
	FindByKey(ctx context.Context, key uuid.UUID) (*IcalKey, error)
	FindByRequester(ctx context.Context, requester string) ([]*IcalKey, error)
	Delete(ctx context.Context, key uuid.UUID) error
}
