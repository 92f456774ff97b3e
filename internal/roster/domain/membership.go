package domain

import "github.com/google/uuid"

// Membership is a (team, user) relation used for both TeamUser (calendar
// member) and TeamAdmin (admin) predicates. It is a plain relation, not an
// aggregate: identity comes from the (TeamID, UserID) pair.
type Membership struct {
	TeamID uuid.UUID
	UserID uuid.UUID
}
