package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only audit_log row. Entries are written in the
// same transaction as the mutation they describe and are never updated
// or deleted.
type AuditEntry struct {
	ID         uuid.UUID
	TeamName   string
	OwnerName  string // challenger user name or application name
	ActionName Action
	Timestamp  time.Time
	Context    string // JSON description of the mutation
}

// NewAuditEntry records an action performed by owner on team at now.
func NewAuditEntry(teamName, ownerName string, action Action, now time.Time, contextJSON string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		TeamName:   teamName,
		OwnerName:  ownerName,
		ActionName: action,
		Timestamp:  now,
		Context:    contextJSON,
	}
}
