package domain

import (
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// QueueRow is one pending outbound message. Written by the sink inside
// the mutation's transaction, consumed by the notifier loop. The row is
// terminal once active=0: sent=1 means delivered to the transport,
// sent=0 means the transport failed and the row is never retried.
type QueueRow struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Mode     identityDomain.ContactMode
	Type     Action
	SendTime time.Time
	Context  string // rendered template context, JSON
	Active   bool
	Sent     bool
}

// NewQueueRow enqueues a message for delivery at sendTime.
func NewQueueRow(userID uuid.UUID, mode identityDomain.ContactMode, typ Action, sendTime time.Time, contextJSON string) *QueueRow {
	return &QueueRow{
		ID:       uuid.New(),
		UserID:   userID,
		Mode:     mode,
		Type:     typ,
		SendTime: sendTime,
		Context:  contextJSON,
		Active:   true,
	}
}

// MarkSent finalizes the row after successful delivery.
func (q *QueueRow) MarkSent() {
	q.Active = false
	q.Sent = true
}

// MarkFailed finalizes the row after a delivery failure. Delivery
// failure is terminal: the notifier never retries on its own.
func (q *QueueRow) MarkFailed() {
	q.Active = false
	q.Sent = false
}

// PendingMessage is a queue row joined to the user, contact destination,
// and type templates, as materialized by the notifier's poller.
type PendingMessage struct {
	QueueID     uuid.UUID
	UserID      uuid.UUID
	UserName    string
	Mode        identityDomain.ContactMode
	Destination string
	Subject     string // subject template from notification_type
	Body        string // body template from notification_type
	Context     string // stored context JSON
}
