package application

import (
	"context"
	"fmt"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// Message is one rendered outbound message.
type Message struct {
	Destination string
	Subject     string
	Body        string
}

// Messenger delivers messages over one contact mode. Implementations
// must be safe for concurrent Send calls; the sender pool shares them.
type Messenger interface {
	Mode() identityDomain.ContactMode
	Send(ctx context.Context, msg Message) error
}

// MessengerSet routes messages to the transport matching their mode.
type MessengerSet struct {
	byMode map[identityDomain.ContactMode]Messenger
}

// NewMessengerSet indexes the configured transports by mode.
func NewMessengerSet(messengers ...Messenger) *MessengerSet {
	set := &MessengerSet{byMode: make(map[identityDomain.ContactMode]Messenger, len(messengers))}
	for _, m := range messengers {
		set.byMode[m.Mode()] = m
	}
	return set
}

// Send dispatches to the transport for mode.
func (s *MessengerSet) Send(ctx context.Context, mode identityDomain.ContactMode, msg Message) error {
	m, ok := s.byMode[mode]
	if !ok {
		return fmt.Errorf("no messenger configured for mode %s", mode)
	}
	return m.Send(ctx, msg)
}
