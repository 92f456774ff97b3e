// Package messenger provides the outbound transports the notifier's
// sender pool delivers through, each wrapped in a circuit breaker so one
// failing transport cannot stall the others.
package messenger

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/oncall/oncall/internal/notification/application"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// EmailMessenger sends over plain SMTP. No pack library covers bare SMTP
// submission, so this rides the standard library client.
type EmailMessenger struct {
	addr string // host:port of the relay
	from string
}

// NewEmailMessenger configures the SMTP transport.
func NewEmailMessenger(addr, from string) *EmailMessenger {
	return &EmailMessenger{addr: addr, from: from}
}

// Mode implements application.Messenger.
func (m *EmailMessenger) Mode() identityDomain.ContactMode { return identityDomain.ContactModeEmail }

// Send implements application.Messenger.
func (m *EmailMessenger) Send(_ context.Context, msg application.Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Destination)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	if err := smtp.SendMail(m.addr, nil, m.from, []string{msg.Destination}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.Destination, err)
	}
	return nil
}
