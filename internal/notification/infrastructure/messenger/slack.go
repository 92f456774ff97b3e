package messenger

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/oncall/oncall/internal/notification/application"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// SlackMessenger posts to a user's Slack destination (channel or member
// id) via the Web API.
type SlackMessenger struct {
	client *slack.Client
}

// NewSlackMessenger builds the transport from a bot token.
func NewSlackMessenger(token string) *SlackMessenger {
	return &SlackMessenger{client: slack.New(token)}
}

// Mode implements application.Messenger.
func (m *SlackMessenger) Mode() identityDomain.ContactMode { return identityDomain.ContactModeSlack }

// Send implements application.Messenger.
func (m *SlackMessenger) Send(ctx context.Context, msg application.Message) error {
	text := msg.Body
	if msg.Subject != "" {
		text = fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body)
	}
	_, _, err := m.client.PostMessageContext(ctx, msg.Destination,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", msg.Destination, err)
	}
	return nil
}
