package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oncall/oncall/internal/notification/application"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// WebhookMessenger POSTs the message as JSON to a gateway URL; it covers
// the sms, call, im, hipchat, and rocketchat modes, whose deliveries all
// go through provider HTTP gateways.
type WebhookMessenger struct {
	mode   identityDomain.ContactMode
	url    string
	client *http.Client
}

// NewWebhookMessenger builds a transport for one mode and gateway.
func NewWebhookMessenger(mode identityDomain.ContactMode, url string) *WebhookMessenger {
	return &WebhookMessenger{
		mode:   mode,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Mode implements application.Messenger.
func (m *WebhookMessenger) Mode() identityDomain.ContactMode { return m.mode }

// Send implements application.Messenger.
func (m *WebhookMessenger) Send(ctx context.Context, msg application.Message) error {
	payload, err := json.Marshal(map[string]string{
		"mode":        m.mode.String(),
		"destination": msg.Destination,
		"subject":     msg.Subject,
		"body":        msg.Body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s gateway: %w", m.mode, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s gateway returned %d", m.mode, resp.StatusCode)
	}
	return nil
}
