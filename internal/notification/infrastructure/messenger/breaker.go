package messenger

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/oncall/oncall/internal/notification/application"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// BreakerMessenger wraps a transport in a circuit breaker: a transport
// that keeps failing trips open and sheds its sends quickly instead of
// tying up the sender pool.
type BreakerMessenger struct {
	inner   application.Messenger
	breaker *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps m with per-mode circuit breaking.
func WithBreaker(m application.Messenger) *BreakerMessenger {
	settings := gobreaker.Settings{
		Name:    "messenger-" + m.Mode().String(),
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerMessenger{
		inner:   m,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Mode implements application.Messenger.
func (b *BreakerMessenger) Mode() identityDomain.ContactMode { return b.inner.Mode() }

// Send implements application.Messenger.
func (b *BreakerMessenger) Send(ctx context.Context, msg application.Message) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.inner.Send(ctx, msg)
	})
	return err
}
