package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oncall/oncall/internal/core"
	domain "github.com/oncall/oncall/internal/notification/domain"
	"github.com/oncall/oncall/pkg/observability"
)

// NotifierConfig tunes the poller/sender loop.
type NotifierConfig struct {
	PollInterval time.Duration
	Senders      int
	QueueDepth   int
	SkipSend     bool // log instead of calling transports
}

// Notifier is the long-running worker: one poller feeding a bounded
// channel drained by a fixed pool of senders. Each queue-row state
// change is its own small transaction keyed by queue id; delivery
// failure is terminal for the row.
type Notifier struct {
	queue      domain.QueueRepository
	messengers *MessengerSet
	cfg        NotifierConfig
	logger     *slog.Logger
	metrics    observability.Metrics
	clock      core.Clock
}

// NewNotifier wires the notifier loop.
func NewNotifier(queue domain.QueueRepository, messengers *MessengerSet, cfg NotifierConfig, logger *slog.Logger, metrics observability.Metrics, clock core.Clock) *Notifier {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.Senders <= 0 {
		cfg.Senders = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 100
	}
	if clock == nil {
		clock = core.SystemClock
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Notifier{queue: queue, messengers: messengers, cfg: cfg, logger: logger, metrics: metrics, clock: clock}
}

// Run blocks until ctx is cancelled. Ordering between due messages is
// not guaranteed; senders work independently.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info("notifier starting", "poll_interval", n.cfg.PollInterval, "senders", n.cfg.Senders)
	sendQueue := make(chan *domain.PendingMessage, n.cfg.QueueDepth)

	var wg sync.WaitGroup
	for i := 0; i < n.cfg.Senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range sendQueue {
				n.send(ctx, msg)
			}
		}()
	}

	ticker := time.NewTicker(n.cfg.PollInterval)
	defer ticker.Stop()
	n.poll(ctx, sendQueue)
	for {
		select {
		case <-ctx.Done():
			close(sendQueue)
			wg.Wait()
			n.logger.Info("notifier stopping")
			return
		case <-ticker.C:
			n.poll(ctx, sendQueue)
		}
	}
}

func (n *Notifier) poll(ctx context.Context, sendQueue chan<- *domain.PendingMessage) {
	due, err := n.queue.Due(ctx, n.clock())
	if err != nil {
		n.logger.Error("polling notification queue failed", "error", err)
		return
	}
	for _, msg := range due {
		select {
		case <-ctx.Done():
			return
		case sendQueue <- msg:
		}
	}
}

// send formats and delivers one message, then finalizes its queue row.
// Failures mark the row inactive-unsent and are never retried.
func (n *Notifier) send(ctx context.Context, msg *domain.PendingMessage) {
	timer := observability.StartTimer("notifier.send").
		WithMetrics(n.metrics).
		WithTags(observability.T("mode", msg.Mode.String()))
	defer timer.Stop()

	subject, err := renderTemplate(msg.Subject, msg.Context)
	if err == nil {
		var body string
		body, err = renderTemplate(msg.Body, msg.Context)
		if err == nil {
			if n.cfg.SkipSend {
				n.logger.Info("skipsend: dropping message",
					"user", msg.UserName, "mode", msg.Mode.String(), "subject", subject)
			} else {
				err = n.messengers.Send(ctx, msg.Mode, Message{
					Destination: msg.Destination,
					Subject:     subject,
					Body:        body,
				})
			}
		}
	}

	if err != nil {
		n.logger.Error("message delivery failed",
			"queue_id", msg.QueueID.String(), "user", msg.UserName, "mode", msg.Mode.String(), "error", err)
		n.metrics.Counter("notifier.send_failed", 1, observability.T("mode", msg.Mode.String()))
		if markErr := n.queue.MarkFailed(ctx, msg.QueueID); markErr != nil {
			n.logger.Error("marking queue row failed", "queue_id", msg.QueueID.String(), "error", markErr)
		}
		return
	}
	n.metrics.Counter("notifier.sent", 1, observability.T("mode", msg.Mode.String()))
	if markErr := n.queue.MarkSent(ctx, msg.QueueID); markErr != nil {
		n.logger.Error("marking queue row sent", "queue_id", msg.QueueID.String(), "error", markErr)
	}
}
