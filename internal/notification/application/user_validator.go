package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	domain "github.com/oncall/oncall/internal/notification/domain"
)

// UserValidatorConfig controls the misconfigured-user sweep.
type UserValidatorConfig struct {
	Interval time.Duration
	Subject  string
	Body     string
}

// UserValidator periodically finds users who hold future events but
// have no call contact, and emails each of them a configured nudge.
type UserValidator struct {
	users  identityDomain.UserRepository
	queue  domain.QueueRepository
	cfg    UserValidatorConfig
	logger *slog.Logger
	clock  core.Clock
}

// NewUserValidator wires the validator.
func NewUserValidator(users identityDomain.UserRepository, queue domain.QueueRepository, cfg UserValidatorConfig, logger *slog.Logger, clock core.Clock) *UserValidator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if clock == nil {
		clock = core.SystemClock
	}
	return &UserValidator{users: users, queue: queue, cfg: cfg, logger: logger, clock: clock}
}

// Run blocks until ctx is cancelled.
func (v *UserValidator) Run(ctx context.Context) {
	ticker := time.NewTicker(v.cfg.Interval)
	defer ticker.Stop()
	v.validate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.validate(ctx)
		}
	}
}

func (v *UserValidator) validate(ctx context.Context) {
	users, err := v.users.FindWithFutureEventsMissingCallContact(ctx)
	if err != nil {
		v.logger.Error("user validation scan failed", "error", err)
		return
	}
	now := v.clock()
	for _, user := range users {
		contextJSON, err := json.Marshal(map[string]any{
			"full_name": user.FullName(),
			"subject":   v.cfg.Subject,
			"body":      v.cfg.Body,
		})
		if err != nil {
			continue
		}
		row := domain.NewQueueRow(user.ID(), identityDomain.ContactModeEmail, domain.ActionUserValidation, now, string(contextJSON))
		if err := v.queue.Enqueue(ctx, []*domain.QueueRow{row}); err != nil {
			v.logger.Error("enqueueing validation email failed", "user", user.Name().String(), "error", err)
		}
	}
}
