package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	notificationApp "github.com/oncall/oncall/internal/notification/application"
	"github.com/oncall/oncall/internal/notification/infrastructure/messenger"
	notificationPersistence "github.com/oncall/oncall/internal/notification/infrastructure/persistence"
	"github.com/oncall/oncall/internal/shared/infrastructure/eventbus"
	"github.com/oncall/oncall/internal/shared/infrastructure/outbox"
	"github.com/oncall/oncall/pkg/config"
)

func buildMessengers(cfgs []config.MessengerConfig) *notificationApp.MessengerSet {
	var transports []notificationApp.Messenger
	for _, m := range cfgs {
		mode, err := identityDomain.ParseContactMode(m.Mode)
		if err != nil {
			continue
		}
		var transport notificationApp.Messenger
		switch mode {
		case identityDomain.ContactModeEmail:
			transport = messenger.NewEmailMessenger(m.SMTPAddr, m.From)
		case identityDomain.ContactModeSlack:
			transport = messenger.NewSlackMessenger(m.Token)
		default:
			transport = messenger.NewWebhookMessenger(mode, m.URL)
		}
		transports = append(transports, messenger.WithBreaker(transport))
	}
	return notificationApp.NewMessengerSet(transports...)
}

func newNotifierCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "notifier [config]",
		Short: "Run the notification delivery loop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, logger, err := buildContainer(ctx, args, "oncall-notifier", os.Getenv("NOTIFIER_LOG_FILE"))
			if err != nil {
				return err
			}
			defer container.Close()
			cfg := container.Config

			notifier := notificationApp.NewNotifier(container.Queue, buildMessengers(cfg.Messengers),
				notificationApp.NotifierConfig{
					PollInterval: 60 * time.Second,
					SkipSend:     cfg.Notifier.Skipsend,
				}, logger, container.Metrics, container.Clock)

			if cfg.Reminder.Activated {
				sweeper := notificationApp.NewReminderSweeper(
					notificationPersistence.NewSQLReminderSource(container.Conn),
					container.Queue, 15*time.Minute, 24*time.Hour, logger, container.Clock)
				go sweeper.Run(ctx)
			}
			if cfg.UserValidator.Activated {
				validator := notificationApp.NewUserValidator(container.Users, container.Queue,
					notificationApp.UserValidatorConfig{
						Interval: cfg.UserValidator.Interval,
						Subject:  cfg.UserValidator.Subject,
						Body:     cfg.UserValidator.Body,
					}, logger, container.Clock)
				go validator.Run(ctx)
			}

			// Calendar-change consumers: superseded reminders are
			// deactivated when an event is edited, deleted, swapped, or
			// substituted. Local mode dispatches in-process off the
			// outbox; with RabbitMQ a broker consumer drains the queue.
			supersede := notificationApp.NewReminderSupersedeConsumer(container.Queue, logger, container.Clock)
			if container.Bus != nil {
				container.Bus.RegisterConsumer(supersede)
			} else {
				registry := eventbus.NewConsumerRegistry(logger)
				consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
					URL:    cfg.RabbitMQURL,
					Logger: logger,
				}, registry)
				if err != nil {
					return err
				}
				consumer.RegisterConsumer(supersede)
				defer consumer.Close()
				go func() {
					if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
						logger.Error("event consumer stopped", "error", err)
					}
				}()
			}

			// Outbox processor publishes mutation copies to the bus for
			// out-of-process subscribers.
			processorCfg := outbox.DefaultProcessorConfig()
			if cfg.OutboxPollInterval > 0 {
				processorCfg.PollInterval = cfg.OutboxPollInterval
			}
			if cfg.OutboxBatchSize > 0 {
				processorCfg.BatchSize = cfg.OutboxBatchSize
			}
			processor := outbox.NewProcessor(container.Outbox, container.Publisher, processorCfg, logger)
			go processor.Start(ctx)
			defer processor.Stop()

			notifier.Run(ctx)
			return nil
		},
	}
}
