// Package cli defines the oncall process verbs: run-server, scheduler,
// and notifier, each loading the YAML config and assembling the shared
// container before entering its loop.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oncall/oncall/internal/app"
	"github.com/oncall/oncall/pkg/config"
	"github.com/oncall/oncall/pkg/observability"
)

// loadConfig reads the config file argument, falling back to defaults
// when none is given.
func loadConfig(args []string) (*config.Config, error) {
	if len(args) == 0 {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(args[0])
}

// processLogger builds the slog logger for one process, honoring an
// optional log file path (SCHEDULER_LOG_FILE / NOTIFIER_LOG_FILE).
func processLogger(service, logFile string) *slog.Logger {
	cfg := observability.DefaultLogConfig()
	cfg.ServiceName = service
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			cfg.Output = f
		}
	}
	return observability.NewLogger(cfg)
}

// NewRootCommand assembles the oncall CLI.
func NewRootCommand(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "oncall",
		Short:         "Team on-call calendar system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunServerCommand(ctx))
	root.AddCommand(newSchedulerCommand(ctx))
	root.AddCommand(newNotifierCommand(ctx))
	return root
}

// buildContainer is the shared boot path for all three verbs.
func buildContainer(ctx context.Context, args []string, service, logFile string) (*app.Container, *slog.Logger, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, nil, err
	}
	logger := processLogger(service, logFile)
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return container, logger, nil
}
