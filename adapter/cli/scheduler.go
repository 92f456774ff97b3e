package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	schedulingApp "github.com/oncall/oncall/internal/scheduling/application"
)

func newSchedulerCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler [config]",
		Short: "Run the schedule-to-event materializer loop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, logger, err := buildContainer(ctx, args, "oncall-scheduler", os.Getenv("SCHEDULER_LOG_FILE"))
			if err != nil {
				return err
			}
			defer container.Close()

			loop := schedulingApp.NewLoop(container.Engine, container.Config.SchedulerCycleTime, logger)
			loop.Run(ctx)
			return nil
		},
	}
}
