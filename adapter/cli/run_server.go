package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oncall/oncall/adapter/api"
)

func newRunServerCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "run-server [config]",
		Short: "Serve the on-call HTTP API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, logger, err := buildContainer(ctx, args, "oncall-server", "")
			if err != nil {
				return err
			}
			defer container.Close()

			server := api.NewServer(api.ServerConfig{
				Addr:            fmt.Sprintf("%s:%d", container.Config.Server.Host, container.Config.Server.Port),
				HealthcheckPath: container.Config.HealthcheckPath,
			}, container.APIHandlers())

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown failed", "error", err)
				}
				return nil
			}
		},
	}
}
