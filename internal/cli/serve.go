package cli

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/admin"
	"github.com/pfrederiksen/venue-events/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = e.cfg.AdminAddr
			}
			if !strings.EqualFold(e.cfg.LogLevel, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			store, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer e.closeStore(store)

			srv := admin.NewServer(store, admin.Options{
				Addr:     addr,
				Location: e.loc,
				Log:      e.log,
				Monitor:  e.monitor(store),
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			e.log.Info("admin server shutting down", logger.Fields{"addr": addr})
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}
