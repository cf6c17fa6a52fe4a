package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/packsmith/packsmith/internal/httpapi"
)

// serveCommand starts the HTTP manipulation service.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve manifest manipulation over HTTP",
		Long: `Serve exposes manifest manipulation as an HTTP API for build
pipelines: POST a manifest plus config to /api/manipulate and receive the
rewritten manifest back. The service holds no state and never touches the
filesystem.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewHandler(c.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Shut down cleanly when the command context is cancelled.
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			c.Logger.Info("listening", "addr", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8483", "listen address")

	return cmd
}
