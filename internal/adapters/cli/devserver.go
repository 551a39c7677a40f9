package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/devserver"
)

// NewDevServerCmd creates the dev-server command
func NewDevServerCmd() *cobra.Command {
	var (
		port              string
		stageDuration     time.Duration
		awaitConfirmation bool
	)

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory Poser API for local development",
		Long: `Starts a local Poser API that keeps everything in memory. Analyses move
through the processing stages on a timer and finish with generated metrics.

Verification codes and confirmation tokens are logged to stderr instead of
being emailed. The code 123456 is always accepted.`,
		Example: `  # Start the server on the default port 8000
  poser dev-server

  # Faster stages and the email confirmation gate
  poser dev-server --stage-duration 1s --await-confirmation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			srv := devserver.New(devserver.Options{
				StageDuration:     stageDuration,
				AwaitConfirmation: awaitConfirmation,
				Logger:            logger,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Poser dev API available", "addr", addr, "url", "http://localhost"+addr, "code", devserver.DevCode)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "err", err)
					return err
				}
				logger.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8000", "Port to listen on")
	cmd.Flags().DurationVar(&stageDuration, "stage-duration", devserver.DefaultStageDuration, "Time spent in each processing stage")
	cmd.Flags().BoolVar(&awaitConfirmation, "await-confirmation", false, "Hold new analyses until the email is confirmed")

	return cmd
}
