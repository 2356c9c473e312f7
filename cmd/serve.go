package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/auth"
	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/handlers"
	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the card capture API",
		Long: `Starts the Cardscanner HTTP API on the specified port.

Clients log in, open a capture session, upload the front and back of a card,
and process the session to extract, merge, upload and save the contact record.`,
		Example: `  # Start server on the port from PORT (default 8888)
  cardscanner serve

  # Start server on custom port
  cardscanner serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port == "" {
				port = cfg.Port
			}

			p, err := newPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			// the workbook sink doubles as a self-hosted append endpoint
			var rows sink.Appender
			if wb, ok := p.sink.Appender().(*sink.WorkbookAppender); ok {
				rows = wb
			}

			handler := handlers.New(auth.New(cfg.Auth), p.newSession, rows)

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Cardscanner API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to PORT or 8888)")

	return cmd
}
