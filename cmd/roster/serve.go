package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/roster/internal/export"
	"github.com/rpattn/roster/internal/ingestion"
	"github.com/rpattn/roster/internal/server"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := server.NewHandler(server.Dependencies{
				Records:   a.records,
				Ingestion: a.ingestionService(),
				Export:    export.NewService(a.records),
				Metrics:   a.metrics,
				Logger:    logger,
				Backend:   cfg.Backend,
				Upload: ingestion.HandlerConfig{
					UploadDir:      cfg.Server.UploadDir,
					MaxUploadBytes: cfg.Server.MaxUploadBytes,
				},
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      handler,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.WithField("addr", srv.Addr).Info("starting HTTP server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return errors.Wrap(err, "failed to start server")
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "server forced to shutdown")
			}
			logger.Info("server exited")
			return nil
		},
	}
}
