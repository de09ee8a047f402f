package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"canteen-tracker/internal/handler"
	"canteen-tracker/internal/router"

	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll in the background and serve the local API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger

	orders := a.tracker.WatchOrders(ctx)
	defer orders.Release()
	queue := a.tracker.WatchQueue(ctx)
	defer queue.Release()

	// Initialize router
	mux := router.New(router.Handlers{
		Order:        handler.NewOrderHandler(a.orders, logger),
		Payment:      handler.NewPaymentHandler(a.payments, logger),
		Analytics:    handler.NewAnalyticsHandler(ctx, a.analytics, a.tracker, logger),
		Notification: handler.NewNotificationHandler(a.notifier, logger),
	}, a.cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         a.cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", a.cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
