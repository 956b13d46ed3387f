package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"classifier_backend/internal/app/di"
	"classifier_backend/internal/app/router"
	"classifier_backend/internal/feature/classification/transport/handler"
	"classifier_backend/internal/platform/config"
	platformhandler "classifier_backend/internal/platform/http/handler"
	"classifier_backend/internal/shared/ratelimiter"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		modelPath string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP inference server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("model") {
				cfg.Model.Path = modelPath
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "path to the ONNX model (overrides MODEL_PATH)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	c, err := di.Build(ctx, cfg, buildOptions...)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	if cfg.Model.EagerLoad {
		if err := c.Warmup(ctx); err != nil {
			return err
		}
		slog.Info("model loaded", "path", c.Loader.ResolvePath(""))
	} else {
		slog.Info("model will be loaded on first request", "path", c.Loader.ResolvePath(""))
	}

	if !cfg.AuthEnabled() {
		slog.Warn("JWT_SECRET is not set. Prediction endpoints are unauthenticated.")
	}

	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.NewRouter(router.Deps{
		Classification: handler.NewClassificationHandler(c.Service, cfg.HTTP.MaxUploadBytes),
		Health:         platformhandler.NewHealthHandler(c.Service),
		Metrics:        c.Metrics,
		Logger:         slog.Default(),
		JWTSecret:      cfg.JWT.Secret,
		AllowOrigins:   cfg.HTTP.AllowOrigins,
		RateLimiter:    ratelimiter.NewRateLimiter(cfg.HTTP.RateLimitPerMinute, time.Minute),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
