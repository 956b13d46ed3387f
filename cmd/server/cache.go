package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"classifier_backend/internal/app/di"
)

func newPurgeCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete cached predictions for the configured model.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if !cfg.CacheEnabled() {
				return errors.New("REDIS_ADDR is not set")
			}

			c, err := di.Build(cmd.Context(), cfg, buildOptions...)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					slog.Warn("failed to release resources", "error", err)
				}
			}()
			if c.Cache == nil {
				return errors.New("redis is unavailable")
			}

			n, err := c.Cache.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			slog.Info("prediction cache purged", "deleted", n)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
			return err
		},
	}
}
