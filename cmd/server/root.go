package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"classifier_backend/internal/app/di"
	"classifier_backend/internal/platform/config"
	"classifier_backend/internal/platform/logger"
)

// buildOptions lets tests replace the model runtime.
var buildOptions []di.Option

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:          "server",
		Short:        "Image classification inference API.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			// フラグ指定が環境変数より優先
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			logger.Setup(cfg.Log.Level, cfg.Log.Format)
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "json", "log format: json or text (overrides LOG_FORMAT)")
	root.DisableAutoGenTag = true

	serve := newServeCmd()
	root.AddCommand(serve, newPredictCmd(), newTokenCmd(), newPurgeCacheCmd())

	// サブコマンドなしは serve
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
