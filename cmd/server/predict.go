package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"classifier_backend/internal/app/di"
	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/transport/http/dto"
)

func newPredictCmd() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Classify a local image file and print the result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if modelPath != "" {
				cfg.Model.Path = modelPath
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
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

			if err := c.Warmup(cmd.Context()); err != nil {
				return err
			}

			p, err := c.Service.Classify(cmd.Context(), entity.ImageUpload{
				Data:        data,
				Filename:    filepath.Base(args[0]),
				ContentType: http.DetectContentType(data),
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.PredictResponse{ClassLabel: p.Label, Probabilities: p.Probabilities})
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "path to the ONNX model (overrides MODEL_PATH)")
	return cmd
}
