// Package config loads service configuration from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"classifier_backend/internal/feature/classification/adapters"
	"classifier_backend/internal/feature/classification/domain/entity"
)

type Config struct {
	Model struct {
		Path        string `env:"MODEL_PATH"`
		InputName   string `env:"MODEL_INPUT_NAME, default=input"`
		OutputName  string `env:"MODEL_OUTPUT_NAME, default=output"`
		LibraryPath string `env:"ONNXRUNTIME_LIB_PATH"`
		ImageSize   int    `env:"IMAGE_SIZE, default=64"`
		EagerLoad   bool   `env:"EAGER_LOAD, default=true"`
		// Width*height limit checked before an upload is decoded.
		MaxPixels int64 `env:"MAX_IMAGE_PIXELS, default=178956970"`
	}

	Labels struct {
		// CLASS_LABELS is comma separated and ordered like the model output.
		Names []string `env:"CLASS_LABELS, default=class_0,class_1,class_2,class_3,class_4,class_5,class_6,class_7,class_8,class_9"`
		Path  string   `env:"LABELS_PATH"`
	}

	HTTP struct {
		Port           int      `env:"PORT, default=8080"`
		MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES, default=10485760"`
		AllowOrigins   []string `env:"CORS_ALLOW_ORIGINS, default=*"`
		// 0 disables rate limiting.
		RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE, default=0"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL, default=info"`
		Format string `env:"LOG_FORMAT, default=json"`
	}

	Redis struct {
		Addr     string        `env:"REDIS_ADDR"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB, default=0"`
		TTL      time.Duration `env:"PREDICTION_CACHE_TTL, default=10m"`
	}

	Database struct {
		Driver string `env:"DB_DRIVER"`
		DSN    string `env:"DB_DSN"`
	}

	JWT struct {
		Secret string        `env:"JWT_SECRET"`
		TTL    time.Duration `env:"JWT_TTL, default=24h"`
	}
}

// LoadConfig reads the process environment into a Config.
func LoadConfig(ctx context.Context) (*Config, error) {
	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads configuration through the given lookuper.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	defer slog.Debug("end load config")
	slog.Debug("start load config")

	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Model.ImageSize <= 0 {
		return fmt.Errorf("IMAGE_SIZE must be positive, got %d", c.Model.ImageSize)
	}
	if c.Model.MaxPixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.Model.MaxPixels)
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.HTTP.RateLimitPerMinute)
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required when DB_DRIVER=%s", c.Database.Driver)
	}
	return nil
}

// ClassLabels returns the ordered label list. LABELS_PATH takes precedence over CLASS_LABELS.
func (c *Config) ClassLabels() (entity.Labels, error) {
	if c.Labels.Path != "" {
		return adapters.LoadLabelsFile(c.Labels.Path)
	}
	labels := make(entity.Labels, 0, len(c.Labels.Names))
	for _, name := range c.Labels.Names {
		if name = strings.TrimSpace(name); name != "" {
			labels = append(labels, name)
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("CLASS_LABELS contains no labels")
	}
	return labels, nil
}

// HistoryEnabled reports whether prediction history is persisted.
func (c *Config) HistoryEnabled() bool {
	return c.Database.Driver != ""
}

// CacheEnabled reports whether predictions are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.JWT.Secret != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
