// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"classifier_backend/internal/feature/classification/adapters"
	"classifier_backend/internal/feature/classification/adapters/onnx"
	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/usecase"
	"classifier_backend/internal/platform/cache"
	"classifier_backend/internal/platform/config"
	infradb "classifier_backend/internal/platform/db"
	"classifier_backend/internal/platform/http/middleware"
	infraredis "classifier_backend/internal/platform/redis"
)

// ClassificationService is the usecase surface consumed by transports.
type ClassificationService interface {
	Classify(ctx context.Context, upload entity.ImageUpload) (*entity.Prediction, error)
	ListHistory(ctx context.Context, limit int) ([]entity.PredictionRecord, error)
	Labels() entity.Labels
	ImageSize() int
	Ready() bool
}

// Container holds the wired application graph and the resources it owns.
type Container struct {
	Config  *config.Config
	Loader  *usecase.ModelLoader
	Service ClassificationService
	Metrics *middleware.Metrics
	Cache   *cache.PredictionCache

	redis   *redisv9.Client
	db      *gorm.DB
	ownsORT bool
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	open usecase.OpenFunc
}

// WithOpenFunc replaces the ONNX Runtime opener, mainly for tests.
func WithOpenFunc(open usecase.OpenFunc) Option {
	return func(o *buildOptions) { o.open = open }
}

// Build wires the loader, preprocessor, predictor and the optional cache and
// history stores from cfg. Redis and database failures disable the feature
// with a warning instead of failing startup.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	labels, err := cfg.ClassLabels()
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Metrics: middleware.NewMetrics()}

	open := o.open
	if open == nil {
		open = onnx.Opener(onnx.Config{
			InputName:   cfg.Model.InputName,
			OutputName:  cfg.Model.OutputName,
			ImageSize:   cfg.Model.ImageSize,
			NumClasses:  len(labels),
			LibraryPath: cfg.Model.LibraryPath,
		})
		c.ownsORT = true
	}
	c.Loader = usecase.NewModelLoader(open, cfg.Model.Path)

	ucOpts := []usecase.Option{
		usecase.WithRecorder(c.Metrics),
		usecase.WithMaxImageBytes(int(cfg.HTTP.MaxUploadBytes)),
	}

	if cfg.CacheEnabled() {
		rdb, err := infraredis.NewRedisClient(ctx, infraredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Warn("Redis unavailable. Running without prediction cache.", "error", err)
		} else {
			c.redis = rdb
			c.Cache = cache.NewPredictionCache(rdb, cfg.Redis.TTL, CacheNamespace(c.Loader.ResolvePath(""), cfg.Model.ImageSize, labels))
			ucOpts = append(ucOpts, usecase.WithCache(c.Cache))
		}
	}

	if cfg.HistoryEnabled() {
		db, err := infradb.OpenDB(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			slog.Warn("history database unavailable. Running without prediction history.", "error", err)
		} else {
			c.db = db
			ucOpts = append(ucOpts, usecase.WithHistory(adapters.NewPredictionRepository(db)))
		}
	}

	pre := usecase.NewPreprocessor(cfg.Model.ImageSize, usecase.WithMaxPixels(cfg.Model.MaxPixels))
	pred := usecase.NewPredictor(c.Loader, labels)
	c.Service = usecase.NewClassificationUsecase(pre, pred, ucOpts...)
	return c, nil
}

// Warmup loads the model ahead of the first request.
func (c *Container) Warmup(ctx context.Context) error {
	if _, err := c.Loader.Load(ctx, ""); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	return nil
}

// Close releases the model, the runtime and the store connections.
func (c *Container) Close() error {
	var errs []error
	if c.Loader != nil {
		errs = append(errs, c.Loader.Close())
	}
	if c.ownsORT {
		errs = append(errs, onnx.Shutdown())
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	errs = append(errs, infradb.Close(c.db))
	return errors.Join(errs...)
}

// CacheNamespace derives a Redis namespace from the model identity so entries
// produced by a different artifact, resolution or label set are never served.
func CacheNamespace(modelPath string, imageSize int, labels entity.Labels) string {
	h := sha256.New()
	h.Write([]byte(modelPath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(imageSize)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(labels, "\x00")))
	return cache.DefaultNamespace + ":" + hex.EncodeToString(h.Sum(nil))[:12]
}
