// Package router はHTTPルーティングを構成します。
package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	classificationhandler "classifier_backend/internal/feature/classification/transport/handler"
	platformhandler "classifier_backend/internal/platform/http/handler"
	"classifier_backend/internal/platform/http/middleware"
	jwtmw "classifier_backend/internal/platform/jwt"
	"classifier_backend/internal/shared/ratelimiter"
)

// Deps はルーター構築に必要な依存関係です。
type Deps struct {
	Classification *classificationhandler.ClassificationHandler
	Health         *platformhandler.HealthHandler
	Metrics        *middleware.Metrics
	Logger         *slog.Logger
	// JWTSecret が空の場合は認証なしで公開します。
	JWTSecret    string
	AllowOrigins []string
	// RateLimiter が nil の場合は制限しません。
	RateLimiter *ratelimiter.RateLimiter
}

// NewRouter はミドルウェアとルートを登録したginエンジンを生成します。
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(d.Metrics))
	r.Use(middleware.Log(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(cors.New(corsConfig(d.AllowOrigins)))

	// 認証不要
	// 導通確認用
	r.GET("/health", d.Health.Health)
	r.HEAD("/health", d.Health.Health)
	r.OPTIONS("/health", d.Health.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// JWT_SECRET が設定されている場合は認証必須
	api := r.Group("/")
	if d.JWTSecret != "" {
		api.Use(jwtmw.AuthRequired(d.JWTSecret))
	}
	if d.RateLimiter != nil {
		api.Use(middleware.RateLimit(d.RateLimiter))
	}
	{
		api.POST("/predict", d.Classification.Predict)
		api.GET("/predictions", d.Classification.ListPredictions)
		api.GET("/labels", d.Classification.Labels)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
