package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	jwtmw "classifier_backend/internal/platform/jwt"
)

// Log writes one structured line per request through l.
func Log(l *slog.Logger) gin.HandlerFunc {
	if l == nil {
		l = slog.Default()
	}
	return func(ctx *gin.Context) {
		startTime := time.Now()

		ctx.Next()

		latency := time.Since(startTime).Milliseconds()
		attrs := []any{
			slog.String("ip", ctx.ClientIP()),
			slog.String("method", ctx.Request.Method),
			slog.Int("latency(ms)", int(latency)),
			slog.Int("status", ctx.Writer.Status()),
			slog.String("url", ctx.Request.URL.RequestURI()),
		}
		if sub, ok := ctx.Get(jwtmw.ContextSubject); ok {
			attrs = append(attrs, slog.Any("subject", sub))
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", ctx.Errors.String()))
		}
		l.InfoContext(ctx.Request.Context(), "http request", attrs...)
	}
}
