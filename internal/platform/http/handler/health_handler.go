// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// HealthyMessage はモデル読み込み済みの場合のメッセージです。
	HealthyMessage = "API is healthy and model is loaded."
	// NotReadyMessage はモデル未読み込みの場合のメッセージです。
	NotReadyMessage = "Model is not loaded."
)

// Readiness はサービスがリクエストを処理できる状態かを返します。
type Readiness interface {
	Ready() bool
}

// HealthResponse は /health のレスポンスです。
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthHandler はサービスヘルスチェックを処理します。
type HealthHandler struct {
	readiness Readiness
}

// NewHealthHandler はHealthHandlerの新しいインスタンスを生成します。
func NewHealthHandler(r Readiness) *HealthHandler {
	return &HealthHandler{readiness: r}
}

// Health は /health エンドポイントを処理します。
// モデルが読み込み済みなら200、未読み込みなら503を返し、キャッシュを防止します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	ready := h.readiness != nil && h.readiness.Ready()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(status)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		if ready {
			c.JSON(status, HealthResponse{Status: "ok", Message: HealthyMessage})
			return
		}
		c.JSON(status, HealthResponse{Status: "unavailable", Message: NotReadyMessage})
	}
}
