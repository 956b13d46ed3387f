// Package handler はclassificationフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/transport/http/dto"
)

const (
	// FileField はアップロード画像のマルチパートフィールド名です。
	FileField = "file"
	// OnlyImagesDetail は画像以外のContent-Typeに対するエラーメッセージです。
	OnlyImagesDetail = "Only image files (JPEG, PNG, GIF, BMP, WebP) are allowed for prediction."
	// multipartOverhead はマルチパートの境界やヘッダーに許容する余裕分です。
	multipartOverhead = 1 << 20
)

// ClassificationUsecase は画像分類のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ClassificationUsecase interface {
	Classify(ctx context.Context, upload entity.ImageUpload) (*entity.Prediction, error)
	ListHistory(ctx context.Context, limit int) ([]entity.PredictionRecord, error)
	Labels() entity.Labels
	ImageSize() int
}

// ClassificationHandler は画像分類のHTTPリクエストを処理します。
type ClassificationHandler struct {
	uc             ClassificationUsecase
	maxUploadBytes int64
}

// NewClassificationHandler はClassificationHandlerの新しいインスタンスを生成します。
// maxUploadBytes が0以下の場合、リクエストボディのサイズは制限しません。
func NewClassificationHandler(uc ClassificationUsecase, maxUploadBytes int64) *ClassificationHandler {
	return &ClassificationHandler{uc: uc, maxUploadBytes: maxUploadBytes}
}

// Predict は画像をアップロードして分類結果を返します。
//
// エンドポイント: POST /predict
// Content-Type: multipart/form-data
// フィールド: file（画像ファイル）
func (h *ClassificationHandler) Predict(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, err := c.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("upload exceeds limit", "limit", tooLarge.Limit, "remote_addr", c.ClientIP())
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Detail: "Uploaded file is too large."})
			return
		}
		slog.Warn("file field missing", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusUnprocessableEntity, dto.MissingField("body", FileField))
		return
	}

	contentType := file.Header.Get("Content-Type")
	f, err := file.Open()
	if err != nil {
		slog.Error("failed to open uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "Failed to read uploaded file."})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close uploaded file", "error", err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("failed to read uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "Failed to read uploaded file."})
		return
	}

	p, err := h.uc.Classify(c.Request.Context(), entity.ImageUpload{
		Data:        data,
		Filename:    file.Filename,
		ContentType: contentType,
	})
	if err != nil {
		status, detail := errorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("prediction failed", "error", err, "filename", file.Filename)
		} else {
			slog.Warn("prediction rejected", "error", err, "filename", file.Filename)
		}
		c.JSON(status, dto.ErrorResponse{Detail: detail})
		return
	}

	c.JSON(http.StatusOK, dto.PredictResponse{
		ClassLabel:    p.Label,
		Probabilities: p.Probabilities,
	})
}

// ListPredictions は直近の推論履歴を返します。
//
// エンドポイント: GET /predictions?limit=N（1〜100、デフォルト20）
func (h *ClassificationHandler) ListPredictions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: "limit must be an integer between 1 and 100."})
			return
		}
		limit = n
	}

	recs, err := h.uc.ListHistory(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryDisabled) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: "Prediction history is not enabled."})
			return
		}
		slog.Error("failed to list prediction history", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "Failed to load prediction history."})
		return
	}

	out := make([]dto.PredictionRecordItem, 0, len(recs))
	for _, r := range recs {
		out = append(out, dto.PredictionRecordItem{
			ID:            r.ID,
			ClassLabel:    r.Label,
			Probabilities: r.Probabilities,
			ImageSHA256:   r.ImageSHA256,
			ImageBytes:    r.ImageBytes,
			ContentType:   r.ContentType,
			LatencyMs:     float64(r.Latency.Microseconds()) / 1000,
			CacheHit:      r.CacheHit,
			CreatedAt:     r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Labels はラベルリストと入力解像度を返します。
//
// エンドポイント: GET /labels
func (h *ClassificationHandler) Labels(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LabelsResponse{
		Labels:    h.uc.Labels(),
		ImageSize: h.uc.ImageSize(),
	})
}

// errorStatus maps domain errors to an HTTP status and a client-facing detail.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest, "Error processing image: " + err.Error()
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusBadRequest, OnlyImagesDetail
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "Uploaded file is too large."
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusInternalServerError, "Model is not available: " + err.Error()
	default:
		return http.StatusInternalServerError, "Prediction failed: " + err.Error()
	}
}
