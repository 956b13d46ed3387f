// Package dto defines data transfer objects for the classification HTTP API.
package dto

import "time"

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	ClassLabel    string    `json:"class_label"`
	Probabilities []float64 `json:"probabilities"`
}

// PredictionRecordItem is one entry of GET /predictions.
type PredictionRecordItem struct {
	ID            string    `json:"id"`
	ClassLabel    string    `json:"class_label"`
	Probabilities []float64 `json:"probabilities"`
	ImageSHA256   string    `json:"image_sha256"`
	ImageBytes    int       `json:"image_bytes"`
	ContentType   string    `json:"content_type"`
	LatencyMs     float64   `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
	CreatedAt     time.Time `json:"created_at"`
}

// LabelsResponse is the body of GET /labels.
type LabelsResponse struct {
	Labels    []string `json:"labels"`
	ImageSize int      `json:"image_size"`
}
