package entity

import "time"

// PredictionRecord は推論履歴の1件を表します。
type PredictionRecord struct {
	ID            string
	Label         string
	Probabilities []float64
	ImageSHA256   string
	ImageBytes    int
	ContentType   string
	Latency       time.Duration
	CacheHit      bool
	CreatedAt     time.Time
}
