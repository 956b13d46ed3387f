// Package adapters はclassificationフィーチャーの永続化アダプターを提供します。
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/usecase"
)

type predictionGorm struct {
	db *gorm.DB
}

var _ usecase.PredictionHistory = (*predictionGorm)(nil)

// NewPredictionRepository はgormで推論履歴を保存するリポジトリを生成します。
func NewPredictionRepository(db *gorm.DB) *predictionGorm {
	return &predictionGorm{db: db}
}

// PredictionModel は predictions テーブルの行です。
type PredictionModel struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Label         string    `gorm:"size:128;not null;index"`
	Probabilities []float64 `gorm:"serializer:json;type:text;not null"`
	ImageSHA256   string    `gorm:"column:image_sha256;size:64;not null;index"`
	ImageBytes    int       `gorm:"not null"`
	ContentType   string    `gorm:"size:128"`
	LatencyMicros int64     `gorm:"not null;default:0"`
	CacheHit      bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (PredictionModel) TableName() string {
	return "predictions"
}

func toModel(e entity.PredictionRecord) PredictionModel {
	return PredictionModel{
		ID:            e.ID,
		Label:         e.Label,
		Probabilities: e.Probabilities,
		ImageSHA256:   e.ImageSHA256,
		ImageBytes:    e.ImageBytes,
		ContentType:   e.ContentType,
		LatencyMicros: e.Latency.Microseconds(),
		CacheHit:      e.CacheHit,
		CreatedAt:     e.CreatedAt,
	}
}

func toEntity(m PredictionModel) entity.PredictionRecord {
	return entity.PredictionRecord{
		ID:            m.ID,
		Label:         m.Label,
		Probabilities: m.Probabilities,
		ImageSHA256:   m.ImageSHA256,
		ImageBytes:    m.ImageBytes,
		ContentType:   m.ContentType,
		Latency:       time.Duration(m.LatencyMicros) * time.Microsecond,
		CacheHit:      m.CacheHit,
		CreatedAt:     m.CreatedAt,
	}
}

func (r *predictionGorm) Save(ctx context.Context, rec entity.PredictionRecord) error {
	m := toModel(rec)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *predictionGorm) ListRecent(ctx context.Context, limit int) ([]entity.PredictionRecord, error) {
	var rows []PredictionModel
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.PredictionRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}
