package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
)

const (
	// MaxImageSize はデフォルトの画像アップロード上限（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
	// DefaultHistoryLimit は履歴取得件数のデフォルト値です。
	DefaultHistoryLimit = 20
	// MaxHistoryLimit は履歴取得件数の上限です。
	MaxHistoryLimit = 100
)

// PredictionCache は画像ハッシュをキーに推論結果を保持するキャッシュです。
// 実装はベストエフォートで、失敗時はミスとして扱います。
type PredictionCache interface {
	Get(ctx context.Context, key string) (*entity.Prediction, bool)
	Set(ctx context.Context, key string, p *entity.Prediction)
}

// PredictionHistory は推論履歴を保存・取得するリポジトリインターフェースです。
type PredictionHistory interface {
	Save(ctx context.Context, rec entity.PredictionRecord) error
	ListRecent(ctx context.Context, limit int) ([]entity.PredictionRecord, error)
}

// Recorder は推論のメトリクスを記録します。
type Recorder interface {
	ObserveInference(d time.Duration, err error)
	ObserveCache(hit bool)
}

// Option はclassificationUsecaseの任意設定です。
type Option func(*classificationUsecase)

// WithCache は推論結果キャッシュを設定します。
func WithCache(c PredictionCache) Option {
	return func(u *classificationUsecase) { u.cache = c }
}

// WithHistory は推論履歴リポジトリを設定します。
func WithHistory(h PredictionHistory) Option {
	return func(u *classificationUsecase) { u.history = h }
}

// WithRecorder はメトリクスレコーダーを設定します。
func WithRecorder(r Recorder) Option {
	return func(u *classificationUsecase) { u.recorder = r }
}

// WithMaxImageBytes はアップロード上限を設定します。0以下は MaxImageSize になります。
func WithMaxImageBytes(n int) Option {
	return func(u *classificationUsecase) {
		if n > 0 {
			u.maxImageBytes = n
		}
	}
}

// classificationUsecase は前処理と推論をつなぐビジネスロジックを提供します。
type classificationUsecase struct {
	preprocessor  *Preprocessor
	predictor     *Predictor
	models        ModelProvider
	cache         PredictionCache
	history       PredictionHistory
	recorder      Recorder
	maxImageBytes int
	now           func() time.Time
}

// NewClassificationUsecase はclassificationUsecaseの新しいインスタンスを生成します。
func NewClassificationUsecase(pre *Preprocessor, pred *Predictor, opts ...Option) *classificationUsecase {
	u := &classificationUsecase{
		preprocessor:  pre,
		predictor:     pred,
		models:        pred.models,
		maxImageBytes: MaxImageSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Classify は画像を前処理して推論し、結果を返します。
func (u *classificationUsecase) Classify(ctx context.Context, upload entity.ImageUpload) (*entity.Prediction, error) {
	if !IsImageType(upload.ContentType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, upload.ContentType)
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: image data is empty", domain.ErrDecode)
	}
	if len(upload.Data) > u.maxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", domain.ErrImageTooLarge, len(upload.Data), u.maxImageBytes)
	}

	start := u.now()
	key := imageKey(upload.Data)

	if u.cache != nil {
		if p, ok := u.cache.Get(ctx, key); ok {
			u.observeCache(true)
			u.record(ctx, upload, key, p, u.now().Sub(start), true)
			return p, nil
		}
		u.observeCache(false)
	}

	tensor, err := u.preprocessor.Preprocess(upload.Data)
	if err != nil {
		return nil, err
	}

	inferStart := u.now()
	p, err := u.predictor.Predict(ctx, tensor)
	if u.recorder != nil {
		u.recorder.ObserveInference(u.now().Sub(inferStart), err)
	}
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		u.cache.Set(ctx, key, p)
	}
	u.record(ctx, upload, key, p, u.now().Sub(start), false)
	return p, nil
}

// Ready はモデルが読み込み済みかどうかを返します。
func (u *classificationUsecase) Ready() bool {
	return u.models.Loaded()
}

// Labels はラベルリストを返します。
func (u *classificationUsecase) Labels() entity.Labels {
	return u.predictor.Labels()
}

// ImageSize はモデル入力の解像度を返します。
func (u *classificationUsecase) ImageSize() int {
	return u.preprocessor.Size()
}

// ListHistory は直近の推論履歴を新しい順に返します。
func (u *classificationUsecase) ListHistory(ctx context.Context, limit int) ([]entity.PredictionRecord, error) {
	if u.history == nil {
		return nil, domain.ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	recs, err := u.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction history: %w", err)
	}
	return recs, nil
}

func (u *classificationUsecase) observeCache(hit bool) {
	if u.recorder != nil {
		u.recorder.ObserveCache(hit)
	}
}

// record saves a history entry. Failures are logged and never fail the request.
func (u *classificationUsecase) record(ctx context.Context, upload entity.ImageUpload, key string,
	p *entity.Prediction, latency time.Duration, cacheHit bool) {
	if u.history == nil {
		return
	}
	rec := entity.PredictionRecord{
		ID:            uuid.NewString(),
		Label:         p.Label,
		Probabilities: p.Probabilities,
		ImageSHA256:   key,
		ImageBytes:    len(upload.Data),
		ContentType:   upload.ContentType,
		Latency:       latency,
		CacheHit:      cacheHit,
		CreatedAt:     u.now().UTC(),
	}
	if err := u.history.Save(ctx, rec); err != nil {
		slog.WarnContext(ctx, "failed to save prediction history", "error", err, "label", p.Label)
	}
}

// IsImageType は宣言されたContent-Typeが image/* かどうかを返します。
func IsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// imageKey は画像バイト列のSHA-256（16進）を返します。
func imageKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
