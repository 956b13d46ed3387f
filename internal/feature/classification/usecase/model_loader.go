// Package usecase はclassificationフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
)

// DefaultModelPath は MODEL_PATH が未設定の場合に使用されるモデルのパスです。
const DefaultModelPath = "models/classifier.onnx"

// Model は読み込み済みモデルのハンドルです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Model interface {
	// Run は1回の順伝播を実行し、クラスごとの出力値を返します。
	Run(ctx context.Context, input entity.Tensor) ([]float64, error)
	// Close はランタイムが保持するリソースを解放します。
	Close() error
}

// OpenFunc は解決済みのパスからモデルを読み込むプリミティブです。
type OpenFunc func(path string) (Model, error)

// ModelLoader はモデルを一度だけ読み込み、プロセス終了までハンドルを保持します。
type ModelLoader struct {
	open       OpenFunc
	configured string

	mu    sync.Mutex
	model Model
	path  string
}

// NewModelLoader はModelLoaderを生成します。
// configuredPath は設定値（MODEL_PATH）で、空の場合は DefaultModelPath が使われます。
func NewModelLoader(open OpenFunc, configuredPath string) *ModelLoader {
	return &ModelLoader{open: open, configured: configuredPath}
}

// ResolvePath は 引数 > 設定値 > デフォルト の順でモデルのパスを決定します。
func (l *ModelLoader) ResolvePath(explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case l.configured != "":
		return l.configured
	default:
		return DefaultModelPath
	}
}

// Load はモデルを読み込んで返します。
// キャッシュ済みの場合は引数に関係なくストレージに触れずに同じハンドルを返します。
func (l *ModelLoader) Load(ctx context.Context, explicitPath string) (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model != nil {
		return l.model, nil
	}

	path := l.ResolvePath(explicitPath)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, path)
	}

	start := time.Now()
	m, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", path, err)
	}
	l.model = m
	l.path = path
	slog.InfoContext(ctx, "model loaded", "path", path, "elapsed", time.Since(start))
	return m, nil
}

// Loaded はモデルが読み込み済みかどうかを返します。
func (l *ModelLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model != nil
}

// Path は読み込み済みモデルのパスを返します。未読み込みの場合は空文字です。
func (l *ModelLoader) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close は読み込み済みモデルを解放します。
func (l *ModelLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	return err
}
