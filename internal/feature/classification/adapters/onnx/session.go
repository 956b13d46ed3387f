// Package onnx はONNX Runtimeを使用したモデル実行アダプターを提供します。
package onnx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/usecase"
)

// Config holds the tensor contract of the exported model.
type Config struct {
	InputName   string // graph input name, e.g. "input"
	OutputName  string // graph output name, e.g. "output"
	ImageSize   int    // input height and width
	NumClasses  int    // length of the output vector
	LibraryPath string // onnxruntime shared library; empty uses the runtime default
}

var envMu sync.Mutex

// Session は入出力テンソルを事前確保したONNX Runtimeセッションです。
// テンソルはセッションに束縛されるため、Run はミューテックスで直列化されます。
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// Sessionがusecase.Modelを実装していることをコンパイル時に検証します。
var _ usecase.Model = (*Session)(nil)

// Opener はConfigを束縛したusecase.OpenFuncを返します。
func Opener(cfg Config) usecase.OpenFunc {
	return func(path string) (usecase.Model, error) {
		return Open(path, cfg)
	}
}

// Open はモデルファイルを読み込み、(1,H,W,3) 入力・(1,classes) 出力のセッションを作成します。
func Open(path string, cfg Config) (*Session, error) {
	if cfg.ImageSize <= 0 || cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("invalid tensor contract: image size %d, classes %d", cfg.ImageSize, cfg.NumClasses)
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	size := int64(cfg.ImageSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumClasses)))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{session: session, input: input, output: output}, nil
}

// Run は入力テンソルをコピーして順伝播を実行します。
func (s *Session) Run(ctx context.Context, in entity.Tensor) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if want := s.input.GetShape(); !slices.Equal([]int64(want), in.ShapeInt64()) {
		return nil, fmt.Errorf("input shape %v, model expects %v", in.Shape, want)
	}
	dst := s.input.GetData()
	if len(in.Data) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(in.Data), len(dst))
	}
	copy(dst, in.Data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}
	return widen(s.output.GetData()), nil
}

// Close はセッションとテンソルを破棄します。
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	if s.input != nil {
		errs = append(errs, s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		errs = append(errs, s.output.Destroy())
		s.output = nil
	}
	return errors.Join(errs...)
}

// Shutdown releases the process-wide ONNX Runtime environment.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// widen converts float32 outputs to float64 using the shortest decimal form of each
// float32, so 0.95 stays 0.95 instead of 0.949999988079071.
func widen(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		if err != nil {
			f = float64(v)
		}
		out[i] = f
	}
	return out
}
