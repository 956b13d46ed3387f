package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifier_backend/internal/app/di"
	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/usecase"
)

type fakeModel struct{}

func (fakeModel) Run(ctx context.Context, input entity.Tensor) ([]float64, error) {
	return []float64{0.2, 0.8}, nil
}

func (fakeModel) Close() error { return nil }

// setupEnv は外部ストアを無効化したテスト用の環境変数を設定します。
func setupEnv(t *testing.T) {
	t.Helper()

	modelPath := filepath.Join(t.TempDir(), "classifier.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx"), 0o600))

	t.Setenv("MODEL_PATH", modelPath)
	t.Setenv("CLASS_LABELS", "cat,dog")
	t.Setenv("IMAGE_SIZE", "8")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LABELS_PATH", "")
	t.Setenv("JWT_SECRET", "")

	buildOptions = []di.Option{di.WithOpenFunc(func(path string) (usecase.Model, error) {
		return fakeModel{}, nil
	})}
	t.Cleanup(func() { buildOptions = nil })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "sample.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestPredictCmd(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "predict", writePNG(t))
	require.NoError(t, err)

	var got struct {
		ClassLabel    string    `json:"class_label"`
		Probabilities []float64 `json:"probabilities"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dog", got.ClassLabel)
	assert.Equal(t, []float64{0.2, 0.8}, got.Probabilities)
}

func TestPredictCmd_RejectsNonImage(t *testing.T) {
	setupEnv(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("This is not an image."), 0o600))

	_, err := execute(t, "predict", path)

	assert.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
}

func TestPredictCmd_MissingModel(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "predict", "--model", filepath.Join(t.TempDir(), "missing.onnx"), writePNG(t))

	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestTokenCmd(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--subject", "batch-client")
	require.NoError(t, err)

	raw := strings.TrimSpace(out)
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "batch-client", claims.Subject)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "token", "--subject", "batch-client")

	assert.Error(t, err)
}

func TestPurgeCacheCmd_RequiresRedis(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "purge-cache")

	assert.ErrorContains(t, err, "REDIS_ADDR")
}
