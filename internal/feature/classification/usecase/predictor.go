package usecase

import (
	"context"
	"fmt"

	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
)

// ModelProvider はモデルハンドルを提供します。*ModelLoader が実装します。
type ModelProvider interface {
	Load(ctx context.Context, explicitPath string) (Model, error)
	Loaded() bool
}

// Predictor はモデルの出力をラベルと確率ベクトルに変換します。
type Predictor struct {
	models ModelProvider
	labels entity.Labels
}

// NewPredictor はPredictorを生成します。
func NewPredictor(models ModelProvider, labels entity.Labels) *Predictor {
	return &Predictor{models: models, labels: labels}
}

// Labels は設定済みのラベルリストを返します。
func (p *Predictor) Labels() entity.Labels {
	return p.labels
}

// Predict は1回の順伝播を実行し、argmax（同値は先頭優先）でラベルを選択します。
// 出力はsoftmax済みとは仮定しません。
func (p *Predictor) Predict(ctx context.Context, input entity.Tensor) (*entity.Prediction, error) {
	model, err := p.models.Load(ctx, "")
	if err != nil {
		return nil, err
	}

	out, err := model.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInference, err)
	}
	if len(out) == 0 || len(out) != len(p.labels) {
		return nil, fmt.Errorf("%w: model returned %d values, expected %d classes",
			domain.ErrInference, len(out), len(p.labels))
	}

	idx := entity.ArgMax(out)
	probs := make([]float64, len(out))
	copy(probs, out)
	return &entity.Prediction{
		Label:         p.labels[idx],
		Probabilities: probs,
	}, nil
}
