// Package entity はclassificationフィーチャーのドメインモデルを定義します。
package entity

// Tensor はモデル入力となるNHWC形式の4次元テンソルです。
// Shape は (batch, height, width, channels)、Data は行優先で格納されます。
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// NewImageTensor は (1, height, width, 3) のゼロ初期化済みテンソルを生成します。
func NewImageTensor(height, width int) Tensor {
	return Tensor{
		Shape: [4]int{1, height, width, 3},
		Data:  make([]float32, height*width*3),
	}
}

// Len はShapeから計算される要素数を返します。
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// ShapeInt64 はランタイムに渡すための int64 形式のShapeを返します。
func (t Tensor) ShapeInt64() []int64 {
	return []int64{int64(t.Shape[0]), int64(t.Shape[1]), int64(t.Shape[2]), int64(t.Shape[3])}
}
