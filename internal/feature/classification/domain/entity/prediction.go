package entity

// Prediction は1枚の画像に対する推論結果を表します。
// Probabilities はラベルリストと同じ順序で並びます。
type Prediction struct {
	Label         string
	Probabilities []float64
}

// ImageUpload はアップロードされた画像とそのメタデータです。
type ImageUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}
