package entity

// Labels はモデル出力インデックスとクラス名の対応を定義する順序付きリストです。
type Labels []string

// ArgMax returns the index of the largest value. Ties resolve to the lowest index.
// It returns -1 for an empty slice.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
