package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifier_backend/internal/feature/classification/domain/entity"
)

const digest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

// TestNewPredictionCache_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewPredictionCache_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{
			name:              "default values when zero/empty",
			expectedTTL:       DefaultTTL,
			expectedNamespace: "predictions",
		},
		{
			name:              "negative ttl uses default",
			ttl:               -1 * time.Minute,
			expectedTTL:       DefaultTTL,
			expectedNamespace: "predictions",
		},
		{
			name:              "custom values preserved",
			ttl:               time.Hour,
			namespace:         "predictions:ab12",
			expectedTTL:       time.Hour,
			expectedNamespace: "predictions:ab12",
		},
		{
			name:              "wildcards escaped",
			ttl:               time.Hour,
			namespace:         "my preds*",
			expectedTTL:       time.Hour,
			expectedNamespace: "my_preds_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewPredictionCache(nil, tt.ttl, tt.namespace)

			assert.Equal(t, tt.expectedTTL, c.ttl)
			assert.Equal(t, tt.expectedNamespace, c.namespace)
		})
	}
}

// TestPredictionCache_NilRedis はRedisがnilの場合に常にミスとなり、パニックしないことを検証します。
func TestPredictionCache_NilRedis(t *testing.T) {
	t.Parallel()

	c := NewPredictionCache(nil, time.Minute, "")
	ctx := context.Background()

	c.Set(ctx, digest, &entity.Prediction{Label: "dog"})
	p, ok := c.Get(ctx, digest)
	assert.False(t, ok)
	assert.Nil(t, p)

	n, err := c.Purge(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

// TestPredictionCache_Get_Hit はキャッシュヒット時に保存済みの推論結果を返すことを検証します。
func TestPredictionCache_Get_Hit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("predictions:" + digest).SetVal(`{"class_label":"dog","probabilities":[0.05,0.95]}`)

	c := NewPredictionCache(rdb, time.Minute, "")
	p, ok := c.Get(context.Background(), digest)

	require.True(t, ok)
	assert.Equal(t, &entity.Prediction{Label: "dog", Probabilities: []float64{0.05, 0.95}}, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPredictionCache_Get_Miss はキーが存在しない場合やRedisエラー時にミスとなることを検証します。
func TestPredictionCache_Get_Miss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(mock redismock.ClientMock)
	}{
		{
			name:  "key missing",
			setup: func(mock redismock.ClientMock) { mock.ExpectGet("predictions:" + digest).RedisNil() },
		},
		{
			name: "redis error",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("predictions:" + digest).SetErr(errors.New("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rdb, mock := redismock.NewClientMock()
			defer func() { _ = rdb.Close() }()
			tt.setup(mock)

			c := NewPredictionCache(rdb, time.Minute, "")
			p, ok := c.Get(context.Background(), digest)

			assert.False(t, ok)
			assert.Nil(t, p)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestPredictionCache_Get_CorruptedEntry は壊れたキャッシュエントリが削除されることを検証します。
func TestPredictionCache_Get_CorruptedEntry(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"invalid json", `{"probabilities":[1]}`} {
		t.Run(raw, func(t *testing.T) {
			rdb, mock := redismock.NewClientMock()
			defer func() { _ = rdb.Close() }()

			mock.ExpectGet("predictions:" + digest).SetVal(raw)
			mock.ExpectDel("predictions:" + digest).SetVal(1)

			c := NewPredictionCache(rdb, time.Minute, "")
			_, ok := c.Get(context.Background(), digest)

			assert.False(t, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestPredictionCache_Set は推論結果がTTL付きでJSON保存されることを検証します。
func TestPredictionCache_Set(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	p := &entity.Prediction{Label: "cat", Probabilities: []float64{0.7, 0.3}}
	expectedJSON, _ := json.Marshal(cachedPrediction{Label: "cat", Probabilities: []float64{0.7, 0.3}})
	mock.ExpectSet("predictions:v1:"+digest, expectedJSON, 5*time.Minute).SetVal("OK")

	c := NewPredictionCache(rdb, 5*time.Minute, "predictions:v1")
	c.Set(context.Background(), digest, p)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPredictionCache_Set_ErrorIsSwallowed はRedis書き込みエラーが呼び出し元に伝播しないことを検証します。
func TestPredictionCache_Set_ErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(cachedPrediction{Label: "cat", Probabilities: []float64{1}})
	mock.ExpectSet("predictions:"+digest, expectedJSON, time.Minute).SetErr(errors.New("OOM"))

	c := NewPredictionCache(rdb, time.Minute, "")
	assert.NotPanics(t, func() {
		c.Set(context.Background(), digest, &entity.Prediction{Label: "cat", Probabilities: []float64{1}})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPredictionCache_Purge はnamespace配下のキーがSCANで削除されることを検証します。
func TestPredictionCache_Purge(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "predictions:*", 200).SetVal([]string{"predictions:a", "predictions:b"}, 7)
	mock.ExpectDel("predictions:a", "predictions:b").SetVal(2)
	mock.ExpectScan(7, "predictions:*", 200).SetVal([]string{"predictions:c"}, 0)
	mock.ExpectDel("predictions:c").SetVal(1)

	c := NewPredictionCache(rdb, time.Minute, "")
	n, err := c.Purge(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPredictionCache_Purge_ScanError はSCAN失敗時にエラーが返されることを検証します。
func TestPredictionCache_Purge_ScanError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "predictions:*", 200).SetErr(errors.New("scan failed"))

	c := NewPredictionCache(rdb, time.Minute, "")
	_, err := c.Purge(context.Background())

	assert.ErrorContains(t, err, "scan failed")
}

func TestSafe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c", safe("a b*c"))
	assert.Equal(t, "ns:key", safe("ns:key"))
}
