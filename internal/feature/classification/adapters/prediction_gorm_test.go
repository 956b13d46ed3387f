package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"classifier_backend/internal/feature/classification/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: はコネクションごとに別DBになるため1本に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&PredictionModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func record(id, label string, createdAt time.Time) entity.PredictionRecord {
	return entity.PredictionRecord{
		ID:            id,
		Label:         label,
		Probabilities: []float64{0.05, 0.95},
		ImageSHA256:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ImageBytes:    1234,
		ContentType:   "image/png",
		Latency:       1500 * time.Microsecond,
		CacheHit:      false,
		CreatedAt:     createdAt,
	}
}

func TestNewPredictionRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewPredictionRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestPredictionGorm_SaveAndListRecent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, record("a", "cat", base)))
	require.NoError(t, repo.Save(ctx, record("b", "dog", base.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, record("c", "bird", base.Add(2*time.Minute))))

	got, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID, "newest first")
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, []float64{0.05, 0.95}, got[0].Probabilities)
	assert.Equal(t, 1500*time.Microsecond, got[0].Latency)
	assert.Equal(t, "image/png", got[0].ContentType)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestPredictionGorm_ListRecent_Empty(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))

	got, err := repo.ListRecent(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPredictionGorm_Save_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepository(setupTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, record("dup", "cat", now)))
	err := repo.Save(ctx, record("dup", "dog", now))

	assert.Error(t, err)
}
