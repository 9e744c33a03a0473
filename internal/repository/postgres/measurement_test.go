package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pkarls/sonolog/internal/repository"
)

const testSchema = `
CREATE TABLE measurements (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	mean_db DOUBLE PRECISION,
	max_db DOUBLE PRECISION,
	min_db DOUBLE PRECISION,
	l10_db DOUBLE PRECISION,
	l50_db DOUBLE PRECISION,
	l90_db DOUBLE PRECISION,
	band_low_db DOUBLE PRECISION,
	band_mid_db DOUBLE PRECISION,
	band_high_db DOUBLE PRECISION,
	band_0_200 DOUBLE PRECISION,
	band_200_500 DOUBLE PRECISION,
	band_500_1k DOUBLE PRECISION,
	band_1k_2k DOUBLE PRECISION,
	band_2k_4k DOUBLE PRECISION,
	band_4k_8k DOUBLE PRECISION,
	band_8k_24k DOUBLE PRECISION,
	band_0_100 DOUBLE PRECISION,
	band_100_300 DOUBLE PRECISION,
	band_300_800 DOUBLE PRECISION,
	band_800_1500 DOUBLE PRECISION,
	band_1500_3k DOUBLE PRECISION,
	band_3k_6k DOUBLE PRECISION,
	band_6k_12k DOUBLE PRECISION,
	band_12k_24k DOUBLE PRECISION,
	spectral_centroid DOUBLE PRECISION,
	spectral_flatness DOUBLE PRECISION,
	dominant_freq DOUBLE PRECISION,
	silence_pct DOUBLE PRECISION,
	anomaly_score DOUBLE PRECISION,
	annotation TEXT,
	spectrogram BYTEA,
	spectrogram_snapshots INTEGER,
	spectrogram_bins INTEGER
);

CREATE TABLE snippets (
	id BIGSERIAL PRIMARY KEY,
	measurement_id BIGINT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	object_key TEXT NOT NULL,
	anomaly_score DOUBLE PRECISION
);
`

// setupTestDB starts a disposable PostgreSQL container and applies the schema
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("sonolog_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func insertMeasurement(t *testing.T, db *sql.DB, ts time.Time, meanDB float64, anomaly *float64, bands map[string]float64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO measurements (timestamp, mean_db, anomaly_score, band_low_db, band_mid_db, band_high_db, band_0_100)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		ts, meanDB, anomaly,
		nullable(bands, "band_low_db"), nullable(bands, "band_mid_db"),
		nullable(bands, "band_high_db"), nullable(bands, "band_0_100"),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func nullable(bands map[string]float64, key string) interface{} {
	if v, ok := bands[key]; ok {
		return v
	}
	return nil
}

func TestMeasurementRepositoryListAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresMeasurementRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	high := 4.2
	id1 := insertMeasurement(t, db, base, -50, nil, map[string]float64{"band_low_db": -60, "band_mid_db": -45, "band_high_db": -30})
	id2 := insertMeasurement(t, db, base.Add(time.Minute), -42, &high, map[string]float64{"band_0_100": -55})
	id3 := insertMeasurement(t, db, base.Add(2*time.Minute), -44, nil, nil)

	t.Run("newest first", func(t *testing.T) {
		rows, err := repo.List(ctx, repository.ListQuery{})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, id3, rows[0].ID)
		assert.Equal(t, id1, rows[2].ID)
	})

	t.Run("band columns land in the map", func(t *testing.T) {
		row, err := repo.GetByID(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, -60.0, row.Bands["band_low_db"])
		assert.NotContains(t, row.Bands, "band_0_100")
		require.NotNil(t, row.MeanDB)
		assert.Equal(t, -50.0, *row.MeanDB)
		assert.Nil(t, row.AnomalyScore)
		assert.False(t, row.HasSpectrogram)
	})

	t.Run("time window", func(t *testing.T) {
		rows, err := repo.List(ctx, repository.ListQuery{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, id2, rows[0].ID)
	})

	t.Run("anomaly threshold", func(t *testing.T) {
		min := 1.0
		rows, err := repo.List(ctx, repository.ListQuery{MinAnomaly: &min})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, id2, rows[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		rows, err := repo.List(ctx, repository.ListQuery{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMeasurementRepositorySpectrogram(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresMeasurementRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	bare := insertMeasurement(t, db, base, -50, nil, nil)

	var withBlob int64
	blob := []byte{0x78, 0x9c, 1, 2, 3}
	err := db.QueryRow(`
		INSERT INTO measurements (timestamp, mean_db, spectrogram, spectrogram_snapshots, spectrogram_bins)
		VALUES ($1, -40, $2, 10, 256)
		RETURNING id`, base.Add(time.Minute), blob).Scan(&withBlob)
	require.NoError(t, err)

	t.Run("stored payload", func(t *testing.T) {
		p, err := repo.GetSpectrogram(ctx, withBlob)
		require.NoError(t, err)
		assert.Equal(t, blob, p.Data)
		assert.Equal(t, 10, p.Snapshots)
		assert.Equal(t, 256, p.Bins)

		row, err := repo.GetByID(ctx, withBlob)
		require.NoError(t, err)
		assert.True(t, row.HasSpectrogram)
	})

	t.Run("null payload", func(t *testing.T) {
		_, err := repo.GetSpectrogram(ctx, bare)
		assert.ErrorIs(t, err, repository.ErrNoSpectrogram)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := repo.GetSpectrogram(ctx, 999999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMeasurementRepositorySetAnnotation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresMeasurementRepository(db)
	ctx := context.Background()

	id := insertMeasurement(t, db, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), -50, nil, nil)

	note := "garbage truck"
	require.NoError(t, repo.SetAnnotation(ctx, id, &note))
	row, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, row.Annotation)
	assert.Equal(t, note, *row.Annotation)

	require.NoError(t, repo.SetAnnotation(ctx, id, nil))
	row, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, row.Annotation)

	assert.ErrorIs(t, repo.SetAnnotation(ctx, 999999, &note), repository.ErrNotFound)
}

func TestMeasurementRepositoryHourlyAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresMeasurementRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	insertMeasurement(t, db, base.Add(5*time.Minute), -50, nil, nil)
	insertMeasurement(t, db, base.Add(25*time.Minute), -40, nil, nil)
	insertMeasurement(t, db, base.Add(70*time.Minute), -30, nil, nil)

	hours, err := repo.HourlyAggregates(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, hours, 2)

	assert.True(t, hours[0].Hour.Before(hours[1].Hour), "oldest first")
	assert.Equal(t, 2, hours[0].Samples)
	require.NotNil(t, hours[0].AvgMeanDB)
	assert.InDelta(t, -45.0, *hours[0].AvgMeanDB, 0.001)
	require.NotNil(t, hours[0].MaxMeanDB)
	assert.Equal(t, -40.0, *hours[0].MaxMeanDB)
}

func TestSnippetRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresSnippetRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	score := 3.5
	var id1, id2 int64
	require.NoError(t, db.QueryRow(`
		INSERT INTO snippets (measurement_id, timestamp, object_key, anomaly_score)
		VALUES (1, $1, 'snippets/a.wav', $2) RETURNING id`, base, score).Scan(&id1))
	require.NoError(t, db.QueryRow(`
		INSERT INTO snippets (measurement_id, timestamp, object_key, anomaly_score)
		VALUES (2, $1, 'snippets/b.wav', NULL) RETURNING id`, base.Add(time.Minute)).Scan(&id2))

	t.Run("list newest first", func(t *testing.T) {
		snippets, err := repo.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, snippets, 2)
		assert.Equal(t, id2, snippets[0].ID)
		assert.Nil(t, snippets[0].AnomalyScore)
		require.NotNil(t, snippets[1].AnomalyScore)
		assert.Equal(t, score, *snippets[1].AnomalyScore)
	})

	t.Run("get by id", func(t *testing.T) {
		s, err := repo.GetByID(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, "snippets/a.wav", s.ObjectKey)
		assert.Equal(t, int64(1), s.MeasurementID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, id1))
		_, err := repo.GetByID(ctx, id1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, id1), repository.ErrNotFound)
	})
}
