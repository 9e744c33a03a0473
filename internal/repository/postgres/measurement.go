package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/pkg/models"
)

// bandColumns lists every band column any schema generation ever wrote.
// Rows carry NULL for the generations they predate; the adapter decides
// which generation applies to a batch.
var bandColumns = []string{
	"band_low_db", "band_mid_db", "band_high_db",
	"band_0_200", "band_200_500", "band_500_1k", "band_1k_2k",
	"band_2k_4k", "band_4k_8k", "band_8k_24k",
	"band_0_100", "band_100_300", "band_300_800", "band_800_1500",
	"band_1500_3k", "band_3k_6k", "band_6k_12k", "band_12k_24k",
}

// PostgresMeasurementRepository implements MeasurementRepository for PostgreSQL
type PostgresMeasurementRepository struct {
	db *sql.DB
}

// NewPostgresMeasurementRepository creates a new PostgreSQL measurement repository
func NewPostgresMeasurementRepository(db *sql.DB) *PostgresMeasurementRepository {
	return &PostgresMeasurementRepository{db: db}
}

func selectColumns() string {
	return `id, timestamp, mean_db, max_db, min_db, l10_db, l50_db, l90_db,
		` + strings.Join(bandColumns, ", ") + `,
		spectral_centroid, spectral_flatness, dominant_freq,
		silence_pct, anomaly_score, annotation,
		(spectrogram IS NOT NULL) AS has_spectrogram,
		spectrogram_snapshots, spectrogram_bins`
}

// List retrieves measurements newest-first, optionally filtered by time
// window and anomaly threshold.
func (r *PostgresMeasurementRepository) List(ctx context.Context, q repository.ListQuery) ([]*models.RawMeasurement, error) {
	var conds []string
	var args []interface{}

	if !q.From.IsZero() {
		args = append(args, q.From)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		conds = append(conds, fmt.Sprintf("timestamp < $%d", len(args)))
	}
	if q.MinAnomaly != nil {
		args = append(args, *q.MinAnomaly)
		conds = append(conds, fmt.Sprintf("anomaly_score >= $%d", len(args)))
	}

	query := "SELECT " + selectColumns() + " FROM measurements"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RawMeasurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID retrieves one measurement by ID.
func (r *PostgresMeasurementRepository) GetByID(ctx context.Context, id int64) (*models.RawMeasurement, error) {
	query := "SELECT " + selectColumns() + " FROM measurements WHERE id = $1"
	m, err := scanMeasurement(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return m, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeasurement(row rowScanner) (*models.RawMeasurement, error) {
	var m models.RawMeasurement
	var meanDB, maxDB, minDB, l10, l50, l90 sql.NullFloat64
	var centroid, flatness, dominant, silence, anomaly sql.NullFloat64
	var annotation sql.NullString
	var snapshots, bins sql.NullInt64

	bandVals := make([]sql.NullFloat64, len(bandColumns))

	dest := []interface{}{&m.ID, &m.Timestamp, &meanDB, &maxDB, &minDB, &l10, &l50, &l90}
	for i := range bandVals {
		dest = append(dest, &bandVals[i])
	}
	dest = append(dest, &centroid, &flatness, &dominant, &silence, &anomaly,
		&annotation, &m.HasSpectrogram, &snapshots, &bins)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m.MeanDB = nullableFloat(meanDB)
	m.MaxDB = nullableFloat(maxDB)
	m.MinDB = nullableFloat(minDB)
	m.L10DB = nullableFloat(l10)
	m.L50DB = nullableFloat(l50)
	m.L90DB = nullableFloat(l90)
	m.SpectralCentroid = nullableFloat(centroid)
	m.SpectralFlatness = nullableFloat(flatness)
	m.DominantFreq = nullableFloat(dominant)
	m.SilencePercent = nullableFloat(silence)
	m.AnomalyScore = nullableFloat(anomaly)
	if annotation.Valid {
		m.Annotation = &annotation.String
	}
	if snapshots.Valid {
		m.SpectroSnapshots = int(snapshots.Int64)
	}
	if bins.Valid {
		m.SpectroBins = int(bins.Int64)
	}

	for i, col := range bandColumns {
		if bandVals[i].Valid {
			if m.Bands == nil {
				m.Bands = make(map[string]float64)
			}
			m.Bands[col] = bandVals[i].Float64
		}
	}
	return &m, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// GetSpectrogram retrieves one row's spectrogram payload and the geometry it
// was encoded with.
func (r *PostgresMeasurementRepository) GetSpectrogram(ctx context.Context, id int64) (*models.SpectrogramPayload, error) {
	query := `
		SELECT spectrogram, spectrogram_snapshots, spectrogram_bins
		FROM measurements
		WHERE id = $1`

	var data []byte
	var snapshots, bins sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data, &snapshots, &bins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || !snapshots.Valid || !bins.Valid {
		return nil, repository.ErrNoSpectrogram
	}

	return &models.SpectrogramPayload{
		MeasurementID: id,
		Data:          data,
		Snapshots:     int(snapshots.Int64),
		Bins:          int(bins.Int64),
	}, nil
}

// SetAnnotation sets or clears the annotation for one row. A nil annotation
// clears the column.
func (r *PostgresMeasurementRepository) SetAnnotation(ctx context.Context, id int64, annotation *string) error {
	query := `UPDATE measurements SET annotation = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, annotation, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// HourlyAggregates rolls mean_db up per hour, oldest first.
func (r *PostgresMeasurementRepository) HourlyAggregates(ctx context.Context, from, to time.Time) ([]models.HourlyAggregate, error) {
	var conds []string
	var args []interface{}
	if !from.IsZero() {
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("timestamp < $%d", len(args)))
	}

	query := `
		SELECT date_trunc('hour', timestamp) AS hour,
		       AVG(mean_db), MAX(mean_db), COUNT(*)
		FROM measurements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY hour ORDER BY hour ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HourlyAggregate
	for rows.Next() {
		var h models.HourlyAggregate
		var avg, max sql.NullFloat64
		if err := rows.Scan(&h.Hour, &avg, &max, &h.Samples); err != nil {
			return nil, err
		}
		h.AvgMeanDB = nullableFloat(avg)
		h.MaxMeanDB = nullableFloat(max)
		out = append(out, h)
	}
	return out, rows.Err()
}
