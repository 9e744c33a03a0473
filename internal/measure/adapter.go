// Package measure normalizes heterogeneous stored measurement rows into the
// one canonical batch shape the renderers consume.
package measure

import (
	"math"

	"github.com/pkarls/sonolog/pkg/bands"
	"github.com/pkarls/sonolog/pkg/models"
)

// Batch is a normalized set of rows plus the single band layout that applies
// to all of them. Row order is whatever the caller received from the store;
// the adapter never reorders. Heatmaps want oldest-first (left to right),
// recent tables want newest-first, and each call site says which it needs.
type Batch struct {
	Set  bands.Set
	Rows []models.Measurement
}

// Normalize converts raw stored rows into a canonical batch. The band layout
// is decided once, by probing the first row for the finest-grained keys; it
// is never re-decided per row, so a later row missing some keys simply has
// absent values for them. Every numeric field passes a parse-or-absent rule:
// non-finite or out-of-domain values become absent, never zero or NaN.
func Normalize(raw []*models.RawMeasurement) Batch {
	if len(raw) == 0 {
		return Batch{Set: bands.ThreeBand}
	}

	first := raw[0]
	set := bands.Detect(func(key string) bool {
		v, ok := first.Bands[key]
		return ok && isFinite(v)
	})

	rows := make([]models.Measurement, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, normalizeRow(r, set))
	}
	return Batch{Set: set, Rows: rows}
}

func normalizeRow(r *models.RawMeasurement, set bands.Set) models.Measurement {
	m := models.Measurement{
		ID:        r.ID,
		Timestamp: r.Timestamp,

		MeanDB: finite(r.MeanDB),
		MaxDB:  finite(r.MaxDB),
		MinDB:  finite(r.MinDB),
		L10DB:  finite(r.L10DB),
		L50DB:  finite(r.L50DB),
		L90DB:  finite(r.L90DB),

		SpectralCentroid: nonNegative(finite(r.SpectralCentroid)),
		SpectralFlatness: finite(r.SpectralFlatness),
		DominantFreq:     nonNegative(finite(r.DominantFreq)),

		SilencePercent: percent(finite(r.SilencePercent)),
		AnomalyScore:   nonNegative(finite(r.AnomalyScore)),
		Annotation:     r.Annotation,

		HasSpectrogram: r.HasSpectrogram,
	}

	// Only the selected layout's keys survive; stray columns from another
	// generation would corrupt the shared visual scale.
	for _, band := range set.Bands {
		if v, ok := r.Bands[band.Key]; ok && isFinite(v) {
			if m.Bands == nil {
				m.Bands = make(map[string]float64, len(set.Bands))
			}
			m.Bands[band.Key] = v
		}
	}
	return m
}

// Views attaches the 3-band summary to each row for table display.
func Views(b Batch) []models.MeasurementView {
	views := make([]models.MeasurementView, len(b.Rows))
	for i, row := range b.Rows {
		s := bands.Summarize(row.Bands, b.Set)
		views[i] = models.MeasurementView{
			Measurement: row,
			Summary: models.BandSummary{
				LowDB:  s.Low,
				MidDB:  s.Mid,
				HighDB: s.High,
			},
		}
	}
	return views
}

// Downsample reduces a batch to at most maxCols rows with a uniform stride,
// keeping the first row of each stride group. Order is preserved.
func Downsample(b Batch, maxCols int) Batch {
	if maxCols <= 0 || len(b.Rows) <= maxCols {
		return b
	}
	stride := (len(b.Rows) + maxCols - 1) / maxCols
	kept := make([]models.Measurement, 0, maxCols)
	for i := 0; i < len(b.Rows); i += stride {
		kept = append(kept, b.Rows[i])
	}
	return Batch{Set: b.Set, Rows: kept}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finite(p *float64) *float64 {
	if p == nil || !isFinite(*p) {
		return nil
	}
	return p
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}

func percent(p *float64) *float64 {
	if p == nil || *p < 0 || *p > 100 {
		return nil
	}
	return p
}
