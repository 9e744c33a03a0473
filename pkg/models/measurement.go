package models

import (
	"time"
)

// RawMeasurement is one stored row as the measurement store returns it,
// before normalization. Pointer fields are nil when the column was NULL.
// Bands holds whichever band columns the row's schema generation carried;
// a missing key means the column was NULL or absent.
type RawMeasurement struct {
	ID        int64
	Timestamp time.Time

	MeanDB *float64
	MaxDB  *float64
	MinDB  *float64
	L10DB  *float64
	L50DB  *float64
	L90DB  *float64

	Bands map[string]float64

	SpectralCentroid *float64
	SpectralFlatness *float64
	DominantFreq     *float64

	SilencePercent *float64
	AnomalyScore   *float64
	Annotation     *string

	HasSpectrogram   bool
	SpectroSnapshots int
	SpectroBins      int
}

// Measurement is the canonical normalized row the renderers consume. Absent
// values stay nil; no sentinel numbers flow into range estimation or charts.
type Measurement struct {
	ID        int64     `json:"id" doc:"Measurement identifier"`
	Timestamp time.Time `json:"timestamp" doc:"Sample interval start"`

	MeanDB *float64 `json:"mean_db,omitempty" doc:"Mean level in dB"`
	MaxDB  *float64 `json:"max_db,omitempty" doc:"Peak level in dB"`
	MinDB  *float64 `json:"min_db,omitempty" doc:"Minimum level in dB"`
	L10DB  *float64 `json:"l10_db,omitempty" doc:"Level exceeded 10% of the time"`
	L50DB  *float64 `json:"l50_db,omitempty" doc:"Median level"`
	L90DB  *float64 `json:"l90_db,omitempty" doc:"Background level"`

	Bands map[string]float64 `json:"bands,omitempty" doc:"Band energies in dB, keyed by band column"`

	SpectralCentroid *float64 `json:"spectral_centroid,omitempty" doc:"Spectral centroid in Hz"`
	SpectralFlatness *float64 `json:"spectral_flatness,omitempty" doc:"Spectral flatness 0-1"`
	DominantFreq     *float64 `json:"dominant_freq,omitempty" doc:"Dominant frequency in Hz"`

	SilencePercent *float64 `json:"silence_pct,omitempty" doc:"Share of the interval below the silence threshold"`
	AnomalyScore   *float64 `json:"anomaly_score,omitempty" doc:"Deviation from the learned baseline; absent when unscored"`
	Annotation     *string  `json:"annotation,omitempty" doc:"Operator note"`

	HasSpectrogram bool `json:"has_spectrogram" doc:"Whether a spectrogram payload is stored for this row"`
}

// SpectrogramPayload is one row's stored spectrogram blob plus the geometry
// it was encoded with. Geometry travels with the bytes so no decoder has to
// guess it.
type SpectrogramPayload struct {
	MeasurementID int64
	Data          []byte
	Snapshots     int
	Bins          int
}

// HourlyAggregate is one hour's rollup of mean level, for the hourly chart.
type HourlyAggregate struct {
	Hour      time.Time `json:"hour" doc:"Start of the hour"`
	AvgMeanDB *float64  `json:"avg_mean_db,omitempty" doc:"Average of mean_db over the hour"`
	MaxMeanDB *float64  `json:"max_mean_db,omitempty" doc:"Loudest mean_db in the hour"`
	Samples   int       `json:"samples" doc:"Rows contributing to the hour"`
}

// Snippet is stored metadata for a short audio clip captured around an
// anomaly. The audio itself lives in object storage under ObjectKey.
type Snippet struct {
	ID            int64     `json:"id" doc:"Snippet identifier"`
	MeasurementID int64     `json:"measurement_id" doc:"Measurement the snippet belongs to"`
	Timestamp     time.Time `json:"timestamp" doc:"When the snippet was captured"`
	ObjectKey     string    `json:"-"`
	AnomalyScore  *float64  `json:"anomaly_score,omitempty" doc:"Score that triggered the capture"`
}
