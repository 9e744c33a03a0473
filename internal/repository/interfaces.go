package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pkarls/sonolog/pkg/models"
)

// ErrNotFound reports a missing row.
var ErrNotFound = errors.New("repository: not found")

// ErrNoSpectrogram reports a row whose spectrogram payload is null (deleted
// independently of its parent, or never captured).
var ErrNoSpectrogram = errors.New("repository: no spectrogram stored")

// ListQuery filters a measurement query. Zero times mean unbounded; a nil
// MinAnomaly disables threshold filtering.
type ListQuery struct {
	From       time.Time
	To         time.Time
	MinAnomaly *float64
	Limit      int
}

// MeasurementRepository defines the read surface over the measurement store
// plus the single permitted write: the annotation field. Rows come back
// newest-first; callers needing chronological order reverse at the call site.
type MeasurementRepository interface {
	List(ctx context.Context, q ListQuery) ([]*models.RawMeasurement, error)
	GetByID(ctx context.Context, id int64) (*models.RawMeasurement, error)
	GetSpectrogram(ctx context.Context, id int64) (*models.SpectrogramPayload, error)
	SetAnnotation(ctx context.Context, id int64, annotation *string) error
	HourlyAggregates(ctx context.Context, from, to time.Time) ([]models.HourlyAggregate, error)
}

// SnippetRepository defines operations over anomaly snippet metadata.
type SnippetRepository interface {
	List(ctx context.Context, limit int) ([]*models.Snippet, error)
	GetByID(ctx context.Context, id int64) (*models.Snippet, error)
	Delete(ctx context.Context, id int64) error
}
