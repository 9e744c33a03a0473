package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/pkarls/sonolog/internal/measure"
	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/pkg/models"
)

// MeasurementHandler handles measurement-related HTTP requests
type MeasurementHandler struct {
	repo repository.MeasurementRepository
}

// NewMeasurementHandler creates a new measurement handler
func NewMeasurementHandler(repo repository.MeasurementRepository) *MeasurementHandler {
	return &MeasurementHandler{repo: repo}
}

// ListMeasurements returns normalized measurements for a window, newest first
func (h *MeasurementHandler) ListMeasurements(ctx context.Context, req *models.ListMeasurementsRequest) (*models.ListMeasurementsResponse, error) {
	q := repository.ListQuery{
		From:  req.From,
		To:    req.To,
		Limit: req.Limit,
	}
	if req.MinAnomaly > 0 {
		q.MinAnomaly = &req.MinAnomaly
	}

	raw, err := h.repo.List(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query measurements", err)
	}

	batch := measure.Normalize(raw)
	log.Debug().Int("rows", len(batch.Rows)).Str("band_set", string(batch.Set.ID)).Msg("Normalized measurement batch")

	return &models.ListMeasurementsResponse{
		Body: models.ListMeasurementsResponseBody{
			BandSet: string(batch.Set.ID),
			Rows:    measure.Views(batch),
		},
	}, nil
}

// GetMeasurement returns one normalized measurement
func (h *MeasurementHandler) GetMeasurement(ctx context.Context, req *models.GetMeasurementRequest) (*models.GetMeasurementResponse, error) {
	raw, err := h.repo.GetByID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Measurement not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query measurement", err)
	}

	batch := measure.Normalize([]*models.RawMeasurement{raw})
	views := measure.Views(batch)

	return &models.GetMeasurementResponse{Body: views[0]}, nil
}

// SetAnnotation sets or clears the annotation on one measurement
func (h *MeasurementHandler) SetAnnotation(ctx context.Context, req *models.SetAnnotationRequest) (*models.SetAnnotationResponse, error) {
	var annotation *string
	if req.Body.Annotation != "" {
		annotation = &req.Body.Annotation
	}

	err := h.repo.SetAnnotation(ctx, req.ID, annotation)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Measurement not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to update annotation", err)
	}

	log.Info().Int64("measurementID", req.ID).Bool("cleared", annotation == nil).Msg("Annotation updated")

	resp := &models.SetAnnotationResponse{}
	resp.Body.ID = req.ID
	resp.Body.Annotation = annotation
	return resp, nil
}

// HourlyAggregates returns the per-hour mean level rollup, oldest first
func (h *MeasurementHandler) HourlyAggregates(ctx context.Context, req *models.HourlyAggregatesRequest) (*models.HourlyAggregatesResponse, error) {
	hours, err := h.repo.HourlyAggregates(ctx, req.From, req.To)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query hourly aggregates", err)
	}

	resp := &models.HourlyAggregatesResponse{}
	resp.Body.Hours = hours
	return resp, nil
}
