package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// BandSummary is the coarse low/mid/high rollup shown in compact tables.
// Values are dB-domain means of the underlying fine bands.
type BandSummary struct {
	LowDB  *float64 `json:"low_db,omitempty" doc:"Low band summary in dB"`
	MidDB  *float64 `json:"mid_db,omitempty" doc:"Mid band summary in dB"`
	HighDB *float64 `json:"high_db,omitempty" doc:"High band summary in dB"`
}

// MeasurementView is one normalized row plus its 3-band summary.
type MeasurementView struct {
	Measurement
	Summary BandSummary `json:"summary" doc:"3-band rollup of the row's band energies"`
}

// ListMeasurementsRequest filters the measurement query. The store returns
// rows newest-first; the response preserves that order.
type ListMeasurementsRequest struct {
	From       time.Time `query:"from" required:"false" doc:"Window start (inclusive)"`
	To         time.Time `query:"to" required:"false" doc:"Window end (exclusive)"`
	MinAnomaly float64   `query:"min_anomaly" required:"false" minimum:"0" doc:"Only rows with anomaly_score at or above this"`
	Limit      int       `query:"limit" required:"false" minimum:"1" maximum:"5000" doc:"Maximum rows returned (default 200)"`
}

// ListMeasurementsResponseBody carries the normalized batch.
type ListMeasurementsResponseBody struct {
	BandSet string            `json:"band_set" enum:"three,seven,eight" doc:"Band layout detected for the batch"`
	Rows    []MeasurementView `json:"rows" doc:"Measurements, newest first"`
}

// ListMeasurementsResponse represents the measurement list response
type ListMeasurementsResponse struct {
	Body ListMeasurementsResponseBody
}

// GetMeasurementRequest fetches one row by id.
type GetMeasurementRequest struct {
	ID int64 `path:"id" doc:"Measurement ID"`
}

// GetMeasurementResponse represents one measurement
type GetMeasurementResponse struct {
	Body MeasurementView
}

// SetAnnotationRequest sets or clears the annotation on one row.
type SetAnnotationRequest struct {
	ID   int64 `path:"id" doc:"Measurement ID"`
	Body struct {
		Annotation string `json:"annotation" maxLength:"500" doc:"Operator note; empty string clears it"`
	}
}

// SetAnnotationResponse represents the annotation write result
type SetAnnotationResponse struct {
	Body struct {
		ID         int64   `json:"id" doc:"Measurement ID"`
		Annotation *string `json:"annotation,omitempty" doc:"Stored annotation after the write"`
	}
}

// HourlyAggregatesRequest selects the rollup window.
type HourlyAggregatesRequest struct {
	From time.Time `query:"from" required:"false" doc:"Window start (inclusive)"`
	To   time.Time `query:"to" required:"false" doc:"Window end (exclusive)"`
}

// HourlyAggregatesResponse represents the hourly rollup
type HourlyAggregatesResponse struct {
	Body struct {
		Hours []HourlyAggregate `json:"hours" doc:"Per-hour aggregates, oldest first"`
	}
}

// ListSnippetsRequest lists anomaly snippet metadata.
type ListSnippetsRequest struct {
	Limit int `query:"limit" required:"false" minimum:"1" maximum:"500" doc:"Maximum snippets returned (default 50)"`
}

// ListSnippetsResponse represents the snippet list
type ListSnippetsResponse struct {
	Body struct {
		Snippets []Snippet `json:"snippets" doc:"Snippet metadata, newest first"`
	}
}

// GetSnippetURLRequest requests a download URL for one snippet.
type GetSnippetURLRequest struct {
	ID int64 `path:"id" doc:"Snippet ID"`
}

// GetSnippetURLResponse represents the presigned download URL
type GetSnippetURLResponse struct {
	Body struct {
		URL       string `json:"url" doc:"Pre-signed download URL for the snippet audio"`
		ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
	}
}

// DeleteSnippetRequest deletes one snippet and its stored audio.
type DeleteSnippetRequest struct {
	ID int64 `path:"id" doc:"Snippet ID"`
}

// DeleteSnippetResponse represents the deletion result
type DeleteSnippetResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}
