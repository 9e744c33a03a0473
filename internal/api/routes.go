package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/pkarls/sonolog/internal/api/handlers"
	"github.com/pkarls/sonolog/internal/config"
	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/internal/storage"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(router *chi.Mux, api huma.API, measurementRepo repository.MeasurementRepository, snippetRepo repository.SnippetRepository, snippetStore storage.SnippetStore, renderCfg config.RenderConfig) {
	// Initialize handlers
	measurementHandler := handlers.NewMeasurementHandler(measurementRepo)
	snippetHandler := handlers.NewSnippetHandler(snippetRepo, snippetStore)
	viewHandler := handlers.NewViewHandler(measurementRepo, renderCfg)

	// Register measurement routes
	huma.Register(api, huma.Operation{
		OperationID: "listMeasurements",
		Method:      http.MethodGet,
		Path:        "/api/measurements",
		Summary:     "List measurements",
		Description: "Returns normalized measurements for a time window, newest first, with the detected band layout",
		Tags:        []string{"Measurements"},
	}, measurementHandler.ListMeasurements)

	huma.Register(api, huma.Operation{
		OperationID: "getMeasurement",
		Method:      http.MethodGet,
		Path:        "/api/measurements/{id}",
		Summary:     "Get one measurement",
		Description: "Returns one normalized measurement with its band summary",
		Tags:        []string{"Measurements"},
	}, measurementHandler.GetMeasurement)

	huma.Register(api, huma.Operation{
		OperationID: "setAnnotation",
		Method:      http.MethodPut,
		Path:        "/api/measurements/{id}/annotation",
		Summary:     "Set annotation",
		Description: "Sets or clears the operator annotation on one measurement",
		Tags:        []string{"Measurements"},
	}, measurementHandler.SetAnnotation)

	huma.Register(api, huma.Operation{
		OperationID: "hourlyAggregates",
		Method:      http.MethodGet,
		Path:        "/api/aggregates/hourly",
		Summary:     "Hourly aggregates",
		Description: "Returns per-hour mean level rollups, oldest first",
		Tags:        []string{"Aggregates"},
	}, measurementHandler.HourlyAggregates)

	// Register snippet routes
	huma.Register(api, huma.Operation{
		OperationID: "listSnippets",
		Method:      http.MethodGet,
		Path:        "/api/snippets",
		Summary:     "List anomaly snippets",
		Description: "Returns stored anomaly snippet metadata, newest first",
		Tags:        []string{"Snippets"},
	}, snippetHandler.ListSnippets)

	huma.Register(api, huma.Operation{
		OperationID: "getSnippetURL",
		Method:      http.MethodGet,
		Path:        "/api/snippets/{id}/url",
		Summary:     "Get snippet download URL",
		Description: "Returns a pre-signed download URL for one snippet's audio",
		Tags:        []string{"Snippets"},
	}, snippetHandler.GetSnippetURL)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSnippet",
		Method:      http.MethodDelete,
		Path:        "/api/snippets/{id}",
		Summary:     "Delete snippet",
		Description: "Deletes one snippet's audio and metadata",
		Tags:        []string{"Snippets"},
	}, snippetHandler.DeleteSnippet)

	// Rendered views bypass Huma: they return image/png straight from the
	// renderer, same as the OpenAPI spec route writes raw JSON.
	router.Get("/api/measurements/{id}/spectrogram.png", viewHandler.Spectrogram)
	router.Get("/api/views/bands.png", viewHandler.Bands)
	router.Get("/api/views/charts/{chart}.png", viewHandler.Charts)
	router.Get("/api/views/hourly.png", viewHandler.Hourly)
}
