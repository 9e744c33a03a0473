package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pkarls/sonolog/internal/config"
	"github.com/pkarls/sonolog/internal/measure"
	"github.com/pkarls/sonolog/internal/render"
	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/pkg/models"
	"github.com/pkarls/sonolog/pkg/spectro"
)

const (
	defaultViewWidth  = 800
	defaultViewHeight = 320
	maxViewDimension  = 4000
)

// ViewHandler serves rendered PNG views over raw chi routes. Huma carries the
// JSON surface; images go straight to the ResponseWriter.
type ViewHandler struct {
	repo repository.MeasurementRepository
	cfg  config.RenderConfig
}

// NewViewHandler creates a new view handler
func NewViewHandler(repo repository.MeasurementRepository, cfg config.RenderConfig) *ViewHandler {
	return &ViewHandler{repo: repo, cfg: cfg}
}

// Spectrogram renders one measurement's stored spectrogram as a heatmap PNG.
// A corrupt payload degrades to a partial render rather than an error page.
func (h *ViewHandler) Spectrogram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid measurement id", http.StatusBadRequest)
		return
	}

	payload, err := h.repo.GetSpectrogram(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrNoSpectrogram) {
		http.Error(w, "no spectrogram for this measurement", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load spectrogram", http.StatusInternalServerError)
		return
	}

	matrix, err := spectro.Decode(payload.Data, payload.Snapshots, payload.Bins, h.cfg.DBFloor, h.cfg.DBCeil)
	if err != nil {
		if !errors.Is(err, spectro.ErrCorruptSpectrogram) {
			http.Error(w, "failed to decode spectrogram", http.StatusInternalServerError)
			return
		}
		log.Warn().Int64("measurementID", id).Err(err).Msg("Corrupt spectrogram payload, rendering partial")
	}

	h.renderGrid(w, r, render.SpectrogramGrid(matrix))
}

// Bands renders the band-energy history for a window as a heatmap PNG, one
// column per sample, lowest band at the bottom.
func (h *ViewHandler) Bands(w http.ResponseWriter, r *http.Request) {
	q := repository.ListQuery{
		From:  parseTimeParam(r, "from"),
		To:    parseTimeParam(r, "to"),
		Limit: parseIntParam(r, "limit", 0),
	}

	raw, err := h.repo.List(r.Context(), q)
	if err != nil {
		http.Error(w, "failed to query measurements", http.StatusInternalServerError)
		return
	}

	// The store returns newest-first; the heatmap wants time flowing left to
	// right, so reverse before normalizing.
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}

	batch := measure.Normalize(raw)
	width := parseIntParam(r, "w", defaultViewWidth)
	batch = measure.Downsample(batch, width)

	h.renderGrid(w, r, render.BandGrid(batch))
}

func (h *ViewHandler) renderGrid(w http.ResponseWriter, r *http.Request, grid render.Grid) {
	width := clampDimension(parseIntParam(r, "w", defaultViewWidth))
	height := clampDimension(parseIntParam(r, "h", defaultViewHeight))

	palette := render.DefaultPalette()
	if name := r.URL.Query().Get("palette"); name != "" {
		p, ok := render.PaletteByName(name)
		if !ok {
			http.Error(w, "unknown palette", http.StatusBadRequest)
			return
		}
		palette = p
	} else if p, ok := render.PaletteByName(h.cfg.Palette); ok {
		palette = p
	}

	hm := render.NewHeatmap(width, height, palette, render.DefaultRangeOptions())
	defer hm.Dispose()

	if err := hm.Render(grid); err != nil {
		http.Error(w, "failed to render heatmap", http.StatusInternalServerError)
		return
	}
	png, err := hm.PNG()
	if err != nil {
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}
	writePNG(w, png)
}

// Charts renders one of the synchronized time-series charts as a PNG. The
// chart named in the path renders; the others still register in the group so
// a shared from/to viewport widens and clamps identically for all of them.
func (h *ViewHandler) Charts(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")

	q := repository.ListQuery{
		From:  parseTimeParam(r, "from"),
		To:    parseTimeParam(r, "to"),
		Limit: parseIntParam(r, "limit", 0),
	}
	raw, err := h.repo.List(r.Context(), q)
	if err != nil {
		http.Error(w, "failed to query measurements", http.StatusInternalServerError)
		return
	}
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	batch := measure.Normalize(raw)

	width := clampDimension(parseIntParam(r, "w", defaultViewWidth))
	height := clampDimension(parseIntParam(r, "h", defaultViewHeight))

	group := render.NewChartGroup(render.DefaultMinViewport)
	charts := map[string]*render.TimeChart{
		"levels":   render.NewTimeChart("levels", "Sound level", "dB", width, height),
		"anomaly":  render.NewTimeChart("anomaly", "Anomaly score", "score", width, height),
		"centroid": render.NewTimeChart("centroid", "Spectral centroid", "Hz", width, height),
	}
	target, ok := charts[name]
	if !ok {
		http.Error(w, "unknown chart", http.StatusNotFound)
		return
	}
	for _, c := range charts {
		group.Register(c)
	}

	charts["levels"].SetData(seriesPoints(batch.Rows, func(m models.Measurement) *float64 { return m.MeanDB }))
	charts["anomaly"].SetData(seriesPoints(batch.Rows, func(m models.Measurement) *float64 { return m.AnomalyScore }))
	charts["centroid"].SetData(seriesPoints(batch.Rows, func(m models.Measurement) *float64 { return m.SpectralCentroid }))

	if !q.From.IsZero() && !q.To.IsZero() {
		group.SetViewport(nil, q.From, q.To)
	}

	png, err := target.Render()
	if err != nil {
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	writePNG(w, png)
}

// Hourly renders the per-hour mean level rollup as a chart PNG.
func (h *ViewHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	hours, err := h.repo.HourlyAggregates(r.Context(), parseTimeParam(r, "from"), parseTimeParam(r, "to"))
	if err != nil {
		http.Error(w, "failed to query hourly aggregates", http.StatusInternalServerError)
		return
	}

	var pts []render.Point
	for _, hr := range hours {
		if hr.AvgMeanDB != nil {
			pts = append(pts, render.Point{T: hr.Hour, V: *hr.AvgMeanDB})
		}
	}

	width := clampDimension(parseIntParam(r, "w", defaultViewWidth))
	height := clampDimension(parseIntParam(r, "h", defaultViewHeight))
	c := render.NewTimeChart("hourly", "Hourly mean level", "dB", width, height)
	c.SetData(pts)

	png, err := c.Render()
	if err != nil {
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	writePNG(w, png)
}

func seriesPoints(rows []models.Measurement, pick func(models.Measurement) *float64) []render.Point {
	var pts []render.Point
	for _, m := range rows {
		if v := pick(m); v != nil {
			pts = append(pts, render.Point{T: m.Timestamp, V: *v})
		}
	}
	return pts
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func parseTimeParam(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clampDimension(n int) int {
	if n <= 0 {
		return defaultViewWidth
	}
	if n > maxViewDimension {
		return maxViewDimension
	}
	return n
}
