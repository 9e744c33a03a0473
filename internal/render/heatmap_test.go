package render

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkarls/sonolog/internal/measure"
	"github.com/pkarls/sonolog/pkg/bands"
	"github.com/pkarls/sonolog/pkg/models"
)

func bandBatch(t *testing.T, rows ...map[string]float64) measure.Batch {
	t.Helper()
	raw := make([]*models.RawMeasurement, len(rows))
	for i, b := range rows {
		raw[i] = &models.RawMeasurement{
			ID:        int64(i + 1),
			Timestamp: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			Bands:     b,
		}
	}
	return measure.Normalize(raw)
}

func TestBandGridLowestBandAtBottom(t *testing.T) {
	batch := bandBatch(t, map[string]float64{
		"band_low_db":  -60,
		"band_mid_db":  -40,
		"band_high_db": -20,
	})
	require.Equal(t, bands.ThreeBandID, batch.Set.ID)

	grid := BandGrid(batch)
	require.Equal(t, 3, grid.rows())
	require.Equal(t, 1, grid.cols())
	assert.Equal(t, -20.0, grid.Cells[0][0], "highest band on top")
	assert.Equal(t, -60.0, grid.Cells[2][0], "lowest band at bottom")
	assert.Equal(t, []int64{1}, grid.IDs)
}

func TestBandGridAbsentIsNaN(t *testing.T) {
	batch := bandBatch(t, map[string]float64{"band_mid_db": -40})
	grid := BandGrid(batch)
	assert.True(t, math.IsNaN(grid.Cells[0][0]))
	assert.Equal(t, -40.0, grid.Cells[1][0])
	assert.True(t, math.IsNaN(grid.Cells[2][0]))
}

func TestSpectrogramGridInvertsBins(t *testing.T) {
	// Two snapshots, three bins; bin 0 is the lowest frequency.
	matrix := [][]float64{
		{-80, -50, -20},
		{-70, -40, -10},
	}
	grid := SpectrogramGrid(matrix)
	require.Equal(t, 3, grid.rows())
	require.Equal(t, 2, grid.cols())
	assert.Equal(t, -20.0, grid.Cells[0][0], "top row is the highest bin")
	assert.Equal(t, -80.0, grid.Cells[2][0], "bottom row is bin 0")
	assert.Equal(t, -10.0, grid.Cells[0][1])
}

func TestHeatmapPaintsValuesAndSkipsAbsent(t *testing.T) {
	batch := bandBatch(t,
		map[string]float64{"band_low_db": -50, "band_mid_db": -35, "band_high_db": -40},
		map[string]float64{"band_mid_db": -38},
	)
	h := NewHeatmap(60, 30, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	img := h.Image()
	// Column 1 (x ~ 45), top row (high band, y ~ 2): absent, so background.
	assert.Equal(t, heatmapBackground, img.RGBAAt(45, 2))
	// Column 0, middle row (mid band): measured, so painted.
	assert.NotEqual(t, heatmapBackground, img.RGBAAt(15, 15))
}

func TestHeatmapFloorSentinelRendersBackground(t *testing.T) {
	batch := bandBatch(t, map[string]float64{
		"band_low_db": -90, // silence sentinel
		"band_mid_db": -40,
	})
	h := NewHeatmap(30, 30, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	img := h.Image()
	// Bottom row is the low band at the floor: background, not palette[0].
	assert.Equal(t, heatmapBackground, img.RGBAAt(15, 25))
	assert.NotEqual(t, heatmapBackground, img.RGBAAt(15, 15))
}

func TestHeatmapSampleAt(t *testing.T) {
	batch := bandBatch(t,
		map[string]float64{"band_mid_db": -40},
		map[string]float64{"band_mid_db": -42},
		map[string]float64{"band_mid_db": -44},
	)
	h := NewHeatmap(90, 30, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	idx, ok := h.SampleAt(0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = h.SampleAt(89)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = h.SampleAt(-1)
	assert.False(t, ok)
	_, ok = h.SampleAt(90)
	assert.False(t, ok, "out-of-range clicks are ignored, not clamped")
}

func TestHeatmapClickDispatchesSelection(t *testing.T) {
	batch := bandBatch(t,
		map[string]float64{"band_mid_db": -40},
		map[string]float64{"band_mid_db": -42},
	)
	h := NewHeatmap(40, 20, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	var got []Selection
	h.OnSelect(func(s Selection) { got = append(got, s) })

	assert.True(t, h.Click(30))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].SampleIndex)
	assert.Equal(t, int64(2), got[0].RowID)

	// A click past the surface maps to a nonexistent sample: no event.
	assert.False(t, h.Click(400))
	assert.Len(t, got, 1)
}

func TestHeatmapSetPaletteKeepsRange(t *testing.T) {
	batch := bandBatch(t, map[string]float64{"band_mid_db": -40, "band_low_db": -55})
	h := NewHeatmap(20, 20, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	min1, max1 := h.Range()
	gray, _ := PaletteByName("gray")
	require.NoError(t, h.SetPalette(gray))
	min2, max2 := h.Range()
	assert.Equal(t, min1, min2)
	assert.Equal(t, max1, max2)

	// Gray palette paints gray cells.
	c := h.Image().RGBAAt(10, 10)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
}

func TestHeatmapResizeRepaints(t *testing.T) {
	batch := bandBatch(t, map[string]float64{"band_mid_db": -40})
	h := NewHeatmap(20, 20, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	require.NoError(t, h.Resize(50, 40))
	img := h.Image()
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
	assert.NotEqual(t, heatmapBackground, img.RGBAAt(25, 20))
}

func TestHeatmapEmptyBatchRendersBackground(t *testing.T) {
	h := NewHeatmap(10, 10, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(Grid{}))
	assert.Equal(t, heatmapBackground, h.Image().RGBAAt(5, 5))

	_, ok := h.SampleAt(5)
	assert.False(t, ok)
}

func TestHeatmapDispose(t *testing.T) {
	h := NewHeatmap(10, 10, DefaultPalette(), DefaultRangeOptions())
	h.Dispose()
	assert.ErrorIs(t, h.Render(Grid{}), ErrDisposed)
	_, err := h.PNG()
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestHeatmapPNG(t *testing.T) {
	batch := bandBatch(t, map[string]float64{"band_mid_db": -40})
	h := NewHeatmap(10, 10, DefaultPalette(), DefaultRangeOptions())
	require.NoError(t, h.Render(BandGrid(batch)))

	data, err := h.PNG()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}
