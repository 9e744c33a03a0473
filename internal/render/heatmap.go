package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/pkarls/sonolog/internal/measure"
)

// Grid is a 2D time-by-frequency value grid ready for painting. Cells is
// indexed [row][col] with row 0 at the top; NaN marks an absent cell. IDs
// carries the per-column sample identifier when columns are measurements.
type Grid struct {
	Cells [][]float64
	IDs   []int64
}

func (g Grid) rows() int { return len(g.Cells) }

func (g Grid) cols() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return len(g.Cells[0])
}

// BandGrid lays out a batch as columns of band energies. Rows follow the
// batch's band set, which lists the highest band first, so the lowest
// frequency lands on the bottom edge. Callers must pass the batch in
// chronological order; the store returns newest-first, so the call site
// reverses before building the grid.
func BandGrid(batch measure.Batch) Grid {
	cols := len(batch.Rows)
	grid := Grid{
		Cells: make([][]float64, len(batch.Set.Bands)),
		IDs:   make([]int64, cols),
	}
	for c, row := range batch.Rows {
		grid.IDs[c] = row.ID
	}
	for r, band := range batch.Set.Bands {
		cells := make([]float64, cols)
		for c, row := range batch.Rows {
			if v, ok := row.Bands[band.Key]; ok {
				cells[c] = v
			} else {
				cells[c] = math.NaN()
			}
		}
		grid.Cells[r] = cells
	}
	return grid
}

// SpectrogramGrid lays out a decoded S x B matrix as columns of snapshots.
// Bin 0 is the lowest frequency, so rows are inverted to draw it at the
// bottom.
func SpectrogramGrid(matrix [][]float64) Grid {
	cols := len(matrix)
	if cols == 0 {
		return Grid{}
	}
	bins := len(matrix[0])
	grid := Grid{Cells: make([][]float64, bins)}
	for r := 0; r < bins; r++ {
		cells := make([]float64, cols)
		for c := 0; c < cols; c++ {
			cells[c] = matrix[c][bins-1-r]
		}
		grid.Cells[r] = cells
	}
	return grid
}

// Selection is dispatched when a click lands on a valid sample column.
type Selection struct {
	SampleIndex int
	RowID       int64
}

// ErrDisposed is returned by operations on a renderer after Dispose.
var ErrDisposed = errors.New("render: heatmap disposed")

// "no signal" must look different from "quiet but measured", so skipped
// cells get a background tone no palette anchor uses.
var heatmapBackground = color.RGBA{R: 24, G: 24, B: 26, A: 255}

// Heatmap owns exactly one raster surface and repaints it whole on every
// render call: estimate the range, paint every cell, back to idle. There is
// no incremental diffing and no concurrent access; a new render for the same
// view replaces the previous pixels entirely (last writer wins).
type Heatmap struct {
	width, height int
	palette       Palette
	opts          RangeOptions

	grid         Grid
	minDB, maxDB float64

	img      *image.RGBA
	onSelect func(Selection)
	disposed bool
}

// NewHeatmap allocates the renderer and its surface.
func NewHeatmap(width, height int, palette Palette, opts RangeOptions) *Heatmap {
	return &Heatmap{
		width:   width,
		height:  height,
		palette: palette,
		opts:    opts,
		minDB:   fallbackMinDB,
		maxDB:   fallbackMaxDB,
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// OnSelect registers the click-selection callback.
func (h *Heatmap) OnSelect(fn func(Selection)) { h.onSelect = fn }

// Render estimates the display range from the grid's usable cells and
// repaints the whole surface.
func (h *Heatmap) Render(grid Grid) error {
	if h.disposed {
		return ErrDisposed
	}
	h.grid = grid

	values := make([]float64, 0, grid.rows()*grid.cols())
	for _, row := range grid.Cells {
		values = append(values, row...)
	}
	h.minDB, h.maxDB = EstimateRange(values, h.opts)

	h.paint()
	return nil
}

// SetPalette swaps the color lookup and repaints. The display range is kept;
// palette switches never re-run the estimator.
func (h *Heatmap) SetPalette(p Palette) error {
	if h.disposed {
		return ErrDisposed
	}
	h.palette = p
	h.paint()
	return nil
}

// Resize reallocates the surface and repaints from the stored grid. Geometry
// and colors are fully recomputed, never patched.
func (h *Heatmap) Resize(width, height int) error {
	if h.disposed {
		return ErrDisposed
	}
	h.width, h.height = width, height
	h.img = image.NewRGBA(image.Rect(0, 0, width, height))
	h.paint()
	return nil
}

func (h *Heatmap) paint() {
	for y := 0; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			h.img.SetRGBA(x, y, heatmapBackground)
		}
	}

	rows, cols := h.grid.rows(), h.grid.cols()
	if rows == 0 || cols == 0 {
		return
	}

	for r := 0; r < rows; r++ {
		y0 := r * h.height / rows
		y1 := (r + 1) * h.height / rows
		for c := 0; c < cols; c++ {
			v := h.grid.Cells[r][c]
			if math.IsNaN(v) || v <= h.opts.ExcludeAtOrBelow {
				continue // background, not bottom-of-palette
			}
			col := h.palette.At(Normalize(v, h.minDB, h.maxDB))
			x0 := c * h.width / cols
			x1 := (c + 1) * h.width / cols
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					h.img.SetRGBA(x, y, col)
				}
			}
		}
	}
}

// SampleAt maps a pixel x-coordinate to a sample column index. Coordinates
// outside the surface report ok=false rather than clamping: a click past the
// last column must not select a sample that does not exist.
func (h *Heatmap) SampleAt(x int) (int, bool) {
	cols := h.grid.cols()
	if cols == 0 || x < 0 || x >= h.width {
		return 0, false
	}
	idx := int(math.Floor(float64(x) / float64(h.width) * float64(cols)))
	if idx < 0 || idx >= cols {
		return 0, false
	}
	return idx, true
}

// Click resolves a pixel x-coordinate and dispatches a Selection to the
// registered callback. Returns whether a selection fired.
func (h *Heatmap) Click(x int) bool {
	idx, ok := h.SampleAt(x)
	if !ok || h.onSelect == nil {
		return false
	}
	sel := Selection{SampleIndex: idx}
	if idx < len(h.grid.IDs) {
		sel.RowID = h.grid.IDs[idx]
	}
	h.onSelect(sel)
	return true
}

// Range reports the display range of the last render.
func (h *Heatmap) Range() (minDB, maxDB float64) { return h.minDB, h.maxDB }

// Image exposes the owned surface for encoding or compositing.
func (h *Heatmap) Image() *image.RGBA { return h.img }

// PNG encodes the current surface.
func (h *Heatmap) PNG() ([]byte, error) {
	if h.disposed {
		return nil, ErrDisposed
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, h.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dispose releases the surface; the renderer's lifetime is tied to the view
// that created it.
func (h *Heatmap) Dispose() {
	h.disposed = true
	h.img = nil
	h.grid = Grid{}
}
