package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Point is one time-series sample. Rows with absent values never become
// points; callers filter before building the series.
type Point struct {
	T time.Time
	V float64
}

// TimeChart renders one line/scatter chart over a time viewport. The value
// axis auto-scales to whatever is visible inside the viewport; only the time
// axis is shared across a ChartGroup.
type TimeChart struct {
	name   string
	title  string
	yLabel string
	color  drawing.Color

	width, height int

	points           []Point
	viewMin, viewMax time.Time

	group      *ChartGroup
	onViewport func(min, max time.Time)
}

// NewTimeChart creates a chart with no data and an unset viewport (renders
// the full extent of its data until a viewport is applied).
func NewTimeChart(name, title, yLabel string, width, height int) *TimeChart {
	return &TimeChart{
		name:   name,
		title:  title,
		yLabel: yLabel,
		color:  chart.ColorBlue,
		width:  width,
		height: height,
	}
}

// SetColor overrides the series color.
func (c *TimeChart) SetColor(col drawing.Color) { c.color = col }

// SetData replaces the chart's points. The next Render is a full redraw.
func (c *TimeChart) SetData(points []Point) { c.points = points }

// OnViewportChange registers a callback fired when a viewport is applied to
// this chart, including programmatic propagation from its group. Chart
// consumers (e.g. a UI layer) may call back into the group from here; the
// group's reentrancy guard absorbs the loop.
func (c *TimeChart) OnViewportChange(fn func(min, max time.Time)) { c.onViewport = fn }

// Viewport reports the chart's current time window.
func (c *TimeChart) Viewport() (time.Time, time.Time) { return c.viewMin, c.viewMax }

// Name identifies the chart within its group.
func (c *TimeChart) Name() string { return c.name }

func (c *TimeChart) applyViewport(min, max time.Time) {
	c.viewMin, c.viewMax = min, max
	if c.onViewport != nil {
		c.onViewport(min, max)
	}
}

// visible returns the points inside the viewport, all points when no
// viewport is set.
func (c *TimeChart) visible() []Point {
	if c.viewMin.IsZero() && c.viewMax.IsZero() {
		return c.points
	}
	out := make([]Point, 0, len(c.points))
	for _, p := range c.points {
		if p.T.Before(c.viewMin) || p.T.After(c.viewMax) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Render draws the chart to PNG. An empty visible set yields a blank "no
// data" image rather than an error: a quiet window is a valid state.
func (c *TimeChart) Render() ([]byte, error) {
	pts := c.visible()
	if len(pts) == 0 {
		return blankPNG(c.width, c.height)
	}

	xs := make([]time.Time, len(pts))
	ys := make([]float64, len(pts))
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for i, p := range pts {
		xs[i] = p.T
		ys[i] = p.V
		if p.V < minY {
			minY = p.V
		}
		if p.V > maxY {
			maxY = p.V
		}
	}
	// go-chart needs at least two x values.
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(time.Second))
		ys = append(ys, ys[0])
	}

	nMin, nMax := niceAxisBounds(minY, maxY)
	style := chart.Style{
		StrokeWidth: 1,
		StrokeColor: c.color,
		DotWidth:    2,
		DotColor:    c.color,
	}

	ch := chart.Chart{
		Title:  c.title,
		Width:  c.width,
		Height: c.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 32},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis: chart.YAxis{
			Name:  c.yLabel,
			Range: &chart.ContinuousRange{Min: nMin, Max: nMax},
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: c.name, XValues: xs, YValues: ys, Style: style},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: chart %s: %w", c.name, err)
	}
	return buf.Bytes(), nil
}

// niceAxisBounds pads the observed extent by 5% and rounds both ends to the
// span's order of magnitude.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	pad := span * 0.05
	if pad <= 0 {
		pad = 1
	}
	a := min - pad
	b := max + pad
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

func blankPNG(w, h int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultMinViewport is the narrowest allowed time window; zooming tighter
// would show a degenerate or empty slice of samples.
const DefaultMinViewport = 60 * time.Second

// ChartGroup links charts to one shared time viewport. Rendering is
// single-threaded and cooperative per the resource model, so the reentrancy
// guard is a plain flag, not a lock.
type ChartGroup struct {
	charts      []*TimeChart
	minWindow   time.Duration
	propagating bool
}

// NewChartGroup creates a group enforcing minWindow (DefaultMinViewport when
// zero).
func NewChartGroup(minWindow time.Duration) *ChartGroup {
	if minWindow <= 0 {
		minWindow = DefaultMinViewport
	}
	return &ChartGroup{minWindow: minWindow}
}

// Register adds a chart to the group.
func (g *ChartGroup) Register(c *TimeChart) {
	c.group = g
	g.charts = append(g.charts, c)
}

// SetViewport applies a time window originating from source to every other
// registered chart. The source chart already shows the window, so it is not
// re-applied there: programmatic axis changes fire secondary viewport events
// in chart consumers, and re-entering from one of those must not loop.
func (g *ChartGroup) SetViewport(source *TimeChart, min, max time.Time) {
	if g.propagating {
		return
	}
	g.propagating = true
	defer func() { g.propagating = false }()

	if max.Before(min) {
		min, max = max, min
	}
	if span := max.Sub(min); span < g.minWindow {
		pad := (g.minWindow - span) / 2
		min = min.Add(-pad)
		max = max.Add(pad)
	}

	if source != nil {
		source.viewMin, source.viewMax = min, max
	}
	for _, c := range g.charts {
		if c == source {
			continue
		}
		c.applyViewport(min, max)
	}
}

// Viewport reports the group's current window via its first chart.
func (g *ChartGroup) Viewport() (time.Time, time.Time) {
	if len(g.charts) == 0 {
		return time.Time{}, time.Time{}
	}
	return g.charts[0].Viewport()
}
