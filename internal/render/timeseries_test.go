package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkPoints(start time.Time, step time.Duration, values ...float64) []Point {
	pts := make([]Point, len(values))
	for i, v := range values {
		pts[i] = Point{T: start.Add(time.Duration(i) * step), V: v}
	}
	return pts
}

func TestChartGroupPropagatesViewport(t *testing.T) {
	g := NewChartGroup(0)
	level := NewTimeChart("level", "Level", "dB", 800, 320)
	anomaly := NewTimeChart("anomaly", "Anomaly score", "z", 800, 320)
	centroid := NewTimeChart("centroid", "Spectral centroid", "Hz", 800, 320)
	g.Register(level)
	g.Register(anomaly)
	g.Register(centroid)

	min := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	max := min.Add(2 * time.Hour)
	g.SetViewport(level, min, max)

	for _, c := range []*TimeChart{level, anomaly, centroid} {
		gotMin, gotMax := c.Viewport()
		assert.Equal(t, min, gotMin, "chart %s", c.Name())
		assert.Equal(t, max, gotMax, "chart %s", c.Name())
	}
}

func TestChartGroupDoesNotRetriggerSource(t *testing.T) {
	g := NewChartGroup(0)
	source := NewTimeChart("level", "Level", "dB", 800, 320)
	other := NewTimeChart("anomaly", "Anomaly", "z", 800, 320)
	g.Register(source)
	g.Register(other)

	sourceFired := 0
	source.OnViewportChange(func(_, _ time.Time) { sourceFired++ })

	min := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	g.SetViewport(source, min, min.Add(time.Hour))
	assert.Zero(t, sourceFired, "originating chart must not receive its own change")
}

func TestChartGroupReentrancyGuard(t *testing.T) {
	g := NewChartGroup(0)
	a := NewTimeChart("a", "A", "dB", 800, 320)
	b := NewTimeChart("b", "B", "dB", 800, 320)
	g.Register(a)
	g.Register(b)

	// Simulate a chart consumer that echoes every programmatic change back
	// into the group, as chart library internals do on axis changes.
	echoes := 0
	b.OnViewportChange(func(min, max time.Time) {
		echoes++
		g.SetViewport(b, min.Add(-time.Hour), max.Add(time.Hour))
	})

	min := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	max := min.Add(2 * time.Hour)
	g.SetViewport(a, min, max)

	assert.Equal(t, 1, echoes, "echo must be absorbed, not looped")
	gotMin, gotMax := b.Viewport()
	assert.Equal(t, min, gotMin, "echoed change must not win over the original")
	assert.Equal(t, max, gotMax)
}

func TestChartGroupEnforcesMinimumWindow(t *testing.T) {
	g := NewChartGroup(60 * time.Second)
	a := NewTimeChart("a", "A", "dB", 800, 320)
	b := NewTimeChart("b", "B", "dB", 800, 320)
	g.Register(a)
	g.Register(b)

	center := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	g.SetViewport(a, center.Add(-5*time.Second), center.Add(5*time.Second))

	gotMin, gotMax := b.Viewport()
	assert.Equal(t, 60*time.Second, gotMax.Sub(gotMin))
	assert.Equal(t, center.Add(-30*time.Second), gotMin, "widening is centered")
}

func TestChartGroupSwapsInvertedBounds(t *testing.T) {
	g := NewChartGroup(0)
	a := NewTimeChart("a", "A", "dB", 800, 320)
	b := NewTimeChart("b", "B", "dB", 800, 320)
	g.Register(a)
	g.Register(b)

	min := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	max := min.Add(2 * time.Hour)
	g.SetViewport(a, max, min)

	gotMin, gotMax := b.Viewport()
	assert.True(t, gotMin.Before(gotMax))
}

func TestTimeChartRenderPNG(t *testing.T) {
	c := NewTimeChart("level", "Level", "dB", 400, 200)
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c.SetData(mkPoints(start, time.Minute, -42, -40, -45, -38, -41))

	data, err := c.Render()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestTimeChartRenderSinglePoint(t *testing.T) {
	c := NewTimeChart("level", "Level", "dB", 400, 200)
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c.SetData(mkPoints(start, time.Minute, -42))

	data, err := c.Render()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestTimeChartEmptyWindowRendersBlank(t *testing.T) {
	c := NewTimeChart("level", "Level", "dB", 400, 200)
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c.SetData(mkPoints(start, time.Minute, -42, -40))

	// Viewport entirely after the data: valid "no data" state.
	g := NewChartGroup(0)
	g.Register(c)
	g.SetViewport(nil, start.Add(24*time.Hour), start.Add(26*time.Hour))

	data, err := c.Render()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestTimeChartValueAxisFollowsViewport(t *testing.T) {
	c := NewTimeChart("level", "Level", "dB", 400, 200)
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c.SetData(mkPoints(start, time.Minute, -80, -75, -20, -15))

	g := NewChartGroup(0)
	g.Register(c)
	// Zoom to the quiet half; visible() must exclude the loud points so the
	// y-axis can re-derive a tighter scale.
	g.SetViewport(nil, start, start.Add(90*time.Second))

	vis := c.visible()
	require.Len(t, vis, 2)
	assert.Equal(t, -80.0, vis[0].V)
	assert.Equal(t, -75.0, vis[1].V)
}

func TestNiceAxisBounds(t *testing.T) {
	lo, hi := niceAxisBounds(-55, -35)
	assert.LessOrEqual(t, lo, -55.0)
	assert.GreaterOrEqual(t, hi, -35.0)

	lo, hi = niceAxisBounds(-40, -40)
	assert.Less(t, lo, hi)
}
