// Package render turns normalized measurement batches into raster heatmaps
// and time-series charts. Every render call is synchronous and full-redraw:
// batches are small (hundreds of cells), so recomputing everything is simpler
// and safe against stale partial state.
package render

import (
	"math"
	"sort"
)

// RangeOptions tunes the adaptive display range estimate.
type RangeOptions struct {
	// LoPercentile and HiPercentile clip the observed distribution.
	LoPercentile float64
	HiPercentile float64
	// MinRange is the smallest allowed max-min span in dB.
	MinRange float64
	// ExcludeAtOrBelow drops floor-sentinel values: the encoding floor means
	// "unmeasured or silent", not a real level.
	ExcludeAtOrBelow float64
}

// DefaultRangeOptions matches the stored encoding's floor sentinel.
func DefaultRangeOptions() RangeOptions {
	return RangeOptions{
		LoPercentile:     0.02,
		HiPercentile:     0.98,
		MinRange:         10,
		ExcludeAtOrBelow: -89,
	}
}

// Fallback range when a batch has no usable values.
const (
	fallbackMinDB = -60.0
	fallbackMaxDB = -20.0
)

// EstimateRange computes a robust [min, max] dB display range for a batch by
// percentile clipping. A fixed -90..0 scale wastes dynamic range: ambient
// recordings rarely approach either extreme, and one loud transient would
// otherwise blow out the whole color scale. The estimate is recomputed per
// render call over the currently visible batch, never cached across windows.
func EstimateRange(values []float64, opts RangeOptions) (float64, float64) {
	usable := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v <= opts.ExcludeAtOrBelow {
			continue
		}
		usable = append(usable, v)
	}
	if len(usable) == 0 {
		return fallbackMinDB, fallbackMaxDB
	}

	sort.Float64s(usable)
	minDB := usable[percentileIndex(len(usable), opts.LoPercentile)]
	maxDB := usable[percentileIndex(len(usable), opts.HiPercentile)]

	if span := maxDB - minDB; span < opts.MinRange {
		pad := (opts.MinRange - span) / 2
		minDB -= pad
		maxDB += pad
	}
	return minDB, maxDB
}

func percentileIndex(n int, p float64) int {
	idx := int(math.Round(p * float64(n-1)))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// Normalize maps a dB value into [0,1] against a display range, for the
// color mapper.
func Normalize(v, minDB, maxDB float64) float64 {
	if maxDB <= minDB {
		return 0
	}
	t := (v - minDB) / (maxDB - minDB)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
