// Package bands defines the historical frequency band layouts and the
// aggregation that collapses a fine-grained layout into the 3-band summary
// used by compact table rows.
//
// Three incompatible generations exist in stored data: the legacy 3-band
// layout, the 7-band layout, and the fine 8-band layout. Exactly one layout
// applies to a rendered batch; selection happens once per batch by probing
// the first row, never per row inside a paint loop.
package bands

// Band is one contiguous, non-overlapping frequency range and its display
// label. Key is the stored column name for the band's dB level.
type Band struct {
	Label  string
	Key    string
	LowHz  int
	HighHz int
}

// SetID tags one band-set generation.
type SetID string

const (
	ThreeBandID SetID = "three"
	SevenBandID SetID = "seven"
	EightBandID SetID = "eight"
)

// Set is a named, ordered band layout. Bands are listed highest frequency
// first so the lowest band lands at the bottom of a heatmap.
type Set struct {
	ID    SetID
	Bands []Band
}

// ThreeBand is the legacy low/mid/high layout.
var ThreeBand = Set{
	ID: ThreeBandID,
	Bands: []Band{
		{Label: "High", Key: "band_high_db", LowHz: 4000, HighHz: 24000},
		{Label: "Mid", Key: "band_mid_db", LowHz: 300, HighHz: 4000},
		{Label: "Low", Key: "band_low_db", LowHz: 0, HighHz: 300},
	},
}

// SevenBand covers 0-24 kHz in seven ranges.
var SevenBand = Set{
	ID: SevenBandID,
	Bands: []Band{
		{Label: "8k-24k", Key: "band_8k_24k", LowHz: 8000, HighHz: 24000},
		{Label: "4k-8k", Key: "band_4k_8k", LowHz: 4000, HighHz: 8000},
		{Label: "2k-4k", Key: "band_2k_4k", LowHz: 2000, HighHz: 4000},
		{Label: "1k-2k", Key: "band_1k_2k", LowHz: 1000, HighHz: 2000},
		{Label: "500-1k", Key: "band_500_1k", LowHz: 500, HighHz: 1000},
		{Label: "200-500", Key: "band_200_500", LowHz: 200, HighHz: 500},
		{Label: "0-200", Key: "band_0_200", LowHz: 0, HighHz: 200},
	},
}

// EightBand is the finest-grained layout.
var EightBand = Set{
	ID: EightBandID,
	Bands: []Band{
		{Label: "12k-24k", Key: "band_12k_24k", LowHz: 12000, HighHz: 24000},
		{Label: "6k-12k", Key: "band_6k_12k", LowHz: 6000, HighHz: 12000},
		{Label: "3k-6k", Key: "band_3k_6k", LowHz: 3000, HighHz: 6000},
		{Label: "1.5k-3k", Key: "band_1500_3k", LowHz: 1500, HighHz: 3000},
		{Label: "800-1.5k", Key: "band_800_1500", LowHz: 800, HighHz: 1500},
		{Label: "300-800", Key: "band_300_800", LowHz: 300, HighHz: 800},
		{Label: "100-300", Key: "band_100_300", LowHz: 100, HighHz: 300},
		{Label: "0-100", Key: "band_0_100", LowHz: 0, HighHz: 100},
	},
}

// Detect picks the band set for a whole batch by probing one row. The probe
// reports whether the row carries a non-null value for a key. Finest layout
// wins; rows missing every known band key fall back to the legacy layout.
func Detect(has func(key string) bool) Set {
	if has("band_0_100") {
		return EightBand
	}
	if has("band_0_200") {
		return SevenBand
	}
	return ThreeBand
}

// Aggregate returns the arithmetic mean of the dB values present for keys.
// The mean is taken in the dB domain, not linear power; that overweights
// quiet constituents slightly and is kept as-is to match historical
// displayed values. Returns ok=false only when every constituent is absent.
func Aggregate(values map[string]float64, keys []string) (float64, bool) {
	var sum float64
	var n int
	for _, k := range keys {
		if v, ok := values[k]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Summary is the coarse 3-band view of a row. Nil means no constituent band
// carried a value.
type Summary struct {
	Low  *float64
	Mid  *float64
	High *float64
}

// summaryGroups maps each layout to the fine keys that collapse into each
// coarse band.
var summaryGroups = map[SetID][3][]string{
	ThreeBandID: {
		{"band_low_db"},
		{"band_mid_db"},
		{"band_high_db"},
	},
	SevenBandID: {
		{"band_0_200"},
		{"band_200_500", "band_500_1k", "band_1k_2k"},
		{"band_2k_4k", "band_4k_8k", "band_8k_24k"},
	},
	EightBandID: {
		{"band_0_100", "band_100_300"},
		{"band_300_800", "band_800_1500", "band_1500_3k"},
		{"band_3k_6k", "band_6k_12k", "band_12k_24k"},
	},
}

// Summarize collapses a row's band values into the 3-band summary for the
// given layout.
func Summarize(values map[string]float64, set Set) Summary {
	groups := summaryGroups[set.ID]
	var s Summary
	if v, ok := Aggregate(values, groups[0]); ok {
		s.Low = &v
	}
	if v, ok := Aggregate(values, groups[1]); ok {
		s.Mid = &v
	}
	if v, ok := Aggregate(values, groups[2]); ok {
		s.High = &v
	}
	return s
}
