// Package spectro implements the 8-bit quantization codec for short-time
// spectrogram snapshots.
//
// A spectrogram is an S x B matrix of decibel values (S snapshots, B
// frequency bins). Each cell is clamped to [floor, ceil] and mapped linearly
// to one unsigned byte, so the round trip is lossy by up to half a
// quantization step ((ceil-floor)/255/2, about 0.2 dB at the defaults). That
// loss is accepted: the bytes feed a color-mapped display, not further math.
package spectro

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Default encoding geometry and dB mapping. These are fixed by convention and
// stored alongside the payload; changing them requires versioning the stored
// geometry fields.
const (
	DefaultSnapshots = 10
	DefaultBins      = 256
	DefaultFloor     = -90.0
	DefaultCeil      = 10.0
)

// ErrCorruptSpectrogram reports a payload shorter than its declared S x B
// geometry. Decoding still returns a usable matrix (missing cells are filled
// with the floor), so callers may log the error and render what arrived.
var ErrCorruptSpectrogram = errors.New("spectro: payload shorter than declared geometry")

// Encode quantizes an S x B decibel matrix to S*B bytes, row-major with the
// snapshot index outermost. Values outside [floor, ceil] clamp to the edges.
func Encode(matrix [][]float64, floor, ceil float64) []byte {
	if len(matrix) == 0 {
		return nil
	}
	span := ceil - floor
	out := make([]byte, 0, len(matrix)*len(matrix[0]))
	for _, row := range matrix {
		for _, v := range row {
			out = append(out, quantize(v, floor, span))
		}
	}
	return out
}

func quantize(v, floor, span float64) byte {
	t := (v - floor) / span
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return byte(math.Round(t * 255))
}

// Decode reverses Encode for a payload of snapshots*bins bytes. The payload
// may be zlib-compressed; raw bytes are accepted as-is. Decoded values are
// rounded to one decimal place for display.
//
// A short payload fills the unavailable cells with the floor value and
// returns the matrix together with a wrapped ErrCorruptSpectrogram; partial
// corruption degrades to mostly-dark cells rather than failing the caller's
// whole batch. Trailing bytes beyond the declared geometry are ignored.
func Decode(data []byte, snapshots, bins int, floor, ceil float64) ([][]float64, error) {
	if snapshots <= 0 || bins <= 0 {
		return nil, fmt.Errorf("spectro: invalid geometry %dx%d", snapshots, bins)
	}
	raw := Decompress(data)

	span := ceil - floor
	matrix := make([][]float64, snapshots)
	for s := 0; s < snapshots; s++ {
		row := make([]float64, bins)
		for b := 0; b < bins; b++ {
			idx := s*bins + b
			if idx < len(raw) {
				row[b] = round1(floor + float64(raw[idx])/255*span)
			} else {
				row[b] = floor
			}
		}
		matrix[s] = row
	}

	if len(raw) < snapshots*bins {
		return matrix, fmt.Errorf("spectro: got %d bytes for %dx%d: %w",
			len(raw), snapshots, bins, ErrCorruptSpectrogram)
	}
	return matrix, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Compress wraps an encoded payload in a zlib envelope for storage.
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("spectro: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("spectro: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib envelope. Payloads that do not decompress are
// treated as already-raw bytes: stored spectrograms predate the envelope, and
// a compressed-vs-raw ambiguity must never surface as a request error.
func Decompress(payload []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return payload
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return payload
	}
	return raw
}
