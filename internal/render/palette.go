package render

import (
	"image/color"
	"math"
)

// Palette is an ordered list of RGB anchor colors. At interpolates linearly
// between adjacent anchors; dark anchors sit at t=0 so quiet cells stay dark.
type Palette struct {
	Name    string
	Anchors []color.RGBA
}

// Named presets. "ember" and "moss" follow perceptually-uniform dark-to-light
// sequences; "gray" is a plain luminance ramp.
var palettes = map[string]Palette{
	"ember": {
		Name: "ember",
		Anchors: []color.RGBA{
			{R: 0, G: 0, B: 4, A: 255},
			{R: 87, G: 16, B: 110, A: 255},
			{R: 188, G: 55, B: 84, A: 255},
			{R: 249, G: 142, B: 9, A: 255},
			{R: 252, G: 255, B: 164, A: 255},
		},
	},
	"moss": {
		Name: "moss",
		Anchors: []color.RGBA{
			{R: 68, G: 1, B: 84, A: 255},
			{R: 59, G: 82, B: 139, A: 255},
			{R: 33, G: 145, B: 140, A: 255},
			{R: 94, G: 201, B: 98, A: 255},
			{R: 253, G: 231, B: 37, A: 255},
		},
	},
	"gray": {
		Name: "gray",
		Anchors: []color.RGBA{
			{R: 0, G: 0, B: 0, A: 255},
			{R: 255, G: 255, B: 255, A: 255},
		},
	},
}

// DefaultPalette returns the preset used when no palette is requested.
func DefaultPalette() Palette {
	return palettes["ember"]
}

// PaletteByName looks up a named preset.
func PaletteByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// PaletteNames lists the available presets.
func PaletteNames() []string {
	return []string{"ember", "moss", "gray"}
}

// At maps t in [0,1] to an interpolated color. Callers normalize a raw dB
// value against the display range first; t is clamped here.
func (p Palette) At(t float64) color.RGBA {
	if len(p.Anchors) == 0 {
		return color.RGBA{A: 255}
	}
	if len(p.Anchors) == 1 {
		return p.Anchors[0]
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	pos := t * float64(len(p.Anchors)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if hi >= len(p.Anchors) {
		hi = len(p.Anchors) - 1
	}
	frac := pos - float64(lo)

	a, b := p.Anchors[lo], p.Anchors[hi]
	return color.RGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
