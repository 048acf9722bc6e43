package mpris

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/soniakeys/quant/median"
)

// BarSteps is the visualizer's bar count per channel; a gradient spans
// both channels, so it holds 2*BarSteps colors.
const BarSteps = 12

// paletteColors is the median-cut palette size extracted from art.
const paletteColors = 10

// artSampleSize caps the pixel area fed to the quantizer. Full-size
// album art carries no extra palette information, so larger images are
// downscaled before the median cut.
const artSampleSize = 112

// ExtractGradient quantizes album art to a small palette and expands it
// into a gradient of 2*bars colors. A nil result means the art yielded
// no usable palette.
func ExtractGradient(img image.Image, bars int) []colorful.Color {
	if img == nil {
		return nil
	}
	if b := img.Bounds(); b.Dx() > artSampleSize || b.Dy() > artSampleSize {
		img = imaging.Fit(img, artSampleSize, artSampleSize, imaging.NearestNeighbor)
	}
	palette := median.Quantizer(paletteColors).Palette(img).ColorPalette()
	return generateGradient(palette, bars*2)
}

// generateGradient interpolates the ordered palette across the
// requested number of steps. A single-color palette produces a solid
// gradient.
func generateGradient(palette color.Palette, steps int) []colorful.Color {
	if len(palette) == 0 || steps <= 0 {
		return nil
	}

	colors := make([]colorful.Color, 0, len(palette))
	for _, c := range palette {
		cf, _ := colorful.MakeColor(c)
		colors = append(colors, cf)
	}

	out := make([]colorful.Color, steps)
	if len(colors) == 1 {
		for i := range out {
			out[i] = colors[0]
		}
		return out
	}

	segments := float64(len(colors) - 1)
	for i := 0; i < steps; i++ {
		progress := 0.0
		if steps > 1 {
			progress = float64(i) / float64(steps-1)
		}
		position := progress * segments
		start := int(math.Floor(position))
		end := min(start+1, len(colors)-1)
		factor := position - math.Floor(position)
		out[i] = colors[start].BlendRgb(colors[end], factor)
	}
	return out
}
