package palette

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

// Build returns the distinct colors of m in the order they are first seen
// scanning rows top to bottom, left to right. Colors are compared exactly
// after conversion to color.NRGBA. The result is not capped.
func Build(m image.Image) color.Palette {
	b := m.Bounds()
	seen := make(map[color.NRGBA]struct{})
	var p color.Palette
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			p = append(p, c)
		}
	}
	return p
}

// Fit returns a palette of at most n colors for m along with the image to
// encode against it. If m already has n colors or fewer its own colors are
// used and m is returned unchanged. Otherwise the colors are reduced with a
// median cut quantizer and m is remapped onto the result.
func Fit(m image.Image, n int) (color.Palette, image.Image) {
	if p := Build(m); len(p) <= n {
		return p, m
	}

	b := m.Bounds()
	q := quantize.MedianCutQuantizer{}
	qp := q.Quantize(make(color.Palette, 0, n), m)

	// Normalise so exact lookups against the palette succeed
	p := make(color.Palette, len(qp))
	for i, c := range qp {
		p[i] = color.NRGBAModel.Convert(c)
	}

	pm := image.NewPaletted(b, p)
	draw.Draw(pm, b, m, b.Min, draw.Src)

	return p, pm
}
