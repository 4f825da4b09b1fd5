package texture

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/cegfdb/Kuriimu/bitio"
	"github.com/cegfdb/Kuriimu/swizzle"
)

type encoder struct {
	w    *bitio.Writer
	bits BitDepth
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Map each color to its first position in the palette
func lookupTable(p color.Palette) map[color.NRGBA]byte {
	t := make(map[color.NRGBA]byte, len(p))
	for i := len(p) - 1; i >= 0; i-- {
		t[color.NRGBAModel.Convert(p[i]).(color.NRGBA)] = byte(i)
	}
	return t
}

func indices(m image.Image, seq swizzle.Sequence, p color.Palette) ([]byte, error) {
	b := m.Bounds()
	t := lookupTable(p)

	idx := make([]byte, seq.Len())
	for i := range idx {
		pt := seq.At(i)
		x := b.Min.X + clamp(pt.X, 0, b.Dx()-1)
		y := b.Min.Y + clamp(pt.Y, 0, b.Dy()-1)

		c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
		v, ok := t[c]
		if !ok {
			return nil, fmt.Errorf("%w: %v at (%d, %d)", ErrColorNotInPalette, c, x-b.Min.X, y-b.Min.Y)
		}
		idx[i] = v
	}
	return idx, nil
}

func (e *encoder) encode(idx []byte) error {
	for _, v := range idx {
		var err error
		if e.bits == Bit4 {
			err = e.w.WriteNibble(v)
		} else {
			err = e.w.WriteByte(v)
		}
		if err != nil {
			return err
		}
	}
	return e.w.Flush()
}

// Encode writes m to w as a texture stored with s, mapping each pixel to its
// exact position in p. The width and height of s are taken from m. Nothing
// is written if the palette is too large or a color is missing from it.
func Encode(w io.Writer, m image.Image, s Settings, p color.Palette) error {
	b := m.Bounds()
	s.Width, s.Height = b.Dx(), b.Dy()

	n, err := s.BitsPerIndex.Colors()
	if err != nil {
		return err
	}
	if len(p) > n {
		return fmt.Errorf("%w: %d colors, at most %d", ErrPaletteOverflow, len(p), n)
	}

	seq, err := s.sequence()
	if err != nil {
		return err
	}

	idx, err := indices(m, seq, p)
	if err != nil {
		return err
	}

	e := encoder{
		w:    bitio.NewWriter(w),
		bits: s.BitsPerIndex,
	}

	return e.encode(idx)
}
