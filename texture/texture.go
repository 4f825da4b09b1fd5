/*
Package texture implements a decoder and encoder for tiled indexed-color
textures.

A texture is stored as a stream of palette indices, either one 4-bit index
per nibble (low nibble first) or one 8-bit index per byte. The stream does
not follow row order; position i holds the pixel returned by the swizzle
traversal for the texture's layout, which always covers the dimensions
rounded up to a multiple of 8 and, by default, to a power of two. Padding
positions are written by repeating the nearest edge pixel and are ignored
when decoding.

The palette is stored separately, see package palette.
*/
package texture

import (
	"errors"
	"fmt"

	"github.com/cegfdb/Kuriimu/swizzle"
)

var (
	// ErrUnsupportedBitLength is returned for a bit depth other than 4 or 8.
	ErrUnsupportedBitLength = errors.New("texture: unsupported bit length")
	// ErrPaletteOverflow is returned when the palette has more colors than
	// the bit depth can address.
	ErrPaletteOverflow = errors.New("texture: palette too large for bit length")
	// ErrColorNotInPalette is returned when encoding a pixel whose color is
	// not in the palette.
	ErrColorNotInPalette = errors.New("texture: color not in palette")
	// ErrIndexOutOfRange is returned when decoding an index past the end of
	// the palette.
	ErrIndexOutOfRange = errors.New("texture: palette index out of range")
)

// BitDepth is the number of bits used per stored index.
type BitDepth uint8

// Supported bit depths.
const (
	Bit4 BitDepth = 4
	Bit8 BitDepth = 8
)

// Colors returns the number of palette entries addressable at this depth.
func (b BitDepth) Colors() (int, error) {
	switch b {
	case Bit4, Bit8:
		return 1 << b, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitLength, uint8(b))
}

// Settings describe how a texture is stored.
type Settings struct {
	Width, Height   int
	BitsPerIndex    BitDepth
	Orientation     swizzle.Orientation
	TileSize        int
	PadToPowerOfTwo bool
}

// NewSettings returns settings for a width by height texture with the
// default 8 pixel tiles, power of two padding and no reorientation.
func NewSettings(width, height int, bits BitDepth) Settings {
	return Settings{
		Width:           width,
		Height:          height,
		BitsPerIndex:    bits,
		Orientation:     swizzle.Default,
		TileSize:        swizzle.DefaultTileSize,
		PadToPowerOfTwo: true,
	}
}

func (s Settings) sequence() (swizzle.Sequence, error) {
	if _, err := s.BitsPerIndex.Colors(); err != nil {
		return swizzle.Sequence{}, err
	}
	return swizzle.New(swizzle.Layout{
		Width:           s.Width,
		Height:          s.Height,
		TileSize:        s.TileSize,
		PadToPowerOfTwo: s.PadToPowerOfTwo,
		Orientation:     s.Orientation,
	})
}

// StreamSize returns the number of bytes Encode writes for a texture stored
// with s.
func StreamSize(s Settings) (int, error) {
	seq, err := s.sequence()
	if err != nil {
		return 0, err
	}
	return (seq.Len()*int(s.BitsPerIndex) + 7) >> 3, nil
}
