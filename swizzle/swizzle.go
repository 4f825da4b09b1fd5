/*
Package swizzle implements the tile traversal used by tiled indexed-color
textures.

Pixels are not stored row by row. The padded image is split into square
tiles which are stored one after another, left to right and top to bottom,
with the pixels of each tile stored row by row. One of four orientations is
then applied to every coordinate. Both dimensions are first rounded up to a
multiple of 8 and, optionally, to a power of two.
*/
package swizzle

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strings"
)

var (
	// ErrUnsupportedOrientation is returned for an unknown orientation.
	ErrUnsupportedOrientation = errors.New("swizzle: unsupported orientation")
	// ErrInvalidDimensions is returned when the width or height is not
	// positive.
	ErrInvalidDimensions = errors.New("swizzle: invalid dimensions")
	// ErrInvalidTileSize is returned when the tile size does not evenly
	// divide the padded dimensions.
	ErrInvalidTileSize = errors.New("swizzle: invalid tile size")
)

// DefaultTileSize is the tile edge used when none is given.
const DefaultTileSize = 8

// Orientation selects the transform applied to each traversal coordinate.
// The values match the tags used in the stored format.
type Orientation uint8

// Supported orientations.
const (
	Default       Orientation = 0
	TransposeTile Orientation = 1
	Rotate90      Orientation = 4
	Transpose     Orientation = 8
)

type axis int

const (
	axisWidth axis = iota
	axisHeight
)

type orientationInfo struct {
	name   string
	stride axis
}

var orientations = map[Orientation]orientationInfo{
	Default:       {"default", axisWidth},
	TransposeTile: {"transpose-tile", axisWidth},
	Rotate90:      {"rotate90", axisHeight},
	Transpose:     {"transpose", axisHeight},
}

func (o Orientation) String() string {
	if info, ok := orientations[o]; ok {
		return info.name
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// ParseOrientation returns the orientation with the given name, as returned
// by Orientation.String.
func ParseOrientation(s string) (Orientation, error) {
	for o, info := range orientations {
		if strings.EqualFold(s, info.name) {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedOrientation, s)
}

// Layout describes the stored geometry of a texture.
type Layout struct {
	Width, Height   int
	TileSize        int
	PadToPowerOfTwo bool
	Orientation     Orientation
}

// Sequence maps stream positions to pixel coordinates. It is an immutable
// value and safe for concurrent use.
type Sequence struct {
	strideWidth  int
	strideHeight int
	stride       int
	tileSize     int
	tilePixels   int
	tilesPerRow  int
	orientation  Orientation
}

func alignTo8(n int) int {
	return (n + 7) &^ 7
}

// nextPowerOfTwo returns the smallest power of two >= n for n >= 2.
func nextPowerOfTwo(n int) int {
	return 1 << bits.Len(uint(n-1))
}

// New returns the traversal for l.
func New(l Layout) (Sequence, error) {
	info, ok := orientations[l.Orientation]
	if !ok {
		return Sequence{}, fmt.Errorf("%w: %d", ErrUnsupportedOrientation, uint8(l.Orientation))
	}
	if l.Width <= 0 || l.Height <= 0 {
		return Sequence{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, l.Width, l.Height)
	}

	sw, sh := alignTo8(l.Width), alignTo8(l.Height)
	if l.PadToPowerOfTwo {
		sw, sh = nextPowerOfTwo(sw), nextPowerOfTwo(sh)
	}

	ts := l.TileSize
	if ts <= 0 || sw%ts != 0 || sh%ts != 0 {
		return Sequence{}, fmt.Errorf("%w: %d for %dx%d", ErrInvalidTileSize, ts, sw, sh)
	}

	s := Sequence{
		strideWidth:  sw,
		strideHeight: sh,
		stride:       sw,
		tileSize:     ts,
		tilePixels:   ts * ts,
		orientation:  l.Orientation,
	}
	if info.stride == axisHeight {
		s.stride = sh
	}
	s.tilesPerRow = s.stride / ts

	return s, nil
}

// Size returns the padded dimensions covered by the sequence.
func (s Sequence) Size() (width, height int) {
	return s.strideWidth, s.strideHeight
}

// Len returns the number of positions in the sequence.
func (s Sequence) Len() int {
	return s.strideWidth * s.strideHeight
}

// At returns the coordinate stored at position i, 0 <= i < Len().
func (s Sequence) At(i int) image.Point {
	tile := i / s.tilePixels
	xOut := tile % s.tilesPerRow * s.tileSize
	yOut := tile / s.tilesPerRow * s.tileSize
	xIn := i % s.tileSize
	yIn := i / s.tileSize % s.tileSize

	switch s.orientation {
	case TransposeTile:
		return image.Pt(xOut+yIn, yOut+xIn)
	case Rotate90:
		return image.Pt(yOut+yIn, s.stride-1-(xOut+xIn))
	case Transpose:
		return image.Pt(yOut+yIn, xOut+xIn)
	default:
		return image.Pt(xOut+xIn, yOut+yIn)
	}
}

// Points returns every coordinate of the sequence in stream order.
func (s Sequence) Points() []image.Point {
	p := make([]image.Point, s.Len())
	for i := range p {
		p[i] = s.At(i)
	}
	return p
}
