/*
Package palette implements the packed 16-bit palette formats used by tiled
textures and helpers for deriving a palette from an image.

Both formats store one color per little-endian 16-bit word with red in bits
0-4, green in bits 5-9 and blue in bits 10-14. BGR555 ignores bit 15 and
treats every color as opaque; ABGR1555 uses bit 15 as a 1-bit alpha.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/cegfdb/Kuriimu/bitio"
)

// ErrUnsupportedFormat is returned for an unknown palette format.
var ErrUnsupportedFormat = errors.New("palette: unsupported format")

// Format identifies a packed palette layout.
type Format uint8

// Supported formats.
const (
	BGR555 Format = iota
	ABGR1555
)

var formatNames = map[Format]string{
	BGR555:   "bgr555",
	ABGR1555: "abgr1555",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat returns the format with the given name, ignoring case.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Expand5 scales a 5-bit channel to 8 bits, truncating.
func Expand5(v uint16) uint8 {
	return uint8(uint32(v&0x1f) * 255 / 31)
}

// Reduce8 scales an 8-bit channel to 5 bits, truncating.
func Reduce8(v uint8) uint16 {
	return uint16(uint32(v) * 31 / 255)
}

// Unpack converts a packed value to a color.
func Unpack(v uint16, f Format) (color.NRGBA, error) {
	c := color.NRGBA{
		R: Expand5(v),
		G: Expand5(v >> 5),
		B: Expand5(v >> 10),
		A: 0xff,
	}
	switch f {
	case BGR555:
	case ABGR1555:
		c.A = uint8(v>>15) * 0xff
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	return c, nil
}

// Pack converts a color to its packed value.
func Pack(c color.Color, f Format) (uint16, error) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	v := Reduce8(n.B)<<10 | Reduce8(n.G)<<5 | Reduce8(n.R)
	switch f {
	case BGR555:
	case ABGR1555:
		v |= uint16(n.A/0xff) << 15
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	return v, nil
}

// Decode reads packed colors from r until it is exhausted.
func Decode(r io.Reader, f Format) (color.Palette, error) {
	if _, ok := formatNames[f]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}

	br := bitio.NewReader(r)
	var p color.Palette
	for {
		v, err := br.ReadUint16()
		if err == io.EOF {
			return p, nil
		}
		if err != nil {
			return nil, err
		}
		c, err := Unpack(v, f)
		if err != nil {
			return nil, err
		}
		p = append(p, c)
	}
}

// Encode writes every color of p to w in order.
func Encode(w io.Writer, p color.Palette, f Format) error {
	bw := bitio.NewWriter(w)
	for _, c := range p {
		v, err := Pack(c, f)
		if err != nil {
			return err
		}
		if err := bw.WriteUint16(v); err != nil {
			return err
		}
	}
	return nil
}
