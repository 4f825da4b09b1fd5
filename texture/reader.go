package texture

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/cegfdb/Kuriimu/bitio"
)

type decoder struct {
	r    *bitio.Reader
	bits BitDepth

	palette []color.NRGBA
	image   *image.NRGBA
}

func (d *decoder) readIndex() (byte, error) {
	if d.bits == Bit4 {
		return d.r.ReadNibble()
	}
	return d.r.ReadByte()
}

func (d *decoder) readColor() (color.NRGBA, error) {
	i, err := d.readIndex()
	if err != nil {
		return color.NRGBA{}, err
	}
	if int(i) >= len(d.palette) {
		return color.NRGBA{}, fmt.Errorf("%w: %d with %d colors", ErrIndexOutOfRange, i, len(d.palette))
	}
	return d.palette[i], nil
}

func (d *decoder) decode(r io.Reader, s Settings, p color.Palette) error {
	seq, err := s.sequence()
	if err != nil {
		return err
	}

	d.r = bitio.NewReader(r)
	d.bits = s.BitsPerIndex

	d.palette = make([]color.NRGBA, len(p))
	for i, c := range p {
		d.palette[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}

	d.image = image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))

	// The stream may stop short of the padded length, anything not
	// visited stays transparent
	for i := 0; i < seq.Len(); i++ {
		c, err := d.readColor()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if pt := seq.At(i); pt.In(d.image.Rect) {
			d.image.SetNRGBA(pt.X, pt.Y, c)
		}
	}

	return nil
}

// Decode reads a texture stored with s from r, resolving indices against p.
// Reading stops when r is exhausted or every position of the padded layout
// has been read.
func Decode(r io.Reader, s Settings, p color.Palette) (*image.NRGBA, error) {
	var d decoder
	if err := d.decode(r, s, p); err != nil {
		return nil, err
	}
	return d.image, nil
}
