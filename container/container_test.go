package container

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/cegfdb/Kuriimu/palette"
	"github.com/cegfdb/Kuriimu/swizzle"
	"github.com/cegfdb/Kuriimu/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{0xff, 0, 0, 0xff}
	blue = color.NRGBA{0, 0, 0xff, 0xff}
)

func testImage() *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, 12, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 12; x++ {
			if x < y*2 {
				m.SetNRGBA(x, y, red)
			} else {
				m.SetNRGBA(x, y, blue)
			}
		}
	}
	return m
}

func TestRecord(t *testing.T) {
	m := testImage()
	s := texture.NewSettings(0, 0, texture.Bit4)
	s.Orientation = swizzle.Rotate90

	r, err := NewRecord("title", m, s, palette.ABGR1555, palette.Build(m))
	require.NoError(t, err)
	assert.Equal(t, 12, r.Settings.Width)
	assert.Equal(t, 5, r.Settings.Height)
	assert.Equal(t, []byte{0x00, 0xfc, 0x1f, 0x80}, r.Palette)

	b, err := r.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, Magic, string(b[:4]))

	var out Record
	require.NoError(t, out.UnmarshalBinary(b))
	assert.Equal(t, *r, out)

	// Both colors survive 5-bit packing unchanged
	got, err := out.Image()
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestUnmarshalErrors(t *testing.T) {
	r, err := NewRecord("x", testImage(), texture.NewSettings(0, 0, texture.Bit8), palette.BGR555, color.Palette{red, blue})
	require.NoError(t, err)
	b, err := r.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrTruncated},
		{"magic", append([]byte("RIFF"), b[4:]...), ErrBadMagic},
		{"short magic", []byte("NOPE"), ErrBadMagic},
		{"header only", b[:16], ErrTruncated},
		{"short indices", b[:len(b)-1], ErrTruncated},
		{"trailing", append(append([]byte{}, b...), 0), ErrTrailingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out Record
			assert.Equal(t, tt.err, out.UnmarshalBinary(tt.data))
		})
	}
}

func TestMarshalLimits(t *testing.T) {
	r := Record{Settings: texture.NewSettings(70000, 1, texture.Bit4)}
	_, err := r.MarshalBinary()
	assert.ErrorIs(t, err, ErrLimit)

	r.Settings = texture.NewSettings(8, 8, texture.Bit4)
	r.Settings.TileSize = 0
	_, err = r.MarshalBinary()
	assert.ErrorIs(t, err, ErrLimit)

	r.Settings.TileSize = 8
	r.Name = strings.Repeat("n", 256)
	_, err = r.MarshalBinary()
	assert.ErrorIs(t, err, ErrLimit)
}

func TestNewRecordErrors(t *testing.T) {
	_, err := NewRecord("x", testImage(), texture.NewSettings(0, 0, texture.Bit4), palette.BGR555, color.Palette{red})
	assert.ErrorIs(t, err, texture.ErrColorNotInPalette)

	_, err = NewRecord("x", testImage(), texture.NewSettings(0, 0, texture.Bit4), palette.Format(9), color.Palette{red, blue})
	assert.ErrorIs(t, err, palette.ErrUnsupportedFormat)

	// Limits are checked up front rather than when the record is stored
	_, err = NewRecord(strings.Repeat("n", 256), testImage(), texture.NewSettings(0, 0, texture.Bit4), palette.BGR555, color.Palette{red, blue})
	assert.ErrorIs(t, err, ErrLimit)

	r, err := NewRecord(strings.Repeat("n", 255), testImage(), texture.NewSettings(0, 0, texture.Bit4), palette.BGR555, color.Palette{red, blue})
	require.NoError(t, err)
	_, err = r.MarshalBinary()
	assert.NoError(t, err)

	wide := image.NewNRGBA(image.Rect(0, 0, 70000, 1))
	_, err = NewRecord("wide", wide, texture.NewSettings(0, 0, texture.Bit4), palette.BGR555, color.Palette{color.NRGBA{}})
	assert.ErrorIs(t, err, ErrLimit)
}
