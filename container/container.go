/*
Package container implements the small binary record used to keep a texture
together with the settings needed to decode it.

A record is written as a 16 byte header followed by the name, the packed
palette and the packed indices, each preceded by its length. All values are
little-endian.
*/
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/cegfdb/Kuriimu/palette"
	"github.com/cegfdb/Kuriimu/swizzle"
	"github.com/cegfdb/Kuriimu/texture"
)

const (
	// Magic identifies a record
	Magic = "KTEX"

	flagPadToPowerOfTwo = 1 << 0
)

var (
	// ErrBadMagic is returned when unmarshalling something that is not a
	// record.
	ErrBadMagic = errors.New("container: bad magic")
	// ErrTruncated is returned when a record ends early.
	ErrTruncated = errors.New("container: truncated record")
	// ErrTrailingData is returned when a record is followed by extra bytes.
	ErrTrailingData = errors.New("container: trailing data")
	// ErrLimit is returned for a name or settings the header cannot hold.
	ErrLimit = errors.New("container: value out of range")
)

func checkLimits(name string, s texture.Settings) error {
	switch {
	case s.Width <= 0 || s.Width > math.MaxUint16 || s.Height <= 0 || s.Height > math.MaxUint16:
		return fmt.Errorf("%w: cannot store %dx%d texture", ErrLimit, s.Width, s.Height)
	case s.TileSize <= 0 || s.TileSize > math.MaxUint8:
		return fmt.Errorf("%w: cannot store tile size %d", ErrLimit, s.TileSize)
	case len(name) > math.MaxUint8:
		return fmt.Errorf("%w: name longer than %d bytes", ErrLimit, math.MaxUint8)
	}
	return nil
}

type header struct {
	Magic       [4]byte
	Width       uint16
	Height      uint16
	Bits        uint8
	Orientation uint8
	TileSize    uint8
	Flags       uint8
	Format      uint8
	NameLength  uint8
	_           [2]byte
}

// Record is a texture and everything required to decode it. It implements
// the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Record struct {
	Name     string
	Settings texture.Settings
	Format   palette.Format
	Palette  []byte
	Indices  []byte
}

// NewRecord encodes m with s against p, storing the palette packed as f.
func NewRecord(name string, m image.Image, s texture.Settings, f palette.Format, p color.Palette) (*Record, error) {
	b := m.Bounds()
	s.Width, s.Height = b.Dx(), b.Dy()

	if err := checkLimits(name, s); err != nil {
		return nil, err
	}

	pal := new(bytes.Buffer)
	if err := palette.Encode(pal, p, f); err != nil {
		return nil, err
	}

	idx := new(bytes.Buffer)
	if err := texture.Encode(idx, m, s, p); err != nil {
		return nil, err
	}

	return &Record{
		Name:     name,
		Settings: s,
		Format:   f,
		Palette:  pal.Bytes(),
		Indices:  idx.Bytes(),
	}, nil
}

// Image decodes the texture held by the record.
func (r *Record) Image() (*image.NRGBA, error) {
	p, err := palette.Decode(bytes.NewReader(r.Palette), r.Format)
	if err != nil {
		return nil, err
	}
	return texture.Decode(bytes.NewReader(r.Indices), r.Settings, p)
}

// MarshalBinary encodes the record into binary form and returns the result
func (r *Record) MarshalBinary() ([]byte, error) {
	s := r.Settings

	if err := checkLimits(r.Name, s); err != nil {
		return nil, err
	}
	if uint64(len(r.Palette)) > math.MaxUint32 || uint64(len(r.Indices)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: texture too large", ErrLimit)
	}

	h := header{
		Width:       uint16(s.Width),
		Height:      uint16(s.Height),
		Bits:        uint8(s.BitsPerIndex),
		Orientation: uint8(s.Orientation),
		TileSize:    uint8(s.TileSize),
		Format:      uint8(r.Format),
		NameLength:  uint8(len(r.Name)),
	}
	copy(h.Magic[:], Magic)
	if s.PadToPowerOfTwo {
		h.Flags |= flagPadToPowerOfTwo
	}

	b := new(bytes.Buffer)

	if err := binary.Write(b, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	b.WriteString(r.Name)

	// Write out the palette and indices, each preceded by its length
	for _, data := range [][]byte{r.Palette, r.Indices} {
		if err := binary.Write(b, binary.LittleEndian, uint32(len(data))); err != nil {
			return nil, err
		}
		b.Write(data)
	}

	return b.Bytes(), nil
}

func readFull(r io.Reader, b []byte) error {
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrTruncated
		}
		return err
	}
	return nil
}

func readBlock(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, ErrTruncated
	}
	if int64(n) > int64(r.Len()) {
		return nil, ErrTruncated
	}
	b := make([]byte, n)
	if err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary decodes the record from binary form
func (r *Record) UnmarshalBinary(b []byte) error {
	br := bytes.NewReader(b)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		if len(b) >= len(Magic) && string(b[:len(Magic)]) != Magic {
			return ErrBadMagic
		}
		return ErrTruncated
	}
	if string(h.Magic[:]) != Magic {
		return ErrBadMagic
	}

	name := make([]byte, h.NameLength)
	if err := readFull(br, name); err != nil {
		return err
	}

	pal, err := readBlock(br)
	if err != nil {
		return err
	}
	idx, err := readBlock(br)
	if err != nil {
		return err
	}

	if br.Len() > 0 {
		return ErrTrailingData
	}

	*r = Record{
		Name: string(name),
		Settings: texture.Settings{
			Width:           int(h.Width),
			Height:          int(h.Height),
			BitsPerIndex:    texture.BitDepth(h.Bits),
			Orientation:     swizzle.Orientation(h.Orientation),
			TileSize:        int(h.TileSize),
			PadToPowerOfTwo: h.Flags&flagPadToPowerOfTwo != 0,
		},
		Format:  palette.Format(h.Format),
		Palette: pal,
		Indices: idx,
	}

	return nil
}
