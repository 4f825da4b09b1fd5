/*
Package bitio implements the byte, 16-bit and 4-bit unit readers and writers
used by the texture codecs.

All multi-byte values are little-endian. Two nibbles share a byte with the
first nibble in the low four bits and the second in the high four bits.
*/
package bitio

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Reader reads bytes, 16-bit words and nibbles from an underlying
// io.Reader.
type Reader struct {
	r       io.ByteReader
	nibble  byte
	pending bool
}

// NewReader returns a Reader reading from r. If r does not implement
// io.ByteReader it is wrapped in a bufio.Reader.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// ReadByte reads a single byte, discarding any half-consumed nibble pair.
func (r *Reader) ReadByte() (byte, error) {
	r.pending = false
	return r.r.ReadByte()
}

// ReadUint16 reads a little-endian 16-bit value. It returns io.EOF if no
// bytes remain and io.ErrUnexpectedEOF if only one does.
func (r *Reader) ReadUint16() (uint16, error) {
	var tmp [2]byte
	for i := range tmp {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		tmp[i] = b
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

// ReadNibble reads the next 4-bit unit, low half of each byte first.
func (r *Reader) ReadNibble() (byte, error) {
	if r.pending {
		r.pending = false
		return r.nibble, nil
	}
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.nibble, r.pending = b>>4, true
	return b & 0x0f, nil
}

// Writer writes bytes, 16-bit words and nibbles to an underlying io.Writer.
// Callers must call Flush once done to emit a trailing half byte.
type Writer struct {
	w       io.Writer
	nibble  byte
	pending bool
	tmp     [2]byte
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// WriteByte writes b, flushing any pending nibble first.
func (w *Writer) WriteByte(b byte) error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.tmp[0] = b
	return w.write(w.tmp[:1])
}

// WriteUint16 writes v in little-endian order, flushing any pending nibble
// first.
func (w *Writer) WriteUint16(v uint16) error {
	if err := w.Flush(); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.tmp[:], v)
	return w.write(w.tmp[:])
}

// WriteNibble writes the low four bits of v. Every second call completes a
// byte.
func (w *Writer) WriteNibble(v byte) error {
	v &= 0x0f
	if !w.pending {
		w.nibble, w.pending = v, true
		return nil
	}
	w.pending = false
	w.tmp[0] = w.nibble | v<<4
	return w.write(w.tmp[:1])
}

// Flush writes a pending nibble as a byte with a zero high half.
func (w *Writer) Flush() error {
	if !w.pending {
		return nil
	}
	w.pending = false
	w.tmp[0] = w.nibble
	return w.write(w.tmp[:1])
}
