// Package binio provides a bounds-checked cursor over an in-memory byte slice.
//
// All reads honor the reader's byte order and fail with
// unityerr.ErrUnexpectedEOF instead of panicking when the data runs out.
package binio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// maxCStringLength bounds null-terminated strings so corrupt data cannot make
// a single string swallow the whole buffer unnoticed.
const maxCStringLength = 1 << 16

// Reader is a cursor over a byte slice. The slice is never copied or modified.
type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// NewReader creates a reader positioned at the start of buf.
func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	return &Reader{buf: buf, order: order}
}

// Order returns the byte order used for multi-byte reads.
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// SetOrder changes the byte order used for subsequent reads.
func (r *Reader) SetOrder(order binary.ByteOrder) {
	r.order = order
}

// Pos returns the current offset into the buffer.
func (r *Reader) Pos() int {
	return r.pos
}

// Size returns the total buffer length.
func (r *Reader) Size() int {
	return len(r.buf)
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return fmt.Errorf("%w: seek to %d in %d bytes", unityerr.ErrUnexpectedEOF, pos, len(r.buf))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("%w: skip %d bytes at offset %d", unityerr.ErrUnexpectedEOF, n, r.pos)
	}
	r.pos += n
	return nil
}

// Align advances the cursor to the next multiple of n.
// Padding missing at the very end of the buffer is tolerated.
func (r *Reader) Align(n int) {
	if rem := r.pos % n; rem != 0 {
		r.pos += n - rem
	}
	if r.pos > len(r.buf) {
		r.pos = len(r.buf)
	}
}

// Bytes returns the next n bytes as a view into the buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, fmt.Errorf("%w: read %d bytes at offset %d, %d remain", unityerr.ErrUnexpectedEOF, n, r.pos, r.Len())
	}
	b := r.buf[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// CString reads a null-terminated string. The terminator is consumed.
func (r *Reader) CString() (string, error) {
	rest := r.buf[min(r.pos, len(r.buf)):]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", unityerr.ErrUnexpectedEOF, r.pos)
	}
	if end > maxCStringLength {
		return "", fmt.Errorf("%w: string at offset %d is %d bytes long", unityerr.ErrInvalidData, r.pos, end)
	}
	s := string(rest[:end])
	r.pos += end + 1
	return s, nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// Bool reads a single byte and reports whether it is non-zero.
func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

// U16 reads an unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// I16 reads a signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads an unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// I32 reads a signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads an unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// I64 reads a signed 64-bit integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads an IEEE 754 single precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 reads an IEEE 754 double precision float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// U16BE reads an unsigned 16-bit integer in big-endian order regardless of
// the reader's byte order.
func (r *Reader) U16BE() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}
