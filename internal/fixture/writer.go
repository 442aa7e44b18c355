// Package fixture builds synthetic UnityFS archives, serialized files and
// object payloads for tests.
package fixture

import (
	"encoding/binary"
	"math"
)

// Writer appends binary values in a fixed byte order.
type Writer struct {
	buf   []byte
	order binary.AppendByteOrder
}

// NewWriter returns a writer using order. A nil order means little-endian.
func NewWriter(order binary.AppendByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{order: order}
}

// Bytes returns everything written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = w.order.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = w.order.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) I32(v int32) *Writer { return w.U32(uint32(v)) }

func (w *Writer) U64(v uint64) *Writer {
	w.buf = w.order.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) I64(v int64) *Writer { return w.U64(uint64(v)) }

func (w *Writer) F32(v float32) *Writer { return w.U32(math.Float32bits(v)) }

// Raw appends b as is.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// CString appends s followed by a NUL byte.
func (w *Writer) CString(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

// Align pads with zeros to a multiple of n.
func (w *Writer) Align(n int) *Writer {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
	return w
}

// ByteArray appends a length-prefixed byte array padded to 4 bytes, the
// encoding of both strings and byte vectors.
func (w *Writer) ByteArray(b []byte) *Writer {
	w.U32(uint32(len(b)))
	w.Raw(b)
	return w.Align(4)
}

// String appends s the way a Unity string field is stored.
func (w *Writer) String(s string) *Writer { return w.ByteArray([]byte(s)) }
