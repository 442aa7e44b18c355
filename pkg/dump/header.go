// Package dump reads and writes dump files, which hold the decompressed
// nodes of a UnityFS archive.
//
// A dump is a file header followed by entries until the end of the file.
// Each entry is an entry header, the node path and one zstd frame holding
// the node's bytes. Entries are independent, so a dump can be written and
// read as a stream.
package dump

import (
	"encoding/binary"
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Magic identifies a dump file.
var Magic = [4]byte{'U', 'F', 'S', 'D'}

// Version is the dump format version written.
const Version = 1

// Ext is the file extension of dump files.
const Ext = ".ufsd"

const (
	fileHeaderSize = 8
	// HeaderSize is the binary size of an entry header.
	HeaderSize = 24
)

const (
	maxPathLength = 1 << 12
	maxNodeSize   = 1 << 31
)

func encodeFileHeader(buf []byte) {
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], Version)
}

func checkFileHeader(buf []byte) error {
	if [4]byte(buf[0:4]) != Magic {
		return fmt.Errorf("%w: invalid magic: expected %q, got %q", unityerr.ErrFormat, Magic[:], buf[0:4])
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != Version {
		return fmt.Errorf("%w: %w: dump version %d", unityerr.ErrFormat, unityerr.ErrUnsupported, v)
	}
	return nil
}

// Header precedes every entry of a dump.
type Header struct {
	PathLength       uint32
	Flags            uint32 // node flags from the archive
	Length           uint64 // decompressed node size
	CompressedLength uint64 // size of the zstd frame
}

// Validate checks that the header describes an entry that can be read.
func (h *Header) Validate() error {
	if h.PathLength == 0 || h.PathLength > maxPathLength {
		return fmt.Errorf("%w: invalid path length %d", unityerr.ErrInvalidData, h.PathLength)
	}
	if h.Length > maxNodeSize {
		return fmt.Errorf("%w: node of %d bytes is too large", unityerr.ErrInvalidData, h.Length)
	}
	// Empty nodes are stored without a frame.
	if (h.CompressedLength == 0) != (h.Length == 0) || h.CompressedLength > maxNodeSize {
		return fmt.Errorf("%w: invalid compressed size %d", unityerr.ErrInvalidData, h.CompressedLength)
	}
	return nil
}

// MarshalBinary encodes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to buf, which must hold HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.PathLength)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	binary.LittleEndian.PutUint64(buf[16:24], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: entry header needs %d bytes, got %d", unityerr.ErrUnexpectedEOF, HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from buf without validating it.
func (h *Header) DecodeFrom(buf []byte) {
	h.PathLength = binary.LittleEndian.Uint32(buf[0:4])
	h.Flags = binary.LittleEndian.Uint32(buf[4:8])
	h.Length = binary.LittleEndian.Uint64(buf[8:16])
	h.CompressedLength = binary.LittleEndian.Uint64(buf[16:24])
}
