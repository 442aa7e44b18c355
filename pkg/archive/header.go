// Package archive reads UnityFS archives: a header, a blocks-info table and
// a run of optionally compressed blocks that together hold named nodes.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Magic identifies a UnityFS archive.
const Magic = "UnityFS\x00"

// maxBlocksInfoSize bounds the blocks-info section read into memory.
const maxBlocksInfoSize = 1 << 28

// maxHeaderString bounds the version strings in the header.
const maxHeaderString = 256

// Compression is a block compression method.
type Compression uint32

const (
	CompressionNone Compression = iota
	CompressionLZMA
	CompressionLZ4
	CompressionLZ4HC
	CompressionLZHAM
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZMA:
		return "LZMA"
	case CompressionLZ4:
		return "LZ4"
	case CompressionLZ4HC:
		return "LZ4HC"
	case CompressionLZHAM:
		return "LZHAM"
	default:
		return fmt.Sprintf("Compression(%d)", uint32(c))
	}
}

// Supported reports whether blocks using c can be decompressed.
func (c Compression) Supported() bool {
	return c == CompressionNone || c == CompressionLZ4 || c == CompressionLZ4HC
}

// ArchiveFlags is the flags word of the header.
type ArchiveFlags uint32

// Compression returns the blocks-info compression method.
func (f ArchiveFlags) Compression() Compression { return Compression(f & 0x3F) }

// BlocksInfoAtEnd reports whether the blocks-info section is stored at the
// end of the file instead of after the header.
func (f ArchiveFlags) BlocksInfoAtEnd() bool { return f&0x80 != 0 }

// NeedsStartPad reports whether block data starts on a 16-byte boundary
// after the blocks-info section.
func (f ArchiveFlags) NeedsStartPad() bool { return f&0x200 != 0 }

// Header is the big-endian UnityFS file header.
type Header struct {
	Version                    uint32
	UnityVersion               string
	UnityRevision              string
	Size                       int64
	CompressedBlocksInfoSize   uint32
	UncompressedBlocksInfoSize uint32
	Flags                      ArchiveFlags
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Size < 0 {
		return fmt.Errorf("%w: negative archive size %d", unityerr.ErrInvalidData, h.Size)
	}
	if h.CompressedBlocksInfoSize > maxBlocksInfoSize || h.UncompressedBlocksInfoSize > maxBlocksInfoSize {
		return fmt.Errorf("%w: blocks info of %d bytes (%d compressed) is too large",
			unityerr.ErrInvalidData, h.UncompressedBlocksInfoSize, h.CompressedBlocksInfoSize)
	}
	if c := h.Flags.Compression(); !c.Supported() {
		return fmt.Errorf("%w: %w: %s blocks info compression", unityerr.ErrFormat, unityerr.ErrUnsupported, c)
	}
	return nil
}

// DecodeFrom reads the header, magic included, from r.
// Does not validate - call Validate afterwards.
func (h *Header) DecodeFrom(r io.Reader) error {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read magic: %w", eofError(err))
	}
	if string(magic[:]) != Magic {
		return fmt.Errorf("%w: invalid magic: expected %q, got %q", unityerr.ErrFormat, Magic, magic[:])
	}

	var word [4]byte
	if _, err := io.ReadFull(r, word[:]); err != nil {
		return fmt.Errorf("read version: %w", eofError(err))
	}
	h.Version = binary.BigEndian.Uint32(word[:])

	var err error
	if h.UnityVersion, err = readCString(r); err != nil {
		return fmt.Errorf("read unity version: %w", err)
	}
	if h.UnityRevision, err = readCString(r); err != nil {
		return fmt.Errorf("read unity revision: %w", err)
	}

	var rest [20]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return fmt.Errorf("read sizes: %w", eofError(err))
	}
	h.Size = int64(binary.BigEndian.Uint64(rest[0:8]))
	h.CompressedBlocksInfoSize = binary.BigEndian.Uint32(rest[8:12])
	h.UncompressedBlocksInfoSize = binary.BigEndian.Uint32(rest[12:16])
	h.Flags = ArchiveFlags(binary.BigEndian.Uint32(rest[16:20]))
	return nil
}

func readCString(r io.Reader) (string, error) {
	var out []byte
	var b [1]byte
	for len(out) <= maxHeaderString {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", eofError(err)
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}
	return "", fmt.Errorf("%w: header string longer than %d bytes", unityerr.ErrInvalidData, maxHeaderString)
}

// eofError maps the io end-of-file errors onto unityerr.ErrUnexpectedEOF.
func eofError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", unityerr.ErrUnexpectedEOF, err)
	}
	return err
}
