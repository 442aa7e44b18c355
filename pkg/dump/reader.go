package dump

import (
	"errors"
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Entry is one node read from a dump.
type Entry struct {
	Path  string
	Flags uint32
	Data  []byte
}

// Reader reads the entries of a dump in order.
type Reader struct {
	src        io.Reader
	ctx        zstd.Ctx
	compressed []byte
}

// NewReader reads and checks the file header of the dump in src.
func NewReader(src io.Reader) (*Reader, error) {
	var head [fileHeaderSize]byte
	if _, err := io.ReadFull(src, head[:]); err != nil {
		return nil, fmt.Errorf("read file header: %w", eofError(err))
	}
	if err := checkFileHeader(head[:]); err != nil {
		return nil, err
	}
	return &Reader{src: src, ctx: zstd.NewCtx()}, nil
}

// Next reads the next entry. It returns io.EOF when the dump ends cleanly
// between entries.
func (r *Reader) Next() (*Entry, error) {
	var head [HeaderSize]byte
	if _, err := io.ReadFull(r.src, head[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read entry header: %w", eofError(err))
	}

	var h Header
	if err := h.UnmarshalBinary(head[:]); err != nil {
		return nil, err
	}

	path := make([]byte, h.PathLength)
	if _, err := io.ReadFull(r.src, path); err != nil {
		return nil, fmt.Errorf("read path: %w", eofError(err))
	}

	if h.Length == 0 {
		return &Entry{Path: string(path), Flags: h.Flags, Data: []byte{}}, nil
	}

	if uint64(cap(r.compressed)) < h.CompressedLength {
		r.compressed = make([]byte, h.CompressedLength)
	}
	compressed := r.compressed[:h.CompressedLength]
	if _, err := io.ReadFull(r.src, compressed); err != nil {
		return nil, fmt.Errorf("read %q: %w", path, eofError(err))
	}

	data, err := r.ctx.Decompress(make([]byte, h.Length), compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %q: %v", unityerr.ErrInvalidData, path, err)
	}
	if uint64(len(data)) != h.Length {
		return nil, fmt.Errorf("%w: %q decompressed to %d bytes, header says %d",
			unityerr.ErrInvalidData, path, len(data), h.Length)
	}
	return &Entry{Path: string(path), Flags: h.Flags, Data: data}, nil
}

// ReadAll reads every entry of the dump in src.
func ReadAll(src io.Reader) ([]Entry, error) {
	r, err := NewReader(src)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *e)
	}
}

func eofError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", unityerr.ErrUnexpectedEOF, err)
	}
	return err
}
