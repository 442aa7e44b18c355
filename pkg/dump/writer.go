package dump

import (
	"errors"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
)

// DefaultCompressionLevel favors speed; node data is recompressed from
// scratch on every dump.
const DefaultCompressionLevel = zstd.BestSpeed

// Writer appends entries to a dump. It does not need to seek, so dst may
// be a pipe.
type Writer struct {
	dst    io.Writer
	ctx    zstd.Ctx
	level  int
	buf    []byte
	count  int
	opened bool
	closed bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the zstd level entries are compressed with.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter returns a Writer writing a dump to dst. The file header is
// written with the first entry, or by Close if there is none.
func NewWriter(dst io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{
		dst:   dst,
		ctx:   zstd.NewCtx(),
		level: DefaultCompressionLevel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add compresses data and appends it as the entry for the node at path.
func (w *Writer) Add(path string, flags uint32, data []byte) error {
	if w.closed {
		return errors.New("dump: write to closed writer")
	}
	if len(path) == 0 || len(path) > maxPathLength {
		return fmt.Errorf("dump: invalid node path length %d", len(path))
	}
	if uint64(len(data)) > maxNodeSize {
		return fmt.Errorf("dump: node %q of %d bytes is too large", path, len(data))
	}
	if err := w.open(); err != nil {
		return err
	}

	var compressed []byte
	if len(data) > 0 {
		var err error
		compressed, err = w.ctx.CompressLevel(w.buf[:0], data, w.level)
		if err != nil {
			return fmt.Errorf("compress %q: %w", path, err)
		}
		w.buf = compressed
	}

	h := Header{
		PathLength:       uint32(len(path)),
		Flags:            flags,
		Length:           uint64(len(data)),
		CompressedLength: uint64(len(compressed)),
	}
	var head [HeaderSize]byte
	h.EncodeTo(head[:])

	if _, err := w.dst.Write(head[:]); err != nil {
		return fmt.Errorf("write entry header: %w", err)
	}
	if _, err := io.WriteString(w.dst, path); err != nil {
		return fmt.Errorf("write path: %w", err)
	}
	if _, err := w.dst.Write(compressed); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	w.count++
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	return w.count
}

// Close writes the file header if no entry has been added. It does not
// close dst.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.open()
}

func (w *Writer) open() error {
	if w.opened {
		return nil
	}
	var head [fileHeaderSize]byte
	encodeFileHeader(head[:])
	if _, err := w.dst.Write(head[:]); err != nil {
		return fmt.Errorf("write file header: %w", err)
	}
	w.opened = true
	return nil
}
