package archive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/houston-tools/unityFileTools/pkg/serialized"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Archive is an opened UnityFS archive.
//
// Nodes are decompressed lazily, at most once each, and cached for the
// archive's lifetime. An Archive is safe for concurrent use.
type Archive struct {
	header     Header
	hash       [16]byte
	blocks     []Block
	nodes      []*Node
	dataOffset int64
	virtualLen uint64

	mu     sync.Mutex // guards src, which has a single shared cursor
	src    io.ReadSeeker
	closer io.Closer

	loads singleflight.Group
}

// Node is a named entry of an archive.
type Node struct {
	Offset uint64
	Size   uint64
	Flags  uint32

	path    string
	key     string
	archive *Archive
	data    atomic.Pointer[[]byte]
}

// Content is the interpreted data of a node. Serialized is set when the node
// holds a serialized file; Raw always holds the node's bytes.
type Content struct {
	Serialized *serialized.File
	Raw        []byte
}

// Open reads the header and blocks-info of the archive in src.
func Open(src io.ReadSeeker) (*Archive, error) {
	a := &Archive{src: src}

	if err := a.header.DecodeFrom(src); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := a.header.Validate(); err != nil {
		return nil, fmt.Errorf("validate header: %w", err)
	}

	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	if a.header.Version >= 7 {
		pos = align16(pos)
	}

	compressed := make([]byte, a.header.CompressedBlocksInfoSize)
	if a.header.Flags.BlocksInfoAtEnd() {
		if _, err := src.Seek(-int64(len(compressed)), io.SeekEnd); err != nil {
			return nil, fmt.Errorf("seek blocks info: %w", err)
		}
		if _, err := io.ReadFull(src, compressed); err != nil {
			return nil, fmt.Errorf("read blocks info: %w", eofError(err))
		}
	} else {
		if _, err := src.Seek(pos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek blocks info: %w", err)
		}
		if _, err := io.ReadFull(src, compressed); err != nil {
			return nil, fmt.Errorf("read blocks info: %w", eofError(err))
		}
		pos += int64(len(compressed))
	}

	if a.header.Flags.NeedsStartPad() {
		pos = align16(pos)
	}
	a.dataOffset = pos

	raw, err := decompress(compressed, a.header.Flags.Compression(), a.header.UncompressedBlocksInfoSize)
	if err != nil {
		return nil, fmt.Errorf("decompress blocks info: %w", err)
	}

	info, err := parseBlocksInfo(raw)
	if err != nil {
		return nil, fmt.Errorf("parse blocks info: %w", err)
	}
	a.hash = info.hash
	a.blocks = info.blocks
	a.nodes = info.nodes

	end, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("get size: %w", err)
	}
	var compressedLen uint64
	for i, b := range a.blocks {
		// Unsupported blocks are rejected when read.
		if c := b.Flags.Compression(); c.Supported() {
			if err := checkBlockSize(c, uint64(b.CompressedSize), uint64(b.UncompressedSize)); err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
		}
		compressedLen += uint64(b.CompressedSize)
		a.virtualLen += uint64(b.UncompressedSize)
	}
	if uint64(a.dataOffset)+compressedLen > uint64(end) {
		return nil, fmt.Errorf("%w: %d bytes of blocks at offset %d exceed the %d byte file",
			unityerr.ErrInvalidData, compressedLen, a.dataOffset, end)
	}
	for i, n := range a.nodes {
		n.archive = a
		n.key = strconv.Itoa(i)
		if n.Offset > a.virtualLen || n.Size > a.virtualLen-n.Offset {
			return nil, fmt.Errorf("%w: node %q [%d, +%d) exceeds %d bytes of block data",
				unityerr.ErrInvalidData, n.path, n.Offset, n.Size, a.virtualLen)
		}
	}

	return a, nil
}

// OpenFile opens the archive at path. Close releases the file.
func OpenFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a, err := Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// Close closes the underlying file when the archive was opened by OpenFile.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

// Blocks returns the archive's blocks in storage order.
func (a *Archive) Blocks() []Block {
	return a.blocks
}

// Entries returns an iterator over the archive's nodes in file order.
func (a *Archive) Entries() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range a.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Len returns the number of nodes.
func (a *Archive) Len() int {
	return len(a.nodes)
}

// Node returns the first node whose path equals name.
func (a *Archive) Node(name string) (*Node, bool) {
	for _, n := range a.nodes {
		if n.path == name {
			return n, true
		}
	}
	return nil, false
}

// Path returns the node's path name.
func (n *Node) Path() string {
	return n.path
}

// Archive returns the archive the node belongs to.
func (n *Node) Archive() *Archive {
	return n.archive
}

// ReadRaw returns the node's decompressed bytes. The first call decompresses
// the blocks spanned by the node; later calls return the same slice, which
// must not be modified. Failed reads are not cached.
func (n *Node) ReadRaw() ([]byte, error) {
	if p := n.data.Load(); p != nil {
		return *p, nil
	}

	v, err, _ := n.archive.loads.Do(n.key, func() (any, error) {
		if p := n.data.Load(); p != nil {
			return *p, nil
		}
		data, err := n.archive.readNode(n)
		if err != nil {
			return nil, err
		}
		n.data.Store(&data)
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read node %q: %w", n.path, err)
	}
	return v.([]byte), nil
}

// Read returns the node's content, parsed as a serialized file when it
// looks like one.
func (n *Node) Read() (*Content, error) {
	raw, err := n.ReadRaw()
	if err != nil {
		return nil, err
	}

	if !serialized.IsSerializedFile(raw) {
		return &Content{Raw: raw}, nil
	}

	f, err := serialized.Read(raw)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.path, err)
	}
	return &Content{Serialized: f, Raw: raw}, nil
}

// maxNodePrealloc caps the buffer reserved up front for a node; larger
// nodes grow as their blocks are decompressed.
const maxNodePrealloc = 64 << 20

func (a *Archive) readNode(n *Node) ([]byte, error) {
	if n.Size == 0 {
		return []byte{}, nil
	}

	index, compressedOffset, uncompressedOffset, ok := locate(a.blocks, n.Offset)
	if !ok {
		return nil, fmt.Errorf("%w: node offset %d is outside the block data", unityerr.ErrInvalidData, n.Offset)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]byte, 0, min(n.Size, maxNodePrealloc))
	for _, b := range a.blocks[index:] {
		data, err := a.readBlock(b, compressedOffset)
		if err != nil {
			return nil, err
		}

		var subStart uint64
		if n.Offset > uncompressedOffset {
			subStart = n.Offset - uncompressedOffset
		}
		missing := n.Size - uint64(len(out))

		if subStart+missing <= uint64(len(data)) {
			out = append(out, data[subStart:subStart+missing]...)
			break
		}
		out = append(out, data[subStart:]...)

		compressedOffset += uint64(b.CompressedSize)
		uncompressedOffset += uint64(b.UncompressedSize)
	}

	if uint64(len(out)) != n.Size {
		return nil, fmt.Errorf("%w: node data ends after %d of %d bytes", unityerr.ErrInvalidData, len(out), n.Size)
	}
	return out, nil
}

// readBlock reads and decompresses the block starting at compressedOffset.
// The caller must hold a.mu.
func (a *Archive) readBlock(b Block, compressedOffset uint64) ([]byte, error) {
	if c := b.Flags.Compression(); !c.Supported() {
		return nil, fmt.Errorf("%w: %w: %s block compression", unityerr.ErrFormat, unityerr.ErrUnsupported, c)
	}

	if _, err := a.src.Seek(a.dataOffset+int64(compressedOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek block: %w", err)
	}

	compressed := make([]byte, b.CompressedSize)
	if _, err := io.ReadFull(a.src, compressed); err != nil {
		return nil, fmt.Errorf("read block: %w", eofError(err))
	}

	data, err := decompress(compressed, b.Flags.Compression(), b.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decompress block: %w", err)
	}
	return data, nil
}

func align16(pos int64) int64 {
	return (pos + 15) &^ 15
}
