package archive

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/houston-tools/unityFileTools/pkg/binio"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// BlockFlags is the flags field of a block.
type BlockFlags uint16

// Compression returns the block's compression method.
func (f BlockFlags) Compression() Compression { return Compression(f & 0x3F) }

// Streamed reports whether the block is marked as streamed.
func (f BlockFlags) Streamed() bool { return f&0x40 != 0 }

// Block is one compressed run of the archive's data.
type Block struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            BlockFlags
}

type blocksInfo struct {
	hash   [16]byte
	blocks []Block
	nodes  []*Node
}

const (
	blockEntrySize   = 10
	minNodeEntrySize = 21
)

func parseBlocksInfo(data []byte) (*blocksInfo, error) {
	r := binio.NewReader(data, binary.BigEndian)
	info := &blocksInfo{}

	hash, err := r.Bytes(16)
	if err != nil {
		return nil, fmt.Errorf("read hash: %w", err)
	}
	copy(info.hash[:], hash)

	blockCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read block count: %w", err)
	}
	if int64(blockCount)*blockEntrySize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d blocks in %d bytes", unityerr.ErrInvalidData, blockCount, r.Len())
	}
	info.blocks = make([]Block, blockCount)
	for i := range info.blocks {
		b := &info.blocks[i]
		if b.UncompressedSize, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		if b.CompressedSize, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		flags, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		b.Flags = BlockFlags(flags)
	}

	nodeCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	if int64(nodeCount)*minNodeEntrySize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d nodes in %d bytes", unityerr.ErrInvalidData, nodeCount, r.Len())
	}
	info.nodes = make([]*Node, nodeCount)
	for i := range info.nodes {
		n := &Node{}
		if n.Offset, err = r.U64(); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		if n.Size, err = r.U64(); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		if n.Flags, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		path, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("read node %d path: %w", i, err)
		}
		n.path = strings.ToValidUTF8(path, "\uFFFD")
		info.nodes[i] = n
	}

	return info, nil
}

// locate finds the block holding the virtual offset and the compressed and
// uncompressed offsets at which that block starts.
func locate(blocks []Block, offset uint64) (index int, compressed, uncompressed uint64, ok bool) {
	for i, b := range blocks {
		nextCompressed := compressed + uint64(b.CompressedSize)
		nextUncompressed := uncompressed + uint64(b.UncompressedSize)
		if offset >= uncompressed && offset < nextUncompressed {
			return i, compressed, uncompressed, true
		}
		compressed, uncompressed = nextCompressed, nextUncompressed
	}
	return 0, 0, 0, false
}
