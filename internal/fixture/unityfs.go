package fixture

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Compression methods as stored in UnityFS flags.
const (
	CompressionNone  = 0
	CompressionLZMA  = 1
	CompressionLZ4   = 2
	CompressionLZ4HC = 3
)

// Node is one named entry of a synthetic archive.
type Node struct {
	Path  string
	Data  []byte
	Flags uint32

	// Size overrides the declared node size when non-zero.
	Size uint64
}

// Block overrides one entry of the block table.
type Block struct {
	Uncompressed, Compressed uint32
	Flags                    uint16
}

// Archive describes a synthetic UnityFS archive.
type Archive struct {
	Version uint32
	Nodes   []Node

	// BlockSize splits the concatenated node data into blocks of at most
	// this many bytes. Zero stores everything in one block.
	BlockSize int

	// BlockCompression is applied to block i as BlockCompression[i%len].
	// LZ4 blocks that do not shrink are stored uncompressed. Other methods
	// are written verbatim with their flag so readers can reject them.
	BlockCompression []uint16

	// InfoCompression is the blocks-info compression method.
	InfoCompression uint32
	InfoAtEnd       bool
	StartPad        bool

	// Blocks replaces the block table computed from the node data. The
	// block data itself is still written as computed.
	Blocks []Block
}

// Bytes encodes the archive.
func (a Archive) Bytes() ([]byte, error) {
	version := a.Version
	if version == 0 {
		version = 7
	}

	var payload []byte
	type nodeEntry struct {
		offset, size uint64
	}
	entries := make([]nodeEntry, len(a.Nodes))
	for i, n := range a.Nodes {
		entries[i] = nodeEntry{offset: uint64(len(payload)), size: uint64(len(n.Data))}
		if n.Size != 0 {
			entries[i].size = n.Size
		}
		payload = append(payload, n.Data...)
	}

	blockSize := a.BlockSize
	if blockSize <= 0 {
		blockSize = max(len(payload), 1)
	}

	type block struct {
		uncompressed, compressed uint32
		flags                    uint16
	}
	var blocks []block
	var data []byte
	for i, start := 0, 0; ; i++ {
		end := min(start+blockSize, len(payload))
		chunk := payload[start:end]

		var want uint32
		if len(a.BlockCompression) > 0 {
			want = uint32(a.BlockCompression[i%len(a.BlockCompression)])
		}
		stored, method, err := compress(chunk, want)
		if err != nil {
			return nil, fmt.Errorf("compress block %d: %w", i, err)
		}

		blocks = append(blocks, block{
			uncompressed: uint32(len(chunk)),
			compressed:   uint32(len(stored)),
			flags:        uint16(method),
		})
		data = append(data, stored...)

		start = end
		if start >= len(payload) {
			break
		}
	}

	if a.Blocks != nil {
		blocks = blocks[:0]
		for _, b := range a.Blocks {
			blocks = append(blocks, block{uncompressed: b.Uncompressed, compressed: b.Compressed, flags: b.Flags})
		}
	}

	info := NewWriter(binary.BigEndian)
	info.Raw(make([]byte, 16))
	info.U32(uint32(len(blocks)))
	for _, b := range blocks {
		info.U32(b.uncompressed).U32(b.compressed).U16(b.flags)
	}
	info.U32(uint32(len(a.Nodes)))
	for i, n := range a.Nodes {
		info.U64(entries[i].offset).U64(entries[i].size).U32(n.Flags).CString(n.Path)
	}

	storedInfo, infoMethod, err := compress(info.Bytes(), a.InfoCompression)
	if err != nil {
		return nil, fmt.Errorf("compress blocks info: %w", err)
	}

	flags := infoMethod
	if a.InfoAtEnd {
		flags |= 0x80
	}
	if a.StartPad {
		flags |= 0x200
	}

	header := func(total int) []byte {
		w := NewWriter(binary.BigEndian)
		w.Raw([]byte("UnityFS\x00"))
		w.U32(version)
		w.CString("5.x.x")
		w.CString("2021.3.0f1")
		w.I64(int64(total))
		w.U32(uint32(len(storedInfo)))
		w.U32(uint32(info.Len()))
		w.U32(flags)
		return w.Bytes()
	}

	// The header length does not depend on the total size.
	out := NewWriter(binary.BigEndian)
	out.Raw(header(0))
	if version >= 7 {
		out.Align(16)
	}
	if !a.InfoAtEnd {
		out.Raw(storedInfo)
	}
	if a.StartPad {
		out.Align(16)
	}
	out.Raw(data)
	if a.InfoAtEnd {
		out.Raw(storedInfo)
	}

	buf := out.Bytes()
	copy(buf, header(len(buf)))
	return buf, nil
}

func compress(src []byte, method uint32) ([]byte, uint32, error) {
	if method != CompressionLZ4 && method != CompressionLZ4HC {
		return src, method, nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var n int
	var err error
	if method == CompressionLZ4HC {
		n, err = lz4.CompressBlockHC(src, dst, lz4.Level9, nil, nil)
	} else {
		n, err = lz4.CompressBlock(src, dst, nil)
	}
	if err != nil {
		return nil, 0, err
	}
	if n == 0 || n >= len(src) {
		return src, CompressionNone, nil
	}
	return dst[:n], method, nil
}
