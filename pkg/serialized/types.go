package serialized

import (
	"bytes"
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/binio"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Type is one entry of a serialized file's type table.
type Type struct {
	ClassID    ClassID
	IsStripped bool

	// ScriptTypeIndex is -1 when the file does not record one.
	ScriptTypeIndex int32
	ScriptID        []byte
	Hash            [16]byte

	// Tree is empty when the file was written without type trees.
	Tree []typetree.Node

	// Set for reference types only.
	ClassName    string
	Namespace    string
	AssemblyName string

	Dependencies []uint32
}

const scriptClassID = 114

func (f *File) readType(r *binio.Reader, isRefType bool) (*Type, error) {
	t := &Type{ScriptTypeIndex: -1}

	classID, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("read class id: %w", err)
	}
	t.ClassID = ClassID(classID)

	if f.Version >= 16 {
		if t.IsStripped, err = r.Bool(); err != nil {
			return nil, fmt.Errorf("read stripped flag: %w", err)
		}
	}

	if f.Version >= 17 {
		// Always big-endian, regardless of the file's byte order.
		idx, err := r.U16BE()
		if err != nil {
			return nil, fmt.Errorf("read script type index: %w", err)
		}
		t.ScriptTypeIndex = int32(idx)
	}

	if f.Version >= 13 {
		hasScriptID := (isRefType && t.ScriptTypeIndex >= 0) ||
			(f.Version < 16 && uint32(classID) >= 0x80000000) ||
			(f.Version >= 16 && classID == scriptClassID)
		if hasScriptID {
			id, err := r.Bytes(16)
			if err != nil {
				return nil, fmt.Errorf("read script id: %w", err)
			}
			t.ScriptID = bytes.Clone(id)
		}

		hash, err := r.Bytes(16)
		if err != nil {
			return nil, fmt.Errorf("read type hash: %w", err)
		}
		copy(t.Hash[:], hash)
	}

	if !f.EnableTypeTree {
		return t, nil
	}

	if f.Version >= 12 || f.Version == 10 {
		t.Tree, err = f.readTreeBlob(r)
	} else {
		t.Tree, err = f.readTreeLegacy(r, 0, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read type tree: %w", err)
	}

	if f.Version >= 21 {
		if isRefType {
			if t.ClassName, err = r.CString(); err != nil {
				return nil, fmt.Errorf("read ref class name: %w", err)
			}
			if t.Namespace, err = r.CString(); err != nil {
				return nil, fmt.Errorf("read ref namespace: %w", err)
			}
			if t.AssemblyName, err = r.CString(); err != nil {
				return nil, fmt.Errorf("read ref assembly name: %w", err)
			}
		} else {
			count, err := r.U32()
			if err != nil {
				return nil, fmt.Errorf("read dependency count: %w", err)
			}
			if int64(count)*4 > int64(r.Len()) {
				return nil, fmt.Errorf("%w: %d dependencies in %d bytes", unityerr.ErrInvalidData, count, r.Len())
			}
			t.Dependencies = make([]uint32, count)
			for i := range t.Dependencies {
				if t.Dependencies[i], err = r.U32(); err != nil {
					return nil, fmt.Errorf("read dependency %d: %w", i, err)
				}
			}
		}
	}

	return t, nil
}

// blobNodeSize is the encoded size of one node in the blob layout.
const blobNodeSize = 24

type blobNode struct {
	version    uint32
	level      uint32
	typeFlags  uint32
	typeOffset uint32
	nameOffset uint32
	size       int32
	index      uint32
	metaFlags  uint32
}

func (f *File) readTreeBlob(r *binio.Reader) ([]typetree.Node, error) {
	nodeCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	strSize, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read string buffer size: %w", err)
	}

	stride := int64(blobNodeSize)
	if f.Version >= 19 {
		stride += 8
	}
	if int64(nodeCount)*stride > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d type tree nodes in %d bytes", unityerr.ErrInvalidData, nodeCount, r.Len())
	}

	raw := make([]blobNode, nodeCount)
	for i := range raw {
		n := &raw[i]
		version, err := r.U16()
		if err != nil {
			return nil, err
		}
		level, err := r.U8()
		if err != nil {
			return nil, err
		}
		typeFlags, err := r.U8()
		if err != nil {
			return nil, err
		}
		n.version, n.level, n.typeFlags = uint32(version), uint32(level), uint32(typeFlags)
		if n.typeOffset, err = r.U32(); err != nil {
			return nil, err
		}
		if n.nameOffset, err = r.U32(); err != nil {
			return nil, err
		}
		if n.size, err = r.I32(); err != nil {
			return nil, err
		}
		if n.index, err = r.U32(); err != nil {
			return nil, err
		}
		if n.metaFlags, err = r.U32(); err != nil {
			return nil, err
		}
		if f.Version >= 19 {
			// ref type hash
			if err := r.Skip(8); err != nil {
				return nil, err
			}
		}
	}

	strs, err := r.Bytes(int(strSize))
	if err != nil {
		return nil, fmt.Errorf("read string buffer: %w", err)
	}

	nodes := make([]typetree.Node, len(raw))
	for i, n := range raw {
		typeName, err := treeString(strs, n.typeOffset)
		if err != nil {
			return nil, fmt.Errorf("node %d type name: %w", i, err)
		}
		name, err := treeString(strs, n.nameOffset)
		if err != nil {
			return nil, fmt.Errorf("node %d name: %w", i, err)
		}
		nodes[i] = typetree.Node{
			TypeName:  typeName,
			Name:      name,
			Size:      n.size,
			Index:     n.index,
			TypeFlags: n.typeFlags,
			Version:   n.version,
			MetaFlags: n.metaFlags,
			Level:     uint8(n.level),
		}
	}

	return nodes, nil
}

// treeString resolves a blob string offset. Offsets with the top bit set
// refer to the common string table.
func treeString(strs []byte, offset uint32) (string, error) {
	if offset&0x80000000 != 0 {
		if s, ok := CommonString(offset & 0x7FFFFFFF); ok {
			return s, nil
		}
		return fmt.Sprintf("unknown:%d", offset), nil
	}

	if int64(offset) >= int64(len(strs)) {
		return "", fmt.Errorf("%w: string offset %d outside %d byte buffer", unityerr.ErrInvalidData, offset, len(strs))
	}
	rest := strs[offset:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", unityerr.ErrInvalidData, offset)
	}
	return string(rest[:end]), nil
}

// maxLegacyDepth bounds recursion through corrupt legacy trees.
const maxLegacyDepth = 64

// readTreeLegacy reads the nested pre-blob layout and flattens it into
// nodes, each node followed by its children.
func (f *File) readTreeLegacy(r *binio.Reader, level int, nodes []typetree.Node) ([]typetree.Node, error) {
	if level > maxLegacyDepth {
		return nil, fmt.Errorf("%w: type tree deeper than %d levels", unityerr.ErrInvalidData, maxLegacyDepth)
	}

	node := typetree.Node{Level: uint8(level)}
	var err error
	if node.TypeName, err = r.CString(); err != nil {
		return nil, fmt.Errorf("read type name: %w", err)
	}
	if node.Name, err = r.CString(); err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	if node.Size, err = r.I32(); err != nil {
		return nil, fmt.Errorf("read size: %w", err)
	}
	if f.Version > 1 {
		if node.Index, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
	}
	if node.TypeFlags, err = r.U32(); err != nil {
		return nil, fmt.Errorf("read type flags: %w", err)
	}
	if node.Version, err = r.U32(); err != nil {
		return nil, fmt.Errorf("read node version: %w", err)
	}
	if f.Version != 3 {
		if node.MetaFlags, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read meta flags: %w", err)
		}
	}

	nodes = append(nodes, node)

	childCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read child count: %w", err)
	}
	if int64(childCount) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d children in %d bytes", unityerr.ErrInvalidData, childCount, r.Len())
	}
	for i := uint32(0); i < childCount; i++ {
		if nodes, err = f.readTreeLegacy(r, level+1, nodes); err != nil {
			return nil, err
		}
	}

	return nodes, nil
}
