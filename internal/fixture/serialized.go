package fixture

import (
	"encoding/binary"

	"github.com/houston-tools/unityFileTools/pkg/typetree"
)

// Object is one object of a synthetic serialized file.
type Object struct {
	PathID  int64
	ClassID int32
	Tree    []typetree.Node
	Data    []byte
}

// SerializedFile describes a synthetic serialized file. Versions from 9
// upwards are supported; versions below 12 other than 10 use the legacy
// type tree layout.
type SerializedFile struct {
	Version      uint32
	BigEndian    bool
	UnityVersion string

	// CommonStrings maps strings to common string table offsets. Matching
	// type tree strings are written as table references.
	CommonStrings map[string]uint32

	Objects []Object
}

// Bytes encodes the file.
func (s SerializedFile) Bytes() []byte {
	var order binary.AppendByteOrder = binary.LittleEndian
	if s.BigEndian {
		order = binary.BigEndian
	}
	unityVersion := s.UnityVersion
	if unityVersion == "" {
		unityVersion = "2021.3.0f1"
	}

	headerSize := 20
	if s.Version >= 22 {
		headerSize = 48
	}

	// Types are shared by every object of the same class.
	typeIndex := map[int32]int{}
	var types []Object
	for _, o := range s.Objects {
		if _, ok := typeIndex[o.ClassID]; !ok {
			typeIndex[o.ClassID] = len(types)
			types = append(types, o)
		}
	}

	meta := NewWriter(order)
	meta.CString(unityVersion)
	meta.U32(19) // target platform
	if s.Version >= 13 {
		meta.Bool(true)
	}

	meta.U32(uint32(len(types)))
	for _, t := range types {
		s.writeType(meta, t)
	}

	if s.Version < 14 {
		meta.U32(0) // big ids disabled
	}

	// Object data is laid out after the metadata, each entry 8-byte aligned.
	var data []byte
	starts := make([]uint64, len(s.Objects))
	for i, o := range s.Objects {
		for len(data)%8 != 0 {
			data = append(data, 0)
		}
		starts[i] = uint64(len(data))
		data = append(data, o.Data...)
	}

	meta.U32(uint32(len(s.Objects)))
	for i, o := range s.Objects {
		s.writeObject(meta, o, starts[i], typeIndex[o.ClassID], headerSize)
	}

	meta.U32(0) // script types
	meta.U32(0) // externals
	if s.Version >= 20 {
		meta.U32(0) // ref types
	}
	meta.CString("") // user information

	dataOffset := headerSize + meta.Len()
	for dataOffset%16 != 0 {
		dataOffset++
	}
	fileSize := dataOffset + len(data)

	out := NewWriter(binary.BigEndian)
	if s.Version >= 22 {
		out.U32(0).U32(0).U32(s.Version).U32(0)
		out.Bool(s.BigEndian).Raw([]byte{0, 0, 0})
		out.U32(uint32(meta.Len())).U64(uint64(fileSize)).U64(uint64(dataOffset)).U64(0)
	} else {
		out.U32(uint32(meta.Len())).U32(uint32(fileSize)).U32(s.Version).U32(uint32(dataOffset))
		out.Bool(s.BigEndian).Raw([]byte{0, 0, 0})
	}
	out.Raw(meta.Bytes())
	for out.Len() < dataOffset {
		out.U8(0)
	}
	out.Raw(data)
	return out.Bytes()
}

func (s SerializedFile) writeType(w *Writer, t Object) {
	w.I32(t.ClassID)
	if s.Version >= 16 {
		w.Bool(false)
	}
	if s.Version >= 17 {
		w.buf = binary.BigEndian.AppendUint16(w.buf, 0xFFFF)
	}
	if s.Version >= 13 {
		hasScriptID := (s.Version < 16 && uint32(t.ClassID) >= 0x80000000) ||
			(s.Version >= 16 && t.ClassID == 114)
		if hasScriptID {
			w.Raw(make([]byte, 16))
		}
		w.Raw(make([]byte, 16))
	}

	if s.Version >= 12 || s.Version == 10 {
		s.writeTreeBlob(w, t.Tree)
	} else {
		s.writeTreeLegacy(w, t.Tree)
	}

	if s.Version >= 21 {
		w.U32(0) // dependencies
	}
}

func (s SerializedFile) writeTreeBlob(w *Writer, tree []typetree.Node) {
	var strs []byte
	offsets := map[string]uint32{}
	offset := func(str string) uint32 {
		if o, ok := s.CommonStrings[str]; ok {
			return o | 0x80000000
		}
		if o, ok := offsets[str]; ok {
			return o
		}
		o := uint32(len(strs))
		offsets[str] = o
		strs = append(strs, str...)
		strs = append(strs, 0)
		return o
	}

	w.U32(uint32(len(tree)))
	nodes := NewWriter(nil)
	nodes.order = w.order
	for _, n := range tree {
		nodes.U16(uint16(n.Version))
		nodes.U8(n.Level)
		nodes.U8(uint8(n.TypeFlags))
		nodes.U32(offset(n.TypeName))
		nodes.U32(offset(n.Name))
		nodes.I32(n.Size)
		nodes.U32(n.Index)
		nodes.U32(n.MetaFlags)
		if s.Version >= 19 {
			nodes.U64(0)
		}
	}
	w.U32(uint32(len(strs)))
	w.Raw(nodes.Bytes())
	w.Raw(strs)
}

func (s SerializedFile) writeTreeLegacy(w *Writer, tree []typetree.Node) {
	node, children, _, ok := typetree.SplitTree(tree)
	if !ok {
		return
	}

	w.CString(node.TypeName)
	w.CString(node.Name)
	w.I32(node.Size)
	w.U32(node.Index)
	w.U32(node.TypeFlags)
	w.U32(node.Version)
	if s.Version != 3 {
		w.U32(node.MetaFlags)
	}

	var count uint32
	for rest := children; len(rest) > 0; {
		_, _, siblings, _ := typetree.SplitTree(rest)
		count++
		rest = siblings
	}
	w.U32(count)

	for rest := children; len(rest) > 0; {
		next, sub, siblings, _ := typetree.SplitTree(rest)
		s.writeTreeLegacy(w, append([]typetree.Node{next}, sub...))
		rest = siblings
	}
}

func (s SerializedFile) writeObject(w *Writer, o Object, start uint64, typeID, headerSize int) {
	if s.Version >= 14 {
		// The reader aligns relative to the start of the file.
		for (headerSize+w.Len())%4 != 0 {
			w.U8(0)
		}
		w.I64(o.PathID)
	} else {
		w.U32(uint32(o.PathID))
	}

	if s.Version >= 22 {
		w.U64(start)
	} else {
		w.U32(uint32(start))
	}
	w.U32(uint32(len(o.Data)))

	if s.Version < 16 {
		// Older files resolve types through the class id.
		w.U32(uint32(o.ClassID))
		w.U16(uint16(o.ClassID))
	} else {
		w.U32(uint32(typeID))
	}

	if s.Version < 11 {
		w.U16(0)
	}
	if s.Version >= 11 && s.Version < 17 {
		w.U16(0)
	}
	if s.Version >= 15 && s.Version < 17 {
		w.U8(0)
	}
}
