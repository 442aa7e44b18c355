// Package typetree decodes Unity objects by walking their serialized type trees.
//
// A type tree is stored flattened: a list of nodes where each node's Level
// encodes its depth. The children of a node are the contiguous run of nodes
// directly after it with a strictly greater level.
//
// Target types are ordinary Go structs whose fields carry `unity` tags naming
// the type tree field they are read from:
//
//	type TextAsset struct {
//		Name   string `unity:"m_Name"`
//		Script []byte `unity:"m_Script"`
//	}
//
//	func (TextAsset) ClassName() string { return "TextAsset" }
//
// Fields missing from the tree keep their zero value, and tree fields without
// a matching Go field are skipped.
package typetree

// MetaFlagAlign is the meta flag bit requesting 4-byte alignment after a field.
const MetaFlagAlign = 0x4000

// Node is one entry of a flattened type tree.
type Node struct {
	TypeName  string
	Name      string
	Size      int32 // -1 for variable sized nodes
	Index     uint32
	TypeFlags uint32
	Version   uint32
	MetaFlags uint32
	Level     uint8
}

// NeedsAlign reports whether the reader must be aligned to 4 bytes after this node.
func (n *Node) NeedsAlign() bool {
	return n.MetaFlags&MetaFlagAlign != 0
}

// IsArray reports whether the node is an array-like container holding a
// size field and one element field.
func (n *Node) IsArray() bool {
	return n.TypeName == "Array" || n.TypeName == "TypelessData"
}

// SplitTree splits a flattened tree into its first node, that node's
// children and the siblings that follow them. It reports false for an
// empty tree.
func SplitTree(tree []Node) (next Node, children, siblings []Node, ok bool) {
	if len(tree) == 0 {
		return Node{}, nil, nil, false
	}

	next = tree[0]
	rest := tree[1:]

	end := 0
	for end < len(rest) && rest[end].Level > next.Level {
		end++
	}

	return next, rest[:end], rest[end:], true
}
