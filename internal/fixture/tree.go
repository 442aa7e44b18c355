package fixture

import "github.com/houston-tools/unityFileTools/pkg/typetree"

const align = typetree.MetaFlagAlign

// Field returns a scalar field node.
func Field(level uint8, typeName, name string, size int32) typetree.Node {
	return typetree.Node{TypeName: typeName, Name: name, Size: size, Level: level}
}

// AlignedField returns a scalar field node that is followed by 4-byte alignment.
func AlignedField(level uint8, typeName, name string, size int32) typetree.Node {
	n := Field(level, typeName, name, size)
	n.MetaFlags = align
	return n
}

// Struct returns a struct node followed by its fields, re-leveled below it.
func Struct(level uint8, typeName, name string, fields ...[]typetree.Node) []typetree.Node {
	size := int32(0)
	nodes := []typetree.Node{{TypeName: typeName, Name: name, Level: level}}
	for _, f := range fields {
		for _, n := range f {
			if n.Level == 0 && size >= 0 {
				if n.Size < 0 || n.MetaFlags&align != 0 {
					size = -1
				} else {
					size += n.Size
				}
			}
			n.Level += level + 1
			nodes = append(nodes, n)
		}
	}
	nodes[0].Size = size
	return nodes
}

// Leaf wraps a single node for use with Struct.
func Leaf(n typetree.Node) []typetree.Node {
	return []typetree.Node{n}
}

// Array returns an Array node with its size field and element nodes. The
// element must be given at level zero.
func Array(level uint8, name string, elem []typetree.Node) []typetree.Node {
	nodes := []typetree.Node{
		{TypeName: "Array", Name: name, Size: -1, Level: level, MetaFlags: align},
		{TypeName: "int", Name: "size", Size: 4, Level: level + 1},
	}
	for _, n := range elem {
		n.Level += level + 1
		nodes = append(nodes, n)
	}
	return nodes
}

// Vector returns a vector node wrapping an Array of elem.
func Vector(level uint8, name string, elem []typetree.Node) []typetree.Node {
	nodes := []typetree.Node{{TypeName: "vector", Name: name, Size: -1, Level: level}}
	return append(nodes, Array(level+1, "Array", elem)...)
}

// String returns the nodes of a string field.
func String(level uint8, name string) []typetree.Node {
	nodes := []typetree.Node{{TypeName: "string", Name: name, Size: -1, Level: level}}
	return append(nodes, Array(level+1, "Array", Leaf(Field(0, "char", "data", 1)))...)
}

// ByteVector returns the nodes of a vector<UInt8> field.
func ByteVector(level uint8, name string) []typetree.Node {
	return Vector(level, name, Leaf(Field(0, "UInt8", "data", 1)))
}

// TypelessData returns the nodes of a TypelessData byte blob field.
func TypelessData(level uint8, name string) []typetree.Node {
	return []typetree.Node{
		{TypeName: "TypelessData", Name: name, Size: -1, Level: level, MetaFlags: align},
		{TypeName: "int", Name: "size", Size: 4, Level: level + 1},
		{TypeName: "UInt8", Name: "data", Size: 1, Level: level + 1},
	}
}
