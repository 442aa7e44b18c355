package classes

import (
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/serialized"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
)

// named reads the m_Name field of an object of any class. Decoding stops at
// the name; fields after it are not read.
type named struct {
	name  string
	found bool
}

func (n *named) UnmarshalTypeTree(d *typetree.Decoder, _ typetree.Node, children []typetree.Node) error {
	rest := children
	for {
		next, sub, siblings, ok := typetree.SplitTree(rest)
		if !ok {
			return nil
		}
		if next.Name == "m_Name" {
			n.found = true
			return d.DecodeNode(next, sub, &n.name)
		}
		if err := d.Skip(next, sub); err != nil {
			return err
		}
		rest = siblings
	}
}

// ObjectName returns the m_Name of o. It reports false when o's class has
// no name field.
func ObjectName(o *serialized.Object) (string, bool, error) {
	var n named
	if err := o.Decode(&n); err != nil {
		return "", false, fmt.Errorf("decode name of object %d (%s): %w", o.PathID(), o.ClassID(), err)
	}
	return n.name, n.found, nil
}
