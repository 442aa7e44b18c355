// Package classes declares the Unity classes this module understands and
// the decoders that turn their object data into usable values.
//
// Each class is a plain struct whose fields carry `unity` tags naming the
// type tree field they are read from; see package typetree for the rules.
// Fields missing from an object's type tree keep their zero value, and
// pointer fields stay nil, so callers can tell whether the field existed.
package classes

import (
	"fmt"
	"iter"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/serialized"
)

// Decode materializes the object o as a T.
func Decode[T any](o *serialized.Object) (*T, error) {
	v := new(T)
	if err := o.Decode(v); err != nil {
		return nil, fmt.Errorf("decode object %d (%s): %w", o.PathID(), o.ClassID(), err)
	}
	return v, nil
}

// Objects returns an iterator over every object of class id held by the
// serialized nodes of a. Nodes that fail to read are reported through the
// error value and iteration continues with the next node.
func Objects(a *archive.Archive, id serialized.ClassID) iter.Seq2[*serialized.Object, error] {
	return func(yield func(*serialized.Object, error) bool) {
		for node := range a.Entries() {
			content, err := node.Read()
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if content.Serialized == nil {
				continue
			}

			objects, err := content.Serialized.Objects()
			if err != nil {
				if !yield(nil, fmt.Errorf("node %q: %w", node.Path(), err)) {
					return
				}
				continue
			}
			for _, o := range objects {
				if o.ClassID() != id {
					continue
				}
				if !yield(o, nil) {
					return
				}
			}
		}
	}
}
