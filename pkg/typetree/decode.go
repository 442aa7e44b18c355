package typetree

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/houston-tools/unityFileTools/pkg/binio"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Class is implemented by every struct that can be decoded from a type tree.
// ClassName returns the type name the tree's root node must carry.
type Class interface {
	ClassName() string
}

// Unmarshaler is implemented by types that decode themselves from a node.
// The decoder's reader is positioned at the node's data.
type Unmarshaler interface {
	UnmarshalTypeTree(d *Decoder, node Node, children []Node) error
}

// Decoder reads values described by type tree nodes from a binio.Reader.
type Decoder struct {
	r *binio.Reader
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r *binio.Reader) *Decoder {
	return &Decoder{r: r}
}

// Reader returns the underlying reader.
func (d *Decoder) Reader() *binio.Reader {
	return d.r
}

// Unmarshal decodes data described by tree into v, which must be a non-nil pointer.
func Unmarshal(data []byte, order binary.ByteOrder, tree []Node, v any) error {
	return NewDecoder(binio.NewReader(data, order)).Decode(tree, v)
}

// Decode decodes a whole tree, root node first, into v.
func (d *Decoder) Decode(tree []Node, v any) error {
	root, children, _, ok := SplitTree(tree)
	if !ok {
		return fmt.Errorf("%w: type tree is unexpectedly empty", unityerr.ErrInvalidData)
	}
	return d.DecodeNode(root, children, v)
}

// DecodeNode decodes the value of node into v, which must be a non-nil pointer.
func (d *Decoder) DecodeNode(node Node, children []Node, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("typetree: decode target must be a non-nil pointer, got %T", v)
	}
	return d.decodeValue(node, children, rv.Elem())
}

func (d *Decoder) decodeValue(node Node, children []Node, v reflect.Value) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTypeTree(d, node, children)
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		// Optional values share the schema of the value they wrap.
		elem := reflect.New(v.Type().Elem())
		if err := d.decodeValue(node, children, elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	case reflect.Struct:
		return d.decodeStruct(node, children, v)
	case reflect.String:
		return d.decodeString(node, children, v)
	case reflect.Slice:
		return d.decodeSlice(node, children, v)
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return d.decodeScalar(node, v)
	default:
		return fmt.Errorf("%w: cannot decode %q into %s", unityerr.ErrUnsupported, node.TypeName, v.Type())
	}
}

func (d *Decoder) decodeStruct(node Node, children []Node, v reflect.Value) error {
	info, err := structInfoFor(v.Type())
	if err != nil {
		return err
	}

	if node.TypeName != info.className {
		return &unityerr.MismatchError{Expected: info.className, Received: node.TypeName}
	}

	rest := children
	for {
		next, sub, siblings, ok := SplitTree(rest)
		if !ok {
			break
		}

		if idx, found := info.fields[next.Name]; found {
			if err := d.decodeValue(next, sub, v.Field(idx)); err != nil {
				return fmt.Errorf("%s.%s: %w", info.className, next.Name, err)
			}
		} else if err := d.Skip(next, sub); err != nil {
			return fmt.Errorf("%s: skip %s: %w", info.className, next.Name, err)
		}

		rest = siblings
	}

	if node.NeedsAlign() {
		d.r.Align(4)
	}
	return nil
}

func (d *Decoder) decodeString(node Node, children []Node, v reflect.Value) error {
	if node.TypeName != "string" {
		return &unityerr.MismatchError{Expected: "string", Received: node.TypeName}
	}

	next, sub, _, ok := SplitTree(children)
	if !ok {
		return fmt.Errorf("%w: string type data does not contain children", unityerr.ErrInvalidData)
	}

	var data []byte
	if err := d.decodeSlice(next, sub, reflect.ValueOf(&data).Elem()); err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: string is not valid UTF-8", unityerr.ErrInvalidData)
	}
	v.SetString(string(data))

	if node.NeedsAlign() {
		d.r.Align(4)
	}
	return nil
}

func (d *Decoder) decodeSlice(node Node, children []Node, v reflect.Value) error {
	if node.TypeName == "vector" || node.TypeName == "string" {
		next, sub, _, ok := SplitTree(children)
		if !ok {
			return fmt.Errorf("%w: vector type data does not contain children", unityerr.ErrInvalidData)
		}
		if err := d.decodeSlice(next, sub, v); err != nil {
			return err
		}
		if node.NeedsAlign() {
			d.r.Align(4)
		}
		return nil
	}

	if !node.IsArray() {
		return &unityerr.MismatchError{Expected: "Array", Received: node.TypeName}
	}

	elem, elemChildren, err := arrayElement(children)
	if err != nil {
		return err
	}

	count, err := d.r.U32()
	if err != nil {
		return err
	}
	if err := d.checkCount(count, elem); err != nil {
		return err
	}
	n := int(count)

	if v.Type().Elem().Kind() == reflect.Uint8 && elem.Size == 1 && !elem.NeedsAlign() &&
		slices.Contains(scalarAliases[reflect.Uint8], elem.TypeName) {
		raw, err := d.r.Bytes(n)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(v.Type(), n, n)
		reflect.Copy(out, reflect.ValueOf(raw))
		v.Set(out)
	} else if elem.Size > 0 {
		out := reflect.MakeSlice(v.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := d.decodeValue(elem, elemChildren, out.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		v.Set(out)
	} else {
		// The count only bounds elements of unknown size loosely, so the
		// slice grows as elements are decoded.
		out := reflect.MakeSlice(v.Type(), 0, min(n, maxSlicePrealloc))
		elemType := v.Type().Elem()
		for i := 0; i < n; i++ {
			e := reflect.New(elemType).Elem()
			if err := d.decodeValue(elem, elemChildren, e); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			out = reflect.Append(out, e)
		}
		v.Set(out)
	}

	if node.NeedsAlign() {
		d.r.Align(4)
	}
	return nil
}

func (d *Decoder) decodeScalar(node Node, v reflect.Value) error {
	aliases := scalarAliases[v.Kind()]
	if !slices.Contains(aliases, node.TypeName) {
		return &unityerr.MismatchError{Expected: aliases[0], Received: node.TypeName}
	}

	r := d.r
	switch v.Kind() {
	case reflect.Bool:
		x, err := r.Bool()
		if err != nil {
			return err
		}
		v.SetBool(x)
	case reflect.Int8:
		x, err := r.I8()
		if err != nil {
			return err
		}
		v.SetInt(int64(x))
	case reflect.Int16:
		x, err := r.I16()
		if err != nil {
			return err
		}
		v.SetInt(int64(x))
	case reflect.Int32:
		x, err := r.I32()
		if err != nil {
			return err
		}
		v.SetInt(int64(x))
	case reflect.Int64:
		x, err := r.I64()
		if err != nil {
			return err
		}
		v.SetInt(x)
	case reflect.Uint8:
		x, err := r.U8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case reflect.Uint16:
		x, err := r.U16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case reflect.Uint32:
		x, err := r.U32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case reflect.Uint64:
		x, err := r.U64()
		if err != nil {
			return err
		}
		v.SetUint(x)
	case reflect.Float32:
		x, err := r.F32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(x))
	case reflect.Float64:
		x, err := r.F64()
		if err != nil {
			return err
		}
		v.SetFloat(x)
	}

	if node.NeedsAlign() {
		r.Align(4)
	}
	return nil
}

// Skip advances past the value of node without building anything.
// Fixed size nodes are skipped arithmetically, variable sized ones by
// walking their children.
func (d *Decoder) Skip(node Node, children []Node) error {
	switch {
	case node.Size >= 0:
		if err := d.r.Skip(int(node.Size)); err != nil {
			return err
		}
	case node.IsArray():
		elem, elemChildren, err := arrayElement(children)
		if err != nil {
			return err
		}
		count, err := d.r.U32()
		if err != nil {
			return err
		}
		if err := d.checkCount(count, elem); err != nil {
			return err
		}
		switch {
		case elem.Size == 0:
			// Alignment after the first element is a no-op for the rest.
			if count > 0 && elem.NeedsAlign() {
				d.r.Align(4)
			}
		case elem.Size > 0 && !elem.NeedsAlign():
			if err := d.r.Skip(int(count) * int(elem.Size)); err != nil {
				return err
			}
		default:
			for i := uint32(0); i < count; i++ {
				if err := d.Skip(elem, elemChildren); err != nil {
					return err
				}
			}
		}
	default:
		rest := children
		for {
			next, sub, siblings, ok := SplitTree(rest)
			if !ok {
				break
			}
			if err := d.Skip(next, sub); err != nil {
				return err
			}
			rest = siblings
		}
	}

	if node.NeedsAlign() {
		d.r.Align(4)
	}
	return nil
}

// maxSlicePrealloc caps the elements reserved up front for arrays whose
// element size is not declared.
const maxSlicePrealloc = 1 << 12

// checkCount rejects element counts that cannot fit in the remaining data.
// Elements of unknown or zero size are counted as at least one byte each.
func (d *Decoder) checkCount(count uint32, elem Node) error {
	remaining := int64(d.r.Len())
	size := max(int64(elem.Size), 1)
	if int64(count)*size > remaining {
		return fmt.Errorf("%w: array of %d %q elements exceeds %d remaining bytes",
			unityerr.ErrInvalidData, count, elem.TypeName, remaining)
	}
	return nil
}

// arrayElement returns the element node of an Array node's children.
// The first child is the size field; the second describes every element.
func arrayElement(children []Node) (Node, []Node, error) {
	_, _, rest, ok := SplitTree(children)
	if ok {
		if elem, sub, _, ok := SplitTree(rest); ok {
			return elem, sub, nil
		}
	}
	return Node{}, nil, fmt.Errorf("%w: array type data does not contain data element", unityerr.ErrInvalidData)
}

// scalarAliases lists the type names accepted for each scalar kind.
// The first entry is reported in mismatch errors.
var scalarAliases = map[reflect.Kind][]string{
	reflect.Bool:    {"bool"},
	reflect.Int8:    {"SInt8"},
	reflect.Uint8:   {"UInt8", "char"},
	reflect.Int16:   {"SInt16", "short"},
	reflect.Uint16:  {"UInt16", "unsigned short"},
	reflect.Int32:   {"SInt32", "int"},
	reflect.Uint32:  {"UInt32", "unsigned int", "Type*"},
	reflect.Int64:   {"SInt64", "long long"},
	reflect.Uint64:  {"UInt64", "unsigned long long", "FileSize"},
	reflect.Float32: {"float"},
	reflect.Float64: {"double"},
}

type structInfo struct {
	className string
	fields    map[string]int
}

var structCache sync.Map // map[reflect.Type]*structInfo

func structInfoFor(t reflect.Type) (*structInfo, error) {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo), nil
	}

	class, ok := reflect.Zero(t).Interface().(Class)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not implement typetree.Class", unityerr.ErrUnsupported, t)
	}

	info := &structInfo{
		className: class.ClassName(),
		fields:    make(map[string]int, t.NumField()),
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key, _, _ := strings.Cut(f.Tag.Get("unity"), ",")
		if key == "" || key == "-" || !f.IsExported() {
			continue
		}
		if _, dup := info.fields[key]; dup {
			return nil, fmt.Errorf("typetree: %s maps %q more than once", t, key)
		}
		info.fields[key] = i
	}

	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo), nil
}
