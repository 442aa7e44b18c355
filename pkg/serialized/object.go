package serialized

import (
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/binio"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

type objectInfo struct {
	pathID     int64
	start      uint64
	size       uint32
	typeID     uint32
	classID    uint16
	hasClassID bool
}

// Object is a reference to one object of a serialized file.
type Object struct {
	file *File
	typ  *Type
	info objectInfo
}

// PathID returns the object's identifier within its file.
func (o *Object) PathID() int64 { return o.info.pathID }

// ClassID returns the class of the object's type.
func (o *Object) ClassID() ClassID { return o.typ.ClassID }

// IsBigEndian reports whether the object data is big-endian.
func (o *Object) IsBigEndian() bool { return o.file.BigEndian }

// Size returns the length of the object data in bytes.
func (o *Object) Size() uint32 { return o.info.size }

// Type returns the object's serialized type.
func (o *Object) Type() *Type { return o.typ }

// File returns the file the object belongs to.
func (o *Object) File() *File { return o.file }

// Data returns the object's bytes as a view into the file buffer.
func (o *Object) Data() ([]byte, error) {
	buf := o.file.buf
	start := o.info.start + o.file.DataOffset
	if start < o.info.start || start > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: object start out of file range", unityerr.ErrInvalidData)
	}
	if uint64(o.info.size) > uint64(len(buf))-start {
		return nil, fmt.Errorf("%w: object size out of file range", unityerr.ErrInvalidData)
	}
	end := start + uint64(o.info.size)
	return buf[start:end:end], nil
}

// Decode materializes the object into v using its type tree. v must be a
// non-nil pointer; see package typetree for the mapping rules.
func (o *Object) Decode(v any) error {
	if len(o.typ.Tree) == 0 {
		return fmt.Errorf("%w: object %d has no type tree", unityerr.ErrInvalidData, o.info.pathID)
	}

	data, err := o.Data()
	if err != nil {
		return err
	}

	d := typetree.NewDecoder(binio.NewReader(data, o.file.ByteOrder()))
	return d.Decode(o.typ.Tree, v)
}

func (f *File) readObjectInfo(r *binio.Reader) (objectInfo, error) {
	var obj objectInfo
	var err error

	switch {
	case f.BigIDEnabled:
		var id uint64
		if id, err = r.U64(); err != nil {
			return obj, fmt.Errorf("read path id: %w", err)
		}
		obj.pathID = int64(id)
		start, err := r.U32()
		if err != nil {
			return obj, fmt.Errorf("read start: %w", err)
		}
		obj.start = uint64(start)
	case f.Version < 14:
		id, err := r.U32()
		if err != nil {
			return obj, fmt.Errorf("read path id: %w", err)
		}
		obj.pathID = int64(id)
		start, err := r.U32()
		if err != nil {
			return obj, fmt.Errorf("read start: %w", err)
		}
		obj.start = uint64(start)
	case f.Version < 22:
		r.Align(4)
		if obj.pathID, err = r.I64(); err != nil {
			return obj, fmt.Errorf("read path id: %w", err)
		}
		start, err := r.U32()
		if err != nil {
			return obj, fmt.Errorf("read start: %w", err)
		}
		obj.start = uint64(start)
	default:
		r.Align(4)
		if obj.pathID, err = r.I64(); err != nil {
			return obj, fmt.Errorf("read path id: %w", err)
		}
		if obj.start, err = r.U64(); err != nil {
			return obj, fmt.Errorf("read start: %w", err)
		}
	}

	if obj.size, err = r.U32(); err != nil {
		return obj, fmt.Errorf("read size: %w", err)
	}
	if obj.typeID, err = r.U32(); err != nil {
		return obj, fmt.Errorf("read type id: %w", err)
	}

	if f.Version < 16 {
		if obj.classID, err = r.U16(); err != nil {
			return obj, fmt.Errorf("read class id: %w", err)
		}
		obj.hasClassID = true
	}

	var skip int
	if f.Version < 11 {
		skip += 2 // destroyed flag
	}
	if f.Version >= 11 && f.Version < 17 {
		skip += 2 // script type index
	}
	if f.Version >= 15 && f.Version < 17 {
		skip++ // stripped flag
	}
	if err := r.Skip(skip); err != nil {
		return obj, fmt.Errorf("read object flags: %w", err)
	}

	return obj, nil
}
