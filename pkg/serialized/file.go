// Package serialized reads Unity serialized files: the type and object tables
// stored inside UnityFS nodes.
//
// A File keeps a reference to the buffer it was parsed from. Object data is
// sliced out of that buffer on demand and decoded with the type tree of the
// object's type.
package serialized

import (
	"encoding/binary"
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/binio"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// Header is the fixed part of a serialized file header after the version
// specific extensions have been applied.
type Header struct {
	MetadataSize uint32
	FileSize     uint64
	Version      uint32
	DataOffset   uint64
	BigEndian    bool
}

// File is a parsed serialized file.
type File struct {
	Header

	UnityVersion   string
	TargetPlatform uint32
	EnableTypeTree bool
	BigIDEnabled   bool

	buf     []byte
	types   []*Type
	objects []objectInfo
}

// DecodeHeader reads the big-endian main header and its extensions.
// The reader is left positioned after the last header field.
func DecodeHeader(r *binio.Reader) (Header, error) {
	var h Header
	r.SetOrder(binary.BigEndian)

	metadataSize, err := r.U32()
	if err != nil {
		return h, fmt.Errorf("read metadata size: %w", err)
	}
	fileSize, err := r.U32()
	if err != nil {
		return h, fmt.Errorf("read file size: %w", err)
	}
	if h.Version, err = r.U32(); err != nil {
		return h, fmt.Errorf("read version: %w", err)
	}
	dataOffset, err := r.U32()
	if err != nil {
		return h, fmt.Errorf("read data offset: %w", err)
	}
	h.MetadataSize = metadataSize
	h.FileSize = uint64(fileSize)
	h.DataOffset = uint64(dataOffset)

	if fileSize < metadataSize {
		return h, fmt.Errorf("%w: metadata size %d exceeds file size %d", unityerr.ErrInvalidData, metadataSize, fileSize)
	}

	var endian uint8
	if h.Version >= 9 {
		if endian, err = r.U8(); err != nil {
			return h, fmt.Errorf("read endianness: %w", err)
		}
		if err := r.Skip(3); err != nil {
			return h, fmt.Errorf("read reserved: %w", err)
		}
	} else {
		// Older files keep the endianness flag at the start of the metadata,
		// which sits at the end of the file.
		if err := r.Seek(int(fileSize - metadataSize)); err != nil {
			return h, fmt.Errorf("seek endianness: %w", err)
		}
		if endian, err = r.U8(); err != nil {
			return h, fmt.Errorf("read endianness: %w", err)
		}
	}
	h.BigEndian = endian != 0

	if h.Version >= 22 {
		if h.MetadataSize, err = r.U32(); err != nil {
			return h, fmt.Errorf("read extended metadata size: %w", err)
		}
		if h.FileSize, err = r.U64(); err != nil {
			return h, fmt.Errorf("read extended file size: %w", err)
		}
		if h.DataOffset, err = r.U64(); err != nil {
			return h, fmt.Errorf("read extended data offset: %w", err)
		}
		if err := r.Skip(8); err != nil {
			return h, fmt.Errorf("read extended reserved: %w", err)
		}
	}

	return h, nil
}

// IsSerializedFile reports whether buf plausibly holds a serialized file.
// The check is structural: the headers must parse and the recorded file
// size must match len(buf).
func IsSerializedFile(buf []byte) bool {
	h, err := DecodeHeader(binio.NewReader(buf, binary.BigEndian))
	if err != nil {
		return false
	}
	return uint64(len(buf)) == h.FileSize && h.DataOffset <= h.FileSize
}

// Read parses buf as a serialized file. The returned File references buf.
func Read(buf []byte) (*File, error) {
	r := binio.NewReader(buf, binary.BigEndian)

	h, err := DecodeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read serialized header: %w", err)
	}

	f := &File{Header: h, buf: buf}

	if h.Version >= 7 {
		if f.UnityVersion, err = r.CString(); err != nil {
			return nil, fmt.Errorf("read unity version: %w", err)
		}
	}

	// Everything after the unity version honors the file's endianness.
	r.SetOrder(f.ByteOrder())

	if h.Version >= 8 {
		if f.TargetPlatform, err = r.U32(); err != nil {
			return nil, fmt.Errorf("read target platform: %w", err)
		}
	}

	// Files older than version 13 always carry type trees.
	f.EnableTypeTree = true
	if h.Version >= 13 {
		if f.EnableTypeTree, err = r.Bool(); err != nil {
			return nil, fmt.Errorf("read type tree flag: %w", err)
		}
	}

	typeCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read type count: %w", err)
	}
	if int64(typeCount) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d types in %d bytes", unityerr.ErrInvalidData, typeCount, r.Len())
	}
	f.types = make([]*Type, 0, typeCount)
	for i := uint32(0); i < typeCount; i++ {
		t, err := f.readType(r, false)
		if err != nil {
			return nil, fmt.Errorf("read type %d: %w", i, err)
		}
		f.types = append(f.types, t)
	}

	if h.Version >= 7 && h.Version < 14 {
		bigID, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("read big id flag: %w", err)
		}
		f.BigIDEnabled = bigID != 0
	}

	objectCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read object count: %w", err)
	}
	if int64(objectCount) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d objects in %d bytes", unityerr.ErrInvalidData, objectCount, r.Len())
	}
	f.objects = make([]objectInfo, 0, objectCount)
	for i := uint32(0); i < objectCount; i++ {
		obj, err := f.readObjectInfo(r)
		if err != nil {
			return nil, fmt.Errorf("read object %d: %w", i, err)
		}
		f.objects = append(f.objects, obj)
	}

	// Script references, external references, ref types and user info
	// follow here. Nothing in this package needs them.

	return f, nil
}

// ByteOrder returns the byte order of the metadata and object data.
func (f *File) ByteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Types returns the serialized types in file order.
func (f *File) Types() []*Type {
	return f.types
}

// Objects returns the file's objects in file order, each resolved to its
// serialized type.
func (f *File) Objects() ([]*Object, error) {
	out := make([]*Object, 0, len(f.objects))
	for _, info := range f.objects {
		t, err := f.resolveType(info)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", info.pathID, err)
		}
		out = append(out, &Object{file: f, typ: t, info: info})
	}
	return out, nil
}

func (f *File) resolveType(info objectInfo) (*Type, error) {
	// Before version 16 objects carry their class id and the type is looked
	// up by it. Later the type id is an index into the type list.
	if info.hasClassID {
		for _, t := range f.types {
			if uint32(t.ClassID) == uint32(info.classID) {
				return t, nil
			}
		}
	}
	if int(info.typeID) >= len(f.types) {
		return nil, fmt.Errorf("%w: type index %d out of range for %d types", unityerr.ErrInvalidData, info.typeID, len(f.types))
	}
	return f.types[info.typeID], nil
}
