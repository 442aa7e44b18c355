package classes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// StreamingInfo locates payload bytes stored outside the object, in a
// sibling node of the archive.
type StreamingInfo struct {
	Offset Offset `unity:"offset"`
	Size   uint32 `unity:"size"`
	Path   string `unity:"path"`
}

func (StreamingInfo) ClassName() string { return "StreamingInfo" }

// Offset is a streaming offset. Older versions store it in 32 bits.
type Offset uint64

// UnmarshalTypeTree implements typetree.Unmarshaler.
func (o *Offset) UnmarshalTypeTree(d *typetree.Decoder, node typetree.Node, children []typetree.Node) error {
	var small uint32
	err := d.DecodeNode(node, children, &small)
	if err == nil {
		*o = Offset(small)
		return nil
	}
	if !errors.Is(err, unityerr.ErrMismatch) {
		return err
	}

	var large uint64
	if err := d.DecodeNode(node, children, &large); err != nil {
		return err
	}
	*o = Offset(large)
	return nil
}

// IsEmpty reports whether the payload is stored inline instead.
func (s *StreamingInfo) IsEmpty() bool {
	return s.Path == ""
}

// Load reads the streamed bytes from the node named by the last segment of
// Path. The returned slice is a view into the node's cached data.
func (s *StreamingInfo) Load(a *archive.Archive) ([]byte, error) {
	name := s.Path[strings.LastIndexByte(s.Path, '/')+1:]
	node, ok := a.Node(name)
	if !ok {
		return nil, fmt.Errorf("%w: streaming data node %q not found", unityerr.ErrInvalidData, name)
	}

	data, err := node.ReadRaw()
	if err != nil {
		return nil, err
	}

	if uint64(s.Offset) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: streaming data offset %d exceeds the %d byte node %q",
			unityerr.ErrInvalidData, s.Offset, len(data), name)
	}
	data = data[s.Offset:]
	if uint64(s.Size) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: streaming data of %d bytes at offset %d exceeds node %q",
			unityerr.ErrInvalidData, s.Size, s.Offset, name)
	}
	return data[:s.Size:s.Size], nil
}

// LoadOr returns inline when Path is empty and the streamed bytes
// otherwise.
func (s *StreamingInfo) LoadOr(a *archive.Archive, inline []byte) ([]byte, error) {
	if s.IsEmpty() {
		return inline, nil
	}
	return s.Load(a)
}
