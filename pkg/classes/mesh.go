package classes

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/x448/float16"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// maxSubMeshVertices bounds the vertices allocated for one sub-mesh.
const maxSubMeshVertices = 1 << 24

// Vertex channels that are decoded. Other channels are ignored.
const (
	channelPosition  = 0
	channelTexCoord0 = 3
	channelTexCoord1 = 4
)

// Mesh is a triangle mesh. Only Unity 2018 and newer vertex layouts are
// resolved.
type Mesh struct {
	Name        string        `unity:"m_Name"`
	SubMeshes   []SubMesh     `unity:"m_SubMeshes"`
	IndexFormat int32         `unity:"m_IndexFormat"`
	IndexBuffer []byte        `unity:"m_IndexBuffer"`
	VertexData  VertexData    `unity:"m_VertexData"`
	LocalAABB   AABB          `unity:"m_LocalAABB"`
	StreamData  StreamingInfo `unity:"m_StreamData"`
}

func (Mesh) ClassName() string { return "Mesh" }

// SubMesh is a range of the index buffer drawn with one material.
type SubMesh struct {
	FirstByte   uint32 `unity:"firstByte"`
	IndexCount  uint32 `unity:"indexCount"`
	Topology    int32  `unity:"topology"`
	BaseVertex  uint32 `unity:"baseVertex"`
	FirstVertex uint32 `unity:"firstVertex"`
	VertexCount uint32 `unity:"vertexCount"`
	LocalAABB   AABB   `unity:"localAABB"`
}

func (SubMesh) ClassName() string { return "SubMesh" }

// VertexData describes the layout of the vertex buffer. DataSize holds the
// buffer itself when it is not streamed. Streams is nil when the layout
// has to be derived from the channels.
type VertexData struct {
	VertexCount uint32        `unity:"m_VertexCount"`
	Channels    []ChannelInfo `unity:"m_Channels"`
	DataSize    []byte        `unity:"m_DataSize"`
	Streams     *[]StreamInfo `unity:"m_Streams"`
}

func (VertexData) ClassName() string { return "VertexData" }

// StreamInfo is one interleaved run of the vertex buffer.
type StreamInfo struct {
	ChannelMask uint32 `unity:"channelMask"`
	Offset      uint32 `unity:"offset"`
	Stride      uint32 `unity:"stride"`
}

func (StreamInfo) ClassName() string { return "StreamInfo" }

// ChannelInfo places one vertex attribute inside a stream.
type ChannelInfo struct {
	Stream    uint8 `unity:"stream"`
	Offset    uint8 `unity:"offset"`
	Format    uint8 `unity:"format"`
	Dimension uint8 `unity:"dimension"`
}

func (ChannelInfo) ClassName() string { return "ChannelInfo" }

// Vertex formats, numbered as Unity numbers them.
const (
	VertexFloat32 = iota
	VertexFloat16
	VertexUNorm8
	VertexUNorm8Alt
	VertexSNorm8
	VertexUNorm16
	VertexSNorm16
)

// elementSizes lists the byte size of each vertex format.
var elementSizes = [...]uint32{4, 2, 1, 1, 1, 2, 2, 1, 1, 2, 2, 4, 4}

// elementSize returns the byte size of one component, or 0 for unknown
// formats.
func (c ChannelInfo) elementSize() uint32 {
	if int(c.Format) < len(elementSizes) {
		return elementSizes[c.Format]
	}
	return 0
}

// span returns the bytes from the start of a vertex to the end of the
// channel.
func (c ChannelInfo) span() uint32 {
	return uint32(c.Offset) + uint32(c.Dimension)*c.elementSize()
}

// Vector3f is a vector of three floats.
type Vector3f struct {
	X float32 `unity:"x"`
	Y float32 `unity:"y"`
	Z float32 `unity:"z"`
}

func (Vector3f) ClassName() string { return "Vector3f" }

// AABB is an axis-aligned bounding box.
type AABB struct {
	Center Vector3f `unity:"m_Center"`
	Extent Vector3f `unity:"m_Extent"`
}

func (AABB) ClassName() string { return "AABB" }

// Vertex is a resolved vertex. UV holds as many meaningful components as
// the texture coordinate channel has; the rest are zero.
type Vertex struct {
	Pos Vector3f
	UV  Vector3f
}

// ResolvedMesh is the geometry of one sub-mesh.
type ResolvedMesh struct {
	vertices  []Vertex
	triangles [][3]int
}

// Vertices returns the sub-mesh's vertices.
func (m *ResolvedMesh) Vertices() []Vertex {
	return m.vertices
}

// TriangleIndices returns each triangle as indices into Vertices.
func (m *ResolvedMesh) TriangleIndices() [][3]int {
	return m.triangles
}

// Triangles returns an iterator over the triangles' vertices.
func (m *ResolvedMesh) Triangles() iter.Seq[[3]Vertex] {
	return func(yield func([3]Vertex) bool) {
		for _, t := range m.triangles {
			if !yield([3]Vertex{m.vertices[t[0]], m.vertices[t[1]], m.vertices[t[2]]}) {
				return
			}
		}
	}
}

// MeshVertexData is a mesh together with its resolved vertex buffer.
type MeshVertexData struct {
	mesh *Mesh
	data []byte
}

// ReadVertexData resolves the mesh's vertex buffer, which is streamed from
// a sibling node of a unless it is stored inline.
func (m *Mesh) ReadVertexData(a *archive.Archive) (*MeshVertexData, error) {
	data, err := m.StreamData.LoadOr(a, m.VertexData.DataSize)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return &MeshVertexData{mesh: m, data: data}, nil
}

// Data returns the vertex buffer. It must not be modified.
func (d *MeshVertexData) Data() []byte {
	return d.data
}

// ResolveMeshes decodes one ResolvedMesh per sub-mesh. Positions and the
// first two texture coordinate sets are decoded; other channels are not.
func (d *MeshVertexData) ResolveMeshes() ([]*ResolvedMesh, error) {
	m := d.mesh
	indexSize, indices, err := d.indexBuffer()
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	streams, err := d.streams()
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
	}

	out := make([]*ResolvedMesh, 0, len(m.SubMeshes))
	for i, sub := range m.SubMeshes {
		res, err := d.resolve(sub, streams, indexSize, indices)
		if err != nil {
			return nil, fmt.Errorf("mesh %q sub-mesh %d: %w", m.Name, i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (d *MeshVertexData) resolve(sub SubMesh, streams []StreamInfo, indexSize uint32, indices []uint32) (*ResolvedMesh, error) {
	if sub.VertexCount > maxSubMeshVertices {
		return nil, fmt.Errorf("%w: %d vertices", unityerr.ErrInvalidData, sub.VertexCount)
	}
	res := &ResolvedMesh{vertices: make([]Vertex, sub.VertexCount)}

	for index, ch := range d.mesh.VertexData.Channels {
		if index != channelPosition && index != channelTexCoord0 && index != channelTexCoord1 {
			continue
		}
		if ch.Dimension < 1 || ch.Dimension > 3 || (index == channelPosition && ch.Dimension != 3) {
			continue
		}
		if int(ch.Stream) >= len(streams) {
			continue
		}
		stream := streams[ch.Stream]
		extent := uint64(stream.Offset) + (uint64(sub.FirstVertex)+uint64(sub.VertexCount))*uint64(stream.Stride)
		if ch.span() > stream.Stride || extent > uint64(len(d.data)) {
			continue
		}

		for i := range res.vertices {
			pos := uint64(stream.Offset) + (uint64(sub.FirstVertex)+uint64(i))*uint64(stream.Stride) + uint64(ch.Offset)
			v, err := readVector(d.data[pos:], ch.Format, int(ch.Dimension))
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", index, err)
			}
			if index == channelPosition {
				res.vertices[i].Pos = v
			} else {
				res.vertices[i].UV = v
			}
		}
	}

	first := uint64(sub.FirstByte / indexSize)
	start := min(first, uint64(len(indices)))
	end := min(start+uint64(sub.IndexCount), uint64(len(indices)))
	parity := first % 2
	rebase := int64(sub.BaseVertex) - int64(sub.FirstVertex)

	for k := start; k+3 <= end; k += 3 {
		var tri [3]int
		for j := range tri {
			v := int64(indices[k+uint64(j)]) + rebase
			if v < 0 || v >= int64(len(res.vertices)) {
				return nil, fmt.Errorf("%w: triangle index %d outside %d vertices",
					unityerr.ErrInvalidData, v, len(res.vertices))
			}
			tri[j] = int(v)
		}
		// Every other triangle of a strip-derived topology is wound
		// the other way.
		if sub.Topology != 0 && parity&1 != 0 {
			tri[0], tri[2] = tri[2], tri[0]
		}
		parity++
		res.triangles = append(res.triangles, tri)
	}
	return res, nil
}

// indexBuffer widens the little-endian index buffer to 32 bits and
// returns it with the stored index size.
func (d *MeshVertexData) indexBuffer() (uint32, []uint32, error) {
	buf := d.mesh.IndexBuffer
	switch d.mesh.IndexFormat {
	case 0:
		out := make([]uint32, len(buf)/2)
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(buf[2*i:]))
		}
		return 2, out, nil
	case 1:
		out := make([]uint32, len(buf)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(buf[4*i:])
		}
		return 4, out, nil
	default:
		return 0, nil, fmt.Errorf("%w: unexpected index format %d", unityerr.ErrInvalidData, d.mesh.IndexFormat)
	}
}

// streams returns the stream layout, derived from the channels when the
// mesh does not store one.
func (d *MeshVertexData) streams() ([]StreamInfo, error) {
	vd := &d.mesh.VertexData

	var streams []StreamInfo
	if vd.Streams != nil {
		streams = slices.Clone(*vd.Streams)
	}
	maxStream := 0
	for _, ch := range vd.Channels {
		maxStream = max(maxStream, int(ch.Stream))
	}
	for len(streams) <= maxStream {
		streams = append(streams, StreamInfo{})
	}
	if vd.Streams != nil {
		return streams, nil
	}

	for i, ch := range vd.Channels {
		if ch.Dimension == 0 {
			continue
		}
		s := &streams[ch.Stream]
		s.ChannelMask |= 1 << i
		s.Stride = max(s.Stride, ch.span())
	}

	dataSize := uint64(len(d.data))
	var offset uint64
	for i := range streams {
		if offset > math.MaxUint32 {
			break
		}
		streams[i].Offset = uint32(offset)
		offset += uint64(streams[i].Stride) * uint64(vd.VertexCount)
	}
	if offset > dataSize {
		return nil, fmt.Errorf("%w: channels describe %d bytes of streams, buffer holds %d",
			unityerr.ErrInvalidData, offset, dataSize)
	}
	// Two-stream meshes keep the second stream flush with the end of the buffer.
	if len(streams) == 2 {
		streams[1].Offset = uint32(dataSize - uint64(streams[1].Stride)*uint64(vd.VertexCount))
	}
	return streams, nil
}

// readVector reads a little-endian vector of dim components in the given
// vertex format.
func readVector(b []byte, format uint8, dim int) (Vector3f, error) {
	var c [3]float32
	for i := 0; i < dim; i++ {
		switch format {
		case VertexFloat32:
			c[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		case VertexFloat16:
			c[i] = float16.Frombits(binary.LittleEndian.Uint16(b[2*i:])).Float32()
		case VertexUNorm8, VertexUNorm8Alt:
			c[i] = float32(b[i]) / math.MaxUint8
		case VertexSNorm8:
			c[i] = snorm(int64(int8(b[i])), math.MinInt8, math.MaxInt8)
		case VertexUNorm16:
			c[i] = float32(binary.LittleEndian.Uint16(b[2*i:])) / math.MaxUint16
		case VertexSNorm16:
			c[i] = snorm(int64(int16(binary.LittleEndian.Uint16(b[2*i:]))), math.MinInt16, math.MaxInt16)
		default:
			return Vector3f{}, fmt.Errorf("%w: vertex format %d", unityerr.ErrUnsupported, format)
		}
	}
	return Vector3f{X: c[0], Y: c[1], Z: c[2]}, nil
}

// snorm maps a signed integer onto [-1, 1]. The minimum maps to exactly -1.
func snorm(v, minValue, maxValue int64) float32 {
	if v == minValue {
		return -1
	}
	return float32(v) / float32(maxValue)
}
