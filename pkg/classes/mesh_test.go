package classes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houston-tools/unityFileTools/internal/fixture"
	"github.com/houston-tools/unityFileTools/pkg/serialized"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

func indices16(values ...uint16) []byte {
	w := fixture.NewWriter(nil)
	for _, v := range values {
		w.U16(v)
	}
	return w.Bytes()
}

func positions(w *fixture.Writer, values ...float32) *fixture.Writer {
	for _, v := range values {
		w.F32(v)
	}
	return w
}

var positionChannel = ChannelInfo{Stream: 0, Offset: 0, Format: VertexFloat32, Dimension: 3}

func resolve(t *testing.T, m *Mesh) []*ResolvedMesh {
	t.Helper()
	meshes, err := (&MeshVertexData{mesh: m, data: m.VertexData.DataSize}).ResolveMeshes()
	require.NoError(t, err)
	return meshes
}

func TestResolveSynthesizedStreams(t *testing.T) {
	w := positions(fixture.NewWriter(nil), 1, 2, 3, 4, 5, 6, 7, 8, 9)
	// Gap before the second stream.
	w.U32(0xEEEEEEEE)
	w.U16(0x3800).U16(0x3400) // 0.5, 0.25
	w.U16(0x3C00).U16(0x0000) // 1, 0
	w.U16(0x3A00).U16(0x3C00) // 0.75, 1

	m := &Mesh{
		Name:        "tri",
		SubMeshes:   []SubMesh{{IndexCount: 3, VertexCount: 3}},
		IndexBuffer: indices16(0, 1, 2),
		VertexData: VertexData{
			VertexCount: 3,
			Channels: []ChannelInfo{
				positionChannel,
				{}, {},
				{Stream: 1, Format: VertexFloat16, Dimension: 2},
				{},
			},
			DataSize: w.Bytes(),
		},
	}

	meshes := resolve(t, m)
	require.Len(t, meshes, 1)
	got := meshes[0]

	assert.Equal(t, []Vertex{
		{Pos: Vector3f{1, 2, 3}, UV: Vector3f{0.5, 0.25, 0}},
		{Pos: Vector3f{4, 5, 6}, UV: Vector3f{1, 0, 0}},
		{Pos: Vector3f{7, 8, 9}, UV: Vector3f{0.75, 1, 0}},
	}, got.Vertices())
	assert.Equal(t, [][3]int{{0, 1, 2}}, got.TriangleIndices())

	var tris [][3]Vertex
	for tri := range got.Triangles() {
		tris = append(tris, tri)
	}
	require.Len(t, tris, 1)
	assert.Equal(t, Vector3f{7, 8, 9}, tris[0][2].Pos)
}

func TestResolveWinding(t *testing.T) {
	buf := indices16(0, 1, 2, 1, 2, 3, 2, 3, 0, 3, 0, 1)

	tests := []struct {
		name string
		sub  SubMesh
		want [][3]int
	}{
		{
			name: "TriangleList",
			sub:  SubMesh{IndexCount: 12, VertexCount: 4},
			want: [][3]int{{0, 1, 2}, {1, 2, 3}, {2, 3, 0}, {3, 0, 1}},
		},
		{
			name: "EvenStart",
			sub:  SubMesh{IndexCount: 12, VertexCount: 4, Topology: 1},
			want: [][3]int{{0, 1, 2}, {3, 2, 1}, {2, 3, 0}, {1, 0, 3}},
		},
		{
			name: "OddStart",
			sub:  SubMesh{FirstByte: 6, IndexCount: 6, VertexCount: 4, Topology: 1},
			want: [][3]int{{3, 2, 1}, {2, 3, 0}},
		},
		{
			name: "PartialTriangleDropped",
			sub:  SubMesh{IndexCount: 5, VertexCount: 4},
			want: [][3]int{{0, 1, 2}},
		},
		{
			name: "PastEndOfBuffer",
			sub:  SubMesh{FirstByte: 18, IndexCount: 12, VertexCount: 4},
			want: [][3]int{{3, 0, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{SubMeshes: []SubMesh{tt.sub}, IndexBuffer: buf}
			meshes := resolve(t, m)
			require.Len(t, meshes, 1)
			assert.Equal(t, tt.want, meshes[0].TriangleIndices())
		})
	}
}

func TestResolveRebase(t *testing.T) {
	data := positions(fixture.NewWriter(nil), 0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3).Bytes()
	base := VertexData{VertexCount: 4, Channels: []ChannelInfo{positionChannel}, DataSize: data}

	m := &Mesh{
		SubMeshes:   []SubMesh{{FirstVertex: 2, VertexCount: 2, IndexCount: 3}},
		IndexBuffer: indices16(2, 3, 2),
		VertexData:  base,
	}
	meshes := resolve(t, m)
	assert.Equal(t, [][3]int{{0, 1, 0}}, meshes[0].TriangleIndices())
	assert.Equal(t, Vector3f{2, 2, 2}, meshes[0].Vertices()[0].Pos)
	assert.Equal(t, Vector3f{3, 3, 3}, meshes[0].Vertices()[1].Pos)

	m = &Mesh{
		SubMeshes:   []SubMesh{{BaseVertex: 1, VertexCount: 3, IndexCount: 3}},
		IndexBuffer: indices16(0, 1, 1),
		VertexData:  base,
	}
	meshes = resolve(t, m)
	assert.Equal(t, [][3]int{{1, 2, 2}}, meshes[0].TriangleIndices())

	m.IndexBuffer = indices16(0, 1, 2)
	_, err := (&MeshVertexData{mesh: m, data: data}).ResolveMeshes()
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData), "index past the sub-mesh vertices: %v", err)
}

func TestResolveIndexFormats(t *testing.T) {
	m := &Mesh{
		SubMeshes:   []SubMesh{{IndexCount: 3, VertexCount: 3}},
		IndexFormat: 1,
		IndexBuffer: fixture.NewWriter(nil).U32(2).U32(1).U32(0).Bytes(),
	}
	meshes := resolve(t, m)
	assert.Equal(t, [][3]int{{2, 1, 0}}, meshes[0].TriangleIndices())

	m.IndexFormat = 2
	_, err := (&MeshVertexData{mesh: m}).ResolveMeshes()
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData))
}

func TestResolveStreamOverflow(t *testing.T) {
	m := &Mesh{
		SubMeshes: []SubMesh{{VertexCount: 4}},
		VertexData: VertexData{
			VertexCount: 4,
			Channels:    []ChannelInfo{positionChannel},
			DataSize:    make([]byte, 24),
		},
	}
	_, err := (&MeshVertexData{mesh: m, data: m.VertexData.DataSize}).ResolveMeshes()
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData))
}

func TestResolveExplicitStreams(t *testing.T) {
	w := fixture.NewWriter(nil).U64(0)
	positions(w, 1, 2, 3).U32(0)
	positions(w, 4, 5, 6).U32(0)

	m := &Mesh{
		SubMeshes: []SubMesh{{VertexCount: 2}},
		VertexData: VertexData{
			VertexCount: 2,
			Channels: []ChannelInfo{
				positionChannel,
				{}, {},
				// Does not fit into the 16 byte stride and is ignored.
				{Offset: 12, Format: VertexFloat32, Dimension: 2},
			},
			DataSize: w.Bytes(),
			Streams:  &[]StreamInfo{{ChannelMask: 0b1001, Offset: 8, Stride: 16}},
		},
	}

	meshes := resolve(t, m)
	assert.Equal(t, []Vertex{{Pos: Vector3f{1, 2, 3}}, {Pos: Vector3f{4, 5, 6}}}, meshes[0].Vertices())
}

func TestResolveSkipsUnsupportedChannels(t *testing.T) {
	data := positions(fixture.NewWriter(nil), 1, 2, 3, 4).Bytes()
	m := &Mesh{
		SubMeshes: []SubMesh{{VertexCount: 2}},
		VertexData: VertexData{
			VertexCount: 2,
			Channels: []ChannelInfo{
				{Format: VertexFloat32, Dimension: 2}, // positions need three components
				{Format: VertexFloat32, Dimension: 2}, // normals are not decoded
			},
			DataSize: data,
		},
	}

	meshes := resolve(t, m)
	assert.Equal(t, []Vertex{{}, {}}, meshes[0].Vertices())
}

func TestReadVector(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format uint8
		dim    int
		want   Vector3f
	}{
		{"Float32", fixture.NewWriter(nil).F32(1.5).F32(-2).Bytes(), VertexFloat32, 2, Vector3f{1.5, -2, 0}},
		{"Float16", indices16(0x3C00, 0xC000, 0x3800), VertexFloat16, 3, Vector3f{1, -2, 0.5}},
		{"UNorm8", []byte{255, 0, 51}, VertexUNorm8, 3, Vector3f{1, 0, 0.2}},
		{"UNorm8Alt", []byte{255}, VertexUNorm8Alt, 1, Vector3f{1, 0, 0}},
		{"SNorm8", []byte{0x80, 0x7F, 0x81}, VertexSNorm8, 3, Vector3f{-1, 1, -1}},
		{"UNorm16", indices16(0xFFFF, 0), VertexUNorm16, 2, Vector3f{1, 0, 0}},
		{"SNorm16", indices16(0x8000, 0x7FFF, 0x8001), VertexSNorm16, 3, Vector3f{-1, 1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readVector(tt.data, tt.format, tt.dim)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.X, got.X, 1e-6)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-6)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-6)
		})
	}

	_, err := readVector([]byte{1, 2, 3}, 7, 3)
	assert.True(t, errors.Is(err, unityerr.ErrUnsupported))
}

func TestMeshReadVertexData(t *testing.T) {
	a := openArchive(t, fixture.Node{Path: "CAB-m.resS", Data: []byte("xxABCDyy")})

	m := &Mesh{
		VertexData: VertexData{DataSize: []byte("inline")},
		StreamData: StreamingInfo{Offset: 2, Size: 4, Path: "archive:/CAB-m/CAB-m.resS"},
	}
	data, err := m.ReadVertexData(a)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), data.Data())

	m.StreamData = StreamingInfo{}
	data, err = m.ReadVertexData(a)
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), data.Data())
}

func vector3Tree(name string) []typetree.Node {
	return fixture.Struct(0, "Vector3f", name,
		fixture.Leaf(fixture.Field(0, "float", "x", 4)),
		fixture.Leaf(fixture.Field(0, "float", "y", 4)),
		fixture.Leaf(fixture.Field(0, "float", "z", 4)),
	)
}

func aabbTree(name string) []typetree.Node {
	return fixture.Struct(0, "AABB", name, vector3Tree("m_Center"), vector3Tree("m_Extent"))
}

func meshTree() []typetree.Node {
	uint32Field := func(name string) []typetree.Node {
		return fixture.Leaf(fixture.Field(0, "unsigned int", name, 4))
	}
	uint8Field := func(name string) []typetree.Node {
		return fixture.Leaf(fixture.Field(0, "UInt8", name, 1))
	}

	subMesh := fixture.Struct(0, "SubMesh", "data",
		uint32Field("firstByte"),
		uint32Field("indexCount"),
		fixture.Leaf(fixture.Field(0, "int", "topology", 4)),
		uint32Field("baseVertex"),
		uint32Field("firstVertex"),
		uint32Field("vertexCount"),
		aabbTree("localAABB"),
	)
	channel := fixture.Struct(0, "ChannelInfo", "data",
		uint8Field("stream"), uint8Field("offset"), uint8Field("format"), uint8Field("dimension"))

	return fixture.Struct(0, "Mesh", "Base",
		fixture.String(0, "m_Name"),
		fixture.Vector(0, "m_SubMeshes", subMesh),
		fixture.Leaf(fixture.Field(0, "int", "m_IndexFormat", 4)),
		fixture.ByteVector(0, "m_IndexBuffer"),
		fixture.Struct(0, "VertexData", "m_VertexData",
			uint32Field("m_VertexCount"),
			fixture.Vector(0, "m_Channels", channel),
			fixture.TypelessData(0, "m_DataSize"),
		),
		aabbTree("m_LocalAABB"),
		streamingInfoTree("m_StreamData", "UInt64", 8),
	)
}

func TestMeshEndToEnd(t *testing.T) {
	vertices := positions(fixture.NewWriter(nil), 0, 0, 0, 1, 0, 0, 0, 1, 0).Bytes()

	w := fixture.NewWriter(nil).String("quad")
	w.U32(1).U32(0).U32(3).I32(0).U32(0).U32(0).U32(3)
	positions(w, 0, 0, 0, 0, 0, 0)
	w.I32(0).ByteArray(indices16(0, 2, 1))
	w.U32(3).U32(1).U8(0).U8(0).U8(VertexFloat32).U8(3).Align(4)
	w.ByteArray(vertices)
	positions(w, 0.5, 0.5, 0, 0.5, 0.5, 0)
	w.U64(0).U32(0).String("")

	a := openArchive(t, serializedNode("CAB-mesh", fixture.Object{
		PathID: 9, ClassID: int32(serialized.ClassMesh), Tree: meshTree(), Data: w.Bytes(),
	}))

	m := decodeOnly[Mesh](t, a, serialized.ClassMesh)
	assert.Equal(t, "quad", m.Name)
	assert.Equal(t, AABB{Center: Vector3f{0.5, 0.5, 0}, Extent: Vector3f{0.5, 0.5, 0}}, m.LocalAABB)
	assert.Nil(t, m.VertexData.Streams, "the tree has no explicit streams")
	require.Len(t, m.SubMeshes, 1)
	assert.Equal(t, uint32(3), m.SubMeshes[0].VertexCount)

	data, err := m.ReadVertexData(a)
	require.NoError(t, err)
	meshes, err := data.ResolveMeshes()
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, [][3]int{{0, 2, 1}}, meshes[0].TriangleIndices())
	assert.Equal(t, Vector3f{0, 1, 0}, meshes[0].Vertices()[2].Pos)
}
