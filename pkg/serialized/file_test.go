package serialized

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houston-tools/unityFileTools/internal/fixture"
	"github.com/houston-tools/unityFileTools/pkg/typetree"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

type textAsset struct {
	Name   string `unity:"m_Name"`
	Script []byte `unity:"m_Script"`
}

func (textAsset) ClassName() string { return "TextAsset" }

func textAssetTree() []typetree.Node {
	return fixture.Struct(0, "TextAsset", "Base",
		fixture.String(0, "m_Name"),
		fixture.String(0, "m_Script"),
	)
}

func textAssetData(order binary.AppendByteOrder, name, script string) []byte {
	return fixture.NewWriter(order).String(name).String(script).Bytes()
}

func TestReadVersions(t *testing.T) {
	tests := []struct {
		name      string
		version   uint32
		bigEndian bool
	}{
		{"v17", 17, false},
		{"v19", 19, false},
		{"v21", 21, false},
		{"v22", 22, false},
		{"v17BigEndian", 17, true},
		{"v22BigEndian", 22, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order binary.AppendByteOrder = binary.LittleEndian
			if tt.bigEndian {
				order = binary.BigEndian
			}

			buf := fixture.SerializedFile{
				Version:   tt.version,
				BigEndian: tt.bigEndian,
				Objects: []fixture.Object{
					{PathID: 42, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(order, "hello", "print()")},
					{PathID: -7, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(order, "other", "")},
				},
			}.Bytes()

			require.True(t, IsSerializedFile(buf))

			f, err := Read(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.version, f.Version)
			assert.Equal(t, tt.bigEndian, f.BigEndian)
			assert.Equal(t, "2021.3.0f1", f.UnityVersion)
			assert.True(t, f.EnableTypeTree)
			require.Len(t, f.Types(), 1)
			assert.Equal(t, textAssetTree(), f.Types()[0].Tree)

			objects, err := f.Objects()
			require.NoError(t, err)
			require.Len(t, objects, 2)

			obj := objects[0]
			assert.Equal(t, int64(42), obj.PathID())
			assert.Equal(t, ClassTextAsset, obj.ClassID())
			assert.Equal(t, tt.bigEndian, obj.IsBigEndian())

			data, err := obj.Data()
			require.NoError(t, err)
			assert.Equal(t, textAssetData(order, "hello", "print()"), data)

			var asset textAsset
			require.NoError(t, obj.Decode(&asset))
			assert.Equal(t, "hello", asset.Name)
			assert.Equal(t, []byte("print()"), asset.Script)

			assert.Equal(t, int64(-7), objects[1].PathID())
		})
	}
}

func TestReadLegacyTree(t *testing.T) {
	buf := fixture.SerializedFile{
		Version: 9,
		Objects: []fixture.Object{
			{PathID: 1, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(binary.LittleEndian, "old", "x")},
		},
	}.Bytes()

	f, err := Read(buf)
	require.NoError(t, err)
	require.Len(t, f.Types(), 1)

	tree := f.Types()[0].Tree
	require.NotEmpty(t, tree)
	assert.Equal(t, "TextAsset", tree[0].TypeName, "the root node leads the flattened tree")
	assert.Equal(t, textAssetTree(), tree)

	objects, err := f.Objects()
	require.NoError(t, err)
	var asset textAsset
	require.NoError(t, objects[0].Decode(&asset))
	assert.Equal(t, "old", asset.Name)
}

func TestReadResolvesTypesByClassID(t *testing.T) {
	meshTree := fixture.Struct(0, "Mesh", "Base", fixture.String(0, "m_Name"))

	buf := fixture.SerializedFile{
		Version: 15,
		Objects: []fixture.Object{
			{PathID: 1, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(binary.LittleEndian, "a", "b")},
			{PathID: 2, ClassID: int32(ClassMesh), Tree: meshTree, Data: fixture.NewWriter(nil).String("m").Bytes()},
		},
	}.Bytes()

	f, err := Read(buf)
	require.NoError(t, err)

	objects, err := f.Objects()
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, ClassTextAsset, objects[0].ClassID())
	assert.Equal(t, ClassMesh, objects[1].ClassID())
	assert.Equal(t, "Mesh", objects[1].Type().Tree[0].TypeName)
}

func TestObjectDecodeMismatch(t *testing.T) {
	buf := fixture.SerializedFile{
		Version: 17,
		Objects: []fixture.Object{
			{PathID: 1, ClassID: int32(ClassMesh), Tree: fixture.Struct(0, "Mesh", "Base", fixture.String(0, "m_Name")), Data: fixture.NewWriter(nil).String("m").Bytes()},
		},
	}.Bytes()

	f, err := Read(buf)
	require.NoError(t, err)
	objects, err := f.Objects()
	require.NoError(t, err)

	var asset textAsset
	err = objects[0].Decode(&asset)
	assert.True(t, errors.Is(err, unityerr.ErrMismatch))
}

func TestIsSerializedFile(t *testing.T) {
	valid := fixture.SerializedFile{
		Version: 17,
		Objects: []fixture.Object{{PathID: 1, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(binary.LittleEndian, "a", "b")}},
	}.Bytes()

	assert.True(t, IsSerializedFile(valid))
	assert.False(t, IsSerializedFile(valid[:len(valid)-1]), "file size must match the buffer")
	assert.False(t, IsSerializedFile(append(valid, 0)), "file size must match the buffer")
	assert.False(t, IsSerializedFile(nil))
	assert.False(t, IsSerializedFile([]byte("UnityFS\x00not a serialized file")))

	// metadata larger than the file
	bad := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(bad[0:], uint32(len(bad)+1))
	assert.False(t, IsSerializedFile(bad))
}

func TestReadTruncated(t *testing.T) {
	buf := fixture.SerializedFile{
		Version: 22,
		Objects: []fixture.Object{{PathID: 1, ClassID: int32(ClassTextAsset), Tree: textAssetTree(), Data: textAssetData(binary.LittleEndian, "a", "b")}},
	}.Bytes()

	_, err := Read(buf[:60])
	require.Error(t, err)
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData))
}

func TestObjectDataOutOfRange(t *testing.T) {
	f := &File{Header: Header{DataOffset: 4}, buf: make([]byte, 8)}
	obj := &Object{file: f, typ: &Type{}, info: objectInfo{start: 2, size: 3}}

	_, err := obj.Data()
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData))

	obj.info.size = 2
	data, err := obj.Data()
	require.NoError(t, err)
	assert.Len(t, data, 2)
}

func TestObjectTypeIndexOutOfRange(t *testing.T) {
	f := &File{types: []*Type{{ClassID: ClassMesh}}, objects: []objectInfo{{pathID: 1, typeID: 3}}}
	_, err := f.Objects()
	assert.True(t, errors.Is(err, unityerr.ErrInvalidData))
}

func TestReadCommonStrings(t *testing.T) {
	tree := []typetree.Node{
		{TypeName: "TextAsset", Name: "Base", Size: -1},
		{TypeName: "int", Name: "m_Bogus", Size: 4, Level: 1},
	}

	buf := fixture.SerializedFile{
		Version:       17,
		CommonStrings: map[string]uint32{"TextAsset": 847, "m_Bogus": 1},
		Objects:       []fixture.Object{{PathID: 1, ClassID: int32(ClassTextAsset), Tree: tree, Data: make([]byte, 4)}},
	}.Bytes()

	f, err := Read(buf)
	require.NoError(t, err)

	got := f.Types()[0].Tree
	assert.Equal(t, "TextAsset", got[0].TypeName)
	assert.Equal(t, "int", got[1].TypeName)
	assert.Equal(t, "unknown:2147483649", got[1].Name)
}

func TestCommonString(t *testing.T) {
	tests := []struct {
		offset uint32
		want   string
		ok     bool
	}{
		{0, "AABB", true},
		{5, "AnimationClip", true},
		{49, "Array", true},
		{840, "string", true},
		{1051, "Type*", true},
		{1, "", false},
		{1 << 20, "", false},
	}

	for _, tt := range tests {
		got, ok := CommonString(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.want, got, "offset %d", tt.offset)
	}
}
