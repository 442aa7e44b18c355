package export

import (
	"bufio"
	"io"
	"strconv"

	"github.com/houston-tools/unityFileTools/pkg/classes"
)

// WriteOBJ writes meshes as a Wavefront OBJ file with one group per
// sub-mesh. Every vertex carries a texture coordinate, so faces use v/vt
// pairs.
func WriteOBJ(w io.Writer, name string, meshes []*classes.ResolvedMesh) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	buf = append(buf, "# "...)
	buf = append(buf, name...)
	buf = append(buf, '\n')
	bw.Write(buf)

	base := 1
	for i, m := range meshes {
		buf = append(buf[:0], "g "...)
		buf = append(buf, name...)
		buf = append(buf, '_')
		buf = strconv.AppendInt(buf, int64(i), 10)
		buf = append(buf, '\n')
		bw.Write(buf)

		vertices := m.Vertices()
		for _, v := range vertices {
			buf = append(buf[:0], 'v')
			buf = appendFloats(buf, v.Pos.X, v.Pos.Y, v.Pos.Z)
			bw.Write(buf)
		}
		for _, v := range vertices {
			buf = append(buf[:0], "vt"...)
			buf = appendFloats(buf, v.UV.X, v.UV.Y)
			bw.Write(buf)
		}
		for _, tri := range m.TriangleIndices() {
			buf = append(buf[:0], 'f')
			for _, idx := range tri {
				n := int64(base + idx)
				buf = append(buf, ' ')
				buf = strconv.AppendInt(buf, n, 10)
				buf = append(buf, '/')
				buf = strconv.AppendInt(buf, n, 10)
			}
			buf = append(buf, '\n')
			bw.Write(buf)
		}
		base += len(vertices)
	}
	return bw.Flush()
}

func appendFloats(buf []byte, values ...float32) []byte {
	for _, f := range values {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
	}
	return append(buf, '\n')
}
