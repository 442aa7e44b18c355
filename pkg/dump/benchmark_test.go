package dump

import (
	"bytes"
	"io"
	"testing"
)

// BenchmarkDump measures writing and reading a dump of one 1MB node.
func BenchmarkDump(b *testing.B) {
	data := make([]byte, 1024*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}

	b.Run("Write", func(b *testing.B) {
		w := NewWriter(io.Discard)
		b.SetBytes(int64(len(data)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := w.Add("CAB-0123456789abcdef", 0, data); err != nil {
				b.Fatal(err)
			}
		}
	})

	encoded := encode(b, Entry{Path: "CAB-0123456789abcdef", Data: data})

	b.Run("Read", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := ReadAll(bytes.NewReader(encoded)); err != nil {
				b.Fatal(err)
			}
		}
	})
}
