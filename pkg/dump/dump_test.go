package dump

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

func TestHeader(t *testing.T) {
	t.Run("Roundtrip", func(t *testing.T) {
		original := Header{PathLength: 8, Flags: 4, Length: 1024, CompressedLength: 512}

		data, err := original.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded Header
		if err := decoded.UnmarshalBinary(data); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded != original {
			t.Errorf("got %+v, want %+v", decoded, original)
		}
	})

	tests := []struct {
		name   string
		header Header
	}{
		{"EmptyPath", Header{PathLength: 0, Length: 1, CompressedLength: 1}},
		{"LongPath", Header{PathLength: maxPathLength + 1, Length: 1, CompressedLength: 1}},
		{"NoFrame", Header{PathLength: 4, Length: 5, CompressedLength: 0}},
		{"FrameForEmpty", Header{PathLength: 4, Length: 0, CompressedLength: 9}},
		{"TooLarge", Header{PathLength: 4, Length: maxNodeSize + 1, CompressedLength: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.header.Validate(); !errors.Is(err, unityerr.ErrInvalidData) {
				t.Errorf("expected invalid data, got %v", err)
			}
		})
	}

	t.Run("Short", func(t *testing.T) {
		err := (&Header{}).UnmarshalBinary(make([]byte, HeaderSize-1))
		if !errors.Is(err, unityerr.ErrUnexpectedEOF) {
			t.Errorf("expected unexpected EOF, got %v", err)
		}
	})
}

func encode(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, e := range entries {
		if err := w.Add(e.Path, e.Flags, e.Data); err != nil {
			t.Fatalf("add %q: %v", e.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadWrite(t *testing.T) {
	entries := []Entry{
		{Path: "CAB-abcdef", Flags: 4, Data: bytes.Repeat([]byte("serialized "), 100)},
		{Path: "CAB-abcdef.resS", Data: []byte("resource")},
		{Path: "empty", Data: []byte{}},
	}

	t.Run("Roundtrip", func(t *testing.T) {
		got, err := ReadAll(bytes.NewReader(encode(t, entries...)))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(got) != len(entries) {
			t.Fatalf("got %d entries, want %d", len(got), len(entries))
		}
		for i := range entries {
			if got[i].Path != entries[i].Path || got[i].Flags != entries[i].Flags || !bytes.Equal(got[i].Data, entries[i].Data) {
				t.Errorf("entry %d: got %q flags %d (%d bytes), want %q flags %d (%d bytes)", i,
					got[i].Path, got[i].Flags, len(got[i].Data), entries[i].Path, entries[i].Flags, len(entries[i].Data))
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		data := encode(t)
		if len(data) != fileHeaderSize {
			t.Fatalf("empty dump is %d bytes, want %d", len(data), fileHeaderSize)
		}
		got, err := ReadAll(bytes.NewReader(data))
		if err != nil || len(got) != 0 {
			t.Errorf("got %d entries, err %v", len(got), err)
		}
	})

	t.Run("Next", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(encode(t, entries[1])))
		if err != nil {
			t.Fatalf("new reader: %v", err)
		}
		if _, err := r.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("expected io.EOF after the last entry, got %v", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		data := encode(t, entries[0])
		for _, n := range []int{fileHeaderSize + 3, fileHeaderSize + HeaderSize + 2, len(data) - 1} {
			_, err := ReadAll(bytes.NewReader(data[:n]))
			if !errors.Is(err, unityerr.ErrUnexpectedEOF) {
				t.Errorf("truncated to %d bytes: expected unexpected EOF, got %v", n, err)
			}
		}
	})

	t.Run("CorruptFrame", func(t *testing.T) {
		data := encode(t, entries[1])
		frame := fileHeaderSize + HeaderSize + len(entries[1].Path)
		for i := frame; i < len(data); i++ {
			data[i] ^= 0xFF
		}
		if _, err := ReadAll(bytes.NewReader(data)); !errors.Is(err, unityerr.ErrInvalidData) {
			t.Errorf("expected invalid data, got %v", err)
		}
	})

	t.Run("BadMagic", func(t *testing.T) {
		data := encode(t)
		data[0] = 'Z'
		if _, err := NewReader(bytes.NewReader(data)); !errors.Is(err, unityerr.ErrFormat) {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("FutureVersion", func(t *testing.T) {
		data := encode(t)
		data[4] = Version + 1
		if _, err := NewReader(bytes.NewReader(data)); !errors.Is(err, unityerr.ErrUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompressionLevel(DefaultCompressionLevel))

	if err := w.Add("", 0, []byte("x")); err == nil {
		t.Error("expected error for empty path")
	}
	if err := w.Add("node", 0, []byte("x")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if w.Count() != 1 {
		t.Errorf("count: got %d, want 1", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Add("late", 0, nil); err == nil {
		t.Error("expected error after close")
	}
}
