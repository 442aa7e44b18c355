package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

var opaqueAlpha = []byte{0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

var planarBlock = []byte{0x84, 0x94, 0x07, 0x8A, 0x14, 0x48, 0x42, 0x87}

func etc2Block(alpha, colorBits []byte) []byte {
	return append(append([]byte{}, alpha...), colorBits...)
}

// bgra unpacks a decoder pixel into r, g, b, a.
func bgra(p uint32) [4]uint8 {
	return [4]uint8{uint8(p >> 16), uint8(p >> 8), uint8(p), uint8(p >> 24)}
}

func TestDecodeETC2Modes(t *testing.T) {
	type pixel struct {
		index   int
		r, g, b uint8
	}
	tests := []struct {
		name   string
		color  []byte
		pixels []pixel
	}{
		{
			name:   "Individual",
			color:  []byte{0x12, 0x34, 0x56, 0x75, 0xF0, 0x0F, 0xAA, 0x55},
			pixels: []pixel{{0, 0, 9, 43}, {1, 59, 93, 127}, {4, 4, 38, 72}, {5, 30, 64, 98}, {10, 58, 92, 126}, {15, 0, 0, 22}},
		},
		{
			name:   "Differential",
			color:  []byte{0x83, 0x41, 0x26, 0x5A, 0x12, 0x34, 0x56, 0x78},
			pixels: []pixel{{0, 141, 75, 42}, {1, 103, 37, 4}, {4, 141, 75, 42}, {10, 255, 180, 122}, {15, 189, 107, 49}},
		},
		{
			name:   "T",
			color:  []byte{0xFB, 0x5A, 0xC3, 0x9A, 0x0F, 0xF0, 0x33, 0xCC},
			pixels: []pixel{{0, 255, 85, 170}, {1, 204, 51, 153}, {10, 204, 51, 153}, {15, 255, 85, 170}},
		},
		{
			name:   "H",
			color:  []byte{0x10, 0xFB, 0x9C, 0x6E, 0xA5, 0x5A, 0x0F, 0xF0},
			pixels: []pixel{{0, 57, 40, 255}, {1, 28, 113, 198}, {4, 74, 159, 244}, {5, 11, 0, 232}, {15, 74, 159, 244}},
		},
		{
			name:   "HDistanceOrdering",
			color:  []byte{0x60, 0xFB, 0x1C, 0x06, 0xA5, 0x5A, 0x0F, 0xF0},
			pixels: []pixel{{0, 236, 49, 255}, {1, 19, 104, 0}, {4, 83, 168, 32}, {5, 172, 0, 206}},
		},
		{
			name:   "Planar",
			color:  planarBlock,
			pixels: []pixel{{0, 8, 20, 28}, {1, 10, 20, 30}, {4, 8, 20, 28}, {10, 12, 20, 32}, {15, 14, 20, 34}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]uint32, 16)
			if err := DecodeETC2RGBA8(etc2Block(opaqueAlpha, tt.color), 4, 4, dst); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, want := range tt.pixels {
				got := bgra(dst[want.index])
				if got != [4]uint8{want.r, want.g, want.b, 255} {
					t.Errorf("pixel %d: got %v, want [%d %d %d 255]", want.index, got, want.r, want.g, want.b)
				}
			}
		})
	}
}

func TestDecodeEACAlpha(t *testing.T) {
	alpha := []byte{0x80, 0x3A, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	dst := make([]uint32, 16)
	if err := DecodeETC2RGBA8(etc2Block(alpha, planarBlock), 4, 4, dst); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := map[int]uint8{0: 122, 1: 104, 4: 131, 5: 116, 10: 116, 15: 131}
	for i, a := range want {
		if got := bgra(dst[i])[3]; got != a {
			t.Errorf("alpha %d: got %d, want %d", i, got, a)
		}
	}
	// Color lanes are untouched by the alpha pass.
	if got := bgra(dst[0]); got[0] != 8 || got[1] != 20 || got[2] != 28 {
		t.Errorf("pixel 0 color: got %v", got)
	}
}

func TestDecodeETC2Crop(t *testing.T) {
	dst := make([]uint32, 2)
	if err := DecodeETC2RGBA8(etc2Block(opaqueAlpha, planarBlock), 2, 1, dst); err != nil {
		t.Fatalf("decode: %v", err)
	}

	SwapRedBlue(dst)
	out := make([]byte, 8)
	if err := PixelsToRGBA(dst, out); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	want := []byte{8, 20, 28, 255, 10, 20, 30, 255}
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestDecodeETC2MultipleBlocks(t *testing.T) {
	tBlock := []byte{0xFB, 0x5A, 0xC3, 0x9A, 0x0F, 0xF0, 0x33, 0xCC}
	var data []byte
	for _, c := range [][]byte{planarBlock, tBlock, tBlock, planarBlock} {
		data = append(data, etc2Block(opaqueAlpha, c)...)
	}

	const w, h = 5, 5
	dst := make([]uint32, w*h)
	if err := DecodeETC2RGBA8(data, w, h, dst); err != nil {
		t.Fatalf("decode: %v", err)
	}

	checks := []struct {
		x, y    int
		r, g, b uint8
	}{
		{0, 0, 8, 20, 28},
		{1, 0, 10, 20, 30},
		{4, 0, 255, 85, 170}, // first pixel of the second block
		{0, 4, 255, 85, 170}, // first pixel of the third block
		{4, 4, 8, 20, 28},    // first pixel of the fourth block
		{3, 3, 14, 20, 34},   // last pixel of the first block
	}
	for _, c := range checks {
		got := bgra(dst[c.y*w+c.x])
		if got != [4]uint8{c.r, c.g, c.b, 255} {
			t.Errorf("(%d,%d): got %v, want [%d %d %d 255]", c.x, c.y, got, c.r, c.g, c.b)
		}
	}
}

func TestDecodeETC2Invalid(t *testing.T) {
	block := etc2Block(opaqueAlpha, planarBlock)
	tests := []struct {
		name string
		data []byte
		w, h int
		dst  int
	}{
		{"ShortData", block[:15], 4, 4, 16},
		{"ShortForSecondBlock", block, 5, 4, 20},
		{"SmallDestination", block, 4, 4, 15},
		{"ZeroWidth", block, 0, 4, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeETC2RGBA8(tt.data, tt.w, tt.h, make([]uint32, tt.dst))
			if !errors.Is(err, unityerr.ErrInvalidData) {
				t.Errorf("expected ErrInvalidData, got %v", err)
			}
		})
	}
}

func TestSwapRedBlue(t *testing.T) {
	pixels := []uint32{0x44332211}
	SwapRedBlue(pixels)
	if pixels[0] != 0x44112233 {
		t.Errorf("got %#08x, want 0x44112233", pixels[0])
	}
	SwapRedBlue(pixels)
	if pixels[0] != 0x44332211 {
		t.Errorf("swap is not its own inverse: %#08x", pixels[0])
	}
}

func TestBlockDataSize(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{4, 4, 16},
		{1, 1, 16},
		{5, 4, 32},
		{8, 8, 64},
		{256, 128, 32768},
	}
	for _, tt := range tests {
		if got := BlockDataSize(tt.w, tt.h, ETC2RGBA8BlockSize); got != tt.want {
			t.Errorf("BlockDataSize(%d, %d): got %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestFlipVertical(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(y), G: uint8(x), A: 255})
		}
	}

	FlipVertical(img)

	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			got := img.RGBAAt(x, y)
			if got.R != uint8(2-y) || got.G != uint8(x) {
				t.Errorf("(%d,%d): got %v", x, y, got)
			}
		}
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})

	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("bounds: got %v", decoded.Bounds())
	}
	r, g, _, _ := decoded.At(1, 0).RGBA()
	if r != 0 || g != 0xFFFF {
		t.Errorf("pixel (1,0): got r=%d g=%d", r, g)
	}
}

func BenchmarkDecodeETC2RGBA8(b *testing.B) {
	const w, h = 256, 256
	block := etc2Block(opaqueAlpha, planarBlock)
	data := bytes.Repeat(block, BlockDataSize(w, h, ETC2RGBA8BlockSize)/len(block))
	dst := make([]uint32, w*h)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := DecodeETC2RGBA8(data, w, h, dst); err != nil {
			b.Fatal(err)
		}
	}
}
