package texture

import (
	"encoding/binary"
	"fmt"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// etc1Modifiers holds the intensity modifier pairs selected by a 3-bit
// codeword.
var etc1Modifiers = [8][2]int32{
	{2, 8}, {5, 17}, {9, 29}, {13, 42}, {18, 60}, {24, 80}, {33, 106}, {47, 183},
}

// etc2Distances holds the T and H mode distances.
var etc2Distances = [8]int32{3, 6, 11, 16, 23, 32, 41, 64}

// eacModifiers holds the EAC alpha modifier rows selected by a 4-bit index.
var eacModifiers = [16][8]int32{
	{-3, -6, -9, -15, 2, 5, 8, 14},
	{-3, -7, -10, -13, 2, 6, 9, 12},
	{-2, -5, -8, -13, 1, 4, 7, 12},
	{-2, -4, -6, -13, 1, 3, 5, 12},
	{-3, -6, -8, -12, 2, 5, 7, 11},
	{-3, -7, -9, -11, 2, 6, 8, 10},
	{-4, -7, -8, -11, 3, 6, 7, 10},
	{-3, -5, -8, -11, 2, 4, 7, 10},
	{-2, -6, -8, -10, 1, 5, 7, 9},
	{-2, -5, -8, -10, 1, 4, 7, 9},
	{-2, -4, -8, -10, 1, 3, 7, 9},
	{-2, -5, -7, -10, 1, 4, 6, 9},
	{-3, -4, -7, -10, 2, 3, 6, 9},
	{-1, -2, -3, -10, 0, 1, 2, 9},
	{-4, -6, -8, -9, 3, 5, 7, 8},
	{-3, -5, -7, -9, 2, 4, 6, 8},
}

type rgb [3]int32

// DecodeETC2RGBA8 decodes ETC2 RGBA8 (EAC alpha plus ETC2 color) data of a
// width x height image into dst as BGRA packed pixels, row-major with the
// first stored row first. Blocks that extend past the image are cropped.
func DecodeETC2RGBA8(data []byte, width, height int, dst []uint32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", unityerr.ErrInvalidData, width, height)
	}
	if len(dst) < width*height {
		return fmt.Errorf("%w: %d pixel buffer for a %dx%d image", unityerr.ErrInvalidData, len(dst), width, height)
	}
	if need := BlockDataSize(width, height, ETC2RGBA8BlockSize); len(data) < need {
		return fmt.Errorf("%w: ETC2 data of %d bytes, need %d", unityerr.ErrInvalidData, len(data), need)
	}

	var block [16]uint32
	blocksWide := (width + 3) / 4
	blocksHigh := (height + 3) / 4
	for by := 0; by < blocksHigh; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			src := data[(by*blocksWide+bx)*ETC2RGBA8BlockSize:][:ETC2RGBA8BlockSize]
			decodeETC2Block(src[8:16], &block)
			decodeEACAlpha(src[0:8], &block)

			for y := 0; y < 4 && by*4+y < height; y++ {
				row := (by*4 + y) * width
				for x := 0; x < 4 && bx*4+x < width; x++ {
					dst[row+bx*4+x] = block[y*4+x]
				}
			}
		}
	}
	return nil
}

// decodeETC2Block decodes the color half of a block into out, indexed
// y*4+x. Alpha is set to 255.
func decodeETC2Block(b []byte, out *[16]uint32) {
	if b[3]&2 == 0 {
		var c0, c1 rgb
		for i := range 3 {
			c0[i] = extend4(int32(b[i] >> 4))
			c1[i] = extend4(int32(b[i] & 0xF))
		}
		decodeSubblocks(b, c0, c1, out)
		return
	}

	var base, delta rgb
	for i := range 3 {
		base[i] = int32(b[i] >> 3)
		delta[i] = int32(b[i]&7) - int32(b[i]&4)<<1
	}

	switch {
	case !inRange5(base[0] + delta[0]):
		decodeT(b, out)
	case !inRange5(base[1] + delta[1]):
		decodeH(b, out)
	case !inRange5(base[2] + delta[2]):
		decodePlanar(b, out)
	default:
		var c0, c1 rgb
		for i := range 3 {
			c0[i] = extend5(base[i])
			c1[i] = extend5(base[i] + delta[i])
		}
		decodeSubblocks(b, c0, c1, out)
	}
}

// decodeSubblocks decodes the individual and differential modes, which
// split the block into two halves with their own base color and codeword.
func decodeSubblocks(b []byte, c0, c1 rgb, out *[16]uint32) {
	codes := [2]uint8{b[3] >> 5, b[3] >> 2 & 7}
	flip := b[3]&1 != 0
	base := [2]rgb{c0, c1}

	for x := range 4 {
		for y := range 4 {
			half := 0
			if (flip && y >= 2) || (!flip && x >= 2) {
				half = 1
			}
			mod := etc1Modifiers[codes[half]]
			m := mod[0]
			idx := pixelIndex(b, x*4+y)
			if idx&1 != 0 {
				m = mod[1]
			}
			if idx&2 != 0 {
				m = -m
			}
			out[y*4+x] = pack(base[half], m)
		}
	}
}

func decodeT(b []byte, out *[16]uint32) {
	c1 := rgb{
		extend4(int32(b[0]>>3&3)<<2 | int32(b[0]&3)),
		extend4(int32(b[1] >> 4)),
		extend4(int32(b[1] & 0xF)),
	}
	c2 := rgb{
		extend4(int32(b[2] >> 4)),
		extend4(int32(b[2] & 0xF)),
		extend4(int32(b[3] >> 4)),
	}
	d := etc2Distances[(b[3]>>2&3)<<1|b[3]&1]
	paint := [4]uint32{pack(c1, 0), pack(c2, d), pack(c2, 0), pack(c2, -d)}
	paintIndexed(b, paint, out)
}

func decodeH(b []byte, out *[16]uint32) {
	c1 := rgb{
		extend4(int32(b[0] >> 3 & 0xF)),
		extend4(int32(b[0]&7)<<1 | int32(b[1]>>4&1)),
		extend4(int32(b[1]&8) | int32(b[1]&3)<<1 | int32(b[2]>>7)),
	}
	c2 := rgb{
		extend4(int32(b[2] >> 3 & 0xF)),
		extend4(int32(b[2]&7)<<1 | int32(b[3]>>7)),
		extend4(int32(b[3] >> 3 & 0xF)),
	}
	di := b[3]&4 | (b[3]&1)<<1
	if c1[0]<<16|c1[1]<<8|c1[2] >= c2[0]<<16|c2[1]<<8|c2[2] {
		di++
	}
	d := etc2Distances[di]
	paint := [4]uint32{pack(c1, d), pack(c1, -d), pack(c2, d), pack(c2, -d)}
	paintIndexed(b, paint, out)
}

func paintIndexed(b []byte, paint [4]uint32, out *[16]uint32) {
	for x := range 4 {
		for y := range 4 {
			out[y*4+x] = paint[pixelIndex(b, x*4+y)]
		}
	}
}

func decodePlanar(b []byte, out *[16]uint32) {
	o := rgb{
		extend6(int32(b[0] >> 1 & 0x3F)),
		extend7(int32(b[0]&1)<<6 | int32(b[1]>>1&0x3F)),
		extend6(int32(b[1]&1)<<5 | int32(b[2]&0x18) | int32(b[2]&3)<<1 | int32(b[3]>>7)),
	}
	h := rgb{
		extend6(int32(b[3]>>2&0x1F)<<1 | int32(b[3]&1)),
		extend7(int32(b[4] >> 1)),
		extend6(int32(b[4]&1)<<5 | int32(b[5]>>3)),
	}
	v := rgb{
		extend6(int32(b[5]&7)<<3 | int32(b[6]>>5)),
		extend7(int32(b[6]&0x1F)<<2 | int32(b[7]>>6)),
		extend6(int32(b[7] & 0x3F)),
	}

	for y := range int32(4) {
		for x := range int32(4) {
			var c rgb
			for i := range 3 {
				c[i] = (x*(h[i]-o[i]) + y*(v[i]-o[i]) + 4*o[i] + 2) >> 2
			}
			out[y*4+x] = pack(c, 0)
		}
	}
}

// decodeEACAlpha replaces the alpha lane of out with the EAC alpha block.
func decodeEACAlpha(b []byte, out *[16]uint32) {
	base := int32(b[0])
	mult := int32(b[1] >> 4)
	table := &eacModifiers[b[1]&0xF]
	bits := binary.BigEndian.Uint64(b)

	for x := range 4 {
		for y := range 4 {
			p := x*4 + y
			a := clamp255(base + mult*table[bits>>(45-3*p)&7])
			out[y*4+x] = out[y*4+x]&0x00FFFFFF | uint32(a)<<24
		}
	}
}

// pixelIndex returns the 2-bit index of pixel i, counted down columns.
func pixelIndex(b []byte, i int) int {
	msb := int(binary.BigEndian.Uint16(b[4:6]) >> i & 1)
	lsb := int(binary.BigEndian.Uint16(b[6:8]) >> i & 1)
	return msb<<1 | lsb
}

func pack(c rgb, m int32) uint32 {
	return uint32(clamp255(c[2]+m)) | uint32(clamp255(c[1]+m))<<8 | uint32(clamp255(c[0]+m))<<16 | 0xFF<<24
}

func clamp255(v int32) int32 {
	return min(max(v, 0), 255)
}

func inRange5(v int32) bool { return v >= 0 && v <= 31 }

func extend4(v int32) int32 { return v<<4 | v }
func extend5(v int32) int32 { return v<<3 | v>>2 }
func extend6(v int32) int32 { return v<<2 | v>>4 }
func extend7(v int32) int32 { return v<<1 | v>>6 }
