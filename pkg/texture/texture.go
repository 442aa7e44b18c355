// Package texture decodes the pixel formats of Unity textures into 8-bit
// RGBA images.
//
// Block decoders produce packed pixels in the BGRA lane order used by the
// common native decoders: blue in bits 0-7, green in 8-15, red in 16-23 and
// alpha in 24-31. SwapRedBlue and PixelsToRGBA turn such a buffer into plain
// RGBA bytes.
package texture

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// ETC2RGBA8BlockSize is the size of one 4x4 ETC2 RGBA8 block: an 8-byte EAC
// alpha block followed by an 8-byte ETC2 color block.
const ETC2RGBA8BlockSize = 16

// BlockDataSize returns the number of bytes a block-compressed image of the
// given size occupies, rounding partial 4x4 blocks up.
func BlockDataSize(width, height, blockSize int) int {
	blocksWide := max(1, (width+3)/4)
	blocksHigh := max(1, (height+3)/4)
	return blocksWide * blocksHigh * blockSize
}

// SwapRedBlue exchanges byte lanes 0 and 2 of every pixel, turning BGRA
// packed pixels into RGBA packed pixels and back.
func SwapRedBlue(pixels []uint32) {
	for i, p := range pixels {
		pixels[i] = p&0xFF00FF00 | p>>16&0xFF | p&0xFF<<16
	}
}

// PixelsToRGBA serializes packed RGBA pixels little endian into dst, which
// must hold 4 bytes per pixel.
func PixelsToRGBA(pixels []uint32, dst []byte) error {
	if len(dst) < 4*len(pixels) {
		return fmt.Errorf("%w: %d byte buffer for %d pixels", unityerr.ErrInvalidData, len(dst), len(pixels))
	}
	for i, p := range pixels {
		binary.LittleEndian.PutUint32(dst[4*i:], p)
	}
	return nil
}

// FlipVertical mirrors img top to bottom in place. Unity stores texture rows
// bottom-up.
func FlipVertical(img *image.RGBA) {
	b := img.Bounds()
	rowLen := 4 * b.Dx()
	tmp := make([]byte, rowLen)
	for top, bottom := b.Min.Y, b.Max.Y-1; top < bottom; top, bottom = top+1, bottom-1 {
		upper := img.Pix[img.PixOffset(b.Min.X, top):][:rowLen]
		lower := img.Pix[img.PixOffset(b.Min.X, bottom):][:rowLen]
		copy(tmp, upper)
		copy(upper, lower)
		copy(lower, tmp)
	}
}

// EncodePNG writes img to w as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
