package archive

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// maxLZ4Ratio bounds how far an LZ4 block can expand. A match costs at
// least one byte per 255 bytes it produces.
const maxLZ4Ratio = 255

// checkBlockSize rejects declared sizes the compression method cannot
// produce from compressed bytes, before anything is allocated for them.
func checkBlockSize(method Compression, compressed, uncompressed uint64) error {
	switch method {
	case CompressionNone:
		if compressed != uncompressed {
			return fmt.Errorf("%w: uncompressed block of %d bytes declares %d", unityerr.ErrInvalidData, compressed, uncompressed)
		}
	case CompressionLZ4, CompressionLZ4HC:
		if uncompressed > compressed*maxLZ4Ratio {
			return fmt.Errorf("%w: %s block of %d bytes cannot expand to %d", unityerr.ErrInvalidData, method, compressed, uncompressed)
		}
	}
	return nil
}

// decompress expands one block or the blocks-info section to exactly size bytes.
func decompress(src []byte, method Compression, size uint32) ([]byte, error) {
	if !method.Supported() {
		return nil, fmt.Errorf("%w: %w: %s compression", unityerr.ErrFormat, unityerr.ErrUnsupported, method)
	}
	if err := checkBlockSize(method, uint64(len(src)), uint64(size)); err != nil {
		return nil, err
	}
	if method == CompressionNone {
		return src, nil
	}

	// LZ4HC only differs at compression time; the block format is shared.
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %s block: %w", unityerr.ErrInvalidData, method, err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("%w: %s block decoded to %d bytes, want %d", unityerr.ErrInvalidData, method, n, size)
	}
	return dst, nil
}
