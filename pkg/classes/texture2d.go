package classes

import (
	"fmt"
	"image"
	"strings"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/serialized"
	"github.com/houston-tools/unityFileTools/pkg/texture"
	"github.com/houston-tools/unityFileTools/pkg/unityerr"
)

// maxImageBytes bounds the RGBA buffer of a decoded texture.
const maxImageBytes = 1 << 30

// Texture2D is an image texture.
type Texture2D struct {
	Name       string        `unity:"m_Name"`
	Width      int32         `unity:"m_Width"`
	Height     int32         `unity:"m_Height"`
	Format     TextureFormat `unity:"m_TextureFormat"`
	MipCount   int32         `unity:"m_MipCount"`
	ImageData  []byte        `unity:"image data"`
	StreamData StreamingInfo `unity:"m_StreamData"`
}

func (Texture2D) ClassName() string { return "Texture2D" }

// TextureData is a texture together with its resolved pixel payload.
type TextureData struct {
	texture *Texture2D
	data    []byte
}

// ReadData resolves the texture's payload, which is streamed from a sibling
// node of a unless it is stored inline.
func (t *Texture2D) ReadData(a *archive.Archive) (*TextureData, error) {
	data, err := t.StreamData.LoadOr(a, t.ImageData)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", t.Name, err)
	}
	return &TextureData{texture: t, data: data}, nil
}

// Data returns the encoded payload. It must not be modified.
func (d *TextureData) Data() []byte {
	return d.data
}

// Decode decodes the top mip level into an RGBA image with rows in stored
// order, which for Unity textures is bottom-up. Formats other than RGBA32
// and ETC2_RGBA8 fail with unityerr.ErrUnsupported.
func (d *TextureData) Decode() (*image.RGBA, error) {
	t := d.texture
	if t.Width < 0 || t.Height < 0 {
		return nil, fmt.Errorf("%w: texture %q has size %dx%d", unityerr.ErrInvalidData, t.Name, t.Width, t.Height)
	}
	width, height := int(t.Width), int(t.Height)
	size := int64(width) * int64(height) * 4
	if size > maxImageBytes {
		return nil, fmt.Errorf("%w: texture %q of %dx%d is too large", unityerr.ErrInvalidData, t.Name, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	switch t.Format {
	case FormatRGBA32:
		n := int64(len(d.data))
		if n != size && (t.MipCount <= 1 || n < size) {
			return nil, fmt.Errorf("%w: RGBA32 texture %q of %dx%d has %d bytes of image data, want %d",
				unityerr.ErrInvalidData, t.Name, width, height, n, size)
		}
		copy(img.Pix, d.data[:size])
	case FormatETC2RGBA8:
		pixels := make([]uint32, width*height)
		if err := texture.DecodeETC2RGBA8(d.data, width, height, pixels); err != nil {
			return nil, fmt.Errorf("texture %q: %w", t.Name, err)
		}
		// The block decoder packs BGRA.
		texture.SwapRedBlue(pixels)
		if err := texture.PixelsToRGBA(pixels, img.Pix); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %w: texture %q uses format %s",
			unityerr.ErrFormat, unityerr.ErrUnsupported, t.Name, t.Format)
	}
	return img, nil
}

// FindTexture returns the first Texture2D in a whose name matches name,
// ignoring case.
func FindTexture(a *archive.Archive, name string) (*Texture2D, bool, error) {
	for o, err := range Objects(a, serialized.ClassTexture2D) {
		if err != nil {
			return nil, false, err
		}
		t, err := Decode[Texture2D](o)
		if err != nil {
			return nil, false, err
		}
		if strings.EqualFold(t.Name, name) {
			return t, true, nil
		}
	}
	return nil, false, nil
}
