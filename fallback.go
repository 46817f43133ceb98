package ktx2

import (
	"fmt"
	"image"

	"github.com/woozymasta/bcn"
)

// FallbackOptions configures CPU decoding. Nil uses bcn defaults.
type FallbackOptions struct {
	// DecodeOptions are passed to the BCn decoder (e.g. Workers).
	DecodeOptions *bcn.DecodeOptions
}

// bcnFormat maps a table entry to the bcn codec format.
func bcnFormat(f FormatDescriptor) bcn.Format {
	switch f.VkFormat {
	case 131, 132, 133, 134:
		return bcn.FormatDXT1
	case 135, 136:
		return bcn.FormatDXT3
	case 137, 138:
		return bcn.FormatDXT5
	case 139:
		return bcn.FormatBC4
	case 141:
		return bcn.FormatBC5
	case 37, 43:
		return bcn.FormatRGBA8
	case 44, 50:
		return bcn.FormatBGRA8
	default:
		return bcn.FormatUnknown
	}
}

// CanDecodeRGBA reports whether DecodeRGBA handles the format.
func CanDecodeRGBA(f FormatDescriptor) bool {
	return bcnFormat(f) != bcn.FormatUnknown
}

// DecodeRGBA decodes the first image of a resolved level to NRGBA on the CPU,
// for devices that cannot sample the level's format. BC1 to BC5 (unsigned) and
// 8-bit RGBA/BGRA levels are supported.
func DecodeRGBA(l ResolvedLevel, opts *FallbackOptions) (*image.NRGBA, error) {
	format := bcnFormat(l.Format)
	if format == bcn.FormatUnknown {
		return nil, fmt.Errorf("%w: no CPU decoder for %s", ErrUnsupportedPixelFormat, l.Format.VkFormat)
	}

	size := l.Format.LevelSize(l.Width, l.Height, 1)
	if len(l.Data) < size {
		return nil, fmt.Errorf("%w: level %d needs %d bytes, have %d", ErrPayloadTooShort, l.Level, size, len(l.Data))
	}

	var decOpts *bcn.DecodeOptions
	if opts != nil {
		decOpts = opts.DecodeOptions
	}

	var img image.Image
	img, err := bcn.DecodeImageWithOptions(l.Data[:size], l.Width, l.Height, format, decOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: level %d: %v", ErrDecodeImage, l.Level, err)
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	out := image.NewNRGBA(img.Bounds())
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}

	return out, nil
}
