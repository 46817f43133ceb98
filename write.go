package ktx2

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/woozymasta/bcn"
)

// WriterName is stored under KTXwriter unless the caller sets it.
const WriterName = "github.com/woozymasta/ktx2"

// WriteOptions configures container writing. Nil uses defaults.
type WriteOptions struct {
	// Scheme is SchemeNone (default) or SchemeZstd.
	Scheme Scheme
	// ZstdLevel is the Zstd level (0 = codec default).
	ZstdLevel int
	// Layers and Faces describe array and cube assets (0 = non-array, 1 face).
	Layers int
	Faces  int
	// Metadata is written as key/value data.
	Metadata map[string]string

	// MaxLevels limits the mip chain built by EncodeImage (0 = full chain).
	MaxLevels int
	// EncodeOptions are passed to the BCn encoder by EncodeImage.
	EncodeOptions *bcn.EncodeOptions
}

// Encode builds a container from level payloads ordered from largest to smallest.
// Each payload must hold layers x faces tightly packed images of its level size.
func Encode(format VkFormat, width, height int, levels [][]byte, opts *WriteOptions) ([]byte, error) {
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.Scheme != SchemeNone && o.Scheme != SchemeZstd {
		return nil, fmt.Errorf("%w: writer supports None and Zstd, got %s", ErrUnsupportedScheme, o.Scheme)
	}
	if len(levels) == 0 {
		return nil, ErrEmptyLevels
	}
	desc, err := resolveFormat(format)
	if err != nil {
		return nil, err
	}
	if desc.Resolution == ResolutionTranscode {
		return nil, fmt.Errorf("%w: cannot write vkFormat=0 payloads", ErrUnsupportedPixelFormat)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: width=%d height=%d", ErrInvalidDimensions, width, height)
	}
	if o.Faces != 0 && o.Faces != 1 && o.Faces != 6 {
		return nil, fmt.Errorf("%w: faceCount=%d", ErrInvalidDimensions, o.Faces)
	}
	if chain := maxLevelCount(width, height, 1); len(levels) > chain {
		return nil, fmt.Errorf("%w: %d levels for %dx%d, full chain is %d", ErrInvalidDimensions, len(levels), width, height, chain)
	}

	images := max(o.Layers, 1) * max(o.Faces, 1)
	for i, lvl := range levels {
		want := desc.LevelSize(mipDimension(width, i), mipDimension(height, i), images)
		if len(lvl) != want {
			return nil, fmt.Errorf("%w: level %d: expected %d, got %d", ErrLevelSizeMismatch, i, want, len(lvl))
		}
	}

	payloads := levels
	if o.Scheme == SchemeZstd {
		codec, err := newZstdCodec(o.ZstdLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecompressorUnavailable, err)
		}
		payloads = make([][]byte, len(levels))
		for i, lvl := range levels {
			if payloads[i], err = codec.Compress(lvl); err != nil {
				return nil, fmt.Errorf("zstd level %d: %w", i, err)
			}
		}
	}

	h := Header{
		Format:      format,
		TypeSize:    typeSizeFor(desc),
		PixelWidth:  uint32(width),
		PixelHeight: uint32(height),
		LayerCount:  uint32(max(o.Layers, 0)),
		FaceCount:   uint32(max(o.Faces, 1)),
		LevelCount:  uint32(len(levels)),
		Scheme:      o.Scheme,
	}

	metadata := map[string]string{KeyWriter: WriterName}
	for k, v := range o.Metadata {
		metadata[k] = v
	}

	dfd := EncodeDFD(descriptorFor(desc))
	kvd := EncodeKVD(metadata)

	// Identifier, header, index, level index, DFD, KVD, then levels smallest first.
	levelIndexSize := len(levels) * LevelIndexEntrySize
	dfdOffset := alignUp(FixedHeaderSize+levelIndexSize, 4)
	kvdOffset := dfdOffset + len(dfd)
	end := kvdOffset + len(kvd)

	align := 1
	if o.Scheme == SchemeNone {
		align = lcm(desc.BytesPerBlock, 4)
	}
	offsets := make([]int, len(payloads))
	for i := len(payloads) - 1; i >= 0; i-- {
		end = alignUp(end, align)
		offsets[i] = end
		end += len(payloads[i])
	}

	idx := Index{}
	if idx.DFDByteOffset, err = u32FromInt(dfdOffset); err != nil {
		return nil, err
	}
	if idx.DFDByteLength, err = u32FromInt(len(dfd)); err != nil {
		return nil, err
	}
	if idx.KVDByteOffset, err = u32FromInt(kvdOffset); err != nil {
		return nil, err
	}
	if idx.KVDByteLength, err = u32FromInt(len(kvd)); err != nil {
		return nil, err
	}

	out := make([]byte, end)
	copy(out, Identifier[:])
	h.EncodeTo(out[IdentifierSize:])
	idx.EncodeTo(out[IdentifierSize+HeaderSize:])
	for i, p := range payloads {
		e := LevelIndexEntry{
			ByteOffset:             uint64(offsets[i]),
			ByteLength:             uint64(len(p)),
			UncompressedByteLength: uint64(len(levels[i])),
		}
		e.encodeTo(out[FixedHeaderSize+i*LevelIndexEntrySize:])
		copy(out[offsets[i]:], p)
	}
	copy(out[dfdOffset:], dfd)
	copy(out[kvdOffset:], kvd)

	return out, nil
}

// WriteFile encodes a container and writes it to path.
func WriteFile(path string, format VkFormat, width, height int, levels [][]byte, opts *WriteOptions) error {
	data, err := Encode(format, width, height, levels, opts)
	if err != nil {
		return err
	}

	return writeBytes(path, data)
}

// EncodeImage builds a mip chain from img with the BCn encoder and encodes it.
// Supported formats are those DecodeRGBA handles.
func EncodeImage(img image.Image, format VkFormat, opts *WriteOptions) ([]byte, error) {
	desc, err := resolveFormat(format)
	if err != nil {
		return nil, err
	}
	bf := bcnFormat(desc)
	if bf == bcn.FormatUnknown {
		return nil, fmt.Errorf("%w: no encoder for %s", ErrUnsupportedPixelFormat, format)
	}

	var encOpts *bcn.EncodeOptions
	maxLevels := 0
	if opts != nil {
		encOpts = opts.EncodeOptions
		maxLevels = opts.MaxLevels
	}

	bounds := img.Bounds()
	mips := bcn.GenerateMipmaps(img, false)
	count := maxLevelCount(bounds.Dx(), bounds.Dy(), 1)
	if maxLevels > 0 {
		count = min(count, maxLevels)
	}
	if len(mips) > count {
		mips = mips[:count]
	}

	levels := make([][]byte, len(mips))
	for i, mip := range mips {
		data, _, _, err := bcn.EncodeImageWithOptions(mip, bf, encOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: level %d: %v", ErrEncodeImage, i, err)
		}
		levels[i] = data
	}

	return Encode(format, bounds.Dx(), bounds.Dy(), levels, opts)
}

// WriteImage encodes img with EncodeImage and writes it to path.
func WriteImage(img image.Image, path string, format VkFormat, opts *WriteOptions) error {
	data, err := EncodeImage(img, format, opts)
	if err != nil {
		return err
	}

	return writeBytes(path, data)
}

func writeBytes(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %q: %v", ErrWriteFile, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrWriteFile, path, err)
	}

	return nil
}

// descriptorFor builds the basic descriptor block of a mapped format.
func descriptorFor(f FormatDescriptor) DataFormatDescriptor {
	transfer := TransferLinear
	if strings.Contains(f.VkFormat.String(), "SRGB") {
		transfer = TransferSRGB
	}

	return DataFormatDescriptor{
		Version:             2,
		ColorModel:          colorModelFor(f),
		ColorPrimaries:      1, // BT.709
		TransferFunction:    transfer,
		TexelBlockDimension: [4]uint8{uint8(f.BlockWidth), uint8(f.BlockHeight), 1, 1},
		BytesPlane:          [8]uint8{uint8(f.BytesPerBlock)},
	}
}

// typeSizeFor returns the header typeSize: 1 for block formats, the component size otherwise.
func typeSizeFor(f FormatDescriptor) uint32 {
	if f.Compressed() {
		return 1
	}
	switch f.VkFormat {
	case 70, 76, 77, 83, 91, 97:
		return 2
	case 64, 100, 103, 109, 122, 123:
		return 4
	default:
		return 1
	}
}

func lcm(a, b int) int {
	x, y := a, b
	for y != 0 {
		x, y = y, x%y
	}

	return a / x * b
}
