package ktx2

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
)

// Container is a parsed KTX2 file. It aliases the buffer passed to Parse.
type Container struct {
	Header Header
	Index  Index
	Levels []LevelIndexEntry

	// Format is the mapping table entry for Header.Format.
	// For transcode-only containers it is the undefined entry.
	Format FormatDescriptor

	// DFD is nil when the region is empty or could not be decoded.
	DFD *DataFormatDescriptor
	// KeyValues keeps key/value records in file order.
	KeyValues []KeyValueEntry
	// Metadata holds the same records as text.
	Metadata map[string]string

	data []byte
}

// Parse validates data and decodes the container structure.
//
// Structure errors wrap ErrInvalidContainer. The scheme and, unless the levels
// need a transcoder, the format id are checked here so unsupported assets fail
// before any level is touched. DFD and key/value data are advisory: decode
// failures are logged and leave the fields empty.
func Parse(data []byte) (*Container, error) {
	h, idx, levels, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkScheme(h.Scheme); err != nil {
		return nil, err
	}

	c := &Container{
		Header: h,
		Index:  idx,
		Levels: levels,
		data:   data,
	}

	if c.NeedsTranscode() {
		c.Format, _ = LookupFormat(VkFormatUndefined)
	} else if c.Format, err = resolveFormat(h.Format); err != nil {
		return nil, err
	}

	log := Logger()
	if idx.DFDByteLength > 0 {
		dfd, err := ParseDFD(data, idx.DFDByteOffset, idx.DFDByteLength)
		if err != nil {
			log.Debug("ktx2: skipping data format descriptor", slog.Any("error", err))
		} else {
			c.DFD = &dfd
		}
	}
	if idx.KVDByteLength > 0 {
		entries, err := ParseKeyValueEntries(data, idx.KVDByteOffset, idx.KVDByteLength)
		if err != nil {
			log.Debug("ktx2: skipping key/value data", slog.Any("error", err))
		}
		c.KeyValues = entries
	}
	c.Metadata = make(map[string]string, len(c.KeyValues))
	for _, e := range c.KeyValues {
		c.Metadata[e.Key] = e.String()
	}

	return c, nil
}

// NeedsTranscode reports whether levels must pass through a transcoder:
// the format id is undefined or the scheme is BasisLZ.
func (c *Container) NeedsTranscode() bool {
	return c.Header.Format == VkFormatUndefined || c.Header.Scheme == SchemeBasisLZ
}

// Bytes returns the buffer the container was parsed from.
func (c *Container) Bytes() []byte {
	return c.data
}

// SGD returns the supercompression global data, or nil when absent.
func (c *Container) SGD() []byte {
	if c.Index.SGDByteLength == 0 {
		return nil
	}
	// Bounds were checked by ParseHeader.
	start := int(c.Index.SGDByteOffset)
	return c.data[start : start+int(c.Index.SGDByteLength)]
}

// LevelData returns the stored bytes of level i without copying.
func (c *Container) LevelData(i int) ([]byte, error) {
	if i < 0 || i >= len(c.Levels) {
		return nil, fmt.Errorf("%w: level %d of %d", ErrInvalidDimensions, i, len(c.Levels))
	}
	start, end, err := c.Levels[i].Range()
	if err != nil {
		return nil, fmt.Errorf("%w: level %d: %w", ErrInvalidContainer, i, err)
	}

	return c.data[start:end], nil
}

// Images returns the number of 2D images in level i.
func (c *Container) Images(i int) int {
	if i < 0 || i >= len(c.Levels) {
		return 0
	}

	return c.Header.Images(c.Levels[i].Depth)
}

// BasisEncoding labels the payload encoding from the DFD color model.
// The label never gates transcoding.
func (c *Container) BasisEncoding() BasisEncoding {
	if c.DFD == nil {
		return BasisNone
	}

	return c.DFD.BasisEncoding()
}

// SRGB reports whether the DFD declares an sRGB transfer function.
func (c *Container) SRGB() bool {
	return c.DFD != nil && c.DFD.SRGB()
}

// Extent returns the base level extent, with layers times faces in the depth slot of 2D assets.
func (c *Container) Extent() gputypes.Extent3D {
	h := c.Header
	depth := max(h.PixelDepth, 1)
	if h.PixelDepth == 0 {
		depth = max(h.LayerCount, 1) * max(h.FaceCount, 1)
	}

	return gputypes.Extent3D{
		Width:              h.PixelWidth,
		Height:             max(h.PixelHeight, 1),
		DepthOrArrayLayers: depth,
	}
}

// ReadFile reads and parses a container file.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}

	return Parse(data)
}

// ReadConfig reads container dimensions without loading level data.
func ReadConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, FixedHeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return image.Config{}, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	buf = buf[:n]

	if len(buf) < IdentifierSize+HeaderSize {
		_, _, _, err = ParseHeader(buf)
		return image.Config{}, err
	}
	if [IdentifierSize]byte(buf[:IdentifierSize]) != Identifier {
		return image.Config{}, containerError(ErrInvalidIdentifier, "got % x", buf[:IdentifierSize])
	}

	var h Header
	h.DecodeFrom(buf[IdentifierSize:])
	if h.PixelWidth == 0 {
		return image.Config{}, containerError(ErrInvalidDimensions, "pixelWidth=0")
	}

	return image.Config{
		Width:      int(h.PixelWidth),
		Height:     int(max(h.PixelHeight, 1)),
		ColorModel: color.NRGBAModel,
	}, nil
}
