package ktx2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Identifier is the 12-byte file identifier every container starts with.
var Identifier = [IdentifierSize]byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

const (
	// IdentifierSize is the identifier length in bytes.
	IdentifierSize = 12
	// HeaderSize is the size of the 9 uint32 header fields.
	HeaderSize = 36
	// IndexSize is the size of the DFD/KVD/SGD index.
	IndexSize = 32
	// FixedHeaderSize is identifier + header + index; the level index starts here.
	FixedHeaderSize = IdentifierSize + HeaderSize + IndexSize
	// LevelIndexEntrySize is the size of one level index record.
	LevelIndexEntrySize = 24
)

// Header holds the fixed header fields.
type Header struct {
	Format      VkFormat // Vulkan format id; 0 means transcode-only
	TypeSize    uint32
	PixelWidth  uint32
	PixelHeight uint32 // 0 for 1D textures
	PixelDepth  uint32 // 0 for non-3D textures
	LayerCount  uint32 // 0 for non-array textures
	FaceCount   uint32 // 1 or 6
	LevelCount  uint32 // 0 means a single stored level
	Scheme      Scheme
}

// Index locates the DFD, KVD and SGD regions.
type Index struct {
	DFDByteOffset uint32
	DFDByteLength uint32
	KVDByteOffset uint32
	KVDByteLength uint32
	SGDByteOffset uint64
	SGDByteLength uint64
}

// LevelIndexEntry locates one mip level and carries its derived extent.
type LevelIndexEntry struct {
	Level                  int
	ByteOffset             uint64
	ByteLength             uint64
	UncompressedByteLength uint64
	Width                  int
	Height                 int
	Depth                  int
}

// Levels returns the number of stored levels (LevelCount with 0 treated as 1).
func (h *Header) Levels() int {
	return int(max(h.LevelCount, 1))
}

// Images returns how many 2D images a level holds at the given depth, or 0
// when layers x faces x depth does not fit in a uint32. ParseHeader rejects
// headers where that happens for the base level.
func (h *Header) Images(depth int) int {
	n, err := h.imageCount(depth)
	if err != nil {
		return 0
	}

	return n
}

func (h *Header) imageCount(depth int) (int, error) {
	hi, n := bits.Mul64(uint64(max(h.LayerCount, 1)), uint64(max(h.FaceCount, 1)))
	if hi != 0 {
		return 0, ErrSizeOverflow
	}
	hi, n = bits.Mul64(n, uint64(max(depth, 1)))
	if hi != 0 || n > maxUint32 {
		return 0, ErrSizeOverflow
	}

	return int(n), nil
}

// EncodeTo writes the header fields; buf must hold at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Format))
	binary.LittleEndian.PutUint32(buf[4:8], h.TypeSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.PixelWidth)
	binary.LittleEndian.PutUint32(buf[12:16], h.PixelHeight)
	binary.LittleEndian.PutUint32(buf[16:20], h.PixelDepth)
	binary.LittleEndian.PutUint32(buf[20:24], h.LayerCount)
	binary.LittleEndian.PutUint32(buf[24:28], h.FaceCount)
	binary.LittleEndian.PutUint32(buf[28:32], h.LevelCount)
	binary.LittleEndian.PutUint32(buf[32:36], uint32(h.Scheme))
}

// DecodeFrom reads the header fields. Does not validate.
func (h *Header) DecodeFrom(data []byte) {
	h.Format = VkFormat(binary.LittleEndian.Uint32(data[0:4]))
	h.TypeSize = binary.LittleEndian.Uint32(data[4:8])
	h.PixelWidth = binary.LittleEndian.Uint32(data[8:12])
	h.PixelHeight = binary.LittleEndian.Uint32(data[12:16])
	h.PixelDepth = binary.LittleEndian.Uint32(data[16:20])
	h.LayerCount = binary.LittleEndian.Uint32(data[20:24])
	h.FaceCount = binary.LittleEndian.Uint32(data[24:28])
	h.LevelCount = binary.LittleEndian.Uint32(data[28:32])
	h.Scheme = Scheme(binary.LittleEndian.Uint32(data[32:36]))
}

// EncodeTo writes the index; buf must hold at least IndexSize bytes.
func (x *Index) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], x.DFDByteOffset)
	binary.LittleEndian.PutUint32(buf[4:8], x.DFDByteLength)
	binary.LittleEndian.PutUint32(buf[8:12], x.KVDByteOffset)
	binary.LittleEndian.PutUint32(buf[12:16], x.KVDByteLength)
	binary.LittleEndian.PutUint64(buf[16:24], x.SGDByteOffset)
	binary.LittleEndian.PutUint64(buf[24:32], x.SGDByteLength)
}

// DecodeFrom reads the index. Does not validate.
func (x *Index) DecodeFrom(data []byte) {
	x.DFDByteOffset = binary.LittleEndian.Uint32(data[0:4])
	x.DFDByteLength = binary.LittleEndian.Uint32(data[4:8])
	x.KVDByteOffset = binary.LittleEndian.Uint32(data[8:12])
	x.KVDByteLength = binary.LittleEndian.Uint32(data[12:16])
	x.SGDByteOffset = binary.LittleEndian.Uint64(data[16:24])
	x.SGDByteLength = binary.LittleEndian.Uint64(data[24:32])
}

func (l *LevelIndexEntry) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], l.ByteOffset)
	binary.LittleEndian.PutUint64(buf[8:16], l.ByteLength)
	binary.LittleEndian.PutUint64(buf[16:24], l.UncompressedByteLength)
}

// ParseHeader decodes the identifier, header, index and level index.
//
// It validates that every indexed region and every level byte range lies inside
// data. It does not look at format or scheme; Parse does that.
func ParseHeader(data []byte) (Header, Index, []LevelIndexEntry, error) {
	var (
		h   Header
		idx Index
	)

	if len(data) < IdentifierSize {
		return h, idx, nil, containerError(ErrTruncatedHeader, "need %d identifier bytes, have %d", IdentifierSize, len(data))
	}
	if !bytes.Equal(data[:IdentifierSize], Identifier[:]) {
		return h, idx, nil, containerError(ErrInvalidIdentifier, "got % x", data[:IdentifierSize])
	}
	if len(data) < IdentifierSize+HeaderSize {
		return h, idx, nil, containerError(ErrTruncatedHeader, "need %d bytes, have %d", IdentifierSize+HeaderSize, len(data))
	}
	h.DecodeFrom(data[IdentifierSize:])

	if len(data) < FixedHeaderSize {
		return h, idx, nil, containerError(ErrTruncatedIndex, "need %d bytes, have %d", FixedHeaderSize, len(data))
	}
	idx.DecodeFrom(data[IdentifierSize+HeaderSize:])

	if h.PixelWidth == 0 {
		return h, idx, nil, containerError(ErrInvalidDimensions, "pixelWidth=0")
	}
	if h.FaceCount != 0 && h.FaceCount != 1 && h.FaceCount != 6 {
		return h, idx, nil, containerError(ErrInvalidDimensions, "faceCount=%d", h.FaceCount)
	}
	if _, err := h.imageCount(int(h.PixelDepth)); err != nil {
		return h, idx, nil, containerError(ErrSizeOverflow, "layerCount=%d faceCount=%d pixelDepth=%d", h.LayerCount, h.FaceCount, h.PixelDepth)
	}

	count := h.Levels()
	levelIndexEnd := uint64(FixedHeaderSize) + uint64(count)*LevelIndexEntrySize
	if levelIndexEnd > uint64(len(data)) {
		return h, idx, nil, containerError(ErrTruncatedIndex, "level index for %d levels ends at %d, file is %d bytes", count, levelIndexEnd, len(data))
	}

	regions := [...]struct {
		name           string
		offset, length uint64
	}{
		{"dfd", uint64(idx.DFDByteOffset), uint64(idx.DFDByteLength)},
		{"kvd", uint64(idx.KVDByteOffset), uint64(idx.KVDByteLength)},
		{"sgd", idx.SGDByteOffset, idx.SGDByteLength},
	}
	for _, r := range regions {
		if err := checkRegion(r.offset, r.length, len(data)); err != nil {
			return h, idx, nil, containerError(ErrTruncatedIndex, "%sByteOffset=%d %sByteLength=%d, file is %d bytes", r.name, r.offset, r.name, r.length, len(data))
		}
	}

	width := int(h.PixelWidth)
	height := int(h.PixelHeight)
	depth := int(h.PixelDepth)
	levels := make([]LevelIndexEntry, count)
	for i := range levels {
		off := FixedHeaderSize + i*LevelIndexEntrySize
		l := LevelIndexEntry{
			Level:                  i,
			ByteOffset:             binary.LittleEndian.Uint64(data[off : off+8]),
			ByteLength:             binary.LittleEndian.Uint64(data[off+8 : off+16]),
			UncompressedByteLength: binary.LittleEndian.Uint64(data[off+16 : off+24]),
			Width:                  mipDimension(width, i),
			Height:                 mipDimension(height, i),
			Depth:                  mipDimension(depth, i),
		}
		if err := checkRegion(l.ByteOffset, l.ByteLength, len(data)); err != nil {
			return h, idx, nil, containerError(ErrTruncatedIndex, "level %d byteOffset=%d byteLength=%d, file is %d bytes", i, l.ByteOffset, l.ByteLength, len(data))
		}
		levels[i] = l
	}

	return h, idx, levels, nil
}

// Range returns the level's stored byte range as slice bounds.
func (l LevelIndexEntry) Range() (int, int, error) {
	start, err := intFromU64(l.ByteOffset)
	if err != nil {
		return 0, 0, err
	}
	end, err := regionEnd(l.ByteOffset, l.ByteLength)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// checkRegion verifies offset+length fits in size. Empty regions always fit.
func checkRegion(offset, length uint64, size int) error {
	if length == 0 {
		return nil
	}
	end, err := regionEnd(offset, length)
	if err != nil {
		return err
	}
	if end > size {
		return ErrTruncatedIndex
	}

	return nil
}

func containerError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: "+format, append([]any{ErrInvalidContainer, kind}, args...)...)
}
