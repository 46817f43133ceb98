package ktx2

import (
	"encoding/binary"
	"testing"
)

// Absolute offsets of header and index fields.
const (
	offFormat     = IdentifierSize + 0
	offWidth      = IdentifierSize + 8
	offHeight     = IdentifierSize + 12
	offDepth      = IdentifierSize + 16
	offLayerCount = IdentifierSize + 20
	offFaceCount  = IdentifierSize + 24
	offLevelCount = IdentifierSize + 28
	offScheme     = IdentifierSize + 32
	offDFD        = IdentifierSize + HeaderSize
	offKVD        = offDFD + 8
	offSGD        = offDFD + 16
)

// rawLevel is one level for rawContainer.
type rawLevel struct {
	data         []byte
	uncompressed uint64 // 0 copies len(data)
}

// rawContainer assembles a container without the writer's validation.
// Levels are stored in index order after the optional regions.
func rawContainer(t testing.TB, h Header, dfd, kvd, sgd []byte, levels ...rawLevel) []byte {
	t.Helper()

	if h.LevelCount == 0 && len(levels) > 1 {
		h.LevelCount = uint32(len(levels))
	}
	entries := max(len(levels), 1)

	buf := make([]byte, FixedHeaderSize+entries*LevelIndexEntrySize)
	copy(buf, Identifier[:])
	h.EncodeTo(buf[IdentifierSize:])

	var idx Index
	if len(dfd) > 0 {
		idx.DFDByteOffset = uint32(len(buf))
		idx.DFDByteLength = uint32(len(dfd))
		buf = append(buf, dfd...)
	}
	if len(kvd) > 0 {
		idx.KVDByteOffset = uint32(len(buf))
		idx.KVDByteLength = uint32(len(kvd))
		buf = append(buf, kvd...)
	}
	if len(sgd) > 0 {
		for len(buf)%8 != 0 {
			buf = append(buf, 0)
		}
		idx.SGDByteOffset = uint64(len(buf))
		idx.SGDByteLength = uint64(len(sgd))
		buf = append(buf, sgd...)
	}
	idx.EncodeTo(buf[IdentifierSize+HeaderSize:])

	for i, l := range levels {
		e := LevelIndexEntry{
			ByteOffset:             uint64(len(buf)),
			ByteLength:             uint64(len(l.data)),
			UncompressedByteLength: l.uncompressed,
		}
		if e.UncompressedByteLength == 0 {
			e.UncompressedByteLength = uint64(len(l.data))
		}
		e.encodeTo(buf[FixedHeaderSize+i*LevelIndexEntrySize:])
		buf = append(buf, l.data...)
	}

	return buf
}

// patternBytes returns deterministic non-constant data.
func patternBytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte((i*31 + 7) & 0xff)
	}

	return out
}

// bc7Levels returns tightly packed BC7 payloads for a full mip chain.
func bc7Levels(width, height int) [][]byte {
	d, _ := LookupFormat(VkFormatBC7Unorm)
	count := maxLevelCount(width, height, 1)
	levels := make([][]byte, count)
	for i := range levels {
		levels[i] = patternBytes(d.LevelSize(mipDimension(width, i), mipDimension(height, i), 1))
	}

	return levels
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func putU64(buf []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], v)
}

func mustParse(t testing.TB, data []byte) *Container {
	t.Helper()

	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return c
}

func mustEncode(t testing.TB, format VkFormat, width, height int, levels [][]byte, opts *WriteOptions) []byte {
	t.Helper()

	data, err := Encode(format, width, height, levels, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	return data
}
