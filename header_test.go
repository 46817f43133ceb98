package ktx2

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	levels := bc7Levels(64, 32)
	layered := make([][]byte, len(levels))
	for i, l := range levels {
		layered[i] = bytes.Repeat(l, 3)
	}
	data := mustEncode(t, VkFormatBC7Unorm, 64, 32, layered, &WriteOptions{Layers: 3})

	h, idx, entries, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}

	want := Header{
		Format:      VkFormatBC7Unorm,
		TypeSize:    1,
		PixelWidth:  64,
		PixelHeight: 32,
		LayerCount:  3,
		FaceCount:   1,
		LevelCount:  uint32(len(levels)),
		Scheme:      SchemeNone,
	}
	if h != want {
		t.Fatalf("header mismatch:\n got %+v\nwant %+v", h, want)
	}
	if idx.DFDByteLength == 0 || idx.KVDByteLength == 0 || idx.SGDByteLength != 0 {
		t.Fatalf("unexpected index: %+v", idx)
	}
	if len(entries) != len(levels) {
		t.Fatalf("levels: got %d, want %d", len(entries), len(levels))
	}

	for i, e := range entries {
		if e.Level != i {
			t.Fatalf("entry %d: Level=%d", i, e.Level)
		}
		if e.ByteLength != uint64(len(levels[i])*3) || e.UncompressedByteLength != e.ByteLength {
			t.Fatalf("entry %d: byteLength=%d uncompressed=%d, payload %d", i, e.ByteLength, e.UncompressedByteLength, len(levels[i])*3)
		}
		if e.ByteOffset%16 != 0 {
			t.Fatalf("entry %d: offset %d not aligned to block size", i, e.ByteOffset)
		}
	}
}

func TestHeaderFieldsRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header Header
		sgd    []byte
		levels int
	}{
		{
			name:   "bc7-2d",
			header: Header{Format: VkFormatBC7Unorm, TypeSize: 1, PixelWidth: 64, PixelHeight: 32, FaceCount: 1, LevelCount: 1},
			levels: 1,
		},
		{
			name:   "rgba8-3d-zstd",
			header: Header{Format: VkFormatR8G8B8A8Unorm, TypeSize: 1, PixelWidth: 16, PixelHeight: 8, PixelDepth: 4, FaceCount: 1, LevelCount: 3, Scheme: SchemeZstd},
			levels: 3,
		},
		{
			name:   "cube-array",
			header: Header{Format: VkFormatBC1RGBAUnorm, TypeSize: 1, PixelWidth: 8, PixelHeight: 8, LayerCount: 2, FaceCount: 6, LevelCount: 2},
			levels: 2,
		},
		{
			name:   "level-count-zero",
			header: Header{Format: VkFormatBC3Unorm, TypeSize: 1, PixelWidth: 4, PixelHeight: 4, FaceCount: 1},
			levels: 1,
		},
		{
			name:   "basis-with-sgd",
			header: Header{PixelWidth: 8, PixelHeight: 8, FaceCount: 1, LevelCount: 1, Scheme: SchemeBasisLZ},
			sgd:    []byte{1, 2, 3, 4, 5, 6, 7, 8},
			levels: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf [HeaderSize]byte
			tc.header.EncodeTo(buf[:])
			var decoded Header
			decoded.DecodeFrom(buf[:])
			if decoded != tc.header {
				t.Fatalf("EncodeTo/DecodeFrom:\n got %+v\nwant %+v", decoded, tc.header)
			}

			levels := make([]rawLevel, tc.levels)
			for i := range levels {
				levels[i] = rawLevel{data: patternBytes(4 << i)}
			}
			data := rawContainer(t, tc.header, nil, nil, tc.sgd, levels...)

			h, idx, entries, err := ParseHeader(data)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if h != tc.header {
				t.Fatalf("header mismatch:\n got %+v\nwant %+v", h, tc.header)
			}
			if len(entries) != tc.levels {
				t.Fatalf("entries: got %d, want %d", len(entries), tc.levels)
			}
			for i, e := range entries {
				if e.Width != mipDimension(int(h.PixelWidth), i) || e.Depth != mipDimension(int(h.PixelDepth), i) {
					t.Fatalf("entry %d: %dx%dx%d", i, e.Width, e.Height, e.Depth)
				}
				if e.ByteLength != uint64(4<<i) {
					t.Fatalf("entry %d: byteLength=%d", i, e.ByteLength)
				}
			}

			var ibuf [IndexSize]byte
			idx.EncodeTo(ibuf[:])
			var again Index
			again.DecodeFrom(ibuf[:])
			if again != idx {
				t.Fatalf("index mismatch:\n got %+v\nwant %+v", again, idx)
			}
			if len(tc.sgd) > 0 {
				if idx.SGDByteOffset == 0 || idx.SGDByteOffset%8 != 0 {
					t.Fatalf("sgdByteOffset=%d", idx.SGDByteOffset)
				}
				end := idx.SGDByteOffset + idx.SGDByteLength
				if !bytes.Equal(data[idx.SGDByteOffset:end], tc.sgd) {
					t.Fatalf("sgd region mismatch")
				}
			}
		})
	}
}

func TestParseHeaderMipDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		width, height, depth uint32
		levels               int
	}{
		{name: "square", width: 256, height: 256, levels: 9},
		{name: "wide", width: 300, height: 7, levels: 9},
		{name: "one-dimensional", width: 16, height: 0, levels: 5},
		{name: "volume", width: 8, height: 8, depth: 4, levels: 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw := make([]rawLevel, tc.levels)
			for i := range raw {
				raw[i] = rawLevel{data: []byte{1, 2, 3, 4}}
			}
			data := rawContainer(t, Header{
				Format:      VkFormatR8G8B8A8Unorm,
				PixelWidth:  tc.width,
				PixelHeight: tc.height,
				PixelDepth:  tc.depth,
				FaceCount:   1,
				LevelCount:  uint32(tc.levels),
			}, nil, nil, nil, raw...)

			_, _, entries, err := ParseHeader(data)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			for i, e := range entries {
				wantW := max(1, int(tc.width)>>i)
				wantH := max(1, int(tc.height)>>i)
				wantD := max(1, int(tc.depth)>>i)
				if e.Width != wantW || e.Height != wantH || e.Depth != wantD {
					t.Fatalf("level %d: got %dx%dx%d, want %dx%dx%d", i, e.Width, e.Height, e.Depth, wantW, wantH, wantD)
				}
			}
		})
	}
}

func TestParseHeaderLevelCountZero(t *testing.T) {
	t.Parallel()

	data := rawContainer(t, Header{Format: VkFormatBC7Unorm, PixelWidth: 4, PixelHeight: 4, FaceCount: 1},
		nil, nil, nil, rawLevel{data: make([]byte, 16)})

	h, _, entries, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.LevelCount != 0 || h.Levels() != 1 || len(entries) != 1 {
		t.Fatalf("levelCount=%d Levels()=%d entries=%d", h.LevelCount, h.Levels(), len(entries))
	}
}

func TestParseHeaderIdentifierBytes(t *testing.T) {
	t.Parallel()

	valid := mustEncode(t, VkFormatBC7Unorm, 4, 4, bc7Levels(4, 4)[:1], nil)

	for i := range IdentifierSize {
		data := append([]byte(nil), valid...)
		data[i] ^= 0x01

		_, _, _, err := ParseHeader(data)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Fatalf("byte %d: expected ErrInvalidIdentifier, got %v", i, err)
		}
		if !errors.Is(err, ErrInvalidContainer) {
			t.Fatalf("byte %d: expected ErrInvalidContainer in chain, got %v", i, err)
		}
	}
}

func TestParseHeaderErrors(t *testing.T) {
	t.Parallel()

	valid := mustEncode(t, VkFormatBC7Unorm, 8, 8, bc7Levels(8, 8), nil)

	patch := func(fn func([]byte)) []byte {
		data := append([]byte(nil), valid...)
		fn(data)
		return data
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrTruncatedHeader},
		{name: "short-identifier", data: Identifier[:8], wantErr: ErrTruncatedHeader},
		{name: "identifier-only", data: Identifier[:], wantErr: ErrTruncatedHeader},
		{name: "no-index", data: valid[:IdentifierSize+HeaderSize+4], wantErr: ErrTruncatedIndex},
		{name: "no-level-index", data: valid[:FixedHeaderSize+10], wantErr: ErrTruncatedIndex},
		{name: "zero-width", data: patch(func(b []byte) { putU32(b, offWidth, 0) }), wantErr: ErrInvalidDimensions},
		{name: "level-count-past-end", data: patch(func(b []byte) { putU32(b, offLevelCount, 1<<20) }), wantErr: ErrTruncatedIndex},
		{name: "dfd-past-end", data: patch(func(b []byte) { putU32(b, offDFD, uint32(len(valid))) }), wantErr: ErrTruncatedIndex},
		{name: "kvd-past-end", data: patch(func(b []byte) { putU32(b, offKVD+4, uint32(len(valid))) }), wantErr: ErrTruncatedIndex},
		{name: "sgd-overflow", data: patch(func(b []byte) { putU64(b, offSGD, ^uint64(0)); putU64(b, offSGD+8, 2) }), wantErr: ErrTruncatedIndex},
		{name: "level-past-end", data: patch(func(b []byte) { putU64(b, FixedHeaderSize, uint64(len(valid))) }), wantErr: ErrTruncatedIndex},
		{name: "face-count-3", data: patch(func(b []byte) { putU32(b, offFaceCount, 3) }), wantErr: ErrInvalidDimensions},
		{name: "face-count-huge", data: patch(func(b []byte) { putU32(b, offFaceCount, 1<<30) }), wantErr: ErrInvalidDimensions},
		{name: "cube-array-overflow", data: patch(func(b []byte) { putU32(b, offFaceCount, 6); putU32(b, offLayerCount, 1<<31) }), wantErr: ErrSizeOverflow},
		{name: "depth-overflow", data: patch(func(b []byte) { putU32(b, offLayerCount, 1<<20); putU32(b, offDepth, 1<<20) }), wantErr: ErrSizeOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, _, err := ParseHeader(tc.data)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidContainer) {
				t.Fatalf("expected ErrInvalidContainer in chain, got %v", err)
			}
		})
	}
}

func TestParseHeaderEmptyRegionsIgnoreOffsets(t *testing.T) {
	t.Parallel()

	data := rawContainer(t, Header{Format: VkFormatBC7Unorm, PixelWidth: 4, PixelHeight: 4, FaceCount: 1},
		nil, nil, nil, rawLevel{data: make([]byte, 16)})
	putU32(data, offDFD, 1<<30)
	putU64(data, offSGD, 1<<40)

	if _, _, _, err := ParseHeader(data); err != nil {
		t.Fatalf("zero-length regions must not be bounds-checked: %v", err)
	}
}
