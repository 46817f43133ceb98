//go:build cgo

package ktx2

import (
	"github.com/DataDog/zstd"
)

// zstdCodec wraps libzstd through cgo.
type zstdCodec struct {
	level int
}

// newZstdCodec returns a codec compressing at level (0 selects the library default).
func newZstdCodec(level int) (*zstdCodec, error) {
	if level <= 0 {
		level = zstd.DefaultCompression
	}

	return &zstdCodec{level: level}, nil
}

// Decompress implements Decompressor.
func (c *zstdCodec) Decompress(src []byte) ([]byte, error) {
	return zstd.Decompress(nil, src)
}

// Compress encodes src as a single Zstd frame.
func (c *zstdCodec) Compress(src []byte) ([]byte, error) {
	return zstd.CompressLevel(nil, src, c.level)
}
