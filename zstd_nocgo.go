//go:build !cgo

package ktx2

import (
	"github.com/klauspost/compress/zstd"
)

// zstdCodec is the pure-Go codec used when cgo is disabled.
type zstdCodec struct {
	decoder *zstd.Decoder
	encoder *zstd.Encoder
}

// newZstdCodec returns a codec compressing at the zstd-equivalent level (0 selects the default).
func newZstdCodec(level int) (*zstdCodec, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}

	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		decoder.Close()
		return nil, err
	}

	return &zstdCodec{decoder: decoder, encoder: encoder}, nil
}

// Decompress implements Decompressor.
func (c *zstdCodec) Decompress(src []byte) ([]byte, error) {
	return c.decoder.DecodeAll(src, nil)
}

// Compress encodes src as a single Zstd frame.
func (c *zstdCodec) Compress(src []byte) ([]byte, error) {
	return c.encoder.EncodeAll(src, nil), nil
}
