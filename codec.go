package ktx2

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Decompressor decodes one Zstd-supercompressed level. Implementations must be
// safe for concurrent use.
type Decompressor interface {
	Decompress(src []byte) ([]byte, error)
}

// DecompressorFunc adapts a function to Decompressor.
type DecompressorFunc func(src []byte) ([]byte, error)

// Decompress implements Decompressor.
func (f DecompressorFunc) Decompress(src []byte) ([]byte, error) {
	return f(src)
}

// CodecOptions configures a CodecService.
type CodecOptions struct {
	// NewDecompressor builds the Zstd decompressor. Nil uses the built-in codec.
	NewDecompressor func() (Decompressor, error)
	// NewTranscoder builds the Basis transcoder. Nil leaves BasisLZ and
	// undefined-format containers unresolvable.
	NewTranscoder func() (Transcoder, error)
}

// CodecService hands out the external decompressor and transcoder.
// Each is constructed at most once, on first use, and then shared.
type CodecService struct {
	decompressor func() (Decompressor, error)
	transcoder   func() (Transcoder, error)
}

// NewCodecService creates a service. Nil opts uses defaults.
func NewCodecService(opts *CodecOptions) *CodecService {
	var o CodecOptions
	if opts != nil {
		o = *opts
	}
	if o.NewDecompressor == nil {
		o.NewDecompressor = func() (Decompressor, error) { return newZstdCodec(0) }
	}
	if o.NewTranscoder == nil {
		o.NewTranscoder = func() (Transcoder, error) { return nil, ErrTranscoderUnavailable }
	}

	return &CodecService{
		decompressor: sync.OnceValues(o.NewDecompressor),
		transcoder:   sync.OnceValues(o.NewTranscoder),
	}
}

// DefaultCodecService returns the shared service with built-in codecs and no transcoder.
var DefaultCodecService = sync.OnceValue(func() *CodecService {
	return NewCodecService(nil)
})

// Decompressor returns the shared decompressor.
func (s *CodecService) Decompressor(ctx context.Context) (Decompressor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := s.decompressor()
	if err != nil {
		if errors.Is(err, ErrDecompressorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecompressorUnavailable, err)
	}
	if d == nil {
		return nil, ErrDecompressorUnavailable
	}

	return d, nil
}

// Transcoder returns the shared transcoder.
func (s *CodecService) Transcoder(ctx context.Context) (Transcoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := s.transcoder()
	if err != nil {
		if errors.Is(err, ErrTranscoderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTranscoderUnavailable, err)
	}
	if t == nil {
		return nil, ErrTranscoderUnavailable
	}

	return t, nil
}
