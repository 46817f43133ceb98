package ktx2

import "errors"

var (
	// ErrInvalidContainer is wrapped by every container-structure error.
	ErrInvalidContainer = errors.New("invalid KTX2 container")
	// ErrInvalidIdentifier indicates the 12-byte file identifier does not match.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrTruncatedHeader indicates the buffer ends before the fixed header.
	ErrTruncatedHeader = errors.New("truncated header")
	// ErrTruncatedIndex indicates the index, level index or an indexed region lies outside the buffer.
	ErrTruncatedIndex = errors.New("truncated index")
	// ErrInvalidDimensions indicates a zero or inconsistent pixel size.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrInvalidDescriptor indicates a data format descriptor too short to decode.
	ErrInvalidDescriptor = errors.New("invalid data format descriptor")
	// ErrUnsupportedScheme indicates a supercompression scheme this package does not resolve.
	ErrUnsupportedScheme = errors.New("unsupported supercompression scheme")
	// ErrUnsupportedPixelFormat indicates a format id outside the mapping table.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	// ErrDecodeFailure indicates an external decompressor or transcoder failed.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrDecompressedSizeMismatch is a non-fatal warning: decompressed length differs from the declared one.
	ErrDecompressedSizeMismatch = errors.New("decompressed size mismatch")
	// ErrLevelCountMismatch is a non-fatal warning: the transcoder reports fewer levels than declared.
	ErrLevelCountMismatch = errors.New("level count mismatch")
	// ErrPayloadTooShort indicates a level payload is smaller than its layout requires.
	ErrPayloadTooShort = errors.New("payload too short")
	// ErrSizeOverflow indicates a size or dimension exceeds supported limits.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrDecompressorUnavailable indicates no Zstd decompressor is configured.
	ErrDecompressorUnavailable = errors.New("decompressor unavailable")
	// ErrTranscoderUnavailable indicates no transcoder is configured.
	ErrTranscoderUnavailable = errors.New("transcoder unavailable")
	// ErrInvalidTranscoderHandle indicates a transcoder handle with zero or two API variants set.
	ErrInvalidTranscoderHandle = errors.New("invalid transcoder handle")
	// ErrEmptyLevels indicates the writer received no level payloads.
	ErrEmptyLevels = errors.New("empty levels")
	// ErrLevelSizeMismatch indicates a writer level payload has an unexpected size.
	ErrLevelSizeMismatch = errors.New("level size mismatch")
	// ErrCacheEntryCorrupt indicates a cached level failed to decompress.
	ErrCacheEntryCorrupt = errors.New("cache entry corrupt")
	// ErrOpenFile indicates a container file open or read failed.
	ErrOpenFile = errors.New("open file failed")
	// ErrCreateFile indicates a container file creation failed.
	ErrCreateFile = errors.New("create file failed")
	// ErrWriteFile indicates writing container bytes failed.
	ErrWriteFile = errors.New("write file failed")
	// ErrEncodeImage indicates BCn encoding of an image level failed.
	ErrEncodeImage = errors.New("encode image failed")
	// ErrDecodeImage indicates CPU fallback decoding failed.
	ErrDecodeImage = errors.New("decode image failed")
)
