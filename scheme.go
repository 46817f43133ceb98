package ktx2

import "fmt"

// Scheme is the supercompression scheme declared in the header.
type Scheme uint32

const (
	// SchemeNone stores level payloads as-is.
	SchemeNone Scheme = 0
	// SchemeBasisLZ marks ETC1S payloads with BasisLZ global data; resolved by a transcoder.
	SchemeBasisLZ Scheme = 1
	// SchemeZstd compresses each level with Zstandard.
	SchemeZstd Scheme = 2
	// SchemeZlib compresses each level with zlib. Not resolved by this package.
	SchemeZlib Scheme = 3
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "None"
	case SchemeBasisLZ:
		return "BasisLZ"
	case SchemeZstd:
		return "Zstd"
	case SchemeZlib:
		return "Zlib"
	default:
		return fmt.Sprintf("Scheme(%d)", uint32(s))
	}
}

// Supported reports whether the dispatcher can resolve the scheme.
func (s Scheme) Supported() bool {
	switch s {
	case SchemeNone, SchemeBasisLZ, SchemeZstd:
		return true
	default:
		return false
	}
}

// checkScheme returns ErrUnsupportedScheme for anything but None, BasisLZ and Zstd.
func checkScheme(s Scheme) error {
	if s.Supported() {
		return nil
	}

	return fmt.Errorf("%w: supercompressionScheme=%d (%s)", ErrUnsupportedScheme, uint32(s), s)
}
