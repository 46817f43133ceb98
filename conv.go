// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ktx2

package ktx2

const (
	maxInt    = int(^uint(0) >> 1)
	maxUint32 = uint64(^uint32(0))
)

// intFromU64 converts a uint64 file field to an int.
func intFromU64(n uint64) (int, error) {
	if n > uint64(maxInt) {
		return 0, ErrSizeOverflow
	}

	return int(n), nil
}

// u32FromInt converts an int to a uint32.
func u32FromInt(n int) (uint32, error) {
	if n < 0 || uint64(n) > maxUint32 {
		return 0, ErrSizeOverflow
	}

	// #nosec G115 -- bounds checked above.
	return uint32(n), nil
}

// regionEnd returns offset+length as an int, failing on overflow.
func regionEnd(offset, length uint64) (int, error) {
	end := offset + length
	if end < offset {
		return 0, ErrSizeOverflow
	}

	return intFromU64(end)
}

// alignUp rounds n up to the next multiple of align (align > 0).
func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + align - r
	}

	return n
}

// ceilDiv divides rounding up (d > 0).
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
