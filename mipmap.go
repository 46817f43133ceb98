package ktx2

// mipDimension calculates the dimension of a mipmap level.
func mipDimension(base, level int) int {
	result := base >> level
	if result < 1 {
		return 1
	}

	return result
}

// maxLevelCount returns the length of a full mip chain down to 1x1x1.
func maxLevelCount(width, height, depth int) int {
	size := max(width, height, depth)
	count := 1
	for size > 1 {
		size >>= 1
		count++
	}

	return count
}
