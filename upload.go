package ktx2

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
)

// CopyPitchAlignment is the row pitch alignment of buffer-to-texture copies.
const CopyPitchAlignment = 256

// UploadPlan is a level payload laid out for a buffer-to-texture copy.
type UploadPlan struct {
	// Data is the input itself when rows are already aligned, otherwise a repacked copy.
	Data         []byte
	BytesPerRow  uint32
	RowsPerImage uint32 // block rows per image
	BlocksPerRow int
	// Extent is rounded up to whole blocks; DepthOrArrayLayers is the image count.
	Extent   gputypes.Extent3D
	Images   int
	Repacked bool
}

// PlanUpload lays out one width x height image of format for upload.
func PlanUpload(data []byte, width, height int, format FormatDescriptor) (UploadPlan, error) {
	return PlanUploadImages(data, width, height, 1, format)
}

// PlanUploadImages lays out images consecutive width x height images.
//
// Rows are texel rows for uncompressed formats and block rows otherwise. If the
// tight row stride is already a multiple of CopyPitchAlignment the input is
// returned as is. Otherwise rows are copied into a single new buffer with the
// stride rounded up and the padding zeroed. The input is never modified.
func PlanUploadImages(data []byte, width, height, images int, format FormatDescriptor) (UploadPlan, error) {
	if format.BytesPerBlock <= 0 || format.BlockWidth <= 0 || format.BlockHeight <= 0 {
		return UploadPlan{}, fmt.Errorf("%w: no block layout for vkFormat=%d (%s)", ErrUnsupportedPixelFormat, uint32(format.VkFormat), format.VkFormat)
	}
	if width < 1 || height < 1 || images < 1 {
		return UploadPlan{}, fmt.Errorf("%w: width=%d height=%d images=%d", ErrInvalidDimensions, width, height, images)
	}

	blocksPerRow := ceilDiv(width, format.BlockWidth)
	blockRows := ceilDiv(height, format.BlockHeight)

	if uint64(images) > maxUint32 || uint64(blockRows) > maxUint32 || uint64(blocksPerRow)*uint64(format.BlockWidth) > maxUint32 {
		return UploadPlan{}, fmt.Errorf("%w: %dx%d x%d images", ErrSizeOverflow, width, height, images)
	}

	tight := uint64(blocksPerRow) * uint64(format.BytesPerBlock)
	aligned := (tight + CopyPitchAlignment - 1) &^ (CopyPitchAlignment - 1)
	rowsHi, rows := bits.Mul64(uint64(blockRows), uint64(images))
	sizeHi, size := bits.Mul64(aligned, rows)
	if rowsHi != 0 || sizeHi != 0 || aligned > maxUint32 || size > uint64(maxInt) {
		return UploadPlan{}, fmt.Errorf("%w: bytesPerRow=%d blockRows=%d images=%d", ErrSizeOverflow, aligned, blockRows, images)
	}
	need := tight * rows
	if uint64(len(data)) < need {
		return UploadPlan{}, fmt.Errorf("%w: %dx%d x%d %s needs %d bytes, have %d", ErrPayloadTooShort, width, height, images, format.Name(), need, len(data))
	}

	plan := UploadPlan{
		Data:         data,
		BytesPerRow:  uint32(aligned),
		RowsPerImage: uint32(blockRows),
		BlocksPerRow: blocksPerRow,
		Extent: gputypes.Extent3D{
			Width:              uint32(blocksPerRow * format.BlockWidth),
			Height:             uint32(blockRows * format.BlockHeight),
			DepthOrArrayLayers: uint32(images),
		},
		Images: images,
	}
	if aligned == tight {
		return plan, nil
	}

	stride, pitch := int(tight), int(aligned)
	out := make([]byte, pitch*int(rows))
	for row := range int(rows) {
		copy(out[row*pitch:row*pitch+stride], data[row*stride:(row+1)*stride])
	}
	plan.Data = out
	plan.Repacked = true

	return plan, nil
}

// Plan lays out the resolved level for upload.
func (l ResolvedLevel) Plan() (UploadPlan, error) {
	plan, err := PlanUploadImages(l.Data, l.Width, l.Height, l.Images, l.Format)
	if err != nil {
		return UploadPlan{}, fmt.Errorf("level %d: %w", l.Level, err)
	}

	return plan, nil
}

// PlanLevels plans every level in order. On failure the plans built so far are
// returned with the error.
func PlanLevels(levels []ResolvedLevel) ([]UploadPlan, error) {
	plans := make([]UploadPlan, 0, len(levels))
	for _, l := range levels {
		p, err := l.Plan()
		if err != nil {
			return plans, err
		}
		plans = append(plans, p)
	}

	return plans, nil
}
