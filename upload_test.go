package ktx2

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestPlanUploadBlockRounding(t *testing.T) {
	t.Parallel()

	bc7, _ := LookupFormat(VkFormatBC7Unorm)
	bc1, _ := LookupFormat(VkFormatBC1RGBUnorm)
	astc, _ := LookupFormat(179) // 10x10

	tests := []struct {
		name         string
		format       FormatDescriptor
		w, h         int
		extentW      uint32
		extentH      uint32
		blocksPerRow int
		rows         uint32
	}{
		{name: "bc7-10x10", format: bc7, w: 10, h: 10, extentW: 12, extentH: 12, blocksPerRow: 3, rows: 3},
		{name: "bc7-5x5", format: bc7, w: 5, h: 5, extentW: 8, extentH: 8, blocksPerRow: 2, rows: 2},
		{name: "bc7-1x1", format: bc7, w: 1, h: 1, extentW: 4, extentH: 4, blocksPerRow: 1, rows: 1},
		{name: "bc1-7x3", format: bc1, w: 7, h: 3, extentW: 8, extentH: 4, blocksPerRow: 2, rows: 1},
		{name: "astc10-25x11", format: astc, w: 25, h: 11, extentW: 30, extentH: 20, blocksPerRow: 3, rows: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := patternBytes(tc.format.LevelSize(tc.w, tc.h, 1))
			plan, err := PlanUpload(data, tc.w, tc.h, tc.format)
			if err != nil {
				t.Fatalf("PlanUpload: %v", err)
			}
			if plan.Extent.Width != tc.extentW || plan.Extent.Height != tc.extentH || plan.Extent.DepthOrArrayLayers != 1 {
				t.Fatalf("extent %+v, want %dx%dx1", plan.Extent, tc.extentW, tc.extentH)
			}
			if plan.BlocksPerRow != tc.blocksPerRow || plan.RowsPerImage != tc.rows {
				t.Fatalf("blocksPerRow=%d rows=%d, want %d %d", plan.BlocksPerRow, plan.RowsPerImage, tc.blocksPerRow, tc.rows)
			}
			if plan.BytesPerRow != CopyPitchAlignment {
				t.Fatalf("BytesPerRow = %d, want %d", plan.BytesPerRow, CopyPitchAlignment)
			}
			if !plan.Repacked || len(plan.Data) != int(plan.BytesPerRow)*int(plan.RowsPerImage) {
				t.Fatalf("repacked=%t len=%d", plan.Repacked, len(plan.Data))
			}
		})
	}
}

func TestPlanUploadAlignedIsZeroCopy(t *testing.T) {
	t.Parallel()

	rgba, _ := LookupFormat(VkFormatR8G8B8A8Unorm)
	bc7, _ := LookupFormat(VkFormatBC7Unorm)

	tests := []struct {
		name   string
		format FormatDescriptor
		w, h   int
	}{
		{name: "rgba-64", format: rgba, w: 64, h: 3},
		{name: "rgba-128", format: rgba, w: 128, h: 1},
		{name: "bc7-64", format: bc7, w: 64, h: 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := patternBytes(tc.format.LevelSize(tc.w, tc.h, 1))
			plan, err := PlanUpload(data, tc.w, tc.h, tc.format)
			if err != nil {
				t.Fatalf("PlanUpload: %v", err)
			}
			if plan.Repacked || &plan.Data[0] != &data[0] {
				t.Fatalf("aligned rows must be passed through without copying")
			}
		})
	}
}

func TestPlanUploadRepackLayout(t *testing.T) {
	t.Parallel()

	bc7, _ := LookupFormat(VkFormatBC7Unorm)
	const w, h = 10, 10
	data := patternBytes(bc7.LevelSize(w, h, 1))
	orig := bytes.Clone(data)

	plan, err := PlanUpload(data, w, h, bc7)
	if err != nil {
		t.Fatalf("PlanUpload: %v", err)
	}
	if !bytes.Equal(data, orig) {
		t.Fatalf("input was modified")
	}

	stride := 3 * 16
	pitch := int(plan.BytesPerRow)
	for row := range 3 {
		got := plan.Data[row*pitch : (row+1)*pitch]
		if !bytes.Equal(got[:stride], data[row*stride:(row+1)*stride]) {
			t.Fatalf("row %d: block bytes differ", row)
		}
		if !bytes.Equal(got[stride:], make([]byte, pitch-stride)) {
			t.Fatalf("row %d: padding not zeroed", row)
		}
	}
}

func TestPlanUploadImages(t *testing.T) {
	t.Parallel()

	rgba, _ := LookupFormat(VkFormatR8G8B8A8Unorm)
	const w, h, images = 3, 2, 6
	data := patternBytes(rgba.LevelSize(w, h, images))

	plan, err := PlanUploadImages(data, w, h, images, rgba)
	if err != nil {
		t.Fatalf("PlanUploadImages: %v", err)
	}
	if plan.Extent.DepthOrArrayLayers != images || plan.Images != images || plan.RowsPerImage != h {
		t.Fatalf("plan %+v", plan)
	}
	if len(plan.Data) != CopyPitchAlignment*h*images {
		t.Fatalf("len=%d, want %d", len(plan.Data), CopyPitchAlignment*h*images)
	}

	// First row of the last image.
	last := (images - 1) * h
	if !bytes.Equal(plan.Data[last*CopyPitchAlignment:last*CopyPitchAlignment+w*4], data[last*w*4:(last+1)*w*4]) {
		t.Fatalf("last image row misplaced")
	}
}

func TestPlanUploadPitchAlwaysAligned(t *testing.T) {
	t.Parallel()

	formats := []VkFormat{VkFormatR8G8B8A8Unorm, VkFormatBC1RGBUnorm, VkFormatBC7Unorm, 9, 97, 109, 165, 184}
	for _, id := range formats {
		f, ok := LookupFormat(id)
		if !ok {
			t.Fatalf("LookupFormat(%d) not found", id)
		}
		for w := 1; w <= 300; w += 7 {
			data := make([]byte, f.LevelSize(w, 2, 1))
			plan, err := PlanUpload(data, w, 2, f)
			if err != nil {
				t.Fatalf("%s w=%d: %v", f.Name(), w, err)
			}
			if plan.BytesPerRow%CopyPitchAlignment != 0 {
				t.Fatalf("%s w=%d: BytesPerRow=%d", f.Name(), w, plan.BytesPerRow)
			}
			if int(plan.BytesPerRow) < plan.BlocksPerRow*f.BytesPerBlock {
				t.Fatalf("%s w=%d: pitch shorter than a row", f.Name(), w)
			}
		}
	}
}

func TestPlanUploadErrors(t *testing.T) {
	t.Parallel()

	bc7, _ := LookupFormat(VkFormatBC7Unorm)
	undefined, _ := LookupFormat(VkFormatUndefined)

	tests := []struct {
		name    string
		data    []byte
		w, h    int
		images  int // 0 means 1
		format  FormatDescriptor
		wantErr error
	}{
		{name: "short", data: make([]byte, 8*16-1), w: 10, h: 10, format: bc7, wantErr: ErrPayloadTooShort},
		{name: "zero-width", data: make([]byte, 16), w: 0, h: 4, format: bc7, wantErr: ErrInvalidDimensions},
		{name: "undefined", data: make([]byte, 16), w: 4, h: 4, format: undefined, wantErr: ErrUnsupportedPixelFormat},
		{name: "overflow", data: nil, w: 1 << 40, h: 4, format: bc7, wantErr: ErrSizeOverflow},
		{name: "image-count-overflow", data: nil, w: 10, h: 4, images: 1 << 60, format: bc7, wantErr: ErrSizeOverflow},
		{name: "row-count-overflow", data: nil, w: 10, h: 1 << 33, images: 1 << 31, format: bc7, wantErr: ErrSizeOverflow},
		{name: "many-images-short", data: make([]byte, 48), w: 10, h: 4, images: 1 << 31, format: bc7, wantErr: ErrPayloadTooShort},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := PlanUploadImages(tc.data, tc.w, tc.h, max(tc.images, 1), tc.format); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPlanLevelsFromResolve(t *testing.T) {
	t.Parallel()

	levels := bc7Levels(40, 24)
	c := mustParse(t, mustEncode(t, VkFormatBC7Unorm, 40, 24, levels, nil))
	resolved, err := Resolve(context.Background(), c, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	plans, err := PlanLevels(resolved)
	if err != nil {
		t.Fatalf("PlanLevels: %v", err)
	}
	if len(plans) != len(levels) {
		t.Fatalf("got %d plans, want %d", len(plans), len(levels))
	}
	if plans[0].Extent.Width != 40 || plans[0].Extent.Height != 24 || plans[0].BlocksPerRow != 10 {
		t.Fatalf("level 0 plan %+v", plans[0])
	}
	// Level 3 is 5x3, rounded to 8x4.
	if plans[3].Extent.Width != 8 || plans[3].Extent.Height != 4 {
		t.Fatalf("level 3 extent %+v", plans[3].Extent)
	}

	resolved[2].Data = resolved[2].Data[:1]
	plans, err = PlanLevels(resolved)
	if !errors.Is(err, ErrPayloadTooShort) || len(plans) != 2 {
		t.Fatalf("plans=%d err=%v", len(plans), err)
	}
}

func TestPlanHugeImageCountFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		layers  uint32
		faces   uint32
		wantErr error // from Parse; nil means Plan must fail instead
	}{
		{name: "bogus-faces", layers: 1 << 30, faces: 1 << 30, wantErr: ErrInvalidDimensions},
		{name: "cube-array-overflow", layers: 1 << 30, faces: 6, wantErr: ErrSizeOverflow},
		{name: "large-cube-array", layers: 1 << 20, faces: 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := rawContainer(t, Header{
				Format:      VkFormatBC7Unorm,
				PixelWidth:  10,
				PixelHeight: 4,
				LayerCount:  tc.layers,
				FaceCount:   tc.faces,
				LevelCount:  1,
			}, nil, nil, nil, rawLevel{})

			c, err := Parse(data)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Parse: expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			levels, err := Resolve(context.Background(), c, nil)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if levels[0].Images != int(tc.layers*tc.faces) {
				t.Fatalf("images = %d", levels[0].Images)
			}
			if _, err := levels[0].Plan(); !errors.Is(err, ErrPayloadTooShort) {
				t.Fatalf("Plan: expected ErrPayloadTooShort, got %v", err)
			}
		})
	}
}

func TestPlanSingleLevelBC7Container(t *testing.T) {
	t.Parallel()

	bc7, _ := LookupFormat(VkFormatBC7Unorm)
	payload := patternBytes(bc7.LevelSize(10, 10, 1))
	c := mustParse(t, mustEncode(t, VkFormatBC7Unorm, 10, 10, [][]byte{payload}, nil))

	if c.Header.Format != 145 || c.Header.Scheme != SchemeNone || len(c.Levels) != 1 {
		t.Fatalf("format=%d scheme=%s levels=%d", c.Header.Format, c.Header.Scheme, len(c.Levels))
	}
	if e := c.Levels[0]; e.Width != 10 || e.Height != 10 {
		t.Fatalf("level 0 is %dx%d", e.Width, e.Height)
	}

	levels, err := Resolve(context.Background(), c, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(levels) != 1 || levels[0].Width != 10 || levels[0].Height != 10 {
		t.Fatalf("resolved %d levels", len(levels))
	}

	plan, err := levels[0].Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Extent.Width != 12 || plan.Extent.Height != 12 || plan.BlocksPerRow != 3 || plan.BytesPerRow != 256 {
		t.Fatalf("plan extent=%+v blocksPerRow=%d bytesPerRow=%d", plan.Extent, plan.BlocksPerRow, plan.BytesPerRow)
	}
	if !bytes.Equal(plan.Data[:3*16], payload[:3*16]) || !bytes.Equal(plan.Data[256:256+3*16], payload[3*16:6*16]) {
		t.Fatalf("rows not repacked to 256-byte pitch")
	}
}
