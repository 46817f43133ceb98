package ktx2

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// VkFormat is the Vulkan format numbering used by the container header.
type VkFormat uint32

// Format ids referenced by name in this package.
const (
	VkFormatUndefined      VkFormat = 0
	VkFormatR8G8B8A8Unorm  VkFormat = 37
	VkFormatR8G8B8A8Srgb   VkFormat = 43
	VkFormatB8G8R8A8Unorm  VkFormat = 44
	VkFormatBC1RGBUnorm    VkFormat = 131
	VkFormatBC1RGBAUnorm   VkFormat = 133
	VkFormatBC2Unorm       VkFormat = 135
	VkFormatBC3Unorm       VkFormat = 137
	VkFormatBC3Srgb        VkFormat = 138
	VkFormatBC4Unorm       VkFormat = 139
	VkFormatBC5Unorm       VkFormat = 141
	VkFormatBC7Unorm       VkFormat = 145
	VkFormatBC7Srgb        VkFormat = 146
	VkFormatETC2RGB8Unorm  VkFormat = 147
	VkFormatETC2RGBA8Unorm VkFormat = 151
	VkFormatETC2RGBA8Srgb  VkFormat = 152
	VkFormatASTC4x4Unorm   VkFormat = 157
	VkFormatASTC4x4Srgb    VkFormat = 158
	VkFormatASTC12x12Srgb  VkFormat = 184
	vkFormatBCFirst        VkFormat = 131
	vkFormatMobileFirst    VkFormat = VkFormatETC2RGB8Unorm
)

// Resolution says how a format id turns into an uploadable GPU format.
type Resolution uint8

const (
	// ResolutionNative formats upload directly.
	ResolutionNative Resolution = iota
	// ResolutionTranscode is the undefined format: the real format is known only after transcoding.
	ResolutionTranscode
	// ResolutionCapability formats upload directly only if the device advertises the feature.
	ResolutionCapability
)

// String returns the resolution name.
func (r Resolution) String() string {
	switch r {
	case ResolutionNative:
		return "native"
	case ResolutionTranscode:
		return "transcode"
	case ResolutionCapability:
		return "capability"
	default:
		return fmt.Sprintf("Resolution(%d)", uint8(r))
	}
}

// FormatDescriptor is a Format Mapping Table entry.
type FormatDescriptor struct {
	VkFormat      VkFormat
	GPUFormat     gputypes.TextureFormat
	BlockWidth    int
	BlockHeight   int
	BytesPerBlock int // bytes per texel for uncompressed formats
	Resolution    Resolution
	Feature       gputypes.Feature // device feature required for native upload, 0 if none
}

// Name returns the GPU format name.
func (f FormatDescriptor) Name() string {
	return f.GPUFormat.String()
}

// Compressed reports whether the format stores texel blocks larger than 1x1.
func (f FormatDescriptor) Compressed() bool {
	return f.BlockWidth > 1 || f.BlockHeight > 1
}

// LevelSize returns the tight byte size of images width x height images of this format.
// It returns -1 for the undefined format.
func (f FormatDescriptor) LevelSize(width, height, images int) int {
	if f.BytesPerBlock <= 0 || f.BlockWidth <= 0 || f.BlockHeight <= 0 {
		return -1
	}

	return ceilDiv(width, f.BlockWidth) * ceilDiv(height, f.BlockHeight) * f.BytesPerBlock * max(images, 1)
}

var (
	formatTable        = map[VkFormat]FormatDescriptor{}
	featureByGPUFormat = map[gputypes.TextureFormat]gputypes.Feature{}
	vkFormatNames      = map[VkFormat]string{}
)

func init() {
	formatTable[VkFormatUndefined] = FormatDescriptor{Resolution: ResolutionTranscode}
	vkFormatNames[VkFormatUndefined] = "UNDEFINED"

	plain := []struct {
		id    VkFormat
		name  string
		gpu   gputypes.TextureFormat
		bytes int
	}{
		{9, "R8_UNORM", gputypes.TextureFormatR8Unorm, 1},
		{10, "R8_SNORM", gputypes.TextureFormatR8Snorm, 1},
		{16, "R8G8_UNORM", gputypes.TextureFormatRG8Unorm, 2},
		{17, "R8G8_SNORM", gputypes.TextureFormatRG8Snorm, 2},
		{37, "R8G8B8A8_UNORM", gputypes.TextureFormatRGBA8Unorm, 4},
		{38, "R8G8B8A8_SNORM", gputypes.TextureFormatRGBA8Snorm, 4},
		{43, "R8G8B8A8_SRGB", gputypes.TextureFormatRGBA8UnormSrgb, 4},
		{44, "B8G8R8A8_UNORM", gputypes.TextureFormatBGRA8Unorm, 4},
		{50, "B8G8R8A8_SRGB", gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{64, "A2B10G10R10_UNORM_PACK32", gputypes.TextureFormatRGB10A2Unorm, 4},
		{70, "R16_UNORM", gputypes.TextureFormatR16Unorm, 2},
		{76, "R16_SFLOAT", gputypes.TextureFormatR16Float, 2},
		{77, "R16G16_UNORM", gputypes.TextureFormatRG16Unorm, 4},
		{83, "R16G16_SFLOAT", gputypes.TextureFormatRG16Float, 4},
		{91, "R16G16B16A16_UNORM", gputypes.TextureFormatRGBA16Unorm, 8},
		{97, "R16G16B16A16_SFLOAT", gputypes.TextureFormatRGBA16Float, 8},
		{100, "R32_SFLOAT", gputypes.TextureFormatR32Float, 4},
		{103, "R32G32_SFLOAT", gputypes.TextureFormatRG32Float, 8},
		{109, "R32G32B32A32_SFLOAT", gputypes.TextureFormatRGBA32Float, 16},
		{122, "B10G11R11_UFLOAT_PACK32", gputypes.TextureFormatRG11B10Ufloat, 4},
		{123, "E5B9G9R9_UFLOAT_PACK32", gputypes.TextureFormatRGB9E5Ufloat, 4},
	}
	for _, p := range plain {
		register(p.id, p.name, FormatDescriptor{
			GPUFormat:     p.gpu,
			BlockWidth:    1,
			BlockHeight:   1,
			BytesPerBlock: p.bytes,
			Resolution:    ResolutionNative,
		})
	}

	bc := []struct {
		name  string
		gpu   gputypes.TextureFormat
		bytes int
	}{
		{"BC1_RGB_UNORM_BLOCK", gputypes.TextureFormatBC1RGBAUnorm, 8},
		{"BC1_RGB_SRGB_BLOCK", gputypes.TextureFormatBC1RGBAUnormSrgb, 8},
		{"BC1_RGBA_UNORM_BLOCK", gputypes.TextureFormatBC1RGBAUnorm, 8},
		{"BC1_RGBA_SRGB_BLOCK", gputypes.TextureFormatBC1RGBAUnormSrgb, 8},
		{"BC2_UNORM_BLOCK", gputypes.TextureFormatBC2RGBAUnorm, 16},
		{"BC2_SRGB_BLOCK", gputypes.TextureFormatBC2RGBAUnormSrgb, 16},
		{"BC3_UNORM_BLOCK", gputypes.TextureFormatBC3RGBAUnorm, 16},
		{"BC3_SRGB_BLOCK", gputypes.TextureFormatBC3RGBAUnormSrgb, 16},
		{"BC4_UNORM_BLOCK", gputypes.TextureFormatBC4RUnorm, 8},
		{"BC4_SNORM_BLOCK", gputypes.TextureFormatBC4RSnorm, 8},
		{"BC5_UNORM_BLOCK", gputypes.TextureFormatBC5RGUnorm, 16},
		{"BC5_SNORM_BLOCK", gputypes.TextureFormatBC5RGSnorm, 16},
		{"BC6H_UFLOAT_BLOCK", gputypes.TextureFormatBC6HRGBUfloat, 16},
		{"BC6H_SFLOAT_BLOCK", gputypes.TextureFormatBC6HRGBFloat, 16},
		{"BC7_UNORM_BLOCK", gputypes.TextureFormatBC7RGBAUnorm, 16},
		{"BC7_SRGB_BLOCK", gputypes.TextureFormatBC7RGBAUnormSrgb, 16},
	}
	for i, b := range bc {
		register(vkFormatBCFirst+VkFormat(i), b.name, FormatDescriptor{
			GPUFormat:     b.gpu,
			BlockWidth:    4,
			BlockHeight:   4,
			BytesPerBlock: b.bytes,
			Resolution:    ResolutionNative,
			Feature:       gputypes.FeatureTextureCompressionBC,
		})
	}

	etc := []struct {
		name  string
		gpu   gputypes.TextureFormat
		bytes int
	}{
		{"ETC2_R8G8B8_UNORM_BLOCK", gputypes.TextureFormatETC2RGB8Unorm, 8},
		{"ETC2_R8G8B8_SRGB_BLOCK", gputypes.TextureFormatETC2RGB8UnormSrgb, 8},
		{"ETC2_R8G8B8A1_UNORM_BLOCK", gputypes.TextureFormatETC2RGB8A1Unorm, 8},
		{"ETC2_R8G8B8A1_SRGB_BLOCK", gputypes.TextureFormatETC2RGB8A1UnormSrgb, 8},
		{"ETC2_R8G8B8A8_UNORM_BLOCK", gputypes.TextureFormatETC2RGBA8Unorm, 16},
		{"ETC2_R8G8B8A8_SRGB_BLOCK", gputypes.TextureFormatETC2RGBA8UnormSrgb, 16},
		{"EAC_R11_UNORM_BLOCK", gputypes.TextureFormatEACR11Unorm, 8},
		{"EAC_R11_SNORM_BLOCK", gputypes.TextureFormatEACR11Snorm, 8},
		{"EAC_R11G11_UNORM_BLOCK", gputypes.TextureFormatEACRG11Unorm, 16},
		{"EAC_R11G11_SNORM_BLOCK", gputypes.TextureFormatEACRG11Snorm, 16},
	}
	for i, e := range etc {
		register(vkFormatMobileFirst+VkFormat(i), e.name, FormatDescriptor{
			GPUFormat:     e.gpu,
			BlockWidth:    4,
			BlockHeight:   4,
			BytesPerBlock: e.bytes,
			Resolution:    ResolutionCapability,
			Feature:       gputypes.FeatureTextureCompressionETC2,
		})
	}

	// ASTC ids and gputypes values both alternate UNORM/SRGB in the same block-size order.
	astc := [][2]int{{4, 4}, {5, 4}, {5, 5}, {6, 5}, {6, 6}, {8, 5}, {8, 6}, {8, 8}, {10, 5}, {10, 6}, {10, 8}, {10, 10}, {12, 10}, {12, 12}}
	for i, bs := range astc {
		for j, suffix := range [...]string{"UNORM", "SRGB"} {
			n := 2*i + j
			register(VkFormatASTC4x4Unorm+VkFormat(n), fmt.Sprintf("ASTC_%dx%d_%s_BLOCK", bs[0], bs[1], suffix), FormatDescriptor{
				GPUFormat:     gputypes.TextureFormatASTC4x4Unorm + gputypes.TextureFormat(n),
				BlockWidth:    bs[0],
				BlockHeight:   bs[1],
				BytesPerBlock: 16,
				Resolution:    ResolutionCapability,
				Feature:       gputypes.FeatureTextureCompressionASTC,
			})
		}
	}
}

func register(id VkFormat, name string, d FormatDescriptor) {
	d.VkFormat = id
	formatTable[id] = d
	vkFormatNames[id] = name
	if d.Feature != 0 {
		featureByGPUFormat[d.GPUFormat] = d.Feature
	}
}

// LookupFormat resolves a header format id.
//
// The undefined format (0) is found with ResolutionTranscode and no GPU format.
// ETC2/EAC and ASTC are found with ResolutionCapability; the caller decides
// whether the device supports them. Anything else outside the table is not found.
func LookupFormat(id VkFormat) (FormatDescriptor, bool) {
	d, ok := formatTable[id]
	return d, ok
}

// resolveFormat is LookupFormat returning ErrUnsupportedPixelFormat.
func resolveFormat(id VkFormat) (FormatDescriptor, error) {
	d, ok := LookupFormat(id)
	if !ok {
		return FormatDescriptor{}, fmt.Errorf("%w: vkFormat=%d", ErrUnsupportedPixelFormat, uint32(id))
	}

	return d, nil
}

// String returns the Vulkan format name without the VK_FORMAT_ prefix.
func (f VkFormat) String() string {
	if name, ok := vkFormatNames[f]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint32(f))
}

// CapabilityQuery reports whether the consuming device can sample a GPU format.
type CapabilityQuery interface {
	IsFormatSupported(format gputypes.TextureFormat) bool
}

// FeatureSet answers CapabilityQuery from an adapter's advertised features.
// Formats that need no feature are always supported.
type FeatureSet gputypes.Features

// IsFormatSupported implements CapabilityQuery.
func (s FeatureSet) IsFormatSupported(format gputypes.TextureFormat) bool {
	if format == gputypes.TextureFormatUndefined {
		return false
	}
	feature, ok := featureByGPUFormat[format]
	if !ok {
		return true
	}

	return gputypes.Features(s).Contains(feature)
}

// Supported reports whether the format can be uploaded as-is on a device.
// A nil query is treated as a device without optional texture-compression features.
func (f FormatDescriptor) Supported(caps CapabilityQuery) bool {
	if f.Resolution == ResolutionTranscode {
		return false
	}
	if caps == nil {
		return f.Feature == 0
	}

	return caps.IsFormatSupported(f.GPUFormat)
}
