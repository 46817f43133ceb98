package ktx2

import (
	"fmt"
)

// TranscodeTarget is the block format a transcoder produces for levels stored
// as ETC1S or UASTC.
type TranscodeTarget uint8

const (
	// TargetRGBA8 is the uncompressed fallback every device can sample.
	TargetRGBA8 TranscodeTarget = iota
	// TargetBC7 is BC7 (4x4, 16 bytes per block).
	TargetBC7
	// TargetBC3 is BC3 (4x4, 16 bytes per block).
	TargetBC3
	// TargetASTC4x4 is ASTC 4x4 (16 bytes per block).
	TargetASTC4x4
	// TargetETC2RGBA is ETC2 RGBA8 (4x4, 16 bytes per block).
	TargetETC2RGBA
)

var targetFormats = [...]struct {
	name         string
	linear, srgb VkFormat
}{
	TargetRGBA8:    {"RGBA8", VkFormatR8G8B8A8Unorm, VkFormatR8G8B8A8Srgb},
	TargetBC7:      {"BC7", VkFormatBC7Unorm, VkFormatBC7Srgb},
	TargetBC3:      {"BC3", VkFormatBC3Unorm, VkFormatBC3Srgb},
	TargetASTC4x4:  {"ASTC4x4", VkFormatASTC4x4Unorm, VkFormatASTC4x4Srgb},
	TargetETC2RGBA: {"ETC2RGBA", VkFormatETC2RGBA8Unorm, VkFormatETC2RGBA8Srgb},
}

// String returns the target name.
func (t TranscodeTarget) String() string {
	if int(t) < len(targetFormats) {
		return targetFormats[t].name
	}

	return fmt.Sprintf("TranscodeTarget(%d)", uint8(t))
}

// VkFormat returns the Vulkan id the target produces.
func (t TranscodeTarget) VkFormat(srgb bool) VkFormat {
	if int(t) >= len(targetFormats) {
		return VkFormatUndefined
	}
	if srgb {
		return targetFormats[t].srgb
	}

	return targetFormats[t].linear
}

// Format returns the mapping table entry for the target.
func (t TranscodeTarget) Format(srgb bool) (FormatDescriptor, error) {
	if int(t) >= len(targetFormats) {
		return FormatDescriptor{}, fmt.Errorf("%w: transcode target %d", ErrUnsupportedPixelFormat, uint8(t))
	}

	return resolveFormat(t.VkFormat(srgb))
}

// ChooseTranscodeTarget picks the best 4x4 block format the device can sample,
// in order BC7, ASTC 4x4, ETC2 RGBA8, and falls back to RGBA8.
// A nil query yields RGBA8.
func ChooseTranscodeTarget(caps CapabilityQuery) TranscodeTarget {
	if caps == nil {
		return TargetRGBA8
	}

	for _, t := range [...]TranscodeTarget{TargetBC7, TargetASTC4x4, TargetETC2RGBA} {
		f, err := t.Format(false)
		if err == nil && caps.IsFormatSupported(f.GPUFormat) {
			return t
		}
	}

	return TargetRGBA8
}
