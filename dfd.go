package ktx2

import (
	"encoding/binary"
	"fmt"
)

// Color models of the basic descriptor block.
const (
	ColorModelUnspecified uint8 = 0
	ColorModelRGBSDA      uint8 = 1
	ColorModelBC1A        uint8 = 128
	ColorModelBC2         uint8 = 129
	ColorModelBC3         uint8 = 130
	ColorModelBC4         uint8 = 131
	ColorModelBC5         uint8 = 132
	ColorModelBC6H        uint8 = 133
	ColorModelBC7         uint8 = 134
	ColorModelETC2        uint8 = 161
	ColorModelASTC        uint8 = 162
	ColorModelETC1S       uint8 = 163
	ColorModelUASTC       uint8 = 166
)

// Transfer functions of the basic descriptor block.
const (
	TransferLinear uint8 = 1
	TransferSRGB   uint8 = 2
)

const (
	dfdBasicBlockHeaderSize = 24
	dfdMinSize              = 4 + dfdBasicBlockHeaderSize
	dfdSampleSize           = 16
)

// DataFormatDescriptor is the decoded basic descriptor block. Advisory only.
type DataFormatDescriptor struct {
	TotalSize           uint32
	VendorID            uint32 // 17 bits
	DescriptorType      uint32 // 15 bits
	Version             uint16
	BlockSize           uint16
	ColorModel          uint8
	ColorPrimaries      uint8
	TransferFunction    uint8
	Flags               uint8
	TexelBlockDimension [4]uint8 // actual dimension, stored value + 1
	BytesPlane          [8]uint8
	Samples             []DFDSample
}

// DFDSample is one sample description of the basic descriptor block.
type DFDSample struct {
	BitOffset      uint16
	BitLength      uint8 // actual length, stored value + 1
	ChannelType    uint8 // channel id in the low nibble, qualifiers in the high one
	SamplePosition [4]uint8
	Lower          uint32
	Upper          uint32
}

// ParseDFD decodes the descriptor region [offset, offset+length) of data.
// Only bounds are validated; field values are reported as found.
func ParseDFD(data []byte, offset, length uint32) (DataFormatDescriptor, error) {
	var d DataFormatDescriptor

	if err := checkRegion(uint64(offset), uint64(length), len(data)); err != nil {
		return d, containerError(ErrTruncatedIndex, "dfdByteOffset=%d dfdByteLength=%d, file is %d bytes", offset, length, len(data))
	}
	if length < dfdMinSize {
		return d, fmt.Errorf("%w: dfdByteLength=%d, need at least %d", ErrInvalidDescriptor, length, dfdMinSize)
	}

	b := data[int(offset) : int(offset)+int(length)]
	d.TotalSize = binary.LittleEndian.Uint32(b[0:4])

	w := binary.LittleEndian.Uint32(b[4:8])
	d.VendorID = w & 0x1FFFF
	d.DescriptorType = w >> 17

	w = binary.LittleEndian.Uint32(b[8:12])
	d.Version = uint16(w)
	d.BlockSize = uint16(w >> 16)

	d.ColorModel = b[12]
	d.ColorPrimaries = b[13]
	d.TransferFunction = b[14]
	d.Flags = b[15]
	for i := range d.TexelBlockDimension {
		d.TexelBlockDimension[i] = b[16+i] + 1
	}
	copy(d.BytesPlane[:], b[20:28])

	// Samples are bounded by both the declared block size and the region.
	end := min(4+int(d.BlockSize), len(b))
	for off := dfdMinSize; off+dfdSampleSize <= end; off += dfdSampleSize {
		s := b[off : off+dfdSampleSize]
		w := binary.LittleEndian.Uint32(s[0:4])
		d.Samples = append(d.Samples, DFDSample{
			BitOffset:      uint16(w),
			BitLength:      uint8(w>>16) + 1,
			ChannelType:    uint8(w >> 24),
			SamplePosition: [4]uint8{s[4], s[5], s[6], s[7]},
			Lower:          binary.LittleEndian.Uint32(s[8:12]),
			Upper:          binary.LittleEndian.Uint32(s[12:16]),
		})
	}

	return d, nil
}

// EncodeDFD builds a basic descriptor region: total size, block header and samples.
func EncodeDFD(d DataFormatDescriptor) []byte {
	blockSize := dfdBasicBlockHeaderSize + len(d.Samples)*dfdSampleSize
	buf := make([]byte, 4+blockSize)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.LittleEndian.PutUint32(buf[4:8], d.VendorID&0x1FFFF|d.DescriptorType<<17)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(d.Version)|uint32(blockSize)<<16)
	buf[12] = d.ColorModel
	buf[13] = d.ColorPrimaries
	buf[14] = d.TransferFunction
	buf[15] = d.Flags
	for i, v := range d.TexelBlockDimension {
		buf[16+i] = max(v, 1) - 1
	}
	copy(buf[20:28], d.BytesPlane[:])

	for i, s := range d.Samples {
		o := dfdMinSize + i*dfdSampleSize
		binary.LittleEndian.PutUint32(buf[o:o+4], uint32(s.BitOffset)|uint32(max(s.BitLength, 1)-1)<<16|uint32(s.ChannelType)<<24)
		copy(buf[o+4:o+8], s.SamplePosition[:])
		binary.LittleEndian.PutUint32(buf[o+8:o+12], s.Lower)
		binary.LittleEndian.PutUint32(buf[o+12:o+16], s.Upper)
	}

	return buf
}

// BasisEncoding labels Basis Universal payloads by DFD color model.
type BasisEncoding uint8

const (
	// BasisNone means the color model names no Basis encoding.
	BasisNone BasisEncoding = iota
	// BasisETC1S is ETC1S (usually paired with BasisLZ).
	BasisETC1S
	// BasisUASTC is UASTC.
	BasisUASTC
)

// String returns the encoding label.
func (e BasisEncoding) String() string {
	switch e {
	case BasisETC1S:
		return "ETC1S"
	case BasisUASTC:
		return "UASTC"
	default:
		return "none"
	}
}

// BasisEncoding returns the label implied by the color model.
func (d DataFormatDescriptor) BasisEncoding() BasisEncoding {
	switch d.ColorModel {
	case ColorModelETC1S:
		return BasisETC1S
	case ColorModelUASTC:
		return BasisUASTC
	default:
		return BasisNone
	}
}

// SRGB reports whether the transfer function is sRGB.
func (d DataFormatDescriptor) SRGB() bool {
	return d.TransferFunction == TransferSRGB
}

// colorModelFor returns the basic descriptor color model of a mapped format.
func colorModelFor(f FormatDescriptor) uint8 {
	switch {
	case f.VkFormat >= 131 && f.VkFormat <= 134:
		return ColorModelBC1A
	case f.VkFormat >= 135 && f.VkFormat <= 146:
		return ColorModelBC2 + uint8((f.VkFormat-135)/2)
	case f.VkFormat >= 147 && f.VkFormat <= 156:
		return ColorModelETC2
	case f.VkFormat >= 157 && f.VkFormat <= 184:
		return ColorModelASTC
	case f.VkFormat == VkFormatUndefined:
		return ColorModelUnspecified
	default:
		return ColorModelRGBSDA
	}
}
