package frame

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
)

type SampleFormat string

var (
	SampleFormatFloat32 SampleFormat = "f32"
	SampleFormatInt16   SampleFormat = "i16"
	SampleFormatUint16  SampleFormat = "u16"
	SampleFormatUint8   SampleFormat = "u8"
)

var (
	errUnknownSampleFormat = errors.New("unknown sample format")
)

// Parse a sample format from its config string (e.g. "f32", "i16").
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch SampleFormat(strings.ToLower(strings.TrimSpace(s))) {
	case SampleFormatFloat32:
		return SampleFormatFloat32, nil
	case SampleFormatInt16:
		return SampleFormatInt16, nil
	case SampleFormatUint16:
		return SampleFormatUint16, nil
	case SampleFormatUint8:
		return SampleFormatUint8, nil
	default:
		return "", errUnknownSampleFormat
	}
}

// Number of bytes a single sample of this format occupies on the wire.
// Unknown formats report 0.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatFloat32:
		return 4
	case SampleFormatInt16, SampleFormatUint16:
		return 2
	case SampleFormatUint8:
		return 1
	default:
		return 0
	}
}

// --------------------------------------------------------------------------------

func clamp(sample float32) float32 {
	if math.IsNaN(float64(sample)) {
		return 0
	}
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

func Float32ToInt16(sample float32) int16 {
	return int16(clamp(sample) * math.MaxInt16)
}

// Unsigned 16 bit samples are centered on 32768.
func Float32ToUint16(sample float32) uint16 {
	return uint16(int32(Float32ToInt16(sample)) + 32768)
}

// Unsigned 8 bit samples are centered on 128.
func Float32ToUint8(sample float32) uint8 {
	return uint8(int16(clamp(sample)*math.MaxInt8) + 128)
}

// Encode a single sample into dst using the little endian layout of the given format.
// dst must hold at least format.BytesPerSample() bytes.
func EncodeSample(format SampleFormat, sample float32, dst []byte) {
	switch format {
	case SampleFormatFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(sample))
	case SampleFormatInt16:
		binary.LittleEndian.PutUint16(dst, uint16(Float32ToInt16(sample)))
	case SampleFormatUint16:
		binary.LittleEndian.PutUint16(dst, Float32ToUint16(sample))
	case SampleFormatUint8:
		dst[0] = Float32ToUint8(sample)
	}
}

// Decode a single little endian sample of the given format back to float32.
// Unknown formats decode to 0.
func DecodeSample(format SampleFormat, src []byte) float32 {
	switch format {
	case SampleFormatFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	case SampleFormatInt16:
		return float32(int16(binary.LittleEndian.Uint16(src))) / math.MaxInt16
	case SampleFormatUint16:
		return float32(int32(binary.LittleEndian.Uint16(src))-32768) / math.MaxInt16
	case SampleFormatUint8:
		return float32(int16(src[0])-128) / math.MaxInt8
	default:
		return 0
	}
}
