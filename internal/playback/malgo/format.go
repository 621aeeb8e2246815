package malgo

import (
	"encoding/binary"

	"github.com/gen2brain/malgo"
)

// formatInfo returns the sample width and name of a miniaudio format
func formatInfo(format malgo.FormatType) (bytesPerSample int, name string) {
	switch format {
	case malgo.FormatU8:
		return 1, "U8"
	case malgo.FormatS16:
		return 2, "S16"
	case malgo.FormatS24:
		return 3, "S24"
	case malgo.FormatS32:
		return 4, "S32"
	case malgo.FormatF32:
		return 4, "F32"
	default:
		return 0, "Unknown"
	}
}

// encodeS16 writes samples into dst as little-endian 16-bit PCM.
// dst must hold at least 2*len(samples) bytes.
func encodeS16(dst []byte, samples []int16) {
	for i, v := range samples {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
	}
}
