// Package vlv implements the variable-length value encoding shared by the
// UPS and BPS wire formats: a non-negative integer packed into 7-bit
// little-endian groups, terminated by the group whose high bit is set. The
// "+= shift" bias applied after every non-terminating byte is what makes
// the encoding unambiguous (every integer has exactly one encoding); do
// not remove it when adjusting either direction of the codec.
package vlv

import "github.com/hansbonini/rompatch/pkg/common"

// Encode appends the VLV encoding of value to dst and returns the extended
// slice.
func Encode(dst []byte, value uint64) []byte {
	for {
		x := byte(value & 0x7F)
		value >>= 7
		if value == 0 {
			return append(dst, 0x80|x)
		}
		dst = append(dst, x)
		value--
	}
}

// Decode reads a VLV integer starting at data[offset] and returns the
// value along with the offset of the byte following the terminator.
func Decode(data []byte, offset int) (uint64, int, error) {
	var value, shift uint64 = 0, 1
	i := offset
	for {
		if i >= len(data) {
			return 0, 0, common.NewError(common.KindEndOfFile, "vlv: ran out of bytes before terminator")
		}
		b := data[i]
		i++
		value += uint64(b&0x7F) * shift
		if b&0x80 != 0 {
			return value, i, nil
		}
		shift <<= 7
		value += shift
	}
}

// EncodeSigned packs a signed relative offset as a VLV whose low bit is
// the sign flag and whose remaining bits are the magnitude, as used by BPS
// SourceCopy/TargetCopy actions.
func EncodeSigned(dst []byte, value int64) []byte {
	var magnitude uint64
	var sign uint64
	if value < 0 {
		magnitude = uint64(-value)
		sign = 1
	} else {
		magnitude = uint64(value)
		sign = 0
	}
	return Encode(dst, (magnitude<<1)|sign)
}

// DecodeSigned reads a signed relative offset encoded by EncodeSigned.
func DecodeSigned(data []byte, offset int) (int64, int, error) {
	raw, next, err := Decode(data, offset)
	if err != nil {
		return 0, 0, err
	}
	magnitude := int64(raw >> 1)
	if raw&1 != 0 {
		return -magnitude, next, nil
	}
	return magnitude, next, nil
}
