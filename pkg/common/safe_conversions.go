package common

import (
	"fmt"
	"math"
)

// SafeIntToUint16 safely converts int to uint16 with bounds checking
func SafeIntToUint16(value int) (uint16, error) {
	if value < 0 || value > math.MaxUint16 {
		return 0, fmt.Errorf("value %d out of range for uint16 (0-%d)", value, math.MaxUint16)
	}
	return uint16(value), nil
}

// SafeIntToUint32 safely converts int to uint32 with bounds checking
func SafeIntToUint32(value int) (uint32, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative, cannot convert to uint32", value)
	}
	if value > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for uint32 (0-%d)", value, math.MaxUint32)
	}
	return uint32(value), nil
}
