package wire

import (
	"math"
	"strconv"
)

// Fixed is a signed 24.8 fixed-point number. Wayland does not have
// support for floating point numbers in its core protocol and uses
// these instead.
type Fixed int32

func FixedInt(v int) Fixed {
	return Fixed(v << 8)
}

func FixedFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

// Int returns the integer part of f, rounded towards negative
// infinity.
func (f Fixed) Int() int {
	return int(f >> 8)
}

// Frac returns the fractional part of f in 256ths.
func (f Fixed) Frac() int {
	return int(uint32(f) & 0xFF)
}

func (f Fixed) Float() float64 {
	return float64(f) / 256
}

func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float(), 'f', -1, 64)
}
