// SPDX-License-Identifier: EPL-2.0

package pcm

import "fmt"

// fullScale is the magnitude of the most negative integer sample at bitDepth.
func fullScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 1 << 7, nil
	case 16:
		return 1 << 15, nil
	case 24:
		return 1 << 23, nil
	case 32:
		return 1 << 31, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
}

// FloatToInt clamps x to [-1, 1] and scales it to a signed integer sample of
// bitDepth bits. -1 maps to the minimum value and 1 to the maximum.
// Unsupported depths are treated as 16 bit.
func FloatToInt(x float32, bitDepth int) int {
	scale, err := fullScale(bitDepth)
	if err != nil {
		scale = 1 << 15
	}
	switch {
	case x >= 1:
		return int(scale) - 1
	case x <= -1:
		return -int(scale)
	case x > 0:
		return int(x * (scale - 1))
	default:
		return int(x * scale)
	}
}

// IntToFloat is the inverse of FloatToInt for the negative range and close to
// it for the positive one.
func IntToFloat(v, bitDepth int) float32 {
	scale, err := fullScale(bitDepth)
	if err != nil {
		scale = 1 << 15
	}
	return float32(v) / scale
}

// CubicInterpolate evaluates the Catmull-Rom spline through y0..y3 at x,
// where x in [0, 1] lies between y1 and y2.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	return ((a0*x+a1)*x+a2)*x + y1
}
