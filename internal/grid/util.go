package grid

import (
	"fmt"
	"math"
)

func elemCount(shape []int) (int, error) {
	total := 1

	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: shape %v has non-positive dimension at %d", ErrShapeMismatch, shape, i)
		}

		if total > math.MaxInt/d {
			return 0, fmt.Errorf("%w: shape %v overflows element count", ErrShapeMismatch, shape)
		}

		total *= d
	}

	return total, nil
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))

	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}

	return strides
}

func linearToCoord(linear int, shape, strides, out []int) {
	for i := range shape {
		out[i] = (linear / strides[i]) % shape[i]
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
