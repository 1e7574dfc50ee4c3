// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers used to size analysis blocks
// and capture ring buffers. Everything here is allocation free and safe to call
// from an audio callback.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive sizes
// yield 1.
//
// Subtracting one first keeps exact powers unchanged: for 8, bits.Len(7) is 3
// and 1<<3 is 8, where bits.Len(8) would have doubled it.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two has
// exactly one bit set, so clearing its lowest set bit leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
