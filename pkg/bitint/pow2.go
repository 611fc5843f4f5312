// SPDX-License-Identifier: MIT

// Package bitint has the power-of-two helpers used to size rings and FFTs.
// Every function is allocation free and safe on the audio thread.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Powers of two
// are returned unchanged; zero and negative sizes return 1.
//
// Subtracting one before taking the bit length is what keeps exact powers
// from doubling: Len(8-1) is 3, so 1<<3 is 8.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns size-1 when size is a power of two, for index wrapping with
// i & mask. ok is false for any other size.
func Mask(size int) (mask uint64, ok bool) {
	if !IsPowerOfTwo(size) {
		return 0, false
	}
	return uint64(size - 1), true
}
