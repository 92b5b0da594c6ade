// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two arithmetic used to size and
validate the engine's transform buffers and block phases.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Validate the transform length
	ok := bitint.IsPowerOfTwo(blockLength)

	// Check that a host block size keeps phase arithmetic wrap-free
	ok = bitint.Divides(framesPerBuffer, blockLength)

	// Advance a phase counter modulo a power-of-two length
	phase = bitint.Wrap(phase+n, blockLength)

----------------------------------------------------------------------

What this code does:

	NextPowerOfTwo returns the next power of 2 greater than or
	equal to size. The subtraction (size-1) keeps exact powers of 2
	unchanged:

	- For input 8 (binary 1000): size-1 = 7 (binary 0111),
	  bits.Len(7) = 3, 1 << 3 = 8.
	- Without the subtraction bits.Len(8) = 4 and the result
	  would double to 16.

	Wrap relies on the length being a power of two, so the modulo
	reduces to a mask: x & (n-1).
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Divides reports whether block evenly divides length. Both must be positive.
// When length is a power of two this only holds for power-of-two blocks that
// are not larger than length.
func Divides(block, length int) bool {
	if block <= 0 || length <= 0 || block > length {
		return false
	}
	if IsPowerOfTwo(length) {
		return IsPowerOfTwo(block)
	}
	return length%block == 0
}

// Wrap reduces x modulo n, where n must be a power of two. Negative x wraps
// around from the top, matching two's complement masking.
func Wrap(x, n int) int {
	return x & (n - 1)
}
