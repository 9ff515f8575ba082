// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package bounds contains overflow-checked arithmetic for bit extents.
package bounds

import "math"

// Add adds two non-negative ints, returning ok = false on overflow or when
// either operand is negative.
func Add(a, b int) (int, bool) {
	if a < 0 || b < 0 || a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// Mul multiplies two non-negative ints, returning ok = false on overflow or
// when either operand is negative.
func Mul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Extent returns start + width + stride*(count-1), the end of the last of
// count elements of width bits laid out every stride bits from start.
func Extent(start, width, stride, count int) (int, bool) {
	if count < 1 {
		return 0, false
	}
	span, ok := Mul(stride, count-1)
	if !ok {
		return 0, false
	}
	end, ok := Add(start, width)
	if !ok {
		return 0, false
	}
	return Add(end, span)
}
