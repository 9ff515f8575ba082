// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package bits provides bit-level read and packing primitives over byte slices.
//
// Bits are addressed MSB-first: bit 0 is the most significant bit of the
// first byte, bit 7 its least significant bit, bit 8 the most significant
// bit of the second byte, and so on.
package bits

import (
	"errors"
	"fmt"
)

// MaxBits is the widest run that fits in a single scalar.
const MaxBits = 64

var (
	// ErrOutOfBounds indicates a bit position or run beyond the buffer.
	ErrOutOfBounds = errors.New("bits: out of bounds")
	// ErrTooManyBitsRead indicates a run wider than MaxBits.
	ErrTooManyBitsRead = errors.New("bits: too many bits read")
)

// Order selects the order in which bits of a byte (or a fragment) are taken.
type Order uint8

const (
	// MsbFirst takes the most significant bit first.
	MsbFirst Order = iota
	// LsbFirst takes the least significant bit first.
	LsbFirst
)

func (o Order) String() string {
	switch o {
	case MsbFirst:
		return "MsbFirst"
	case LsbFirst:
		return "LsbFirst"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// Valid reports whether o is a known order.
func (o Order) Valid() bool {
	return o == MsbFirst || o == LsbFirst
}

// ReadBitAt returns the bit (0 or 1) at pos.
func ReadBitAt(data []byte, pos int) (uint8, error) {
	if pos < 0 || pos >= len(data)*8 {
		return 0, ErrOutOfBounds
	}
	return (data[pos/8] >> (7 - pos%8)) & 1, nil
}

// ReadBitsAt reads n bits starting at pos. The first bit read becomes the
// highest-order bit of the result.
func ReadBitsAt(data []byte, pos, n int) (uint64, error) {
	if n > MaxBits {
		return 0, ErrTooManyBitsRead
	}
	if pos < 0 || n < 0 || pos > len(data)*8-n {
		return 0, ErrOutOfBounds
	}

	var v uint64
	for i := 0; i < n; {
		p := pos + i
		off := p % 8
		// Take as many bits as remain in the current byte.
		take := 8 - off
		if take > n-i {
			take = n - i
		}
		chunk := uint64(data[p/8]>>(8-off-take)) & (1<<take - 1)
		v = v<<take | chunk
		i += take
	}
	return v, nil
}

// SignExtend interprets the low bits of v as a two's complement number of
// the given width. Widths outside 1..64 return v unchanged.
func SignExtend(v uint64, bits int) int64 {
	if bits < 1 || bits >= MaxBits {
		return int64(v)
	}
	shift := MaxBits - bits
	return int64(v<<shift) >> shift
}

// ReverseBitsN reverses the low n bits of v: bit 0 becomes bit n-1.
// Bits above n are dropped.
func ReverseBitsN(v uint64, n int) uint64 {
	var r uint64
	for i := 0; i < n; i++ {
		r = r<<1 | v&1
		v >>= 1
	}
	return r
}

// Mask returns a value with the low n bits set.
func Mask(n int) uint64 {
	if n >= MaxBits {
		return ^uint64(0)
	}
	if n <= 0 {
		return 0
	}
	return 1<<n - 1
}

// BitsToBytes packs a sequence of single bits into ceil(len(seq)/8) bytes.
// MsbFirst fills each byte from its high bit, LsbFirst from its low bit.
// Any non-zero element counts as a set bit; unused trailing bits are zero.
func BitsToBytes(seq []uint8, order Order) []byte {
	out := make([]byte, (len(seq)+7)/8)
	for i, b := range seq {
		if b == 0 {
			continue
		}
		shift := 7 - i%8
		if order == LsbFirst {
			shift = i % 8
		}
		out[i/8] |= 1 << shift
	}
	return out
}

// PutBitsAt writes the low n bits of v, most significant first, into bit
// positions pos..pos+n-1 of the packed buffer out, replacing what was there.
// order maps a bit position to a bit of its byte the same way BitsToBytes
// does.
func PutBitsAt(out []byte, pos int, v uint64, n int, order Order) error {
	if n > MaxBits {
		return ErrTooManyBitsRead
	}
	if pos < 0 || n < 0 || pos > len(out)*8-n {
		return ErrOutOfBounds
	}
	for i := 0; i < n; i++ {
		p := pos + i
		shift := 7 - p%8
		if order == LsbFirst {
			shift = p % 8
		}
		if v>>(n-1-i)&1 != 0 {
			out[p/8] |= 1 << shift
		} else {
			out[p/8] &^= 1 << shift
		}
	}
	return nil
}
