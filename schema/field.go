// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"

	"github.com/MultiTechSystems/bitschema/bits"
)

// Fragment is a contiguous run of bits in the input buffer.
type Fragment struct {
	OffsetBits int        // start, 0 = MSB of the first byte
	LenBits    int        // must be > 0
	BitOrder   bits.Order // LsbFirst reverses the run before assembly
}

// NewFragment returns an MSB-first fragment.
func NewFragment(offsetBits, lenBits int) Fragment {
	return Fragment{OffsetBits: offsetBits, LenBits: lenBits}
}

// NewFragmentWithOrder returns a fragment with an explicit bit order.
func NewFragmentWithOrder(offsetBits, lenBits int, order bits.Order) Fragment {
	return Fragment{OffsetBits: offsetBits, LenBits: lenBits, BitOrder: order}
}

// Assemble is the strategy for concatenating fragments into one scalar.
type Assemble uint8

const (
	// ConcatMsb places the first fragment in the highest bits.
	ConcatMsb Assemble = iota
	// ConcatLsb places the first fragment in the lowest bits.
	ConcatLsb
)

// Concat returns the concatenation strategy for the given order.
func Concat(order bits.Order) Assemble {
	if order == bits.LsbFirst {
		return ConcatLsb
	}
	return ConcatMsb
}

func (a Assemble) String() string {
	switch a {
	case ConcatMsb:
		return "ConcatMsb"
	case ConcatLsb:
		return "ConcatLsb"
	default:
		return fmt.Sprintf("Assemble(%d)", uint8(a))
	}
}

// Kind distinguishes scalar fields from fixed-length arrays.
type Kind uint8

const (
	KindScalar Kind = iota
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindArray:
		return "Array"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ArraySpec places Count copies of a field's element every StrideBits bits,
// starting at OffsetBits. Element fragment offsets are relative to the
// element start.
type ArraySpec struct {
	Count      int
	StrideBits int
	OffsetBits int
}

// Field is the logical definition of a named value.
type Field struct {
	Name      string
	Kind      Kind
	Array     ArraySpec // used when Kind is KindArray
	Signed    bool
	Assemble  Assemble
	Fragments []Fragment
}

// Scalar returns an unsigned MSB-concatenated scalar field.
func Scalar(name string, fragments ...Fragment) Field {
	return Field{Name: name, Kind: KindScalar, Fragments: fragments}
}

// ArrayOf returns an unsigned array field whose element is made of fragments.
func ArrayOf(name string, spec ArraySpec, fragments ...Fragment) Field {
	return Field{Name: name, Kind: KindArray, Array: spec, Fragments: fragments}
}
