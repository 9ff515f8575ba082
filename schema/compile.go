// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"

	"github.com/MultiTechSystems/bitschema/bits"
	"github.com/MultiTechSystems/bitschema/internal/bounds"
)

// CompiledFragment is a validated fragment plus the bit position (0 = LSB)
// at which its value lands in the assembled scalar.
type CompiledFragment struct {
	OffsetBits int
	LenBits    int
	BitOrder   bits.Order
	Shift      int
}

// CompiledScalar is an ordered fragment plan for one integer.
type CompiledScalar struct {
	Signed    bool
	TotalBits int // 1..64
	Fragments []CompiledFragment
}

// CompiledArray replicates Element Count times, every StrideBits bits.
type CompiledArray struct {
	Element    CompiledScalar
	Count      int
	StrideBits int
	OffsetBits int
}

// CompiledKind is either *CompiledScalar or *CompiledArray.
type CompiledKind interface {
	// End returns the first bit past everything the kind touches.
	End() int

	decode(data []byte) (Value, error)
	encode(out []byte, order bits.Order, v Value) error
}

// CompiledField is a named, validated field plan.
type CompiledField struct {
	Name string
	Kind CompiledKind
}

// Scalar returns the scalar plan, or nil for arrays.
func (f CompiledField) Scalar() *CompiledScalar {
	s, _ := f.Kind.(*CompiledScalar)
	return s
}

// Array returns the array plan, or nil for scalars.
func (f CompiledField) Array() *CompiledArray {
	a, _ := f.Kind.(*CompiledArray)
	return a
}

// CompileField validates f and turns it into an offset/shift plan.
func CompileField(f Field) (CompiledField, error) {
	if f.Name == "" {
		return CompiledField{}, ErrInvalidFieldName
	}
	if f.Kind == KindArray && len(f.Fragments) == 0 {
		return CompiledField{}, ErrEmptyArrayElement
	}

	scalar, err := compileScalar(f)
	if err != nil {
		return CompiledField{}, err
	}

	switch f.Kind {
	case KindScalar:
		return CompiledField{Name: f.Name, Kind: scalar}, nil

	case KindArray:
		spec := f.Array
		if spec.Count <= 0 {
			return CompiledField{}, ErrInvalidArrayCount
		}
		if spec.StrideBits < scalar.TotalBits || spec.OffsetBits < 0 {
			return CompiledField{}, ErrInvalidArrayStride
		}
		arr := &CompiledArray{
			Element:    *scalar,
			Count:      spec.Count,
			StrideBits: spec.StrideBits,
			OffsetBits: spec.OffsetBits,
		}
		if _, ok := bounds.Extent(arr.OffsetBits, scalar.span(), arr.StrideBits, arr.Count); !ok {
			return CompiledField{}, ErrInvalidArrayStride
		}
		return CompiledField{Name: f.Name, Kind: arr}, nil

	default:
		return CompiledField{}, ErrInvalidFieldKind
	}
}

func compileScalar(f Field) (*CompiledScalar, error) {
	if f.Assemble != ConcatMsb && f.Assemble != ConcatLsb {
		return nil, ErrInvalidFieldKind
	}

	total := 0
	for _, frag := range f.Fragments {
		if frag.LenBits <= 0 {
			continue
		}
		if frag.LenBits > bits.MaxBits-total {
			return nil, ErrInvalidFieldSize
		}
		total += frag.LenBits
	}
	if total == 0 {
		return nil, ErrInvalidFieldSize
	}

	out := &CompiledScalar{
		Signed:    f.Signed,
		TotalBits: total,
		Fragments: make([]CompiledFragment, 0, len(f.Fragments)),
	}

	// ConcatMsb counts down from the top, ConcatLsb counts up from zero.
	shift := 0
	if f.Assemble == ConcatMsb {
		shift = total
	}
	for _, frag := range f.Fragments {
		cf, err := compileFragment(frag)
		if err != nil {
			return nil, err
		}
		if f.Assemble == ConcatMsb {
			shift -= frag.LenBits
			cf.Shift = shift
		} else {
			cf.Shift = shift
			shift += frag.LenBits
		}
		out.Fragments = append(out.Fragments, cf)
	}

	return out, nil
}

func compileFragment(frag Fragment) (CompiledFragment, error) {
	if frag.LenBits <= 0 || frag.OffsetBits < 0 || !frag.BitOrder.Valid() {
		return CompiledFragment{}, ErrInvalidFragment
	}
	if _, ok := bounds.Add(frag.OffsetBits, frag.LenBits); !ok {
		return CompiledFragment{}, ErrInvalidFragment
	}
	return CompiledFragment{
		OffsetBits: frag.OffsetBits,
		LenBits:    frag.LenBits,
		BitOrder:   frag.BitOrder,
	}, nil
}

// End returns the first bit past the furthest fragment.
func (s *CompiledScalar) End() int {
	end := 0
	for _, f := range s.Fragments {
		end = max(end, f.OffsetBits+f.LenBits)
	}
	return end
}

// span is the element width used for array extents: the assembled width,
// or further if a fragment sits past it.
func (s *CompiledScalar) span() int {
	return max(s.TotalBits, s.End())
}

// AssembleAt reads every fragment relative to base and combines them.
func (s *CompiledScalar) AssembleAt(data []byte, base int) (Value, error) {
	var acc uint64
	for _, f := range s.Fragments {
		part, err := bits.ReadBitsAt(data, base+f.OffsetBits, f.LenBits)
		if err != nil {
			return nil, err
		}
		if f.BitOrder == bits.LsbFirst {
			part = bits.ReverseBitsN(part, f.LenBits)
		}
		acc |= part << f.Shift
	}

	if s.Signed {
		return I64(bits.SignExtend(acc, s.TotalBits)), nil
	}
	return U64(acc), nil
}

func (s *CompiledScalar) decode(data []byte) (Value, error) {
	return s.AssembleAt(data, 0)
}

// DisassembleAt writes v's fragments into the packed buffer out relative to
// base, mapping bit positions to bytes according to order.
func (s *CompiledScalar) DisassembleAt(out []byte, order bits.Order, base int, v Value) error {
	raw, err := s.rawBits(v)
	if err != nil {
		return err
	}
	for _, f := range s.Fragments {
		part := raw >> f.Shift & bits.Mask(f.LenBits)
		if f.BitOrder == bits.LsbFirst {
			part = bits.ReverseBitsN(part, f.LenBits)
		}
		if err := bits.PutBitsAt(out, base+f.OffsetBits, part, f.LenBits, order); err != nil {
			return err
		}
	}
	return nil
}

func (s *CompiledScalar) encode(out []byte, order bits.Order, v Value) error {
	return s.DisassembleAt(out, order, 0, v)
}

// rawBits returns the bit pattern of v if it fits TotalBits either as an
// unsigned number or as a two's complement number.
func (s *CompiledScalar) rawBits(v Value) (uint64, error) {
	mask := bits.Mask(s.TotalBits)
	switch x := v.(type) {
	case U64:
		if uint64(x) > mask {
			return 0, fmt.Errorf("%w: %d does not fit in %d bits", ErrInvalidValue, uint64(x), s.TotalBits)
		}
		return uint64(x), nil
	case I64:
		lo := int64(-1) << (s.TotalBits - 1)
		if int64(x) < lo || (x > 0 && uint64(x) > mask) {
			return 0, fmt.Errorf("%w: %d does not fit in %d bits", ErrInvalidValue, int64(x), s.TotalBits)
		}
		return uint64(x) & mask, nil
	default:
		return 0, fmt.Errorf("%w: scalar field given %T", ErrInvalidValue, v)
	}
}

// End returns the first bit past the last element.
func (a *CompiledArray) End() int {
	end, _ := bounds.Extent(a.OffsetBits, a.Element.span(), a.StrideBits, a.Count)
	return end
}

func (a *CompiledArray) decode(data []byte) (Value, error) {
	out := make(Array, 0, a.Count)
	for i := 0; i < a.Count; i++ {
		v, err := a.Element.AssembleAt(data, a.OffsetBits+i*a.StrideBits)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *CompiledArray) encode(out []byte, order bits.Order, v Value) error {
	arr, ok := v.(Array)
	if !ok {
		return fmt.Errorf("%w: array field given %T", ErrInvalidValue, v)
	}
	if len(arr) != a.Count {
		return fmt.Errorf("%w: %d elements, want %d", ErrInvalidValue, len(arr), a.Count)
	}
	for i, elem := range arr {
		if err := a.Element.DisassembleAt(out, order, a.OffsetBits+i*a.StrideBits, elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}
