// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package def

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/MultiTechSystems/bitschema/bits"
	"github.com/MultiTechSystems/bitschema/schema"
)

// Binary layout format constants
const (
	BinaryMagic    = "BS"
	BinaryVersion1 = 0x01
)

// Header flags
const (
	binFlagLsbWrite = 1 << 0
)

// Field flags
const (
	binFieldSigned    = 1 << 0
	binFieldConcatLsb = 1 << 1
	binFieldArray     = 1 << 2
)

var (
	// ErrBinaryTruncated indicates binary layout data that ends early.
	ErrBinaryTruncated = errors.New("def: binary layout truncated")
	// ErrBinaryFormat indicates binary layout data that is malformed.
	ErrBinaryFormat = errors.New("def: invalid binary layout")
)

// EncodeBinary encodes the field layout of sd. Transforms are not carried.
//
// Layout: magic(2) + version(1) + flags(1) + uvarint field count, then per
// field: uvarint name length + name, flags(1), [uvarint count, stride,
// offset if array], uvarint fragment count, and per fragment uvarint offset,
// uvarint length and order(1).
func EncodeBinary(sd *SchemaDef) ([]byte, error) {
	fields, err := sd.SchemaFields()
	if err != nil {
		return nil, err
	}
	cfg, err := sd.WriteConfigValue()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+len(fields)*8)
	data = append(data, BinaryMagic...)
	data = append(data, BinaryVersion1)
	var flags byte
	if cfg != nil && cfg.BitOrder == bits.LsbFirst {
		flags |= binFlagLsbWrite
	}
	data = append(data, flags)
	data = binary.AppendUvarint(data, uint64(len(fields)))

	for _, f := range fields {
		data = binary.AppendUvarint(data, uint64(len(f.Name)))
		data = append(data, f.Name...)

		var ff byte
		if f.Signed {
			ff |= binFieldSigned
		}
		if f.Assemble == schema.ConcatLsb {
			ff |= binFieldConcatLsb
		}
		if f.Kind == schema.KindArray {
			ff |= binFieldArray
		}
		data = append(data, ff)

		if f.Kind == schema.KindArray {
			for _, v := range []int{f.Array.Count, f.Array.StrideBits, f.Array.OffsetBits} {
				if v < 0 {
					return nil, fmt.Errorf("%w: field %q: negative array parameter %d", ErrBinaryFormat, f.Name, v)
				}
				data = binary.AppendUvarint(data, uint64(v))
			}
		}

		data = binary.AppendUvarint(data, uint64(len(f.Fragments)))
		for _, frag := range f.Fragments {
			if frag.OffsetBits < 0 || frag.LenBits < 0 {
				return nil, fmt.Errorf("%w: field %q: negative fragment bounds", ErrBinaryFormat, f.Name)
			}
			data = binary.AppendUvarint(data, uint64(frag.OffsetBits))
			data = binary.AppendUvarint(data, uint64(frag.LenBits))
			data = append(data, byte(frag.BitOrder))
		}
	}

	return data, nil
}

type binReader struct {
	data []byte
	pos  int
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrBinaryTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) uvarint() (int, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n == 0 {
		return 0, ErrBinaryTruncated
	}
	if n < 0 || v > math.MaxInt {
		return 0, ErrBinaryFormat
	}
	r.pos += n
	return int(v), nil
}

// count reads a length prefix for items of at least minSize bytes each.
func (r *binReader) count(minSize int) (int, error) {
	n, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if n > r.remaining()/minSize {
		return 0, ErrBinaryTruncated
	}
	return n, nil
}

func (r *binReader) remaining() int {
	return len(r.data) - r.pos
}

// ParseBinary decodes a binary layout and checks that it compiles.
func ParseBinary(data []byte) (*SchemaDef, error) {
	if len(data) < len(BinaryMagic)+2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBinaryTruncated, len(data))
	}
	if string(data[:len(BinaryMagic)]) != BinaryMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBinaryFormat)
	}
	if v := data[2]; v != BinaryVersion1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBinaryFormat, v)
	}
	flags := data[3]
	if flags&^binFlagLsbWrite != 0 {
		return nil, fmt.Errorf("%w: unknown flags 0x%02x", ErrBinaryFormat, flags)
	}

	r := &binReader{data: data, pos: 4}
	// Every field needs at least name length, flags and fragment count.
	count, err := r.count(3)
	if err != nil {
		return nil, fmt.Errorf("field count: %w", err)
	}

	fields := make([]schema.Field, 0, count)
	for i := 0; i < count; i++ {
		f, err := r.field()
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		fields = append(fields, f)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBinaryFormat, r.remaining())
	}

	cfg := &schema.WriteConfig{}
	if flags&binFlagLsbWrite != 0 {
		cfg.BitOrder = bits.LsbFirst
	}
	s, err := schema.Compile(fields, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinaryFormat, err)
	}
	return FromSchema(s, nil), nil
}

func (r *binReader) field() (schema.Field, error) {
	var f schema.Field

	nameLen, err := r.count(1)
	if err != nil {
		return f, err
	}
	f.Name = string(r.data[r.pos : r.pos+nameLen])
	r.pos += nameLen

	ff, err := r.readByte()
	if err != nil {
		return f, err
	}
	if ff&^(binFieldSigned|binFieldConcatLsb|binFieldArray) != 0 {
		return f, fmt.Errorf("%w: unknown field flags 0x%02x", ErrBinaryFormat, ff)
	}
	f.Signed = ff&binFieldSigned != 0
	if ff&binFieldConcatLsb != 0 {
		f.Assemble = schema.ConcatLsb
	}

	if ff&binFieldArray != 0 {
		f.Kind = schema.KindArray
		if f.Array.Count, err = r.uvarint(); err != nil {
			return f, err
		}
		if f.Array.StrideBits, err = r.uvarint(); err != nil {
			return f, err
		}
		if f.Array.OffsetBits, err = r.uvarint(); err != nil {
			return f, err
		}
	}

	// Every fragment needs at least offset, length and order.
	n, err := r.count(3)
	if err != nil {
		return f, err
	}
	f.Fragments = make([]schema.Fragment, 0, n)
	for j := 0; j < n; j++ {
		off, err := r.uvarint()
		if err != nil {
			return f, err
		}
		length, err := r.uvarint()
		if err != nil {
			return f, err
		}
		order, err := r.readByte()
		if err != nil {
			return f, err
		}
		f.Fragments = append(f.Fragments, schema.NewFragmentWithOrder(off, length, bits.Order(order)))
	}
	return f, nil
}
