// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package schema compiles declarative bit layouts into plans that decode byte
// buffers into named values and encode named values back into bytes.
//
// A Field is built from one or more fragments, each a contiguous bit run at
// an arbitrary offset. Fragments are concatenated into a single integer of
// at most 64 bits in definition order, either high-to-low (ConcatMsb) or
// low-to-high (ConcatLsb), so a field may be split across non-contiguous or
// out-of-order regions of the buffer. Array fields repeat an element at a
// fixed stride.
//
// A compiled Schema is immutable and safe for concurrent use.
//
//	s, err := schema.Compile([]schema.Field{
//		schema.Scalar("id", schema.NewFragment(0, 2)),
//		schema.Scalar("value", schema.NewFragment(2, 11)),
//		schema.Scalar("crc", schema.NewFragment(13, 3)),
//	}, nil)
//	values, err := s.Parse([]byte{0xc1, 0x85})
//	// values: id=3 value=48 crc=5
package schema

import (
	"slices"

	"github.com/MultiTechSystems/bitschema/bits"
)

// WriteConfig controls how encoded bits are packed into bytes.
type WriteConfig struct {
	BitOrder bits.Order
}

// Schema is an ordered set of compiled fields.
type Schema struct {
	fields    []CompiledField
	totalBits int
	write     WriteConfig
}

// Compile compiles every field in order. The first invalid field aborts the
// build; its error is wrapped in a *FieldError. A nil cfg packs MSB-first.
func Compile(fields []Field, cfg *WriteConfig) (*Schema, error) {
	s := &Schema{fields: make([]CompiledField, 0, len(fields))}
	if cfg != nil {
		if !cfg.BitOrder.Valid() {
			return nil, ErrInvalidFieldKind
		}
		s.write = *cfg
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		cf, err := CompileField(f)
		if err != nil {
			return nil, &FieldError{Index: i, Field: f.Name, Err: err}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &FieldError{Index: i, Field: f.Name, Err: ErrDuplicateFieldName}
		}
		seen[f.Name] = struct{}{}

		s.totalBits = max(s.totalBits, cf.Kind.End())
		s.fields = append(s.fields, cf)
	}

	return s, nil
}

// Fields returns the compiled fields in definition order.
func (s *Schema) Fields() []CompiledField {
	return slices.Clone(s.fields)
}

// Field returns the compiled field with the given name.
func (s *Schema) Field(name string) (CompiledField, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return CompiledField{}, false
}

// TotalBits returns the furthest bit touched by any field.
func (s *Schema) TotalBits() int {
	return s.totalBits
}

// TotalBytes returns the minimum input length accepted by Parse, which is
// also the length of every Serialize result.
func (s *Schema) TotalBytes() int {
	return s.totalBits/8 + (s.totalBits%8+7)/8
}

// WriteConfig returns the packing configuration.
func (s *Schema) WriteConfig() WriteConfig {
	return s.write
}

// Parse decodes data into one value per field. Signed scalars decode to I64,
// unsigned scalars to U64 and arrays to Array. Input shorter than
// TotalBytes fails with ErrPacketTooShort before anything is decoded;
// trailing bytes are ignored.
func (s *Schema) Parse(data []byte) (Values, error) {
	if len(data) < s.TotalBytes() {
		return nil, ErrPacketTooShort
	}

	out := make(Values, len(s.fields))
	for _, f := range s.fields {
		v, err := f.Kind.decode(data)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

// Serialize encodes values into TotalBytes bytes. Each fragment is written
// at its declared offset, so gaps between fields are zero; where fields
// overlap, the later field in definition order wins. Bits are packed into
// bytes according to the schema's WriteConfig, directly into the output
// buffer.
//
// Every field must have a value (ErrMissingField); scalars take I64 or U64
// that fit the field width, arrays take an Array of exactly Count scalars
// (ErrInvalidValue). Names not in the schema are ignored.
func (s *Schema) Serialize(values map[string]Value) ([]byte, error) {
	out := make([]byte, s.TotalBytes())
	for i, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			return nil, &FieldError{Index: i, Field: f.Name, Err: ErrMissingField}
		}
		if err := f.Kind.encode(out, s.write.BitOrder, v); err != nil {
			return nil, &FieldError{Index: i, Field: f.Name, Err: err}
		}
	}
	return out, nil
}
