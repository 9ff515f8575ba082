// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package transform turns raw decoded integers into typed values.
//
// A Transform runs a fixed pipeline: base reinterpretation (Int, Float32,
// Float64 or Bytes), then scale and offset, then enum mapping, then string
// decoding. Each stage only applies when configured, and some combinations
// are rejected outright (an encoding needs Bytes, an enum map needs Int).
package transform

import (
	"bytes"
	"fmt"
	"maps"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/MultiTechSystems/bitschema/schema"
)

// Base selects how the raw value is reinterpreted.
type Base uint8

const (
	BaseInt Base = iota
	BaseFloat32
	BaseFloat64
	BaseBytes
)

func (b Base) String() string {
	switch b {
	case BaseInt:
		return "Int"
	case BaseFloat32:
		return "Float32"
	case BaseFloat64:
		return "Float64"
	case BaseBytes:
		return "Bytes"
	default:
		return fmt.Sprintf("Base(%d)", uint8(b))
	}
}

// Encoding selects how Bytes are decoded into a String.
type Encoding uint8

const (
	EncodingNone Encoding = iota
	EncodingUtf8
	EncodingAscii
	EncodingLatin1
)

func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "None"
	case EncodingUtf8:
		return "Utf8"
	case EncodingAscii:
		return "Ascii"
	case EncodingLatin1:
		return "Latin1"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Transform is an immutable pipeline configuration.
type Transform struct {
	base           Base
	scale          float64
	hasScale       bool
	offset         float64
	hasOffset      bool
	encoding       Encoding
	zeroTerminated bool
	trim           bool
	enumMap        map[int64]string
}

// Option configures a Transform.
type Option func(*Transform)

// WithScale multiplies numeric values by scale. The result is floating point.
func WithScale(scale float64) Option {
	return func(t *Transform) {
		t.scale = scale
		t.hasScale = true
	}
}

// WithOffset adds offset after scaling. The result is floating point.
func WithOffset(offset float64) Option {
	return func(t *Transform) {
		t.offset = offset
		t.hasOffset = true
	}
}

// WithEncoding decodes Bytes into a String.
func WithEncoding(enc Encoding) Option {
	return func(t *Transform) {
		t.encoding = enc
	}
}

// WithZeroTerminated cuts bytes at the first zero before string decoding.
func WithZeroTerminated(on bool) Option {
	return func(t *Transform) {
		t.zeroTerminated = on
	}
}

// WithTrim strips surrounding whitespace from decoded strings.
func WithTrim(on bool) Option {
	return func(t *Transform) {
		t.trim = on
	}
}

// WithEnumMap maps integers to labels. The map is copied.
func WithEnumMap(m map[int64]string) Option {
	return func(t *Transform) {
		t.enumMap = maps.Clone(m)
	}
}

// New returns a transform for base with the given options applied. The
// configuration is checked by Validate and again on every Apply.
func New(base Base, opts ...Option) *Transform {
	t := &Transform{base: base}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Base returns the base reinterpretation.
func (t *Transform) Base() Base { return t.base }

// Scale returns the scale factor and whether it is set.
func (t *Transform) Scale() (float64, bool) { return t.scale, t.hasScale }

// Offset returns the offset and whether it is set.
func (t *Transform) Offset() (float64, bool) { return t.offset, t.hasOffset }

// Encoding returns the text encoding applied to Bytes values, or EncodingNone.
func (t *Transform) Encoding() Encoding { return t.encoding }

// ZeroTerminated reports whether decoded text stops at the first zero byte.
func (t *Transform) ZeroTerminated() bool { return t.zeroTerminated }

// Trim reports whether decoded text has surrounding whitespace removed.
func (t *Transform) Trim() bool { return t.trim }

// EnumMap returns a copy of the enum map, or nil.
func (t *Transform) EnumMap() map[int64]string { return maps.Clone(t.enumMap) }

// Validate checks that the options fit together.
func (t *Transform) Validate() error {
	if t.base > BaseBytes {
		return fmt.Errorf("%w: %v", ErrInvalidBase, t.base)
	}
	if t.hasScale && !finite(t.scale) {
		return ErrInvalidScaleOffset
	}
	if t.hasOffset && !finite(t.offset) {
		return ErrInvalidScaleOffset
	}
	if t.encoding > EncodingLatin1 {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, t.encoding)
	}
	if t.encoding != EncodingNone && t.base != BaseBytes {
		return fmt.Errorf("%w: encoding %v requires Bytes, have %v", ErrInvalidType, t.encoding, t.base)
	}
	if t.trim && t.encoding == EncodingNone {
		return fmt.Errorf("%w: trim requires an encoding", ErrInvalidType)
	}
	if t.enumMap != nil && t.base != BaseInt {
		return fmt.Errorf("%w: enum map requires Int, have %v", ErrInvalidType, t.base)
	}
	return nil
}

// Apply transforms raw. Bytes consumes an array of byte-sized integers as one
// buffer; every other base is applied to arrays element by element.
func (t *Transform) Apply(raw schema.Value) (Value, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.base == BaseBytes {
		b, err := extractBytes(raw)
		if err != nil {
			return nil, err
		}
		return t.decodeString(b)
	}
	return t.applyElems(raw)
}

func (t *Transform) applyElems(raw schema.Value) (Value, error) {
	arr, ok := raw.(schema.Array)
	if !ok {
		return t.applyScalar(raw)
	}
	out := make(Array, 0, len(arr))
	for _, e := range arr {
		v, err := t.applyElems(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *Transform) applyScalar(raw schema.Value) (Value, error) {
	v, err := reinterpret(t.base, raw)
	if err != nil {
		return nil, err
	}
	v = t.scaleOffset(v)
	return t.lookupEnum(v)
}

func reinterpret(base Base, raw schema.Value) (Value, error) {
	switch base {
	case BaseInt:
		switch x := raw.(type) {
		case schema.I64:
			return Int(x), nil
		case schema.U64:
			return Int(int64(x)), nil
		}
	case BaseFloat32:
		if x, ok := raw.(schema.U64); ok {
			return Float32(math.Float32frombits(uint32(x))), nil
		}
	case BaseFloat64:
		if x, ok := raw.(schema.U64); ok {
			return Float64(math.Float64frombits(uint64(x))), nil
		}
	}
	return nil, fmt.Errorf("%w: %T as %v", ErrInvalidBase, raw, base)
}

func (t *Transform) scaleOffset(v Value) Value {
	if !t.hasScale && !t.hasOffset {
		return v
	}
	scale, offset := 1.0, 0.0
	if t.hasScale {
		scale = t.scale
	}
	if t.hasOffset {
		offset = t.offset
	}

	switch x := v.(type) {
	case Int:
		return Float64(float64(x)*scale + offset)
	case Float32:
		scaled := float32(x) * float32(scale)
		return Float32(scaled + float32(offset))
	case Float64:
		return Float64(float64(x)*scale + offset)
	default:
		return v
	}
}

func (t *Transform) lookupEnum(v Value) (Value, error) {
	if t.enumMap == nil {
		return v, nil
	}
	n, ok := v.(Int)
	if !ok {
		return nil, fmt.Errorf("%w: enum map on %T", ErrInvalidType, v)
	}
	label, ok := t.enumMap[int64(n)]
	if !ok {
		return nil, &EnumValueError{Value: int64(n)}
	}
	return String(label), nil
}

func extractBytes(raw schema.Value) ([]byte, error) {
	arr, ok := raw.(schema.Array)
	if !ok {
		return nil, fmt.Errorf("%w: Bytes needs an array, have %T", ErrInvalidType, raw)
	}
	out := make([]byte, 0, len(arr))
	for i, e := range arr {
		switch x := e.(type) {
		case schema.U64:
			if x > math.MaxUint8 {
				return nil, fmt.Errorf("%w: element %d is %d", ErrInvalidByteValue, i, uint64(x))
			}
			out = append(out, byte(x))
		case schema.I64:
			if x < 0 || x > math.MaxUint8 {
				return nil, fmt.Errorf("%w: element %d is %d", ErrInvalidByteValue, i, int64(x))
			}
			out = append(out, byte(x))
		default:
			return nil, fmt.Errorf("%w: element %d is %T", ErrInvalidType, i, e)
		}
	}
	return out, nil
}

func (t *Transform) decodeString(b []byte) (Value, error) {
	if t.encoding == EncodingNone {
		return Bytes(b), nil
	}

	if t.zeroTerminated {
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
	}

	var s string
	switch t.encoding {
	case EncodingAscii:
		for _, c := range b {
			if c > 0x7f {
				return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidAsciiByteValue, c)
			}
		}
		s = string(b)
	case EncodingUtf8:
		if !utf8.Valid(b) {
			return nil, ErrInvalidEncoding
		}
		s = string(b)
	case EncodingLatin1:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		s = string(decoded)
	}

	if t.trim {
		s = strings.TrimSpace(s)
	}
	return String(s), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
