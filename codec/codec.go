// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package codec pairs a compiled schema with per-field transforms and
// converts between payload bytes, transformed values and host Go values.
package codec

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/MultiTechSystems/bitschema/schema"
	"github.com/MultiTechSystems/bitschema/transform"
)

var (
	// ErrUnknownField indicates a transform for a field the schema lacks.
	ErrUnknownField = errors.New("codec: unknown field")
	// ErrUnsupportedValue indicates a host value with no raw equivalent.
	ErrUnsupportedValue = errors.New("codec: unsupported value")
	// ErrUnknownFormat indicates an output or bytes format name not recognized.
	ErrUnknownFormat = errors.New("codec: unknown format")
	// ErrNilSchema indicates New was given no schema.
	ErrNilSchema = errors.New("codec: nil schema")
	// ErrNilTransform indicates a nil entry in the transform map.
	ErrNilTransform = errors.New("codec: nil transform")
)

// Codec decodes payloads into transformed values and encodes raw values.
// It is immutable and safe for concurrent use.
type Codec struct {
	schema     *schema.Schema
	transforms map[string]*transform.Transform
}

// New binds transforms to the fields of s. Every transform must be non-nil,
// name a field of s and pass Validate.
func New(s *schema.Schema, transforms map[string]*transform.Transform) (*Codec, error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, ok := s.Field(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		if transforms[name] == nil {
			return nil, fmt.Errorf("field %q: %w", name, ErrNilTransform)
		}
		if err := transforms[name].Validate(); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}
	return &Codec{schema: s, transforms: maps.Clone(transforms)}, nil
}

// Schema returns the compiled schema.
func (c *Codec) Schema() *schema.Schema {
	return c.schema
}

// Transform returns the transform bound to a field, or nil.
func (c *Codec) Transform(name string) *transform.Transform {
	return c.transforms[name]
}

// Decode parses data and transforms every field in definition order. Fields
// without a transform are converted with transform.FromRaw. The first field
// whose transform fails is reported.
func (c *Codec) Decode(data []byte) (map[string]transform.Value, error) {
	raw, err := c.schema.Parse(data)
	if err != nil {
		return nil, err
	}

	out := make(map[string]transform.Value, len(raw))
	for _, f := range c.schema.Fields() {
		name, v := f.Name, raw[f.Name]
		t, ok := c.transforms[name]
		if !ok {
			out[name] = transform.FromRaw(v)
			continue
		}
		tv, err := t.Apply(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = tv
	}
	return out, nil
}

// DecodeRaw parses data without applying transforms.
func (c *Codec) DecodeRaw(data []byte) (schema.Values, error) {
	return c.schema.Parse(data)
}

// Encode serializes raw values.
func (c *Codec) Encode(values map[string]schema.Value) ([]byte, error) {
	return c.schema.Serialize(values)
}

// EncodeAny converts host values with ValueFromAny and serializes them.
// Floating point values for fields with a Float32 transform are narrowed to
// float32 first, since JSON, YAML and CBOR documents carry them as float64.
func (c *Codec) EncodeAny(values map[string]any) ([]byte, error) {
	raw := make(map[string]schema.Value, len(values))
	for name, v := range values {
		if t := c.transforms[name]; t != nil && t.Base() == transform.BaseFloat32 {
			v = narrowFloat32(v)
		}
		rv, err := ValueFromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		raw[name] = rv
	}
	return c.schema.Serialize(raw)
}
