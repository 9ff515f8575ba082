// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package def

import (
	"fmt"

	"github.com/MultiTechSystems/bitschema/bits"
	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/schema"
	"github.com/MultiTechSystems/bitschema/transform"
)

var (
	assembleNames = map[string]schema.Assemble{
		"":          schema.ConcatMsb,
		"ConcatMsb": schema.ConcatMsb,
		"ConcatLsb": schema.ConcatLsb,
	}
	orderNames = map[string]bits.Order{
		"":         bits.MsbFirst,
		"MsbFirst": bits.MsbFirst,
		"LsbFirst": bits.LsbFirst,
	}
	kindNames = map[string]schema.Kind{
		"":       schema.KindScalar,
		"Scalar": schema.KindScalar,
		"Array":  schema.KindArray,
	}
	baseNames = map[string]transform.Base{
		"":        transform.BaseInt,
		"Int":     transform.BaseInt,
		"Float32": transform.BaseFloat32,
		"Float64": transform.BaseFloat64,
		"Bytes":   transform.BaseBytes,
	}
	encodingNames = map[string]transform.Encoding{
		"":       transform.EncodingNone,
		"Utf8":   transform.EncodingUtf8,
		"Ascii":  transform.EncodingAscii,
		"Latin1": transform.EncodingLatin1,
	}
)

func lookup[T any](names map[string]T, what, name string) (T, error) {
	v, ok := names[name]
	if !ok {
		return v, fmt.Errorf("%w: %s %q", ErrUnknownName, what, name)
	}
	return v, nil
}

// SchemaFields converts the definition into schema fields. Unknown names fail with
// ErrUnknownName wrapped in a *schema.FieldError; an unknown kind type also
// matches schema.ErrInvalidFieldKind.
func (sd *SchemaDef) SchemaFields() ([]schema.Field, error) {
	out := make([]schema.Field, 0, len(sd.Fields))
	for i, fd := range sd.Fields {
		f, err := fd.field()
		if err != nil {
			return nil, &schema.FieldError{Index: i, Field: fd.Name, Err: err}
		}
		out = append(out, f)
	}
	return out, nil
}

func (fd *FieldDef) field() (schema.Field, error) {
	kind, ok := kindNames[fd.Kind.Type]
	if !ok {
		return schema.Field{}, fmt.Errorf("%w: %w: kind %q", ErrUnknownName, schema.ErrInvalidFieldKind, fd.Kind.Type)
	}
	assemble, err := lookup(assembleNames, "assemble", fd.Assemble)
	if err != nil {
		return schema.Field{}, err
	}

	f := schema.Field{
		Name:      fd.Name,
		Kind:      kind,
		Signed:    fd.Signed,
		Assemble:  assemble,
		Fragments: make([]schema.Fragment, 0, len(fd.Fragments)),
	}
	if kind == schema.KindArray {
		f.Array = schema.ArraySpec{
			Count:      fd.Kind.Count,
			StrideBits: fd.Kind.StrideBits,
			OffsetBits: fd.Kind.OffsetBits,
		}
	}
	for _, frag := range fd.Fragments {
		order, err := lookup(orderNames, "bit order", frag.BitOrder)
		if err != nil {
			return schema.Field{}, err
		}
		f.Fragments = append(f.Fragments, schema.NewFragmentWithOrder(frag.OffsetBits, frag.LenBits, order))
	}
	return f, nil
}

// WriteConfigValue returns the write configuration, or nil when unset.
func (sd *SchemaDef) WriteConfigValue() (*schema.WriteConfig, error) {
	if sd.WriteConfig == nil {
		return nil, nil
	}
	order, err := lookup(orderNames, "bit order", sd.WriteConfig.BitOrder)
	if err != nil {
		return nil, err
	}
	return &schema.WriteConfig{BitOrder: order}, nil
}

// Transforms builds the transform of every field that defines one.
func (sd *SchemaDef) Transforms() (map[string]*transform.Transform, error) {
	out := make(map[string]*transform.Transform)
	for i, fd := range sd.Fields {
		if fd.Transform == nil {
			continue
		}
		t, err := fd.Transform.Build()
		if err != nil {
			return nil, &schema.FieldError{Index: i, Field: fd.Name, Err: err}
		}
		out[fd.Name] = t
	}
	return out, nil
}

// Build converts the definition into a validated transform.
func (td *TransformDef) Build() (*transform.Transform, error) {
	base, err := lookup(baseNames, "base", td.Base)
	if err != nil {
		return nil, err
	}
	enc, err := lookup(encodingNames, "encoding", td.Encoding)
	if err != nil {
		return nil, err
	}

	var opts []transform.Option
	if td.Scale != nil {
		opts = append(opts, transform.WithScale(*td.Scale))
	}
	if td.Offset != nil {
		opts = append(opts, transform.WithOffset(*td.Offset))
	}
	if enc != transform.EncodingNone {
		opts = append(opts, transform.WithEncoding(enc))
	}
	if td.ZeroTerminated {
		opts = append(opts, transform.WithZeroTerminated(true))
	}
	if td.Trim {
		opts = append(opts, transform.WithTrim(true))
	}
	if td.EnumMap != nil {
		opts = append(opts, transform.WithEnumMap(td.EnumMap))
	}

	t := transform.New(base, opts...)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Compile builds the schema.
func (sd *SchemaDef) Compile() (*schema.Schema, error) {
	fields, err := sd.SchemaFields()
	if err != nil {
		return nil, err
	}
	cfg, err := sd.WriteConfigValue()
	if err != nil {
		return nil, err
	}
	return schema.Compile(fields, cfg)
}

// Codec builds the schema and binds its transforms.
func (sd *SchemaDef) Codec() (*codec.Codec, error) {
	s, err := sd.Compile()
	if err != nil {
		return nil, err
	}
	transforms, err := sd.Transforms()
	if err != nil {
		return nil, err
	}
	return codec.New(s, transforms)
}

// FromSchema renders a compiled schema back into a definition. Transforms
// are taken from c when it is non-nil.
func FromSchema(s *schema.Schema, c *codec.Codec) *SchemaDef {
	sd := &SchemaDef{}
	if wc := s.WriteConfig(); wc.BitOrder != bits.MsbFirst {
		sd.WriteConfig = &WriteConfigDef{BitOrder: wc.BitOrder.String()}
	}

	for _, cf := range s.Fields() {
		fd := FieldDef{Name: cf.Name}
		elem := cf.Scalar()
		if arr := cf.Array(); arr != nil {
			elem = &arr.Element
			fd.Kind = KindDef{
				Type:       schema.KindArray.String(),
				Count:      arr.Count,
				StrideBits: arr.StrideBits,
				OffsetBits: arr.OffsetBits,
			}
		}
		fd.Signed = elem.Signed
		fd.Assemble = assembleOf(elem).String()
		for _, frag := range elem.Fragments {
			fragDef := FragmentDef{OffsetBits: frag.OffsetBits, LenBits: frag.LenBits}
			if frag.BitOrder != bits.MsbFirst {
				fragDef.BitOrder = frag.BitOrder.String()
			}
			fd.Fragments = append(fd.Fragments, fragDef)
		}
		if c != nil {
			if t := c.Transform(cf.Name); t != nil {
				fd.Transform = transformDef(t)
			}
		}
		sd.Fields = append(sd.Fields, fd)
	}
	return sd
}

// assembleOf recovers the concatenation strategy from the shifts. A single
// fragment assembles the same either way.
func assembleOf(s *schema.CompiledScalar) schema.Assemble {
	if len(s.Fragments) > 1 && s.Fragments[0].Shift == 0 {
		return schema.ConcatLsb
	}
	return schema.ConcatMsb
}

func transformDef(t *transform.Transform) *TransformDef {
	td := &TransformDef{
		Base:           t.Base().String(),
		ZeroTerminated: t.ZeroTerminated(),
		Trim:           t.Trim(),
		EnumMap:        t.EnumMap(),
	}
	if v, ok := t.Scale(); ok {
		td.Scale = &v
	}
	if v, ok := t.Offset(); ok {
		td.Offset = &v
	}
	if t.Encoding() != transform.EncodingNone {
		td.Encoding = t.Encoding().String()
	}
	return td
}
