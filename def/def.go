// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package def reads textual schema definitions and builds compiled schemas,
// transforms and codecs from them.
//
// Definitions are written in YAML or JSON. JSON input may carry // and /* */
// comments and trailing commas. A minimal YAML definition:
//
//	name: uplink
//	fields:
//	  - name: id
//	    fragments: [{offset_bits: 0, len_bits: 2}]
//	  - name: temp
//	    signed: true
//	    fragments: [{offset_bits: 2, len_bits: 14}]
//	    transform: {base: Int, scale: 0.01}
//
// Enumerated names follow the type names of the schema and transform
// packages: ConcatMsb, ConcatLsb, MsbFirst, LsbFirst, Scalar, Array, Int,
// Float32, Float64, Bytes, Utf8, Ascii and Latin1. Omitted names take the
// first value of each list.
package def

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrUnknownName indicates an enumerated name that is not recognized.
var ErrUnknownName = errors.New("def: unknown name")

// SchemaDef is a complete schema definition.
type SchemaDef struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Fields      []FieldDef      `json:"fields" yaml:"fields"`
	WriteConfig *WriteConfigDef `json:"write_config,omitempty" yaml:"write_config,omitempty"`
}

// WriteConfigDef selects the byte packing order for encoding.
type WriteConfigDef struct {
	BitOrder string `json:"bit_order,omitempty" yaml:"bit_order,omitempty"`
}

// FieldDef defines one named field.
type FieldDef struct {
	Name      string        `json:"name" yaml:"name"`
	Kind      KindDef       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Signed    bool          `json:"signed,omitempty" yaml:"signed,omitempty"`
	Assemble  string        `json:"assemble,omitempty" yaml:"assemble,omitempty"`
	Fragments []FragmentDef `json:"fragments" yaml:"fragments"`
	Transform *TransformDef `json:"transform,omitempty" yaml:"transform,omitempty"`
}

// KindDef is Scalar, or Array with its layout.
type KindDef struct {
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Count      int    `json:"count,omitempty" yaml:"count,omitempty"`
	StrideBits int    `json:"stride_bits,omitempty" yaml:"stride_bits,omitempty"`
	OffsetBits int    `json:"offset_bits,omitempty" yaml:"offset_bits,omitempty"`
}

// FragmentDef is one contiguous bit run.
type FragmentDef struct {
	OffsetBits int    `json:"offset_bits" yaml:"offset_bits"`
	LenBits    int    `json:"len_bits" yaml:"len_bits"`
	BitOrder   string `json:"bit_order,omitempty" yaml:"bit_order,omitempty"`
}

// TransformDef configures the transform applied to a decoded field.
type TransformDef struct {
	Base           string           `json:"base,omitempty" yaml:"base,omitempty"`
	Scale          *float64         `json:"scale,omitempty" yaml:"scale,omitempty"`
	Offset         *float64         `json:"offset,omitempty" yaml:"offset,omitempty"`
	Encoding       string           `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	ZeroTerminated bool             `json:"zero_terminated,omitempty" yaml:"zero_terminated,omitempty"`
	Trim           bool             `json:"trim,omitempty" yaml:"trim,omitempty"`
	EnumMap        map[int64]string `json:"enum_map,omitempty" yaml:"enum_map,omitempty"`
}

// Parse reads a definition. Input whose first non-space byte is '{' is read
// as JSON with comments; anything else as YAML.
func Parse(data []byte) (*SchemaDef, error) {
	var sd SchemaDef

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(jsonc.ToJSON(trimmed), &sd); err != nil {
			return nil, fmt.Errorf("parsing schema json: %w", err)
		}
		return &sd, nil
	}

	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("parsing schema yaml: %w", err)
	}
	return &sd, nil
}

// ReadFile reads and parses a definition file.
func ReadFile(path string) (*SchemaDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	sd, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sd, nil
}

// JSON renders the definition as indented JSON.
func (sd *SchemaDef) JSON() ([]byte, error) {
	return json.MarshalIndent(sd, "", "  ")
}

// YAML renders the definition as YAML.
func (sd *SchemaDef) YAML() ([]byte, error) {
	return yaml.Marshal(sd)
}
