// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/MultiTechSystems/bitschema/transform"
)

// Format is an output document format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// BytesFormat controls how Bytes values are rendered.
type BytesFormat string

const (
	BytesHex      BytesFormat = "hex"
	BytesHexUpper BytesFormat = "hex:upper"
	BytesBase64   BytesFormat = "base64"
	BytesArray    BytesFormat = "array"
)

// ParseBytesFormat validates a bytes format name. "hex:lower" is accepted as
// an alias for hex.
func ParseBytesFormat(s string) (BytesFormat, error) {
	switch f := BytesFormat(strings.ToLower(s)); f {
	case "", "hex:lower":
		return BytesHex, nil
	case BytesHex, BytesHexUpper, BytesBase64, BytesArray:
		return f, nil
	default:
		return "", fmt.Errorf("%w: bytes format %q", ErrUnknownFormat, s)
	}
}

type marshalConfig struct {
	bytesFormat BytesFormat
	separator   string
}

// MarshalOption configures Native and Marshal.
type MarshalOption func(*marshalConfig)

// WithBytesFormat selects how Bytes values are rendered. The default is hex.
func WithBytesFormat(f BytesFormat) MarshalOption {
	return func(c *marshalConfig) {
		c.bytesFormat = f
	}
}

// WithSeparator joins hex bytes with sep, e.g. ":" for "de:ad".
func WithSeparator(sep string) MarshalOption {
	return func(c *marshalConfig) {
		c.separator = sep
	}
}

func newMarshalConfig(opts []MarshalOption) marshalConfig {
	cfg := marshalConfig{bytesFormat: BytesHex}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Native converts transformed values into plain Go values: int64, float32,
// float64, string, []any, and Bytes rendered per the bytes format.
func Native(values map[string]transform.Value, opts ...MarshalOption) map[string]any {
	cfg := newMarshalConfig(opts)
	out := make(map[string]any, len(values))
	for name, v := range values {
		out[name] = cfg.native(v)
	}
	return out
}

func (c marshalConfig) native(v transform.Value) any {
	switch x := v.(type) {
	case transform.Int:
		return int64(x)
	case transform.Float32:
		return float32(x)
	case transform.Float64:
		return float64(x)
	case transform.String:
		return string(x)
	case transform.Bytes:
		return c.formatBytes(x)
	case transform.Array:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = c.native(e)
		}
		return out
	default:
		return nil
	}
}

func (c marshalConfig) formatBytes(data []byte) any {
	switch c.bytesFormat {
	case BytesHexUpper:
		return strings.ToUpper(c.hexString(data))
	case BytesBase64:
		return base64.StdEncoding.EncodeToString(data)
	case BytesArray:
		arr := make([]any, len(data))
		for i, b := range data {
			arr[i] = int64(b)
		}
		return arr
	default:
		return c.hexString(data)
	}
}

func (c marshalConfig) hexString(data []byte) string {
	if c.separator == "" {
		return hex.EncodeToString(data)
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, c.separator)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding: sorted keys, shortest integer and float
	// forms, so equal values always give equal bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal renders transformed values as a document in format f. JSON is
// indented, and map keys are sorted in every format.
func Marshal(values map[string]transform.Value, f Format, opts ...MarshalOption) ([]byte, error) {
	native := Native(values, opts...)

	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(native, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := yaml.Marshal(native)
		if err != nil {
			return nil, fmt.Errorf("marshaling yaml: %w", err)
		}
		return out, nil
	case FormatCBOR:
		out, err := encMode.Marshal(native)
		if err != nil {
			return nil, fmt.Errorf("marshaling cbor: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// UnmarshalValues reads a document of host values for EncodeAny. JSON
// numbers are kept as json.Number so integers are not read as floats.
func UnmarshalValues(data []byte, f Format) (map[string]any, error) {
	var out map[string]any

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	case FormatCBOR:
		if err := decMode.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parsing cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return out, nil
}
