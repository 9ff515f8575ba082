// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/MultiTechSystems/bitschema/schema"
)

// ValueFromAny converts a host value into a raw schema value.
//
// Signed integers become I64 and unsigned integers U64. Floats are not
// converted numerically; their IEEE-754 bit pattern is stored as U64 (32 bits
// for float32, 64 for float64), so a float32 fits a Float32 field and a
// float64 a Float64 field. Slices and arrays become Array, including []byte.
// json.Number is read as an integer when it has no fraction or exponent.
func ValueFromAny(v any) (schema.Value, error) {
	switch x := v.(type) {
	case schema.Value:
		return x, nil
	case int:
		return schema.I64(x), nil
	case int8:
		return schema.I64(x), nil
	case int16:
		return schema.I64(x), nil
	case int32:
		return schema.I64(x), nil
	case int64:
		return schema.I64(x), nil
	case uint:
		return schema.U64(x), nil
	case uint8:
		return schema.U64(x), nil
	case uint16:
		return schema.U64(x), nil
	case uint32:
		return schema.U64(x), nil
	case uint64:
		return schema.U64(x), nil
	case float32:
		return schema.U64(math.Float32bits(x)), nil
	case float64:
		return schema.U64(math.Float64bits(x)), nil
	case json.Number:
		return numberValue(x)
	case []byte:
		out := make(schema.Array, len(x))
		for i, b := range x {
			out[i] = schema.U64(b)
		}
		return out, nil
	case []any:
		out := make(schema.Array, len(x))
		for i, e := range x {
			ev, err := ValueFromAny(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make(schema.Array, rv.Len())
		for i := range out {
			ev, err := ValueFromAny(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func numberValue(n json.Number) (schema.Value, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return schema.I64(i), nil
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return schema.U64(u), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, n.String())
	}
	return schema.U64(math.Float64bits(f)), nil
}

// narrowFloat32 turns float64 values and non-integer json.Number values into
// float32, recursing into []any.
func narrowFloat32(v any) any {
	switch x := v.(type) {
	case float64:
		return float32(x)
	case json.Number:
		if isInteger(x) {
			return x
		}
		if f, err := x.Float64(); err == nil {
			return float32(f)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = narrowFloat32(e)
		}
		return out
	default:
		return v
	}
}

func isInteger(n json.Number) bool {
	if _, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseUint(string(n), 10, 64)
	return err == nil
}
