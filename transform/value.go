// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package transform

import "github.com/MultiTechSystems/bitschema/schema"

// Value is a transformed value: Int, Float32, Float64, Bytes, String or Array.
type Value interface {
	transformed()
}

type (
	Int     int64
	Float32 float32
	Float64 float64
	Bytes   []byte
	String  string
	Array   []Value
)

func (Int) transformed()     {}
func (Float32) transformed() {}
func (Float64) transformed() {}
func (Bytes) transformed()   {}
func (String) transformed()  {}
func (Array) transformed()   {}

// FromRaw converts a raw value without transforming it. Unsigned values keep
// their bit pattern as Int.
func FromRaw(v schema.Value) Value {
	switch x := v.(type) {
	case schema.U64:
		return Int(int64(x))
	case schema.I64:
		return Int(x)
	case schema.Array:
		out := make(Array, len(x))
		for i, e := range x {
			out[i] = FromRaw(e)
		}
		return out
	default:
		return nil
	}
}
