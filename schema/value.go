// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"slices"
)

// Value is a decoded raw value: I64, U64 or Array.
type Value interface {
	rawValue()
}

// I64 is a signed scalar.
type I64 int64

// U64 is an unsigned scalar.
type U64 uint64

// Array holds one value per array element.
type Array []Value

func (I64) rawValue()   {}
func (U64) rawValue()   {}
func (Array) rawValue() {}

// Values maps field names to decoded values.
type Values map[string]Value

// Names returns the field names in sorted order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
