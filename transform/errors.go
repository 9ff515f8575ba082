// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBase indicates a raw value that cannot be read as the base.
	ErrInvalidBase = errors.New("transform: invalid base")
	// ErrInvalidType indicates a value or option that does not fit the base.
	ErrInvalidType = errors.New("transform: invalid type")
	// ErrInvalidEnumValue indicates an integer missing from the enum map.
	ErrInvalidEnumValue = errors.New("transform: invalid enum value")
	// ErrInvalidEncoding indicates bytes that are not valid in the encoding.
	ErrInvalidEncoding = errors.New("transform: invalid encoding")
	// ErrInvalidByteValue indicates an element outside 0..255.
	ErrInvalidByteValue = errors.New("transform: invalid byte value")
	// ErrInvalidAsciiByteValue indicates a byte above 0x7f in ASCII text.
	ErrInvalidAsciiByteValue = errors.New("transform: invalid ascii byte value")
	// ErrInvalidScaleOffset indicates a NaN or infinite scale or offset.
	ErrInvalidScaleOffset = errors.New("transform: invalid scale or offset")
)

// EnumValueError reports the integer that had no enum label.
type EnumValueError struct {
	Value int64
}

func (e *EnumValueError) Error() string {
	return fmt.Sprintf("transform: invalid enum value %d", e.Value)
}

func (e *EnumValueError) Is(target error) bool {
	return target == ErrInvalidEnumValue
}
