// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
)

// Compile errors.
var (
	// ErrInvalidFieldName indicates an empty field name.
	ErrInvalidFieldName = errors.New("schema: invalid field name")
	// ErrDuplicateFieldName indicates two fields share a name.
	ErrDuplicateFieldName = errors.New("schema: duplicate field name")
	// ErrInvalidFieldSize indicates fragments summing to 0 or more than 64 bits.
	ErrInvalidFieldSize = errors.New("schema: invalid field size")
	// ErrInvalidFragment indicates a fragment with a non-positive length, a
	// negative offset, an unknown bit order or an end beyond addressable bits.
	ErrInvalidFragment = errors.New("schema: invalid fragment")
	// ErrInvalidArrayCount indicates an array with no elements.
	ErrInvalidArrayCount = errors.New("schema: invalid array count")
	// ErrInvalidArrayStride indicates a stride narrower than the element, or
	// a negative start, or an extent beyond addressable bits.
	ErrInvalidArrayStride = errors.New("schema: invalid array stride")
	// ErrEmptyArrayElement indicates an array element without fragments.
	ErrEmptyArrayElement = errors.New("schema: empty array element")
	// ErrInvalidFieldKind indicates an unknown field kind or assemble strategy.
	ErrInvalidFieldKind = errors.New("schema: invalid field kind")
)

// Read errors. Bit-level failures surface as bits.ErrOutOfBounds and
// bits.ErrTooManyBitsRead.
var (
	// ErrPacketTooShort indicates input shorter than the schema extent.
	ErrPacketTooShort = errors.New("schema: packet too short")
)

// Write errors.
var (
	// ErrMissingField indicates no value was supplied for a field.
	ErrMissingField = errors.New("schema: missing field")
	// ErrInvalidValue indicates a value of the wrong shape or out of range.
	ErrInvalidValue = errors.New("schema: invalid value")
)

// FieldError attaches the offending field to a compile or write error.
type FieldError struct {
	Index int    // position in definition order
	Field string // field name, possibly empty
	Err   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("field #%d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
