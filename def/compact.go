// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package def

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrCompactFormat indicates a compact format string that cannot be read.
var ErrCompactFormat = errors.New("def: invalid compact format")

var compactItemPattern = regexp.MustCompile(`^(\d*)([a-zA-Z?])(?::(\w+))?`)

type structFormat struct {
	size   int // bytes
	signed bool
	base   string
}

var structFormats = map[byte]structFormat{
	'b': {1, true, ""},
	'B': {1, false, ""},
	'h': {2, true, ""},
	'H': {2, false, ""},
	'i': {4, true, ""},
	'I': {4, false, ""},
	'l': {4, true, ""},
	'L': {4, false, ""},
	'q': {8, true, ""},
	'Q': {8, false, ""},
	'f': {4, false, "Float32"},
	'd': {8, false, "Float64"},
	'?': {1, false, ""},
	'c': {1, false, ""},
}

// ParseCompact builds a definition from a struct-like format string such as
// ">B:id h:temp 4s:name". An optional leading '>' or '!' selects big-endian
// (the default) and '<' little-endian. Each item is [count]char[:name]:
//
//	b B h H i I l L q Q  signed and unsigned 1, 2, 4, 4 and 8 byte integers
//	f d                  32 and 64 bit floats
//	? c                  one byte
//	x                    one byte of padding, no field
//	s                    count-byte ASCII string, cut at the first zero
//
// A count on any other item makes an array of that many elements. Items
// without a name are called field_N after their position.
func ParseCompact(format string) (*SchemaDef, error) {
	littleEndian := false
	if format != "" {
		switch format[0] {
		case '<':
			littleEndian = true
			format = format[1:]
		case '>', '!':
			format = format[1:]
		case '=', '@':
			return nil, fmt.Errorf("%w: native byte order %q", ErrCompactFormat, format[0])
		}
	}

	sd := &SchemaDef{}
	offset := 0
	for rest := strings.TrimSpace(format); rest != ""; rest = strings.TrimSpace(rest) {
		m := compactItemPattern.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("%w: unexpected %q", ErrCompactFormat, rest)
		}
		rest = rest[len(m[0]):]

		count := 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: count %q", ErrCompactFormat, m[1])
			}
			count = n
		}
		char, name := m[2][0], m[3]
		if name == "" {
			name = fmt.Sprintf("field_%d", len(sd.Fields))
		}

		switch char {
		case 'x':
			offset += count * 8
			continue
		case 's':
			sd.Fields = append(sd.Fields, FieldDef{
				Name:      name,
				Kind:      KindDef{Type: "Array", Count: count, StrideBits: 8, OffsetBits: offset},
				Fragments: []FragmentDef{{OffsetBits: 0, LenBits: 8}},
				Transform: &TransformDef{Base: "Bytes", Encoding: "Ascii", ZeroTerminated: true},
			})
			offset += count * 8
			continue
		}

		sf, ok := structFormats[char]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported format character %q", ErrCompactFormat, char)
		}

		fd := FieldDef{Name: name, Signed: sf.signed}
		if littleEndian && sf.size > 1 {
			// One fragment per byte, lowest byte first.
			fd.Assemble = "ConcatLsb"
			for i := 0; i < sf.size; i++ {
				fd.Fragments = append(fd.Fragments, FragmentDef{OffsetBits: i * 8, LenBits: 8})
			}
		} else {
			fd.Fragments = []FragmentDef{{OffsetBits: 0, LenBits: sf.size * 8}}
		}
		if sf.base != "" {
			fd.Transform = &TransformDef{Base: sf.base}
		}

		if count > 1 {
			fd.Kind = KindDef{Type: "Array", Count: count, StrideBits: sf.size * 8, OffsetBits: offset}
		} else {
			for i := range fd.Fragments {
				fd.Fragments[i].OffsetBits += offset
			}
		}
		sd.Fields = append(sd.Fields, fd)
		offset += count * sf.size * 8
	}

	if len(sd.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrCompactFormat)
	}
	return sd, nil
}
