// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MultiTechSystems/bitschema/bits"
)

func mustCompile(t testing.TB, fields []Field, cfg *WriteConfig) *Schema {
	t.Helper()
	s, err := Compile(fields, cfg)
	require.NoError(t, err)
	return s
}

// denseFields covers 48 bits exactly once, mixing every assembly feature.
func denseFields() []Field {
	return []Field{
		Scalar("flags", NewFragment(0, 3)),
		{
			Name:      "temp",
			Signed:    true,
			Assemble:  ConcatLsb,
			Fragments: []Fragment{NewFragment(3, 5), NewFragment(8, 8)},
		},
		Scalar("mode", NewFragmentWithOrder(16, 4, bits.LsbFirst)),
		ArrayOf("samples", ArraySpec{Count: 3, StrideBits: 8, OffsetBits: 20}, NewFragment(0, 8)),
		Scalar("tail", NewFragment(44, 4)),
	}
}

func TestParseSeparateFields(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("id", NewFragment(0, 2)),
		Scalar("value", NewFragment(2, 11)),
		Scalar("crc", NewFragment(13, 3)),
	}, nil)

	got, err := s.Parse([]byte{0b11000001, 0b10000101})
	require.NoError(t, err)
	assert.Equal(t, Values{"id": U64(3), "value": U64(48), "crc": U64(5)}, got)
	assert.Equal(t, []string{"crc", "id", "value"}, got.Names())
}

func TestParseNonConsecutiveFragments(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("first_value", NewFragment(0, 8), NewFragment(16, 8)),
		Scalar("second_value", NewFragment(8, 8), NewFragment(24, 8)),
	}, nil)

	got, err := s.Parse([]byte{0b00000001, 0b00000010, 0b00000100, 0b00001000})
	require.NoError(t, err)
	assert.Equal(t, U64(0b00000001_00000100), got["first_value"])
	assert.Equal(t, U64(0b00000010_00001000), got["second_value"])
}

func TestParseOutOfOrderFragments(t *testing.T) {
	// Definition order, not buffer order, decides the high bits.
	s := mustCompile(t, []Field{
		Scalar("v", NewFragment(13, 3), NewFragment(2, 11)),
	}, nil)

	got, err := s.Parse([]byte{0b11000001, 0b10000101})
	require.NoError(t, err)
	assert.Equal(t, U64(5<<11|48), got["v"])
}

func TestParseConcatLsb(t *testing.T) {
	s := mustCompile(t, []Field{{
		Name:      "value",
		Assemble:  ConcatLsb,
		Fragments: []Fragment{NewFragment(4, 4), NewFragment(12, 4)},
	}}, nil)

	got, err := s.Parse([]byte{0b00001001, 0b00001100})
	require.NoError(t, err)
	assert.Equal(t, U64(0b11001001), got["value"])
}

func TestParseFragmentLsbFirst(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("v", NewFragmentWithOrder(0, 4, bits.LsbFirst)),
	}, nil)

	got, err := s.Parse([]byte{0b10000000})
	require.NoError(t, err)
	assert.Equal(t, U64(1), got["v"])
}

func TestParseSigned(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		bits int
		want I64
	}{
		{"all ones", []byte{0xff}, 8, -1},
		{"positive", []byte{0x7f}, 8, 127},
		{"min", []byte{0x80}, 8, -128},
		{"nibble", []byte{0xe0}, 4, -2},
		{"64 bit", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}, 64, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustCompile(t, []Field{{
				Name:      "v",
				Signed:    true,
				Fragments: []Fragment{NewFragment(0, tt.bits)},
			}}, nil)
			got, err := s.Parse(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got["v"])
		})
	}
}

func TestParseArray(t *testing.T) {
	s := mustCompile(t, []Field{
		ArrayOf("a", ArraySpec{Count: 4, StrideBits: 8}, NewFragment(0, 8)),
	}, nil)

	got, err := s.Parse([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, Array{U64(1), U64(2), U64(3), U64(4)}, got["a"])
}

func TestParseArrayWithStrideAndOffset(t *testing.T) {
	s := mustCompile(t, []Field{
		ArrayOf("a", ArraySpec{Count: 3, StrideBits: 12, OffsetBits: 4}, NewFragment(0, 4)),
	}, nil)
	assert.Equal(t, 32, s.TotalBits())

	got, err := s.Parse([]byte{0x01, 0x00, 0x20, 0x03})
	require.NoError(t, err)
	assert.Equal(t, Array{U64(1), U64(2), U64(3)}, got["a"])
}

func TestParseSignedArray(t *testing.T) {
	s := mustCompile(t, []Field{{
		Name:      "a",
		Kind:      KindArray,
		Array:     ArraySpec{Count: 2, StrideBits: 4},
		Signed:    true,
		Fragments: []Fragment{NewFragment(0, 4)},
	}}, nil)

	got, err := s.Parse([]byte{0xf7})
	require.NoError(t, err)
	assert.Equal(t, Array{I64(-1), I64(7)}, got["a"])
}

func TestParseEmptySchema(t *testing.T) {
	s := mustCompile(t, nil, nil)
	got, err := s.Parse([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseTooShort(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("a", NewFragment(0, 8)),
		Scalar("b", NewFragment(12, 8)),
	}, nil)
	assert.Equal(t, 20, s.TotalBits())
	assert.Equal(t, 3, s.TotalBytes())

	for _, data := range [][]byte{nil, {0xff}, {0xff, 0xff}} {
		got, err := s.Parse(data)
		assert.ErrorIs(t, err, ErrPacketTooShort)
		assert.Nil(t, got)
	}

	_, err := s.Parse([]byte{0xff, 0xff, 0xff, 0xff})
	assert.NoError(t, err, "trailing bytes are ignored")
}

func TestCompileShifts(t *testing.T) {
	frags := []Fragment{NewFragment(0, 3), NewFragment(3, 5), NewFragment(8, 8)}

	msb, err := CompileField(Field{Name: "m", Fragments: frags})
	require.NoError(t, err)
	lsb, err := CompileField(Field{Name: "l", Assemble: ConcatLsb, Fragments: frags})
	require.NoError(t, err)

	shifts := func(f CompiledField) []int {
		var out []int
		for _, cf := range f.Scalar().Fragments {
			out = append(out, cf.Shift)
		}
		return out
	}
	assert.Equal(t, []int{13, 8, 0}, shifts(msb))
	assert.Equal(t, []int{0, 3, 8}, shifts(lsb))
	assert.Equal(t, 16, msb.Scalar().TotalBits)
	assert.Nil(t, msb.Array())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  error
	}{
		{"empty name", Scalar("", NewFragment(0, 8)), ErrInvalidFieldName},
		{"no fragments", Scalar("f"), ErrInvalidFieldSize},
		{"too wide", Scalar("f", NewFragment(0, 60), NewFragment(60, 5)), ErrInvalidFieldSize},
		{"zero length fragment", Scalar("f", NewFragment(0, 8), NewFragment(8, 0)), ErrInvalidFragment},
		{"negative offset", Scalar("f", NewFragment(-1, 8)), ErrInvalidFragment},
		{"bad bit order", Scalar("f", NewFragmentWithOrder(0, 8, bits.Order(9))), ErrInvalidFragment},
		{"array count", ArrayOf("f", ArraySpec{Count: 0, StrideBits: 8}, NewFragment(0, 8)), ErrInvalidArrayCount},
		{"array stride", ArrayOf("f", ArraySpec{Count: 2, StrideBits: 4}, NewFragment(0, 8)), ErrInvalidArrayStride},
		{"array negative offset", ArrayOf("f", ArraySpec{Count: 2, StrideBits: 8, OffsetBits: -8}, NewFragment(0, 8)), ErrInvalidArrayStride},
		{"array empty element", ArrayOf("f", ArraySpec{Count: 2, StrideBits: 8}), ErrEmptyArrayElement},
		{"unknown kind", Field{Name: "f", Kind: Kind(9), Fragments: []Fragment{NewFragment(0, 8)}}, ErrInvalidFieldKind},
		{"unknown assemble", Field{Name: "f", Assemble: Assemble(7), Fragments: []Fragment{NewFragment(0, 8)}}, ErrInvalidFieldKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileField(tt.field)
			assert.ErrorIs(t, err, tt.want)

			_, err = Compile([]Field{Scalar("ok", NewFragment(0, 8)), tt.field}, nil)
			require.ErrorIs(t, err, tt.want)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, 1, fe.Index)
			assert.Equal(t, tt.field.Name, fe.Field)
		})
	}
}

func TestCompileWidths(t *testing.T) {
	_, err := CompileField(Scalar("f", NewFragment(0, 64)))
	assert.NoError(t, err)
	_, err = CompileField(Scalar("f", NewFragment(0, 32), NewFragment(40, 32)))
	assert.NoError(t, err)
	_, err = CompileField(ArrayOf("f", ArraySpec{Count: 1, StrideBits: 8}, NewFragment(0, 8)))
	assert.NoError(t, err)
}

func TestCompileDuplicateName(t *testing.T) {
	_, err := Compile([]Field{
		Scalar("a", NewFragment(0, 8)),
		Scalar("a", NewFragment(8, 8)),
	}, nil)
	assert.ErrorIs(t, err, ErrDuplicateFieldName)
	assert.Contains(t, err.Error(), `field "a"`)
}

func TestCompileTotalBits(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("a", NewFragment(0, 8), NewFragment(30, 2)),
		ArrayOf("b", ArraySpec{Count: 3, StrideBits: 10, OffsetBits: 8}, NewFragment(0, 8)),
	}, nil)
	assert.Equal(t, 36, s.TotalBits())
	assert.Equal(t, 5, s.TotalBytes())
	assert.Len(t, s.Fields(), 2)

	f, ok := s.Field("b")
	require.True(t, ok)
	assert.Equal(t, 3, f.Array().Count)
	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestSerializeRoundTrip(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("id", NewFragment(0, 2)),
		Scalar("value", NewFragment(2, 11)),
		Scalar("crc", NewFragment(13, 3)),
	}, nil)

	data := []byte{0b11000001, 0b10000101}
	values, err := s.Parse(data)
	require.NoError(t, err)
	out, err := s.Serialize(values)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestSerializeRoundTripDense(t *testing.T) {
	s := mustCompile(t, denseFields(), nil)
	require.Equal(t, 48, s.TotalBits())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		data := make([]byte, s.TotalBytes())
		rng.Read(data)

		values, err := s.Parse(data)
		require.NoError(t, err)
		out, err := s.Serialize(values)
		require.NoError(t, err)
		require.Equal(t, data, out, "payload %x", data)
	}
}

func TestSerializeValues(t *testing.T) {
	s := mustCompile(t, denseFields(), nil)

	out, err := s.Serialize(map[string]Value{
		"flags":   U64(0b101),
		"temp":    I64(-2),
		"mode":    U64(1),
		"samples": Array{U64(0xaa), U64(0xbb), U64(0xcc)},
		"tail":    U64(0xf),
	})
	require.NoError(t, err)

	back, err := s.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Values{
		"flags":   U64(0b101),
		"temp":    I64(-2),
		"mode":    U64(1),
		"samples": Array{U64(0xaa), U64(0xbb), U64(0xcc)},
		"tail":    U64(0xf),
	}, back)
}

func TestSerializeGapsAreZero(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("a", NewFragment(0, 4)),
		Scalar("b", NewFragment(8, 4)),
	}, nil)

	values, err := s.Parse([]byte{0xff, 0xff})
	require.NoError(t, err)
	out, err := s.Serialize(values)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf0, 0xf0}, out)
}

func TestSerializeOffsetAware(t *testing.T) {
	// Fields defined out of layout order still land at their offsets.
	s := mustCompile(t, []Field{
		Scalar("second", NewFragment(8, 8)),
		Scalar("first", NewFragment(0, 8)),
	}, nil)

	out, err := s.Serialize(map[string]Value{"first": U64(1), "second": U64(2)})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, out)
}

func TestSerializeLsbFirstPacking(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("a", NewFragment(0, 8)),
		Scalar("b", NewFragment(8, 4)),
	}, &WriteConfig{BitOrder: bits.LsbFirst})
	assert.Equal(t, bits.LsbFirst, s.WriteConfig().BitOrder)

	out, err := s.Serialize(map[string]Value{"a": U64(0b00000001), "b": U64(0b1000)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0b10000000, 0b00000001}, out)
}

func TestSerializePartialByte(t *testing.T) {
	fields := []Field{
		Scalar("a", NewFragment(0, 4)),
		Scalar("b", NewFragment(4, 8)),
	}
	values := map[string]Value{"a": U64(0b1010), "b": U64(0xff)}

	tests := []struct {
		order bits.Order
		want  []byte
	}{
		{bits.MsbFirst, []byte{0xaf, 0xf0}},
		{bits.LsbFirst, []byte{0xf5, 0x0f}},
	}

	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			s := mustCompile(t, fields, &WriteConfig{BitOrder: tt.order})
			require.Equal(t, 12, s.TotalBits())

			out, err := s.Serialize(values)
			require.NoError(t, err)
			assert.Len(t, out, s.TotalBytes())
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSerializeFarFragment(t *testing.T) {
	s := mustCompile(t, []Field{Scalar("f", NewFragment(1<<20, 1))}, nil)
	require.Equal(t, 1<<20+1, s.TotalBits())

	out, err := s.Serialize(map[string]Value{"f": U64(1)})
	require.NoError(t, err)
	require.Len(t, out, 1<<17+1)
	assert.Equal(t, byte(0x80), out[len(out)-1])
	assert.Equal(t, make([]byte, 1<<17), out[:1<<17])
}

func TestSerializeRanges(t *testing.T) {
	s := mustCompile(t, []Field{Scalar("v", NewFragment(0, 8))}, nil)

	tests := []struct {
		name  string
		value Value
		want  []byte
		err   error
	}{
		{"max unsigned", U64(255), []byte{0xff}, nil},
		{"unsigned overflow", U64(256), nil, ErrInvalidValue},
		{"positive signed", I64(255), []byte{0xff}, nil},
		{"negative signed", I64(-128), []byte{0x80}, nil},
		{"minus one", I64(-1), []byte{0xff}, nil},
		{"signed underflow", I64(-129), nil, ErrInvalidValue},
		{"signed overflow", I64(256), nil, ErrInvalidValue},
		{"array for scalar", Array{U64(1)}, nil, ErrInvalidValue},
		{"nil", nil, nil, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Serialize(map[string]Value{"v": tt.value})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerialize64BitValues(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("u", NewFragment(0, 64)),
		{Name: "i", Signed: true, Fragments: []Fragment{NewFragment(64, 64)}},
	}, nil)

	values := Values{"u": U64(^uint64(0)), "i": I64(-9223372036854775808)}
	out, err := s.Serialize(values)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x80, 0, 0, 0, 0, 0, 0, 0}, out)

	back, err := s.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, values, back)
}

func TestSerializeArrayErrors(t *testing.T) {
	s := mustCompile(t, []Field{
		ArrayOf("a", ArraySpec{Count: 2, StrideBits: 8}, NewFragment(0, 8)),
	}, nil)

	_, err := s.Serialize(map[string]Value{"a": U64(1)})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.Serialize(map[string]Value{"a": Array{U64(1)}})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.Serialize(map[string]Value{"a": Array{U64(1), Array{U64(2)}}})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "element 1")

	out, err := s.Serialize(map[string]Value{"a": Array{U64(1), I64(-1)}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0xff}, out)
}

func TestSerializeMissingField(t *testing.T) {
	s := mustCompile(t, []Field{
		Scalar("a", NewFragment(0, 8)),
		Scalar("b", NewFragment(8, 8)),
	}, nil)

	_, err := s.Serialize(map[string]Value{"a": U64(1), "extra": U64(9)})
	require.ErrorIs(t, err, ErrMissingField)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "b", fe.Field)
	assert.Equal(t, 1, fe.Index)
}

func TestConcurrentParse(t *testing.T) {
	s := mustCompile(t, denseFields(), nil)
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x12, 0x34}
	want, err := s.Parse(data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := s.Parse(data)
				if err != nil {
					errs <- err
					return
				}
				if got["temp"] != want["temp"] {
					errs <- errors.New("mismatched decode")
					return
				}
				if _, err := s.Serialize(got); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
