// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/def"
	"github.com/MultiTechSystems/bitschema/internal/logger"
)

const sensorSchema = `
name: sensor
fields:
  - name: status
    fragments: [{offset_bits: 0, len_bits: 8}]
    transform: {base: Int, enum_map: {0: ok, 1: fault}}
  - name: temp
    signed: true
    fragments: [{offset_bits: 8, len_bits: 16}]
    transform: {base: Int, scale: 0.5}
  - name: tag
    kind: {type: Array, count: 2, stride_bits: 8, offset_bits: 24}
    fragments: [{offset_bits: 0, len_bits: 8}]
    transform: {base: Bytes}
`

// writeFile writes content into dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	orig := logger.L
	t.Cleanup(func() { logger.L = orig })

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensor.yaml", sensorSchema)

	out, _, err := run(t, "", "validate", path)
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 fields, 40 bits (5 bytes)\n", out)

	out, _, err = run(t, "", "validate", "--compact", "<H:len 4s:name")
	require.NoError(t, err)
	assert.Equal(t, "ok: 2 fields, 48 bits (6 bytes)\n", out)

	bad := writeFile(t, t.TempDir(), "bad.yaml", "fields: [{name: a, fragments: [{offset_bits: 0, len_bits: 65}]}]")
	_, _, err = run(t, "", "validate", bad)
	assert.Error(t, err)

	_, _, err = run(t, "", "validate")
	assert.ErrorContains(t, err, "no schema given")
}

func TestDescribeCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensor.yaml", sensorSchema)

	out, _, err := run(t, "", "describe", path)
	require.NoError(t, err)
	for _, want := range []string{"NAME", "status", "temp", "tag", "8:16<<0", "2x8@24", "Bytes", "40 bits (5 bytes)"} {
		assert.Contains(t, out, want)
	}

	out, _, err = run(t, "", "describe", "--compact", "<H:len")
	require.NoError(t, err)
	assert.Contains(t, out, "0:8<<0 8:8<<8")
}

func TestDecodeCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensor.yaml", sensorSchema)

	out, _, err := run(t, "", "decode", path, "01ff38dead")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"status\": \"fault\",\n  \"tag\": \"dead\",\n  \"temp\": -100\n}\n", out)

	out, _, err = run(t, "01 ff 38\n de ad\n", "decode", path, "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "status: fault\ntag: dead\n")

	out, _, err = run(t, "", "decode", path, "01ff38dead", "--bytes-format", "base64")
	require.NoError(t, err)
	assert.Contains(t, out, `"tag": "3q0="`)

	raw := writeFile(t, dir, "uplink.bin", "\x00\x00\x02\x01\x02")
	out, _, err = run(t, "", "decode", path, "--file", raw)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"temp": 1`)
	assert.Contains(t, out, `"tag": "0102"`)

	out, _, err = run(t, "", "decode", "--compact", ">B:a H:b", "0x01", "0203")
	require.NoError(t, err)
	assert.Contains(t, out, `"a": 1`)
	assert.Contains(t, out, `"b": 515`)

	out, _, err = run(t, "", "decode", path, "01ff38dead", "--output", "cbor")
	require.NoError(t, err)
	back, err := codec.UnmarshalValues([]byte(out), codec.FormatCBOR)
	require.NoError(t, err)
	assert.Equal(t, "fault", back["status"])
}

func TestDecodeErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensor.yaml", sensorSchema)

	_, _, err := run(t, "", "decode", path, "01ff")
	assert.Error(t, err)

	_, _, err = run(t, "", "decode", path, "zz")
	assert.ErrorContains(t, err, "invalid payload hex")

	_, _, err = run(t, "", "decode", path, "01ff38dead", "--output", "xml")
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)

	_, _, err = run(t, "", "decode", path, "--file", "missing.bin")
	assert.ErrorContains(t, err, "failed to read payload")
}

func TestEncodeCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensor.yaml", sensorSchema)

	for name, doc := range map[string]string{
		"values.json": `{"status": 1, "temp": -200, "tag": [222, 173]}`,
		"values.yaml": "status: 1\ntemp: -200\ntag: [222, 173]\n",
	} {
		values := writeFile(t, dir, name, doc)
		out, _, err := run(t, "", "encode", path, values)
		require.NoError(t, err, name)
		assert.Equal(t, "01ff38dead\n", out, name)
	}

	values := writeFile(t, dir, "short.json", `{"status": 1, "temp": 2, "tag": [1, 2]}`)
	out, _, err := run(t, "", "encode", path, values, "--raw")
	require.NoError(t, err)
	assert.Equal(t, "\x01\x00\x02\x01\x02", out)

	missing := writeFile(t, dir, "missing.json", `{"status": 1}`)
	_, _, err = run(t, "", "encode", path, missing)
	assert.Error(t, err)

	_, _, err = run(t, "", "encode", path)
	assert.ErrorContains(t, err, "expected 1 values file")
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensor.yaml", sensorSchema)
	bin := filepath.Join(dir, "sensor.bin")

	_, errOut, err := run(t, "", "compile", path, "-o", bin, "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, errOut, "layout written")

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(def.BinaryMagic)))

	out, _, err := run(t, "", "decode", bin, "01ff38dead")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": 1`)
	assert.Contains(t, out, `"temp": -200`)

	_, _, err = run(t, "", "compile", path)
	assert.ErrorContains(t, err, "missing output file")
}

func TestConfigSources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensor.yaml", sensorSchema)

	t.Run("env", func(t *testing.T) {
		t.Setenv("BITSCHEMA_OUTPUT", "yaml")
		t.Setenv("BITSCHEMA_SCHEMA", path)
		out, _, err := run(t, "", "decode", "01ff38dead")
		require.NoError(t, err)
		assert.Contains(t, out, "status: fault")
	})

	t.Run("config file", func(t *testing.T) {
		cfg := writeFile(t, dir, "bitschema.yaml", "output: yaml\nbytes-format: hex:upper\n")
		out, _, err := run(t, "", "decode", path, "01ff38dead", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "tag: DEAD")
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("BITSCHEMA_OUTPUT", "yaml")
		out, _, err := run(t, "", "decode", path, "01ff38dead", "--output", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"status": "fault"`)
	})

	t.Run("missing config", func(t *testing.T) {
		_, _, err := run(t, "", "validate", path, "--config", filepath.Join(dir, "none.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("debug log", func(t *testing.T) {
		_, errOut, err := run(t, "", "validate", path, "--log-level", "debug", "--log-format", "json")
		require.NoError(t, err)
		assert.Contains(t, errOut, `"msg":"schema loaded"`)
	})
}

func TestParseHex(t *testing.T) {
	got, err := parseHex(" 0xDE ad\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, got)

	_, err = parseHex("abc")
	assert.Error(t, err)
}
