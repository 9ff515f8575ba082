// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/internal/logger"
)

func newDecodeCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "decode <schema> [payload-hex]",
		Short: "Decode a payload into field values",
		Long: `The decode command parses a payload with a schema, applies the field
transforms and prints the values. The payload is given as hex arguments,
read raw from --file, or read as hex from stdin.

Example:
  bitschema decode sensor.yaml 01ff38dead
  bitschema decode sensor.yaml --file uplink.bin --output yaml
  echo "01 ff 38 de ad" | bitschema decode sensor.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, rest, err := a.loadCodec(args)
			if err != nil {
				return err
			}

			format, err := codec.ParseFormat(a.v.GetString("output"))
			if err != nil {
				return err
			}
			bf, err := codec.ParseBytesFormat(a.v.GetString("bytes-format"))
			if err != nil {
				return err
			}

			payload, err := readPayload(cmd, file, rest)
			if err != nil {
				return err
			}
			logger.Debug("decoding payload", "bytes", len(payload))

			values, err := c.Decode(payload)
			if err != nil {
				return err
			}
			out, err := codec.Marshal(values, format, codec.WithBytesFormat(bf))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read the raw payload from a file")
	return cmd
}

func readPayload(cmd *cobra.Command, file string, args []string) ([]byte, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected arguments with --file: %v", args)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	}

	text := strings.Join(args, "")
	if len(args) == 0 {
		in, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(in)
	}
	return parseHex(text)
}

// parseHex accepts hex with an optional 0x prefix and any whitespace.
func parseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid payload hex: %w", err)
	}
	return data, nil
}
