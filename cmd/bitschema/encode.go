// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/bitschema/codec"
)

func newEncodeCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "encode <schema> <values>",
		Short: "Serialize field values into a payload",
		Long: `The encode command reads raw field values from a JSON, YAML or CBOR
document (chosen by file extension) and prints the serialized payload as
hex. Values are the integers a decode without transforms would produce;
arrays are lists.

Example:
  bitschema encode sensor.yaml values.json
  bitschema encode sensor.yaml values.yaml --raw > uplink.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, rest, err := a.loadCodec(args)
			if err != nil {
				return err
			}
			if len(rest) != 1 {
				return fmt.Errorf("expected 1 values file, got %d", len(rest))
			}

			data, err := os.ReadFile(rest[0])
			if err != nil {
				return fmt.Errorf("failed to read values: %w", err)
			}
			values, err := codec.UnmarshalValues(data, valuesFormat(rest[0]))
			if err != nil {
				return err
			}

			payload, err := c.EncodeAny(values)
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(payload))
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Write raw bytes instead of hex")
	return cmd
}

func valuesFormat(path string) codec.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return codec.FormatYAML
	case ".cbor":
		return codec.FormatCBOR
	default:
		return codec.FormatJSON
	}
}
