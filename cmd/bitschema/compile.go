// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/bitschema/def"
	"github.com/MultiTechSystems/bitschema/internal/logger"
)

func newCompileCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile <schema> -o <file>",
		Short: "Write the binary layout of a schema",
		Long: `The compile command checks a schema and writes its field layout in the
compact binary form. Transforms are not included. The result can be used
anywhere a schema file is accepted.

Example:
  bitschema compile sensor.yaml -o sensor.bin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("missing output file: use -o")
			}

			sd, _, err := a.loadDef(args)
			if err != nil {
				return err
			}
			if _, err := sd.Compile(); err != nil {
				return err
			}
			data, err := def.EncodeBinary(sd)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write layout: %w", err)
			}

			logger.Info("layout written", "path", out, "bytes", len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	return cmd
}
