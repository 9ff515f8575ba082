// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check that a schema compiles",
		Long: `The validate command parses and compiles a schema, including its
transforms, and prints its size.

Example:
  bitschema validate sensor.yaml
  bitschema validate --compact "<H:len 4s:name"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.loadCodec(args)
			if err != nil {
				return err
			}
			s := c.Schema()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d fields, %d bits (%d bytes)\n",
				len(s.Fields()), s.TotalBits(), s.TotalBytes())
			return nil
		},
	}
}
