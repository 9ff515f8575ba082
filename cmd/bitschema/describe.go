// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/bitschema/bits"
	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/schema"
)

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema>",
		Short: "Print the compiled field table",
		Long: `The describe command prints one row per field. Fragments are shown as
offset:length<<shift, where shift is the bit position of the fragment in
the assembled value. LSB-first fragments are marked /lsb.

Example:
  bitschema describe sensor.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.loadCodec(args)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"name", "kind", "signed", "bits", "fragments", "array", "transform"})
			table.SetAutoWrapText(false)
			table.SetBorder(true)
			table.AppendBulk(describeRows(c))
			table.Render()

			s := c.Schema()
			fmt.Fprintf(cmd.OutOrStdout(), "%d bits (%d bytes)\n", s.TotalBits(), s.TotalBytes())
			return nil
		},
	}
}

func describeRows(c *codec.Codec) [][]string {
	fields := c.Schema().Fields()
	rows := make([][]string, 0, len(fields))

	for _, f := range fields {
		elem := f.Scalar()
		arr := "-"
		if a := f.Array(); a != nil {
			elem = &a.Element
			arr = fmt.Sprintf("%dx%d@%d", a.Count, a.StrideBits, a.OffsetBits)
		}

		tr := "-"
		if t := c.Transform(f.Name); t != nil {
			tr = t.Base().String()
		}

		kind := schema.KindScalar
		if f.Array() != nil {
			kind = schema.KindArray
		}

		rows = append(rows, []string{
			f.Name,
			kind.String(),
			strconv.FormatBool(elem.Signed),
			strconv.Itoa(elem.TotalBits),
			fragmentList(elem.Fragments),
			arr,
			tr,
		})
	}
	return rows
}

func fragmentList(frags []schema.CompiledFragment) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = fmt.Sprintf("%d:%d<<%d", f.OffsetBits, f.LenBits, f.Shift)
		if f.BitOrder == bits.LsbFirst {
			parts[i] += "/lsb"
		}
	}
	return strings.Join(parts, " ")
}
