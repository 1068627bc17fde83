// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package dump renders record maps and decoded trees as indented text
// tables for diagnostics.
package dump

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/MultiTechSystems/recordmap/data"
	"github.com/MultiTechSystems/recordmap/internal/hexdump"
	"github.com/MultiTechSystems/recordmap/schema"
)

// DefaultBytesPerLine is the row width of the raw buffer section.
const DefaultBytesPerLine = 16

const indent = "  "

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
}

// WriteSchema writes one row per node of the map: the name indented by
// depth, the data type and the length policy. RecordArray elements are
// listed below their array.
func WriteSchema(w io.Writer, root *schema.Node) error {
	table := newTable(w)
	fmt.Fprintf(table, "NAME\tTYPE\tLENGTH\n")
	root.Walk(func(n *schema.Node, depth int) bool {
		fmt.Fprintf(table, "%s%s\t%s\t%s\n", strings.Repeat(indent, depth), n.Name(), n.DataType(), n.Length())
		return true
	})
	return table.Flush()
}

// Schema returns the WriteSchema table as a string.
func Schema(root *schema.Node) string {
	var sb strings.Builder
	_ = WriteSchema(&sb, root)
	return sb.String()
}

// WriteData writes the decoded buffer in hex rows of bytesPerLine, then a
// table of every decoded node: its name indented by depth, the field
// value or a container marker, and the field's bytes.
func WriteData(w io.Writer, root *data.Node, bytesPerLine int) error {
	if bytesPerLine < 1 {
		bytesPerLine = DefaultBytesPerLine
	}
	buf := root.Bytes()
	if _, err := fmt.Fprintf(w, "%s (%s)\n", root.Name(), humanize.Bytes(uint64(len(buf)))); err != nil {
		return err
	}
	if len(buf) > 0 {
		if _, err := fmt.Fprintf(w, "%s\n", hexdump.Dump(buf, bytesPerLine)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	table := newTable(w)
	fmt.Fprintf(table, "NAME\tVALUE\tBYTES\n")
	root.Walk(func(n *data.Node, depth int) bool {
		fmt.Fprintf(table, "%s%s\t%s\t%s\n", strings.Repeat(indent, depth), label(n), value(n), leafBytes(n))
		return true
	})
	return table.Flush()
}

// Data returns the WriteData report as a string.
func Data(root *data.Node, bytesPerLine int) string {
	var sb strings.Builder
	_ = WriteData(&sb, root, bytesPerLine)
	return sb.String()
}

// label names array elements by their position.
func label(n *data.Node) string {
	if p := n.Parent(); p != nil && p.IsRecordArray() {
		return n.Name() + "[" + strconv.Itoa(n.Index()) + "]"
	}
	return n.Name()
}

func value(n *data.Node) string {
	switch n.DataType() {
	case schema.File:
		return "<file>"
	case schema.Record:
		return "<record>"
	case schema.RecordArray:
		return "<array " + strconv.Itoa(n.Len()) + ">"
	}
	s, err := n.ValueString()
	if err != nil {
		return "<err>"
	}
	return s
}

func leafBytes(n *data.Node) string {
	if !n.DataType().IsField() {
		return ""
	}
	return hexdump.Line(n.Bytes())
}
