// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package hexdump formats byte runs as rows of uppercase hex pairs.
package hexdump

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Line renders data as space separated hex pairs on a single line.
func Line(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	enc := strings.ToUpper(hex.EncodeToString(data))
	pairs := make([]string, len(data))
	for i := range pairs {
		pairs[i] = enc[2*i : 2*i+2]
	}
	return strings.Join(pairs, " ")
}

// Dump renders data in rows of bytesPerLine bytes, each row prefixed by
// its four digit hex offset. Rows are separated by newlines with no
// trailing newline. A bytesPerLine below one is treated as sixteen.
func Dump(data []byte, bytesPerLine int) string {
	if bytesPerLine < 1 {
		bytesPerLine = 16
	}
	rows := make([]string, 0, (len(data)+bytesPerLine-1)/bytesPerLine)
	for offset := 0; offset < len(data); offset += bytesPerLine {
		end := min(offset+bytesPerLine, len(data))
		rows = append(rows, fmt.Sprintf("%04X: %s", offset, Line(data[offset:end])))
	}
	return strings.Join(rows, "\n")
}
