// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package bigendian converts arbitrary-length big-endian byte runs to
// unsigned integers.
package bigendian

// Uint interprets data as an unsigned big-endian integer. Leading zero
// bytes are ignored, so runs longer than eight bytes convert as long as
// the significant part fits. ok is false when the value overflows uint64.
// An empty run is zero.
func Uint(data []byte) (val uint64, ok bool) {
	significant := 0
	for _, b := range data {
		if significant == 0 && b == 0 {
			continue
		}
		significant++
		if significant > 8 {
			return 0, false
		}
		val = (val << 8) | uint64(b)
	}
	return val, true
}
