// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"strconv"
	"strings"
)

// SplitPath breaks a path such as "header.tracks[2].code" into its
// segments ("header", "tracks", "2", "code"). An index is emitted as a
// segment of its own. ok is false for an empty or malformed path.
func SplitPath(path string) (segments []string, ok bool) {
	if path == "" {
		return nil, false
	}
	for i, part := range strings.Split(path, ".") {
		name, rest, hasIndex := strings.Cut(part, "[")
		switch {
		case name != "":
			segments = append(segments, name)
		case !hasIndex:
			return nil, false
		case i > 0:
			// "a.[1]" is not a path.
			return nil, false
		}
		for hasIndex {
			var index string
			index, rest, ok = strings.Cut(rest, "]")
			if !ok || index == "" {
				return nil, false
			}
			segments = append(segments, index)
			if rest == "" {
				break
			}
			if rest[0] != '[' {
				return nil, false
			}
			rest = rest[1:]
		}
	}
	return segments, true
}

// ParseIndex reads a numeric path segment. ok is false for anything but
// a non-negative decimal.
func ParseIndex(segment string) (int, bool) {
	if segment == "" || segment[0] == '+' || segment[0] == '-' {
		return 0, false
	}
	index, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return index, true
}
