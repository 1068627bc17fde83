// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package data decodes byte buffers against an engaged record map.
//
// Decode copies the buffer once and builds a tree of Nodes mirroring the
// map. Every node is an (offset, length) view into that single copy;
// nothing else stores bytes. Lengths are resolved while walking the
// buffer left to right, so a node can be sized by fields decoded before
// it. After a container's children are decoded their lengths must add up
// to the container's length exactly, and the root must cover the whole
// buffer.
//
// A decode either returns a complete tree or a *DecodeError naming the
// node that failed. Trees are read-only; the map they were decoded with
// may be shared by concurrent decodes.
//
//	root, err := data.Decode(m.File, payload)
//	if err != nil {
//	    return err
//	}
//	code, err := root.Item("tracks[1].code").Integer()
package data
