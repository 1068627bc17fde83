// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/MultiTechSystems/recordmap/schema"
)

// Node is a decoded element: the schema node it was decoded with and the
// byte range it occupies. For Records and the File, children mirror the
// schema's children; for a RecordArray they are the decoded elements.
//
// Only the root holds bytes (buf); every other node reads through root.
type Node struct {
	schema   *schema.Node
	parent   *Node
	root     *Node
	index    int
	offset   int
	length   int
	children []*Node

	buf []byte
	loc *time.Location
}

func (n *Node) Schema() *schema.Node { return n.schema }
func (n *Node) Name() string { return n.schema.Name() }
func (n *Node) DataType() schema.DataType { return n.schema.DataType() }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Root() *Node { return n.root }
func (n *Node) Index() int { return n.index }
func (n *Node) Offset() int { return n.offset }
func (n *Node) Length() int { return n.length }
func (n *Node) Len() int { return len(n.children) }
func (n *Node) IsContainer() bool { return n.schema.IsContainer() }
func (n *Node) IsRecordArray() bool { return n.schema.IsRecordArray() }
func (n *Node) location() *time.Location { return n.root.loc }
func (n *Node) end() int { return n.offset + n.length }
func (n *Node) isLeaf() bool { return n.schema.DataType().IsField() }
func (n *Node) lengthPolicy() schema.Length { return n.schema.Length() }

// Children returns the decoded children, or the elements of a
// RecordArray. The slice is shared and must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Child returns the direct child called name, or nil. Elements of a
// RecordArray are reached with Element.
func (n *Node) Child(name string) *Node {
	if !n.IsContainer() {
		return nil
	}
	for _, c := range n.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Element returns the i-th decoded element of a RecordArray, or nil.
func (n *Node) Element(i int) *Node {
	if !n.IsRecordArray() || i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Item resolves a dotted path relative to n, for example
// "header.tracks[2].code". Each segment after a RecordArray selects a
// decoded element by position. Item returns nil when any segment fails
// to match or an index is out of range.
func (n *Node) Item(path string) *Node {
	segments, ok := schema.SplitPath(path)
	if !ok {
		return nil
	}
	cur := n
	for _, segment := range segments {
		switch {
		case cur.IsContainer():
			cur = cur.Child(segment)
		case cur.IsRecordArray():
			i, ok := schema.ParseIndex(segment)
			if !ok {
				return nil
			}
			cur = cur.Element(i)
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Path returns the node's path from the root with element indexes, as
// accepted by Item on the root. The root's path is empty.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		if cur.parent.IsRecordArray() {
			parts = append(parts, "["+strconv.Itoa(cur.index)+"]")
			continue
		}
		parts = append(parts, cur.Name())
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		if sb.Len() > 0 && parts[i][0] != '[' {
			sb.WriteByte('.')
		}
		sb.WriteString(parts[i])
	}
	return sb.String()
}

func (n *Node) displayPath() string {
	if p := n.Path(); p != "" {
		return p
	}
	return n.Name()
}

// Walk visits n and its descendants depth first. depth is zero for n.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		c.walk(fn, depth+1)
	}
}
