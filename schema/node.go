// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"strings"
)

// Node is one element of a record map. Which of children and element is
// used depends on the data type: Record and File own children, a
// RecordArray owns a single element Record, fields own neither.
//
// parent and index are set once by engagement and never change after.
type Node struct {
	name     string
	dataType DataType
	length   Length
	children []*Node
	element  *Node

	parent  *Node
	index   int
	engaged bool
}

// Field returns a leaf node. dataType should be one of ByteArray,
// Integer, Date, Time or DateTime.
func Field(name string, dataType DataType, length Length) *Node {
	return &Node{name: name, dataType: dataType, length: length}
}

// NewRecord returns a container node holding children in order.
func NewRecord(name string, length Length, children ...*Node) *Node {
	return &Node{name: name, dataType: Record, length: length, children: children}
}

// NewRecordArray returns a node that repeats element. For FixedLength,
// PreviousField and ArbitraryField the length is an element count;
// RemainingOfRecord repeats until the enclosing record is consumed.
func NewRecordArray(name string, length Length, element *Node) *Node {
	return &Node{name: name, dataType: RecordArray, length: length, element: element}
}

// NewFile builds the root of a map and engages the whole tree. On error
// the tree is left unengaged so its nodes may be reused in a corrected
// map.
func NewFile(name string, length Length, children ...*Node) (*Node, error) {
	root := &Node{name: name, dataType: File, length: length, children: children}
	if err := root.engage(nil, 0); err != nil {
		root.disengage()
		return nil, err
	}
	return root, nil
}

func (n *Node) Name() string { return n.name }
func (n *Node) DataType() DataType { return n.dataType }
func (n *Node) Length() Length { return n.length }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Index() int { return n.index }
func (n *Node) Element() *Node { return n.element }
func (n *Node) IsContainer() bool { return n.dataType.IsContainer() }
func (n *Node) IsRecordArray() bool { return n.dataType == RecordArray }

// Engaged reports whether the node belongs to a validated map.
func (n *Node) Engaged() bool { return n.engaged }

// Children returns the container's children. The slice is shared and
// must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Root climbs to the File node.
func (n *Node) Root() *Node {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Path returns the node's dotted path from the root. Nodes inside a
// repeated element are written with an empty index, as in
// "tracks[].code". The root's path is empty.
func (n *Node) Path() string {
	if n.parent == nil {
		return ""
	}
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		if cur.parent.dataType == RecordArray {
			continue
		}
		part := cur.name
		if cur.dataType == RecordArray && cur != n {
			part += "[]"
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (n *Node) displayPath() string {
	if p := n.Path(); p != "" {
		return p
	}
	if n.name == "" {
		return "<root>"
	}
	return n.name
}

// Child returns the direct child called name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Item resolves a dotted path relative to n. A segment following a
// RecordArray must be a non-negative index; every index selects the
// array's element map. Item returns nil when any segment fails to match.
func (n *Node) Item(path string) *Node {
	segments, ok := SplitPath(path)
	if !ok {
		return nil
	}
	cur := n
	for _, segment := range segments {
		switch {
		case cur.dataType.IsContainer():
			cur = cur.Child(segment)
			if cur == nil {
				return nil
			}
		case cur.dataType == RecordArray:
			if _, ok := ParseIndex(segment); !ok || cur.element == nil {
				return nil
			}
			cur = cur.element
		default:
			return nil
		}
	}
	return cur
}

// Walk visits n and its descendants depth first, element maps included.
// depth is zero for n. Returning false from fn skips the node's subtree.
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
	if n.element != nil {
		n.element.walk(fn, depth+1)
	}
}

func (n *Node) String() string {
	return n.displayPath() + " (" + n.dataType.String() + ", " + n.length.String() + ")"
}
