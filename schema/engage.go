// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import "strings"

// engage binds n to its parent and position, checks its length policy
// and recurses into its children in order. It stops at the first
// violation.
func (n *Node) engage(parent *Node, index int) error {
	if n.engaged {
		// Report against the node's place in the new tree without
		// touching the tree it already belongs to.
		return (&Node{name: n.name, parent: parent, dataType: n.dataType}).
			configErr(ErrAlreadyEngaged, "a node can belong to only one map")
	}
	n.parent = parent
	n.index = index
	n.engaged = true

	if err := n.checkShape(); err != nil {
		return err
	}
	if err := n.checkLength(); err != nil {
		return err
	}

	switch {
	case n.dataType.IsContainer():
		if err := n.checkChildNames(); err != nil {
			return err
		}
		for i, c := range n.children {
			if err := c.engage(n, i); err != nil {
				return err
			}
		}
	case n.dataType == RecordArray:
		if err := n.element.engage(n, 0); err != nil {
			return err
		}
	}
	return nil
}

// disengage undoes a failed engagement. Only nodes bound to this tree are
// reset, so a node that was rejected for belonging to another map keeps
// its binding there.
func (n *Node) disengage() {
	for _, c := range n.children {
		if c.parent == n && c.engaged {
			c.disengage()
		}
	}
	if n.element != nil && n.element.parent == n && n.element.engaged {
		n.element.disengage()
	}
	n.parent = nil
	n.index = 0
	n.engaged = false
}

func (n *Node) checkShape() error {
	if n.name == "" {
		return n.configErr(ErrInvalidName, "name is empty")
	}
	if strings.ContainsAny(n.name, ".[]") {
		return n.configErr(ErrInvalidName, "name %q contains a path separator", n.name)
	}
	switch {
	case n.dataType == File:
		if n.parent != nil {
			return n.configErr(ErrMalformedNode, "File can only be the root")
		}
	case n.parent == nil:
		return n.configErr(ErrMalformedNode, "root must be a File, not %s", n.dataType)
	case n.dataType == Record:
	case n.dataType == RecordArray:
		if n.element == nil {
			return n.configErr(ErrMalformedNode, "RecordArray has no element map")
		}
		if n.element.dataType != Record {
			return n.configErr(ErrMalformedNode, "element map must be a Record, not %s", n.element.dataType)
		}
	case n.dataType.IsField():
		if len(n.children) > 0 || n.element != nil {
			return n.configErr(ErrMalformedNode, "%s field cannot own other nodes", n.dataType)
		}
	default:
		return n.configErr(ErrMalformedNode, "unknown data type %s", n.dataType)
	}
	return nil
}

func (n *Node) checkChildNames() error {
	seen := make(map[string]bool, len(n.children))
	for _, c := range n.children {
		if c == nil {
			return n.configErr(ErrMalformedNode, "nil child")
		}
		if seen[c.name] {
			return n.configErr(ErrDuplicateName, "more than one child is named %q", c.name)
		}
		seen[c.name] = true
	}
	return nil
}

// checkLength enforces the length policy preconditions. Rules are checked
// in the order a reader would look for them: placement of
// RemainingOfRecord, then the parameters of the policy itself.
func (n *Node) checkLength() error {
	l := n.length
	if l.Type == RemainingOfRecord && n.parent != nil && n.parent.dataType.IsContainer() &&
		n.index != len(n.parent.children)-1 {
		return n.configErr(ErrRemainingNotLast, "%q follows it", n.parent.children[n.index+1].name)
	}

	switch l.Type {
	case FixedLength:
		if l.Fixed < 0 {
			return n.configErr(ErrMissingFixedLength, "")
		}

	case PreviousField:
		if n.index == 0 || n.parent == nil || !n.parent.dataType.IsContainer() {
			return n.configErr(ErrNoPreviousField, "")
		}
		prev := n.parent.children[n.index-1]
		if !prev.dataType.IsIntegral() {
			return n.configErr(ErrNoPreviousField, "previous field %q is %s, which has no integer value", prev.name, prev.dataType)
		}

	case ArbitraryField:
		target := n.Root().Item(l.Field)
		if target == nil || target.dataType != Integer {
			return n.configErr(ErrBadLengthField, "%q", l.Field)
		}
		if target == n {
			return n.configErr(ErrUnresolvableOrdering, "%q is the node it sizes", l.Field)
		}
		if !precedes(target, n) {
			return n.configErr(ErrUnresolvableOrdering, "%q is not decoded before this node", l.Field)
		}

	case FirstInnerField:
		if !n.dataType.IsContainer() {
			return n.configErr(ErrWrongDataType, "%s is only valid on Record or File, not %s", l.Type, n.dataType)
		}
		if len(n.children) == 0 || n.children[0] == nil {
			return n.configErr(ErrUnresolvableOrdering, "FirstInnerField record has no fields")
		}
		first := n.children[0]
		if first.dataType != Integer {
			return n.configErr(ErrWrongDataType, "first field %q is %s, not Integer", first.name, first.dataType)
		}
		if first.length.Type == RemainingOfRecord {
			return n.configErr(ErrUnresolvableOrdering, "first field %q is sized by the record it sizes", first.name)
		}

	case SumOfInnerFields:
		if !n.dataType.IsContainer() {
			return n.configErr(ErrWrongDataType, "%s is only valid on Record or File, not %s", l.Type, n.dataType)
		}

	case RemainingOfRecord:
		if n.parent == nil {
			return n.configErr(ErrRemainingAtRoot, "")
		}
		if n.parent.length.Type == SumOfInnerFields && n.dataType != RecordArray {
			return n.configErr(ErrRemainingInSum, "only a RecordArray can consume the rest of %q", n.parent.displayPath())
		}

	default:
		return n.configErr(ErrMissingLength, "")
	}
	return nil
}

// precedes reports whether a is met before b in a depth first walk from
// the root, which is the order the decoder completes fields in. A node
// inside b's subtree does not precede b. b must be engaged; a may not be
// yet, so the walk starts from b's root.
func precedes(a, b *Node) bool {
	found, before := false, false
	b.Root().Walk(func(node *Node, _ int) bool {
		if found {
			return false
		}
		switch node {
		case a:
			found, before = true, true
		case b:
			found = true
		}
		return !found
	})
	return before
}
