// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/MultiTechSystems/recordmap/schema"
)

// DefaultMaxElements caps how many elements a single RecordArray may
// decode.
const DefaultMaxElements = 1 << 20

type options struct {
	log         zerolog.Logger
	loc         *time.Location
	maxElements int
}

// Option configures a decode.
type Option func(*options)

// WithLogger sets the logger that receives per-container debug events.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithLocation sets the time zone Date and DateTime values are read in.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithMaxElements overrides DefaultMaxElements.
func WithMaxElements(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxElements = n
		}
	}
}

// decoder holds the state of one Decode call.
type decoder struct {
	root *Node
	opts options
}

// Decode walks buf according to the map rooted at file and returns the
// decoded tree. buf is copied; the caller may reuse it afterwards.
func Decode(file *schema.Node, buf []byte, opts ...Option) (*Node, error) {
	o := options{log: zerolog.Nop(), loc: time.UTC, maxElements: DefaultMaxElements}
	for _, opt := range opts {
		opt(&o)
	}
	if file == nil || file.DataType() != schema.File || file.Parent() != nil || !file.Engaged() {
		return nil, &DecodeError{Path: "<root>", Kind: ErrNotFile}
	}

	owned := make([]byte, len(buf))
	copy(owned, buf)
	root := &Node{schema: file, buf: owned, loc: o.loc}
	root.root = root

	d := &decoder{root: root, opts: o}
	if err := d.decodeContainer(root, len(owned)); err != nil {
		o.log.Debug().Err(err).Str("map", file.Name()).Int("bytes", len(owned)).Msg("decode failed")
		return nil, err
	}
	if root.length != len(owned) {
		return nil, root.errorf(ErrBufferMismatch, "decoded %d bytes of %d", root.length, len(owned))
	}
	return root, nil
}

// decodeNode decodes one node starting at offset. bound is the offset the
// node may not extend past: the end of the nearest enclosing record whose
// length is already known, or the end of the buffer.
//
// The node is attached to its parent before its own children are decoded
// so that ArbitraryField paths can reach fields decoded earlier inside it.
func (d *decoder) decodeNode(parent *Node, s *schema.Node, offset, bound int) (*Node, error) {
	n := &Node{
		schema: s,
		parent: parent,
		root:   d.root,
		index:  len(parent.children),
		offset: offset,
	}
	parent.children = append(parent.children, n)

	var err error
	switch {
	case s.DataType().IsContainer():
		err = d.decodeContainer(n, bound)
	case s.DataType() == schema.RecordArray:
		err = d.decodeArray(n, bound)
	default:
		err = d.decodeField(n, bound)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (d *decoder) decodeField(n *Node, bound int) error {
	length, err := d.resolve(n, bound)
	if err != nil {
		return err
	}
	if length > bound-n.offset {
		return n.errorf(ErrOutOfRange, "needs %d bytes at offset %d, only %d remain", length, n.offset, bound-n.offset)
	}
	n.length = length
	return nil
}

// decodeContainer resolves the container's length, decodes its children
// left to right and checks that they cover it exactly. FirstInnerField
// and SumOfInnerFields containers take their length from the children;
// every other policy is checked against them.
func (d *decoder) decodeContainer(n *Node, bound int) error {
	policy := n.lengthPolicy().Type
	length, known := 0, false
	if policy != schema.FirstInnerField && policy != schema.SumOfInnerFields {
		var err error
		if length, err = d.resolve(n, bound); err != nil {
			return err
		}
		known = true
	}

	end := bound
	if known {
		if err := d.checkDeclared(n, length, bound); err != nil {
			return err
		}
		end = n.offset + length
	}

	offset := n.offset
	for i, cs := range n.schema.Children() {
		child, err := d.decodeNode(n, cs, offset, end)
		if err != nil {
			return err
		}
		offset += child.length

		if i == 0 && policy == schema.FirstInnerField {
			if length, err = d.intValue(child, n); err != nil {
				return err
			}
			known = true
			if err := d.checkDeclared(n, length, bound); err != nil {
				return err
			}
			if offset > n.offset+length {
				return n.errorf(ErrLengthMismatch, "declared length %d is shorter than its first field", length)
			}
			end = n.offset + length
		}
	}

	sum := offset - n.offset
	if policy == schema.SumOfInnerFields {
		length = sum
		if err := d.checkDeclared(n, length, bound); err != nil {
			return err
		}
	}
	if sum != length {
		return n.errorf(ErrLengthMismatch, "children cover %d bytes, record length is %d", sum, length)
	}
	n.length = length

	d.opts.log.Debug().
		Str("path", n.displayPath()).
		Str("type", n.DataType().String()).
		Int("offset", n.offset).
		Int("length", n.length).
		Int("children", len(n.children)).
		Msg("decoded record")
	return nil
}

// checkDeclared rejects a container length that does not fit in bound.
// At the root the bound is the buffer itself.
func (d *decoder) checkDeclared(n *Node, length, bound int) error {
	if n.parent == nil {
		if length != bound {
			return n.errorf(ErrBufferMismatch, "record length is %d, buffer holds %d bytes", length, bound)
		}
		return nil
	}
	if length > bound-n.offset {
		return n.errorf(ErrOutOfRange, "record length %d at offset %d exceeds %d", length, n.offset, bound)
	}
	return nil
}

// decodeArray decodes elements until the resolved count is reached, or,
// for RemainingOfRecord, until the elements reach bound.
func (d *decoder) decodeArray(n *Node, bound int) error {
	element := n.schema.Element()
	offset := n.offset

	if n.lengthPolicy().Type == schema.RemainingOfRecord {
		for offset < bound {
			if len(n.children) >= d.opts.maxElements {
				return n.errorf(ErrTooManyElements, "limit is %d", d.opts.maxElements)
			}
			child, err := d.decodeNode(n, element, offset, bound)
			if err != nil {
				return err
			}
			if child.length == 0 {
				return child.errorf(ErrZeroLengthElement, "cannot fill %d remaining bytes", bound-offset)
			}
			offset += child.length
		}
	} else {
		count, err := d.resolve(n, bound)
		if err != nil {
			return err
		}
		if count > d.opts.maxElements {
			return n.errorf(ErrTooManyElements, "count %d, limit is %d", count, d.opts.maxElements)
		}
		for i := 0; i < count; i++ {
			child, err := d.decodeNode(n, element, offset, bound)
			if err != nil {
				return err
			}
			offset += child.length
		}
	}
	n.length = offset - n.offset

	d.opts.log.Debug().
		Str("path", n.displayPath()).
		Int("offset", n.offset).
		Int("length", n.length).
		Int("elements", len(n.children)).
		Msg("decoded record array")
	return nil
}

// resolve computes the length a node's policy yields before any of its
// own children are decoded. For a RecordArray the result is an element
// count.
func (d *decoder) resolve(n *Node, bound int) (int, error) {
	l := n.lengthPolicy()
	switch l.Type {
	case schema.FixedLength:
		return l.Fixed, nil

	case schema.PreviousField:
		if n.index == 0 {
			return 0, n.errorf(ErrUndefinedLength, "no previous field")
		}
		return d.intValue(n.parent.children[n.index-1], n)

	case schema.ArbitraryField:
		src := d.root.Item(l.Field)
		if src == nil {
			return 0, n.errorf(ErrUndefinedLength, "length field %q was not decoded", l.Field)
		}
		return d.intValue(src, n)

	case schema.RemainingOfRecord:
		if bound < n.offset {
			return 0, n.errorf(ErrOutOfRange, "offset %d is past the end of the record at %d", n.offset, bound)
		}
		return bound - n.offset, nil
	}
	return 0, n.errorf(ErrUndefinedLength, "%s", l.Type)
}

// intValue reads src as a length for n.
func (d *decoder) intValue(src, n *Node) (int, error) {
	if !src.isLeaf() {
		return 0, n.errorf(ErrNotInteger, "%s is a %s", src.displayPath(), src.DataType())
	}
	v, err := src.Integer()
	if err != nil {
		return 0, n.errorf(ErrNotInteger, "%s: %v", src.displayPath(), err)
	}
	if v > math.MaxInt32 {
		return 0, n.errorf(ErrOutOfRange, "%s holds %d", src.displayPath(), v)
	}
	return int(v), nil
}
