// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/MultiTechSystems/recordmap/schema"
)

// cborMode encodes with Core Deterministic Encoding, so equal trees
// produce identical bytes. Times are written as RFC 3339 text.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic("data: CBOR encoder initialization failed: " + err.Error())
	}
}

// Value converts the tree under n into plain Go values: map[string]any
// for records, []any for record arrays, []byte for ByteArray, uint64 for
// Integer, time.Time for Date and DateTime, and the "hh:mm:ss" clock
// string for Time.
func (n *Node) Value() (any, error) {
	switch {
	case n.IsContainer():
		out := make(map[string]any, len(n.children))
		for _, c := range n.children {
			v, err := c.Value()
			if err != nil {
				return nil, err
			}
			out[c.Name()] = v
		}
		return out, nil
	case n.IsRecordArray():
		out := make([]any, 0, len(n.children))
		for _, c := range n.children {
			v, err := c.Value()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return n.fieldValue()
}

func (n *Node) fieldValue() (any, error) {
	switch n.DataType() {
	case schema.ByteArray:
		return append([]byte(nil), n.Bytes()...), nil
	case schema.Integer:
		return n.Integer()
	case schema.Date:
		return n.Date()
	case schema.Time:
		secs, err := n.Time()
		if err != nil {
			return nil, err
		}
		return clock(secs), nil
	case schema.DateTime:
		return n.DateTime()
	}
	return nil, n.errorf(ErrWrongType, "no field value for %s", n.DataType())
}

// textValue is the JSON and YAML form of a field. Byte arrays are hex
// text; calendar values use their String rendering, except DateTime which
// is RFC 3339.
func (n *Node) textValue() (any, error) {
	switch n.DataType() {
	case schema.Integer:
		return n.Integer()
	case schema.DateTime:
		dt, err := n.DateTime()
		if err != nil {
			return nil, err
		}
		return dt.Format(time.RFC3339), nil
	}
	return n.leafString()
}

// MarshalJSON writes records as objects in schema order and record arrays
// as arrays.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	switch {
	case n.IsContainer():
		buf.WriteByte('{')
		for i, c := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c.Name())
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := c.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case n.IsRecordArray():
		buf.WriteByte('[')
		for i, c := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	v, err := n.textValue()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// MarshalYAML returns a mapping node that keeps schema order.
func (n *Node) MarshalYAML() (any, error) {
	return n.yamlNode()
}

func (n *Node) yamlNode() (*yaml.Node, error) {
	switch {
	case n.IsContainer():
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, c := range n.children {
			v, err := c.yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name()}, v)
		}
		return out, nil
	case n.IsRecordArray():
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, c := range n.children {
			v, err := c.yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, v)
		}
		return out, nil
	}
	v, err := n.textValue()
	if err != nil {
		return nil, err
	}
	if i, ok := v.(uint64); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(i)}, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.(string)}, nil
}

// MarshalCBOR encodes Value deterministically. Byte arrays stay binary.
func (n *Node) MarshalCBOR() ([]byte, error) {
	v, err := n.Value()
	if err != nil {
		return nil, err
	}
	return cborMode.Marshal(v)
}
