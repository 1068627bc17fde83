// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Binary map format constants
const (
	BinaryMagic    = "RM" // Magic header for validation
	BinaryVersion1 = 0x01
)

// maxBinaryDepth bounds nesting when reading a binary map.
const maxBinaryDepth = 64

var errBinaryTruncated = errors.New("binary map truncated")

// EncodeBinary encodes an engaged map to the compact binary format.
//
// Format v1: magic(2) + version(1) + meta + node
// Meta:  uvarint map version, then name and description as strings
// Node:  type_byte(1) + name + params + body
// Type byte: data type (4 bits) + length type (4 bits)
// Params: FixedLength has a uvarint size, ArbitraryField a path string
// Body: containers have a uvarint child count and the children, record
// arrays their element node, fields nothing.
// Strings are a uvarint length followed by UTF-8 bytes.
func EncodeBinary(m *Map) ([]byte, error) {
	if m == nil || m.File == nil {
		return nil, fmt.Errorf("binary map: no root")
	}
	if m.Version < 0 {
		return nil, fmt.Errorf("binary map: negative version %d", m.Version)
	}
	data := append([]byte(BinaryMagic), BinaryVersion1)
	data = binary.AppendUvarint(data, uint64(m.Version))
	data = appendString(data, m.Name)
	data = appendString(data, m.Description)
	return appendNode(data, m.File)
}

func appendNode(data []byte, n *Node) ([]byte, error) {
	data = append(data, byte(n.dataType)<<4|byte(n.length.Type))
	data = appendString(data, n.name)

	switch n.length.Type {
	case FixedLength:
		if n.length.Fixed < 0 {
			return nil, fmt.Errorf("binary map: %s: negative fixed length", n.displayPath())
		}
		data = binary.AppendUvarint(data, uint64(n.length.Fixed))
	case ArbitraryField:
		data = appendString(data, n.length.Field)
	}

	var err error
	switch {
	case n.dataType.IsContainer():
		data = binary.AppendUvarint(data, uint64(len(n.children)))
		for _, c := range n.children {
			if data, err = appendNode(data, c); err != nil {
				return nil, err
			}
		}
	case n.dataType == RecordArray:
		if n.element == nil {
			return nil, fmt.Errorf("binary map: %s: no element", n.displayPath())
		}
		if data, err = appendNode(data, n.element); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func appendString(data []byte, s string) []byte {
	data = binary.AppendUvarint(data, uint64(len(s)))
	return append(data, s...)
}

// ParseBinary parses the binary format written by EncodeBinary and
// engages the result.
func ParseBinary(data []byte) (*Map, error) {
	if len(data) < len(BinaryMagic)+1 {
		return nil, fmt.Errorf("binary map too short")
	}
	if string(data[:len(BinaryMagic)]) != BinaryMagic {
		return nil, fmt.Errorf("binary map: bad magic %q", data[:len(BinaryMagic)])
	}
	if version := data[len(BinaryMagic)]; version != BinaryVersion1 {
		return nil, fmt.Errorf("unsupported binary map version: %d", version)
	}

	r := &binaryReader{data: data, pos: len(BinaryMagic) + 1}
	m := &Map{}
	version, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	m.Version = int(version)
	if m.Name, err = r.string(); err != nil {
		return nil, err
	}
	if m.Description, err = r.string(); err != nil {
		return nil, err
	}

	root, err := r.node(0)
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("binary map: %d trailing bytes", len(r.data)-r.pos)
	}
	if root.dataType != File {
		return nil, fmt.Errorf("binary map: root is %s, not File", root.dataType)
	}

	// Engage through NewFile so a bad tree is reported the same way as a
	// hand built one.
	if m.File, err = NewFile(root.name, root.length, root.children...); err != nil {
		return nil, err
	}
	return m, nil
}

type binaryReader struct {
	data []byte
	pos  int
}

func (r *binaryReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w at offset %d", errBinaryTruncated, r.pos)
	}
	r.pos += n
	return v, nil
}

// count reads a uvarint that must not exceed the bytes left, which bounds
// every length and child count by the input size.
func (r *binaryReader) count() (int, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(r.data)-r.pos) {
		return 0, fmt.Errorf("%w: %d exceeds remaining %d bytes", errBinaryTruncated, v, len(r.data)-r.pos)
	}
	return int(v), nil
}

func (r *binaryReader) string() (string, error) {
	n, err := r.count()
	if err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *binaryReader) node(depth int) (*Node, error) {
	if depth > maxBinaryDepth {
		return nil, fmt.Errorf("binary map: nesting deeper than %d", maxBinaryDepth)
	}
	if r.pos >= len(r.data) {
		return nil, fmt.Errorf("%w at offset %d", errBinaryTruncated, r.pos)
	}
	typeByte := r.data[r.pos]
	r.pos++

	n := &Node{
		dataType: DataType(typeByte >> 4),
		length:   Length{Type: LengthType(typeByte & 0x0F)},
	}
	if _, ok := dataTypeNames[n.dataType]; !ok {
		return nil, fmt.Errorf("binary map: unknown data type code %d", typeByte>>4)
	}
	var err error
	if n.name, err = r.string(); err != nil {
		return nil, err
	}

	switch n.length.Type {
	case FixedLength:
		v, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if v > 1<<31-1 {
			return nil, fmt.Errorf("binary map: %s: fixed length %d too large", n.name, v)
		}
		n.length.Fixed = int(v)
	case ArbitraryField:
		if n.length.Field, err = r.string(); err != nil {
			return nil, err
		}
	}

	switch {
	case n.dataType.IsContainer():
		count, err := r.count()
		if err != nil {
			return nil, err
		}
		n.children = make([]*Node, 0, count)
		for i := 0; i < count; i++ {
			c, err := r.node(depth + 1)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		}
	case n.dataType == RecordArray:
		if n.element, err = r.node(depth + 1); err != nil {
			return nil, err
		}
	}
	return n, nil
}
