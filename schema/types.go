// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType identifies what a node holds and how its bytes are read.
type DataType int

const (
	ByteArray DataType = iota + 1
	Integer
	Date
	Time
	DateTime
	Record
	RecordArray
	File
)

var dataTypeNames = map[DataType]string{
	ByteArray:   "ByteArray",
	Integer:     "Integer",
	Date:        "Date",
	Time:        "Time",
	DateTime:    "DateTime",
	Record:      "Record",
	RecordArray: "RecordArray",
	File:        "File",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// IsContainer reports whether nodes of this type own a children sequence.
func (t DataType) IsContainer() bool {
	return t == Record || t == File
}

// IsField reports whether t is a leaf type.
func (t DataType) IsField() bool {
	return t >= ByteArray && t <= DateTime
}

// IsIntegral reports whether a field of this type can be read as an
// unsigned integer.
func (t DataType) IsIntegral() bool {
	switch t {
	case ByteArray, Integer, Date, Time:
		return true
	}
	return false
}

// ParseDataType accepts the canonical names and the snake_case and
// shorthand spellings used in map descriptions.
func ParseDataType(s string) (DataType, error) {
	switch normalize(s) {
	case "bytearray", "bytes", "byte":
		return ByteArray, nil
	case "integer", "int", "uint":
		return Integer, nil
	case "date":
		return Date, nil
	case "time":
		return Time, nil
	case "datetime":
		return DateTime, nil
	case "record", "object":
		return Record, nil
	case "recordarray", "array", "repeat":
		return RecordArray, nil
	case "file":
		return File, nil
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// LengthType is the rule that determines a node's length.
type LengthType int

const (
	FixedLength LengthType = iota + 1
	PreviousField
	ArbitraryField
	FirstInnerField
	SumOfInnerFields
	RemainingOfRecord
)

var lengthTypeNames = map[LengthType]string{
	FixedLength:       "FixedLength",
	PreviousField:     "PreviousField",
	ArbitraryField:    "ArbitraryField",
	FirstInnerField:   "FirstInnerField",
	SumOfInnerFields:  "SumOfInnerFields",
	RemainingOfRecord: "RemainingOfRecord",
}

func (t LengthType) String() string {
	if name, ok := lengthTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LengthType(%d)", int(t))
}

// Length is a node's length policy together with its parameters. Fixed is
// only meaningful for FixedLength and Field only for ArbitraryField.
type Length struct {
	Type  LengthType
	Fixed int
	Field string
}

// Fixed sizes a node with a constant. For a RecordArray the constant is
// an element count.
func Fixed(n int) Length { return Length{Type: FixedLength, Fixed: n} }

// Previous sizes a node with the value of the preceding sibling.
func Previous() Length { return Length{Type: PreviousField} }

// Arbitrary sizes a node with the value of the Integer field at path,
// resolved from the root.
func Arbitrary(path string) Length { return Length{Type: ArbitraryField, Field: path} }

// FirstInner sizes a container with the value of its first child.
func FirstInner() Length { return Length{Type: FirstInnerField} }

// SumOfInner sizes a container with the total length of its children.
func SumOfInner() Length { return Length{Type: SumOfInnerFields} }

// Remaining sizes a node with whatever is left of the enclosing record.
func Remaining() Length { return Length{Type: RemainingOfRecord} }

// String describes the policy the way dumps print it.
func (l Length) String() string {
	switch l.Type {
	case FixedLength:
		return fmt.Sprintf("fixed %d", l.Fixed)
	case PreviousField:
		return "previous field"
	case ArbitraryField:
		return "field " + l.Field
	case FirstInnerField:
		return "first inner field"
	case SumOfInnerFields:
		return "sum of inner fields"
	case RemainingOfRecord:
		return "remaining of record"
	}
	return "undefined"
}

// ParseLength reads the textual form used in map descriptions: a decimal
// constant, "fixed", "previous", "first", "sum", "remaining", or
// "field:<path>". "fixed" without a number yields a policy that fails
// engagement as a missing fixed length.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Fixed(n), nil
	}
	if kind, arg, ok := strings.Cut(s, ":"); ok {
		arg = strings.TrimSpace(arg)
		switch normalize(kind) {
		case "field", "arbitrary", "arbitraryfield":
			return Arbitrary(arg), nil
		case "fixed", "fixedlength":
			n, err := strconv.Atoi(arg)
			if err != nil {
				return Length{}, fmt.Errorf("invalid fixed length %q", arg)
			}
			return Fixed(n), nil
		}
		return Length{}, fmt.Errorf("unknown length policy %q", s)
	}
	switch normalize(s) {
	case "fixed", "fixedlength":
		return Fixed(-1), nil
	case "previous", "previousfield":
		return Previous(), nil
	case "first", "firstinner", "firstinnerfield":
		return FirstInner(), nil
	case "sum", "suminner", "sumofinnerfields":
		return SumOfInner(), nil
	case "remaining", "remainingofrecord":
		return Remaining(), nil
	}
	return Length{}, fmt.Errorf("unknown length policy %q", s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
