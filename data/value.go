// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MultiTechSystems/recordmap/internal/bigendian"
	"github.com/MultiTechSystems/recordmap/schema"
)

// Field sizes of the calendar types.
const (
	dateSize     = 4
	timeSize     = 3
	dateTimeSize = dateSize + timeSize
)

// Bytes returns the bytes the node occupies. The slice aliases the
// decoded buffer and is capped at the node's end, so appending to it
// never overwrites a neighbour.
func (n *Node) Bytes() []byte {
	end := n.end()
	return n.root.buf[n.offset:end:end]
}

// Integer reads a ByteArray, Integer, Date or Time field as an unsigned
// big-endian integer.
func (n *Node) Integer() (uint64, error) {
	if !n.DataType().IsIntegral() {
		return 0, n.errorf(ErrWrongType, "Integer on %s", n.DataType())
	}
	v, ok := bigendian.Uint(n.Bytes())
	if !ok {
		return 0, n.errorf(ErrIntegerOverflow, "%d bytes", n.length)
	}
	return v, nil
}

// Date reads a Date (year:2 month:1 day:1) or the date part of a DateTime.
// A zero month or day reads as the first. The result is midnight in the
// decode location.
func (n *Node) Date() (time.Time, error) {
	b, err := n.calendarBytes(schema.Date, dateSize)
	if err != nil {
		return time.Time{}, err
	}
	return n.date(b), nil
}

// Time reads a Time (hour:1 minute:1 second:1) or the time part of a
// DateTime, as seconds since midnight.
func (n *Node) Time() (int, error) {
	b, err := n.calendarBytes(schema.Time, timeSize)
	if err != nil {
		return 0, err
	}
	if n.DataType() == schema.DateTime {
		b = b[dateSize:]
	}
	return int(b[0])*3600 + int(b[1])*60 + int(b[2]), nil
}

// DateTime reads a DateTime. Hour, minute and second are set on the
// decoded date as absolute clock values.
func (n *Node) DateTime() (time.Time, error) {
	if n.DataType() != schema.DateTime {
		return time.Time{}, n.errorf(ErrWrongType, "DateTime on %s", n.DataType())
	}
	b := n.Bytes()
	if len(b) != dateTimeSize {
		return time.Time{}, n.errorf(ErrWrongSize, "DateTime needs %d bytes, have %d", dateTimeSize, len(b))
	}
	d := n.date(b)
	return time.Date(d.Year(), d.Month(), d.Day(), int(b[4]), int(b[5]), int(b[6]), 0, d.Location()), nil
}

// calendarBytes returns the node's bytes when it is either the requested
// type with size bytes, or a DateTime.
func (n *Node) calendarBytes(want schema.DataType, size int) ([]byte, error) {
	b := n.Bytes()
	switch n.DataType() {
	case want:
		if len(b) != size {
			return nil, n.errorf(ErrWrongSize, "%s needs %d bytes, have %d", want, size, len(b))
		}
	case schema.DateTime:
		if len(b) != dateTimeSize {
			return nil, n.errorf(ErrWrongSize, "DateTime needs %d bytes, have %d", dateTimeSize, len(b))
		}
	default:
		return nil, n.errorf(ErrWrongType, "%s on %s", want, n.DataType())
	}
	return b, nil
}

func (n *Node) date(b []byte) time.Time {
	year := int(b[0])<<8 | int(b[1])
	month := time.Month(b[2])
	if month == 0 {
		month = time.January
	}
	day := int(b[3])
	if day == 0 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, n.location())
}

// String renders the node for diagnostics: hex for byte arrays, grouped
// decimal for integers, ISO dates and clock times, and {name: value, ...}
// for records and record arrays. Values that cannot be read render as
// <err>.
func (n *Node) String() string {
	var sb strings.Builder
	n.writeString(&sb)
	return sb.String()
}

func (n *Node) writeString(sb *strings.Builder) {
	if !n.isLeaf() {
		sb.WriteByte('{')
		for i, c := range n.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.Name())
			sb.WriteString(": ")
			c.writeString(sb)
		}
		sb.WriteByte('}')
		return
	}
	s, err := n.leafString()
	if err != nil {
		sb.WriteString("<err>")
		return
	}
	sb.WriteString(s)
}

// leafString formats a field value. It is shared by String, the dumps and
// the text exports.
func (n *Node) leafString() (string, error) {
	switch n.DataType() {
	case schema.ByteArray:
		return strings.ToUpper(hex.EncodeToString(n.Bytes())), nil
	case schema.Integer:
		v, err := n.Integer()
		if err != nil {
			return "", err
		}
		return message.NewPrinter(language.English).Sprintf("%d", v), nil
	case schema.Date:
		d, err := n.Date()
		if err != nil {
			return "", err
		}
		return d.Format(time.DateOnly), nil
	case schema.Time:
		secs, err := n.Time()
		if err != nil {
			return "", err
		}
		return clock(secs), nil
	case schema.DateTime:
		dt, err := n.DateTime()
		if err != nil {
			return "", err
		}
		return dt.Format(time.DateTime), nil
	}
	return "", n.errorf(ErrWrongType, "no field value for %s", n.DataType())
}

// ValueString is the leaf rendering used by String, or "" for records and
// record arrays.
func (n *Node) ValueString() (string, error) {
	if !n.isLeaf() {
		return "", nil
	}
	return n.leafString()
}

// clock formats seconds of day without wrapping at 24 hours, since the
// three bytes are not range checked.
func clock(secs int) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
