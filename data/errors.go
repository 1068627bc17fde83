// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"errors"
	"fmt"
)

// Decode failures.
var (
	ErrNotFile           = errors.New("map root is not an engaged File")
	ErrUndefinedLength   = errors.New("length is undefined")
	ErrLengthMismatch    = errors.New("children length sum does not match container length")
	ErrBufferMismatch    = errors.New("buffer length does not match decoded root length")
	ErrOutOfRange        = errors.New("node extends past its record")
	ErrZeroLengthElement = errors.New("record array element is empty")
	ErrTooManyElements   = errors.New("record array element count exceeds limit")
	ErrNotInteger        = errors.New("length source has no integer value")
)

// Value extraction failures.
var (
	ErrWrongType       = errors.New("value not available for data type")
	ErrWrongSize       = errors.New("wrong number of bytes for data type")
	ErrIntegerOverflow = errors.New("integer does not fit in 64 bits")
)

// DecodeError reports a failure at a specific node. Kind is one of the
// sentinel errors above.
type DecodeError struct {
	Path   string
	Kind   error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("data: %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("data: %s: %v: %s", e.Path, e.Kind, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

func (n *Node) errorf(kind error, format string, args ...any) *DecodeError {
	return &DecodeError{Path: n.displayPath(), Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
