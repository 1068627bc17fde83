// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
)

// Engagement rules. A *ConfigError unwraps to exactly one of these.
var (
	ErrRemainingNotLast     = errors.New("RemainingOfRecord is not last")
	ErrMissingFixedLength   = errors.New("missing fixed length")
	ErrNoPreviousField      = errors.New("no previous field")
	ErrBadLengthField       = errors.New("referenced length field does not exist or is not Integer")
	ErrWrongDataType        = errors.New("length policy used on wrong data type")
	ErrRemainingAtRoot      = errors.New("RemainingOfRecord at root")
	ErrRemainingInSum       = errors.New("RemainingOfRecord field inside SumOfInnerFields record")
	ErrMissingLength        = errors.New("missing length policy")
	ErrInvalidName          = errors.New("invalid name")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrMalformedNode        = errors.New("malformed node")
	ErrAlreadyEngaged       = errors.New("node already engaged")
	ErrUnresolvableOrdering = errors.New("length depends on itself")
)

// ConfigError reports a map that cannot be engaged. Path is the dotted
// path of the offending node, or the root's name for the root itself.
type ConfigError struct {
	Path   string
	Rule   error
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("schema: %s: %v", e.Path, e.Rule)
	}
	return fmt.Sprintf("schema: %s: %v: %s", e.Path, e.Rule, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Rule }

func (n *Node) configErr(rule error, format string, args ...any) *ConfigError {
	return &ConfigError{Path: n.displayPath(), Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
