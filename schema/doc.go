// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package schema describes fixed and variable layout binary records.
//
// A record map is a tree of nodes. Leaves are fields (ByteArray, Integer,
// Date, Time, DateTime); containers are Records and the File root; a
// RecordArray repeats a single element Record. Every node carries a
// Length policy that tells the decoder how many bytes (or, for arrays,
// how many elements) it occupies:
//
//	FixedLength        a constant
//	PreviousField      the integer value of the preceding sibling
//	ArbitraryField     the integer value of any Integer field, by path from the root
//	FirstInnerField    the integer value of the container's first child
//	SumOfInnerFields   the total of the container's children
//	RemainingOfRecord  whatever is left of the enclosing record
//
// Maps are built once, either in code:
//
//	root, err := schema.NewFile("tracks", schema.SumOfInner(),
//		schema.Field("count", schema.Integer, schema.Fixed(1)),
//		schema.NewRecordArray("track", schema.Arbitrary("count"),
//			schema.NewRecord("track", schema.Fixed(4),
//				schema.Field("code", schema.Integer, schema.Fixed(2)),
//				schema.Field("flags", schema.ByteArray, schema.Fixed(2)),
//			),
//		),
//	)
//
// or from a YAML, JSON or TOML description with [ParseMap] and [LoadMap].
//
// NewFile engages the tree: it binds every node to its parent and
// position and rejects structurally impossible layouts with a
// [*ConfigError]. An engaged tree is immutable and may be shared by any
// number of concurrent decodes.
package schema
