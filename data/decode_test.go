// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package data

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MultiTechSystems/recordmap/schema"
)

func mustFile(t testing.TB, length schema.Length, children ...*schema.Node) *schema.Node {
	t.Helper()
	root, err := schema.NewFile("file", length, children...)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return root
}

// trackMap is a three byte header whose count sizes the track array.
func trackMap(t testing.TB) *schema.Node {
	return mustFile(t, schema.SumOfInner(),
		schema.NewRecord("header", schema.Fixed(3),
			schema.Field("magic", schema.ByteArray, schema.Fixed(2)),
			schema.Field("count", schema.Integer, schema.Fixed(1)),
		),
		schema.NewRecordArray("tracks", schema.Arbitrary("header.count"),
			schema.NewRecord("track", schema.Fixed(4),
				schema.Field("code", schema.Integer, schema.Fixed(2)),
				schema.Field("flags", schema.ByteArray, schema.Fixed(2)),
			),
		),
	)
}

var trackBytes = []byte{
	0xCA, 0xFE, 0x02,
	0x00, 0x01, 0xA0, 0xA1,
	0x01, 0x02, 0xB0, 0xB1,
}

func mustDecode(t *testing.T, root *schema.Node, buf []byte, opts ...Option) *Node {
	t.Helper()
	n, err := Decode(root, buf, opts...)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	checkInvariants(t, n)
	return n
}

// checkInvariants verifies that every record is covered exactly by its
// children and that siblings are contiguous.
func checkInvariants(t *testing.T, root *Node) {
	t.Helper()
	if root.Offset() != 0 || root.Length() != len(root.buf) {
		t.Errorf("root covers [%d,+%d) of %d bytes", root.Offset(), root.Length(), len(root.buf))
	}
	root.Walk(func(n *Node, _ int) bool {
		if n.isLeaf() {
			return true
		}
		offset := n.Offset()
		for _, c := range n.Children() {
			if c.Offset() != offset {
				t.Errorf("%s starts at %d, want %d", c.Path(), c.Offset(), offset)
			}
			if c.Parent() != n || c.Root() != root {
				t.Errorf("%s has wrong parent or root", c.Path())
			}
			offset += c.Length()
		}
		if got := offset - n.Offset(); got != n.Length() {
			t.Errorf("%q children cover %d bytes, length %d", n.Path(), got, n.Length())
		}
		return true
	})
}

func TestDecodeFixedInteger(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(), schema.Field("code", schema.Integer, schema.Fixed(2)))
	n := mustDecode(t, root, []byte{0x01, 0x02})

	v, err := n.Item("code").Integer()
	if err != nil {
		t.Fatal(err)
	}
	if v != 258 {
		t.Errorf("code = %d, want 258", v)
	}
}

func TestDecodePreviousField(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(),
		schema.Field("len", schema.Integer, schema.Fixed(1)),
		schema.Field("payload", schema.ByteArray, schema.Previous()),
	)
	n := mustDecode(t, root, []byte{0x03, 0xAA, 0xBB, 0xCC})

	payload := n.Item("payload")
	if !bytes.Equal(payload.Bytes(), []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("payload = % X", payload.Bytes())
	}
	if payload.Offset() != 1 || payload.Length() != 3 {
		t.Errorf("payload at %d+%d", payload.Offset(), payload.Length())
	}
}

func TestDecodeRemainingOfRecord(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(),
		schema.NewRecord("rec", schema.Fixed(10),
			schema.Field("a", schema.Integer, schema.Fixed(2)),
			schema.Field("b", schema.Integer, schema.Fixed(1)),
			schema.Field("rest", schema.ByteArray, schema.Remaining()),
		),
	)
	buf := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	n := mustDecode(t, root, buf)

	rest := n.Item("rec.rest")
	if rest.Offset() != 3 || rest.Length() != 7 {
		t.Errorf("rest at %d+%d, want 3+7", rest.Offset(), rest.Length())
	}
	if !bytes.Equal(rest.Bytes(), buf[3:]) {
		t.Errorf("rest = % X", rest.Bytes())
	}
}

func TestDecodeArbitraryFieldCount(t *testing.T) {
	root := mustFile(t, schema.Fixed(6),
		schema.Field("count", schema.Integer, schema.Fixed(1)),
		schema.NewRecordArray("items", schema.Arbitrary("count"),
			schema.NewRecord("item", schema.Fixed(1),
				schema.Field("v", schema.Integer, schema.Fixed(1)),
			),
		),
		schema.Field("tail", schema.ByteArray, schema.Remaining()),
	)
	n := mustDecode(t, root, []byte{3, 1, 2, 3, 9, 9})

	items := n.Item("items")
	if items.Len() != 3 || items.Length() != 3 {
		t.Fatalf("items: %d elements over %d bytes, want 3 over 3", items.Len(), items.Length())
	}
	for i := 0; i < 3; i++ {
		v, err := items.Element(i).Child("v").Integer()
		if err != nil || v != uint64(i+1) {
			t.Errorf("items[%d].v = %d, %v", i, v, err)
		}
	}
	if tail := n.Item("tail"); !bytes.Equal(tail.Bytes(), []byte{9, 9}) {
		t.Errorf("tail = % X", tail.Bytes())
	}
}

func TestDecodeOpenEndedArray(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(),
		schema.NewRecordArray("items", schema.Remaining(),
			schema.NewRecord("item", schema.Fixed(4),
				schema.Field("v", schema.Integer, schema.Fixed(4)),
			),
		),
	)
	buf := make([]byte, 12)
	for i := range buf {
		buf[i] = byte(i)
	}
	n := mustDecode(t, root, buf)

	items := n.Item("items")
	if items.Len() != 3 || items.Length() != 12 {
		t.Errorf("items: %d elements over %d bytes, want 3 over 12", items.Len(), items.Length())
	}
	if v, _ := n.Item("items[2].v").Integer(); v != 0x08090A0B {
		t.Errorf("items[2].v = %#x", v)
	}
}

func TestDecodeFirstInnerField(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(),
		schema.NewRecord("env", schema.FirstInner(),
			schema.Field("len", schema.Integer, schema.Fixed(1)),
			schema.Field("body", schema.ByteArray, schema.Remaining()),
		),
		schema.Field("crc", schema.ByteArray, schema.Fixed(1)),
	)
	n := mustDecode(t, root, []byte{4, 0xA, 0xB, 0xC, 0xFF})

	if env := n.Item("env"); env.Length() != 4 {
		t.Errorf("env length = %d, want 4", env.Length())
	}
	if body := n.Item("env.body"); !bytes.Equal(body.Bytes(), []byte{0xA, 0xB, 0xC}) {
		t.Errorf("body = % X", body.Bytes())
	}
	if crc := n.Item("crc"); crc.Offset() != 4 {
		t.Errorf("crc offset = %d", crc.Offset())
	}
}

func TestDecodeNestedSumRecords(t *testing.T) {
	root := mustFile(t, schema.SumOfInner(),
		schema.NewRecord("outer", schema.SumOfInner(),
			schema.Field("n", schema.Integer, schema.Fixed(1)),
			schema.NewRecord("inner", schema.SumOfInner(),
				schema.Field("size", schema.Integer, schema.Fixed(1)),
				schema.Field("data", schema.ByteArray, schema.Previous()),
			),
		),
		schema.NewRecordArray("rest", schema.Remaining(),
			schema.NewRecord("r", schema.Fixed(1), schema.Field("b", schema.Integer, schema.Fixed(1))),
		),
	)
	n := mustDecode(t, root, []byte{7, 2, 0xAA, 0xBB, 1, 2})

	if outer := n.Item("outer"); outer.Length() != 4 {
		t.Errorf("outer length = %d, want 4", outer.Length())
	}
	if rest := n.Item("rest"); rest.Len() != 2 {
		t.Errorf("rest has %d elements, want 2", rest.Len())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		root     func(t testing.TB) *schema.Node
		buf      []byte
		opts     []Option
		wantKind error
		wantPath string
	}{
		{
			name: "children short of fixed record",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(),
					schema.NewRecord("rec", schema.Fixed(4), schema.Field("a", schema.Integer, schema.Fixed(2))))
			},
			buf:      []byte{1, 2, 3, 4},
			wantKind: ErrLengthMismatch,
			wantPath: "rec",
		},
		{
			name: "buffer longer than map",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(), schema.Field("a", schema.Integer, schema.Fixed(2)))
			},
			buf:      []byte{1, 2, 3},
			wantKind: ErrBufferMismatch,
			wantPath: "file",
		},
		{
			name: "fixed root differs from buffer",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.Fixed(4), schema.Field("a", schema.ByteArray, schema.Remaining()))
			},
			buf:      []byte{1, 2},
			wantKind: ErrBufferMismatch,
			wantPath: "file",
		},
		{
			name: "field past end of buffer",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(), schema.Field("a", schema.Integer, schema.Fixed(4)))
			},
			buf:      []byte{1, 2},
			wantKind: ErrOutOfRange,
			wantPath: "a",
		},
		{
			name: "count runs past buffer",
			root: trackMap,
			buf:  []byte{0xCA, 0xFE, 0x03, 0, 1, 0, 0},
			// The second track would end past the buffer.
			wantKind: ErrOutOfRange,
			wantPath: "tracks[1]",
		},
		{
			name: "length source overflows",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(),
					schema.Field("len", schema.ByteArray, schema.Fixed(9)),
					schema.Field("data", schema.ByteArray, schema.Previous()))
			},
			buf:      bytes.Repeat([]byte{0xFF}, 9),
			wantKind: ErrNotInteger,
			wantPath: "data",
		},
		{
			name: "length source too large",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(),
					schema.Field("len", schema.Integer, schema.Fixed(5)),
					schema.Field("data", schema.ByteArray, schema.Previous()))
			},
			buf:      bytes.Repeat([]byte{0xFF}, 5),
			wantKind: ErrOutOfRange,
			wantPath: "data",
		},
		{
			name: "first field shorter than itself",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(),
					schema.NewRecord("env", schema.FirstInner(), schema.Field("len", schema.Integer, schema.Fixed(1))))
			},
			buf:      []byte{0},
			wantKind: ErrLengthMismatch,
			wantPath: "env",
		},
		{
			name: "empty open-ended element",
			root: func(t testing.TB) *schema.Node {
				return mustFile(t, schema.SumOfInner(),
					schema.NewRecordArray("items", schema.Remaining(), schema.NewRecord("item", schema.Fixed(0))))
			},
			buf:      []byte{1},
			wantKind: ErrZeroLengthElement,
			wantPath: "items[0]",
		},
		{
			name:     "element limit",
			root:     trackMap,
			buf:      trackBytes,
			opts:     []Option{WithMaxElements(1)},
			wantKind: ErrTooManyElements,
			wantPath: "tracks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Decode(tt.root(t), tt.buf, tt.opts...)
			if err == nil {
				t.Fatalf("Decode succeeded: %v", n)
			}
			if n != nil {
				t.Error("Decode returned a tree with an error")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want %v", err, tt.wantKind)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not a *DecodeError", err)
			}
			if de.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", de.Path, tt.wantPath)
			}
		})
	}
}

func TestDecodeRejectsNonFileRoot(t *testing.T) {
	field := schema.Field("a", schema.Integer, schema.Fixed(1))
	if _, err := Decode(field, []byte{1}); !errors.Is(err, ErrNotFile) {
		t.Errorf("Decode(field) error = %v, want ErrNotFile", err)
	}
	if _, err := Decode(nil, nil); !errors.Is(err, ErrNotFile) {
		t.Errorf("Decode(nil) error = %v, want ErrNotFile", err)
	}
}

func TestDecodeCopiesBuffer(t *testing.T) {
	buf := append([]byte(nil), trackBytes...)
	n := mustDecode(t, trackMap(t), buf)
	buf[3] = 0xFF

	if v, _ := n.Item("tracks[0].code").Integer(); v != 1 {
		t.Errorf("tracks[0].code = %d after caller reused buffer", v)
	}
	b := n.Item("header.magic").Bytes()
	if cap(b) != len(b) {
		t.Errorf("Bytes cap = %d, len = %d", cap(b), len(b))
	}
}

func TestItemMatchesDescent(t *testing.T) {
	n := mustDecode(t, trackMap(t), trackBytes)

	tests := []struct {
		path string
		want *Node
	}{
		{"header", n.Child("header")},
		{"header.count", n.Child("header").Child("count")},
		{"tracks", n.Child("tracks")},
		{"tracks[1]", n.Child("tracks").Element(1)},
		{"tracks[1].code", n.Child("tracks").Element(1).Child("code")},
		{"tracks.0.flags", n.Child("tracks").Element(0).Child("flags")},
		{"tracks[2]", nil},
		{"tracks[x]", nil},
		{"header.nope", nil},
		{"header.count.more", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := n.Item(tt.path)
			if got != tt.want {
				t.Errorf("Item(%q) = %v, want %v", tt.path, got, tt.want)
			}
			if got != nil && n.Item(got.Path()) != got {
				t.Errorf("Item(Path()) of %q does not round trip", tt.path)
			}
		})
	}

	header := n.Child("header")
	if header.Item("count") != n.Item("header.count") {
		t.Error("relative Item differs from root Item")
	}
	if got := n.Item("tracks[1].code").Path(); got != "tracks[1].code" {
		t.Errorf("Path = %q", got)
	}
}

func TestDecodeLogsContainers(t *testing.T) {
	var out bytes.Buffer
	log := zerolog.New(&out).Level(zerolog.DebugLevel)
	mustDecode(t, trackMap(t), trackBytes, WithLogger(log))

	logged := out.String()
	for _, want := range []string{`"path":"header"`, `"path":"tracks"`, `"elements":2`, "decoded record array"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log does not contain %s:\n%s", want, logged)
		}
	}
}

func TestDecodeConcurrent(t *testing.T) {
	root := trackMap(t)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(code byte) {
			defer wg.Done()
			buf := append([]byte(nil), trackBytes...)
			buf[4] = code
			n, err := Decode(root, buf)
			if err != nil {
				errs <- err
				return
			}
			if v, _ := n.Item("tracks[0].code").Integer(); v != uint64(code) {
				errs <- errors.New("decode saw another goroutine's buffer")
			}
		}(byte(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
