// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package registry

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MultiTechSystems/recordmap/data"
	"github.com/MultiTechSystems/recordmap/internal/logging"
	"github.com/MultiTechSystems/recordmap/schema"
)

const countedMap = `
name: counted
fields:
  - {name: count, type: integer, length: 1}
  - name: items
    type: record_array
    length: field:count
    element:
      name: item
      length: 1
      fields:
        - {name: v, type: integer, length: 1}
`

const pairMap = `
name: pair
fields:
  - {name: a, type: integer, length: 1}
  - {name: b, type: integer, length: 1}
`

func TestRegisterAndDecode(t *testing.T) {
	r := New(logging.ForTest(t))

	e, err := r.Register("sensor", []byte(countedMap), schema.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "sensor", e.Name)
	assert.Equal(t, uint64(1), e.Version)
	assert.Len(t, e.Fingerprint, 64)
	assert.False(t, e.Revision.IsNil())

	n, err := r.Decode("sensor", []byte{2, 7, 9})
	require.NoError(t, err)
	v, err := n.Item("items[1].v").Integer()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v)
}

func TestRegisterSameDescriptionIsNoop(t *testing.T) {
	r := New(logging.ForTest(t))

	first, err := r.Register("sensor", []byte(countedMap), schema.FormatYAML)
	require.NoError(t, err)
	again, err := r.Register("sensor", []byte(countedMap), schema.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, first.Revision, again.Revision)
	assert.Equal(t, uint64(1), again.Version)
	assert.Same(t, first.Root, again.Root)
}

func TestHotSwap(t *testing.T) {
	r := New(logging.ForTest(t))

	first, err := r.Register("sensor", []byte(countedMap), schema.FormatYAML)
	require.NoError(t, err)
	second, err := r.Register("sensor", []byte(pairMap), schema.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), second.Version)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.NotEqual(t, first.Revision, second.Revision)

	n, err := r.Decode("sensor", []byte{1, 2})
	require.NoError(t, err)
	assert.NotNil(t, n.Item("b"))

	_, err = r.Decode("sensor", []byte{2, 7, 9})
	assert.ErrorIs(t, err, data.ErrBufferMismatch)

	// An entry held from before the swap still decodes with its own map.
	old, err := data.Decode(first.Root, []byte{2, 7, 9})
	require.NoError(t, err)
	assert.Equal(t, 2, old.Item("items").Len())
}

func TestRegisterInvalidKeepsCurrent(t *testing.T) {
	r := New(logging.ForTest(t))

	good, err := r.Register("sensor", []byte(pairMap), schema.FormatYAML)
	require.NoError(t, err)
	_, err = r.Register("sensor", []byte("name: bad\nfields:\n  - {name: a, type: integer}\n"), schema.FormatYAML)
	assert.ErrorIs(t, err, schema.ErrMissingLength)

	current, ok := r.Get("sensor")
	require.True(t, ok)
	assert.Equal(t, good.Revision, current.Revision)
}

func TestRegisterNode(t *testing.T) {
	r := New(logging.ForTest(t))
	root, err := schema.NewFile("pair", schema.SumOfInner(),
		schema.Field("a", schema.Integer, schema.Fixed(1)),
		schema.Field("b", schema.Integer, schema.Fixed(1)),
	)
	require.NoError(t, err)

	e, err := r.RegisterNode("pair", root)
	require.NoError(t, err)
	again, err := r.RegisterNode("pair", root)
	require.NoError(t, err)
	assert.Equal(t, e.Revision, again.Revision)

	_, err = r.RegisterNode("bad", schema.Field("a", schema.Integer, schema.Fixed(1)))
	assert.Error(t, err)
}

func TestNamesAndRemove(t *testing.T) {
	r := New(logging.ForTest(t))
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.Register(name, []byte(pairMap), schema.FormatYAML)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())

	assert.True(t, r.Remove("mid"))
	assert.False(t, r.Remove("mid"))
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())

	_, err := r.Decode("mid", []byte{1, 2})
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := r.Register("mid", []byte(pairMap), schema.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.Version)
}

func TestConcurrentDecodeDuringSwap(t *testing.T) {
	r := New(logging.ForTest(t))
	_, err := r.Register("sensor", []byte(pairMap), schema.FormatYAML)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n, err := r.Decode("sensor", []byte{1, 2})
				if err == nil && n.Len() != 2 {
					t.Errorf("decoded %d fields", n.Len())
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		desc := countedMap
		if i%2 == 1 {
			desc = pairMap
		}
		_, err := r.Register("sensor", []byte(desc), schema.FormatYAML)
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	r := New(logging.ForTest(t), WithMetrics(NewMetrics(promReg)))

	_, err := r.Register("pair", []byte(pairMap), schema.FormatYAML)
	require.NoError(t, err)
	_, err = r.Register("counted", []byte(countedMap), schema.FormatYAML)
	require.NoError(t, err)

	_, err = r.Decode("pair", []byte{1, 2})
	require.NoError(t, err)
	_, err = r.Decode("pair", []byte{1})
	require.Error(t, err)
	_, err = r.Decode("missing", []byte{1})
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, r.Remove("counted"))

	families, err := promReg.Gather()
	require.NoError(t, err)
	value := func(name string, labels map[string]string) float64 {
		for _, mf := range families {
			if mf.GetName() != name {
				continue
			}
		metrics:
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if labels[lp.GetName()] != lp.GetValue() {
						continue metrics
					}
				}
				switch {
				case m.GetCounter() != nil:
					return m.GetCounter().GetValue()
				case m.GetGauge() != nil:
					return m.GetGauge().GetValue()
				case m.GetHistogram() != nil:
					return float64(m.GetHistogram().GetSampleCount())
				}
			}
		}
		t.Fatalf("metric %s %v not found", name, labels)
		return 0
	}

	assert.Equal(t, 1.0, value("recordmap_decodes_total", map[string]string{"map": "pair", "status": "success"}))
	assert.Equal(t, 1.0, value("recordmap_decodes_total", map[string]string{"map": "pair", "status": "error"}))
	assert.Equal(t, 2.0, value("recordmap_decoded_bytes_total", map[string]string{"map": "pair"}))
	assert.Equal(t, 2.0, value("recordmap_decode_duration_seconds", map[string]string{"map": "pair"}))
	assert.Equal(t, 1.0, value("recordmap_map_installs_total", map[string]string{"map": "counted"}))
	assert.Equal(t, 1.0, value("recordmap_maps_registered", nil))
}
