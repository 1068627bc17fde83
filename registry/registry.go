// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package registry keeps engaged record maps by name and swaps them at
// runtime without blocking concurrent decodes.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/zeebo/blake3"

	"github.com/MultiTechSystems/recordmap/data"
	"github.com/MultiTechSystems/recordmap/dump"
	"github.com/MultiTechSystems/recordmap/schema"
)

// ErrNotFound is returned for a name that has no registered map.
var ErrNotFound = errors.New("registry: map not found")

// Entry is one registered map. Entries are values; a swap replaces the
// entry and never modifies one a caller already holds.
type Entry struct {
	Name string
	Root *schema.Node
	// Fingerprint is the blake3 hash of the description the map was
	// parsed from, or of its schema dump when registered as a tree.
	Fingerprint string
	// Revision identifies this registration and sorts by creation time.
	Revision ksuid.KSUID
	// Version counts the swaps under Name, starting at 1.
	Version    uint64
	Registered time.Time
}

// Registry provides thread-safe map management with hot swap.
type Registry struct {
	log     zerolog.Logger
	metrics *Metrics

	mu      sync.RWMutex
	entries map[string]Entry
	// versions survive Remove so a re-registered name keeps counting.
	versions map[string]uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics records registrations and decodes in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates an empty registry.
func New(log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		log:      log,
		entries:  make(map[string]Entry),
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register parses and engages a map description, then installs it under
// name. Registering a description identical to the current one keeps the
// current entry.
func (r *Registry) Register(name string, description []byte, format schema.Format) (Entry, error) {
	sum := fingerprint(description)
	if e, ok := r.Get(name); ok && e.Fingerprint == sum {
		r.log.Debug().Str("map", name).Str("revision", e.Revision.String()).Msg("map unchanged")
		return e, nil
	}

	// Parse before taking the write lock.
	m, err := schema.ParseMap(description, format)
	if err != nil {
		return Entry{}, fmt.Errorf("registering %s: %w", name, err)
	}
	return r.install(name, m.File, sum), nil
}

// RegisterNode installs an already engaged map.
func (r *Registry) RegisterNode(name string, root *schema.Node) (Entry, error) {
	if root == nil || root.DataType() != schema.File || !root.Engaged() {
		return Entry{}, fmt.Errorf("registering %s: %w", name, data.ErrNotFile)
	}
	sum := fingerprint([]byte(dump.Schema(root)))
	if e, ok := r.Get(name); ok && e.Fingerprint == sum {
		return e, nil
	}
	return r.install(name, root, sum), nil
}

func (r *Registry) install(name string, root *schema.Node, sum string) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.versions[name]++
	e := Entry{
		Name:        name,
		Root:        root,
		Fingerprint: sum,
		Revision:    ksuid.New(),
		Version:     r.versions[name],
		Registered:  time.Now(),
	}
	r.entries[name] = e
	r.metrics.recordInstall(name, len(r.entries))

	r.log.Info().
		Str("map", name).
		Str("revision", e.Revision.String()).
		Uint64("version", e.Version).
		Str("fingerprint", sum[:16]).
		Msg("map registered")
	return e
}

// Get returns the current entry for name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names lists the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Remove drops name and reports whether it was registered.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	r.metrics.recordRemove(len(r.entries))
	r.log.Info().Str("map", name).Msg("map removed")
	return true
}

// Decode decodes buf with the map currently registered under name. A swap
// during the call does not affect it.
func (r *Registry) Decode(name string, buf []byte, opts ...data.Option) (*data.Node, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	start := time.Now()
	n, err := data.Decode(e.Root, buf, opts...)
	r.metrics.recordDecode(name, len(buf), err, time.Since(start))
	return n, err
}

func fingerprint(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
