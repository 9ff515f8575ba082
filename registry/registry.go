// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package registry keeps named codecs that can be replaced at runtime while
// other goroutines keep decoding.
//
// Registry holds any number of codecs behind a sync.RWMutex. Atomic holds a
// single codec behind an atomic pointer for lock-free reads. In both cases a
// new codec is built completely before it becomes visible, so a reader sees
// either the old or the new codec, never a mix.
package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/def"
	"github.com/MultiTechSystems/bitschema/schema"
	"github.com/MultiTechSystems/bitschema/transform"
)

var (
	// ErrNotFound indicates a name with no registered codec.
	ErrNotFound = errors.New("registry: codec not found")
	// ErrNilCodec indicates an attempt to register or swap in a nil codec.
	ErrNilCodec = errors.New("registry: nil codec")
)

type entry struct {
	codec   *codec.Codec
	version uint64
}

// Registry maps names to versioned codecs. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	versions map[string]uint64
	log      *slog.Logger
}

// Option configures a Registry or an Atomic.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger logs registrations and swaps at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func buildOptions(opts []Option) options {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{
		entries:  make(map[string]entry),
		versions: make(map[string]uint64),
		log:      o.log,
	}
}

// Register adds or replaces the codec for name and returns its version.
// Versions start at 1 and keep counting across Remove. A nil codec is
// rejected and leaves the current entry in place.
func (r *Registry) Register(name string, c *codec.Codec) (uint64, error) {
	if c == nil {
		return 0, fmt.Errorf("%w: %q", ErrNilCodec, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.versions[name]++
	v := r.versions[name]
	r.entries[name] = entry{codec: c, version: v}
	r.log.Debug("codec registered", "name", name, "version", v, "fields", len(c.Schema().Fields()))
	return v, nil
}

// RegisterDef builds a codec from a definition and registers it. The
// definition is compiled before the lock is taken.
func (r *Registry) RegisterDef(name string, sd *def.SchemaDef) (uint64, error) {
	c, err := sd.Codec()
	if err != nil {
		return 0, fmt.Errorf("compiling %q: %w", name, err)
	}
	return r.Register(name, c)
}

// RegisterBinary registers a codec for a binary layout produced by
// def.EncodeBinary.
func (r *Registry) RegisterBinary(name string, data []byte) (uint64, error) {
	sd, err := def.ParseBinary(data)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", name, err)
	}
	return r.RegisterDef(name, sd)
}

// Get returns the current codec for name and its version.
func (r *Registry) Get(name string) (*codec.Codec, uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.codec, e.version, ok
}

// Version returns the current version of name, or 0.
func (r *Registry) Version(name string) uint64 {
	_, v, _ := r.Get(name)
	return v
}

// Decode decodes data with the codec registered under name.
func (r *Registry) Decode(name string, data []byte) (map[string]transform.Value, error) {
	c, _, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c.Decode(data)
}

// Encode encodes values with the codec registered under name.
func (r *Registry) Encode(name string, values map[string]schema.Value) ([]byte, error) {
	c, _, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c.Encode(values)
}

// Remove drops name and reports whether it was registered.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	r.log.Debug("codec removed", "name", name)
	return true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
