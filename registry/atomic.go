// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package registry

import (
	"log/slog"
	"sync/atomic"

	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/transform"
)

// Atomic holds one codec that can be swapped without blocking readers.
type Atomic struct {
	cur atomic.Pointer[entry]
	log *slog.Logger
}

// NewAtomic returns an Atomic holding c at version 1.
func NewAtomic(c *codec.Codec, opts ...Option) (*Atomic, error) {
	if c == nil {
		return nil, ErrNilCodec
	}
	o := buildOptions(opts)
	a := &Atomic{log: o.log}
	a.cur.Store(&entry{codec: c, version: 1})
	return a, nil
}

// Swap replaces the codec and returns the new version. A nil codec is
// rejected and the current one stays in place.
func (a *Atomic) Swap(c *codec.Codec) (uint64, error) {
	if c == nil {
		return a.Version(), ErrNilCodec
	}
	for {
		old := a.cur.Load()
		next := &entry{codec: c, version: old.version + 1}
		if a.cur.CompareAndSwap(old, next) {
			a.log.Debug("codec swapped", "version", next.version)
			return next.version, nil
		}
	}
}

// Load returns the current codec and its version.
func (a *Atomic) Load() (*codec.Codec, uint64) {
	e := a.cur.Load()
	return e.codec, e.version
}

// Version returns the current version.
func (a *Atomic) Version() uint64 {
	return a.cur.Load().version
}

// Decode decodes data with the current codec.
func (a *Atomic) Decode(data []byte) (map[string]transform.Value, error) {
	return a.cur.Load().codec.Decode(data)
}
