// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package document

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// DecodeFunc turns raw disk bytes into buffer content. The default
// decoder accepts valid UTF-8 unchanged and rejects everything else
// with ErrNotText; deployments with exotic encodings inject their own.
type DecodeFunc func(raw []byte) (string, error)

// DecodeText is the default DecodeFunc. It accepts valid UTF-8
// unchanged and rejects everything else with ErrNotText.
func DecodeText(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrNotText
	}
	return string(raw), nil
}

// ResolveOptions controls how Registry.Resolve constructs a missing
// buffer.
type ResolveOptions struct {
	// Workspace seeds the new buffer's workspace association. Ignored
	// when the buffer already exists.
	Workspace string

	// HardSync makes disk-load failures propagate to the caller. When
	// false, a failed load falls back to an empty unsynced buffer,
	// which supports files that exist only in the editor.
	HardSync bool

	// Binary skips text decoding and keeps the raw bytes.
	Binary bool
}

// DefaultResolveOptions returns the hard-sync text defaults.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{HardSync: true}
}

// RegistryStats is a point-in-time snapshot of resolution counters.
type RegistryStats struct {
	// Hits counts resolves answered by an existing buffer.
	Hits int64

	// Loads counts buffers constructed from a successful disk read.
	Loads int64

	// Placeholders counts empty buffers created after a swallowed
	// soft-sync load failure.
	Placeholders int64
}

// Registry maps normalized filenames to buffers, one each.
//
// Thread Safety:
//
//	Registry is safe for concurrent use. Lookups on distinct filenames
//	never block each other; concurrent first-resolves of the same
//	filename share one disk read.
type Registry struct {
	mu      sync.RWMutex
	buffers map[string]*Buffer

	decode DecodeFunc

	// flight deduplicates concurrent disk loads per filename
	flight singleflight.Group

	hits         atomic.Int64
	loads        atomic.Int64
	placeholders atomic.Int64
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithDecoder replaces the text decoder used for disk loads.
func WithDecoder(decode DecodeFunc) RegistryOption {
	return func(r *Registry) {
		if decode != nil {
			r.decode = decode
		}
	}
}

// NewRegistry creates an empty registry. The buffer map is fresh per
// instance, never shared.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		buffers: make(map[string]*Buffer),
		decode:  DecodeText,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers buf under its filename.
//
// Description:
//
//	Without overwrite, an occupied slot wins: Add returns false and the
//	existing entry is untouched. With overwrite, buf replaces whatever
//	was there.
//
// Inputs:
//
//	buf - The buffer to register; nil is rejected
//	overwrite - Whether an existing entry may be replaced
//
// Outputs:
//
//	bool - true if buf is now the registered entry
func (r *Registry) Add(buf *Buffer, overwrite bool) bool {
	if buf == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.buffers[buf.Filename()]; exists && !overwrite {
		return false
	}
	r.buffers[buf.Filename()] = buf
	return true
}

// Remove deletes the entry for filename if present; no-op otherwise.
// The buffer has no lifetime beyond its registry entry.
func (r *Registry) Remove(filename string) {
	norm, err := NormalizePath(filename)
	if err != nil {
		return
	}
	r.mu.Lock()
	delete(r.buffers, norm)
	r.mu.Unlock()
}

// Get looks up the buffer for filename without creating one. Invalid
// paths simply miss.
func (r *Registry) Get(filename string) (*Buffer, bool) {
	norm, err := NormalizePath(filename)
	if err != nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	buf, ok := r.buffers[norm]
	return buf, ok
}

// Len returns the number of registered buffers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buffers)
}

// Buffers returns the registered buffers ordered by filename.
func (r *Registry) Buffers() []*Buffer {
	r.mu.RLock()
	out := make([]*Buffer, 0, len(r.buffers))
	for _, buf := range r.buffers {
		out = append(out, buf)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Filename() < out[j].Filename() })
	return out
}

// Stats returns a snapshot of the resolution counters.
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		Hits:         r.hits.Load(),
		Loads:        r.loads.Load(),
		Placeholders: r.placeholders.Load(),
	}
}

// Resolve returns the buffer for filename, creating one if needed.
//
// Description:
//
//	An existing buffer always wins, regardless of the options. Missing
//	buffers are constructed from a disk read; concurrent first-resolves
//	of the same filename share a single read. On a failed read, hard
//	sync propagates the error and soft sync registers an empty unsynced
//	buffer instead. Resolve is the only path by which a registry grows
//	on its own.
//
// Inputs:
//
//	ctx - Context checked before blocking disk I/O
//	filename - Absolute path to resolve
//	opts - Workspace seed, sync mode, binary flag
//
// Outputs:
//
//	*Buffer - The registered buffer, reflecting the latest committed
//	          state at call time
//	error - ErrInvalidPath for bad filenames in either mode; the
//	        underlying read or decode error under hard sync
func (r *Registry) Resolve(ctx context.Context, filename string, opts ResolveOptions) (*Buffer, error) {
	norm, err := NormalizePath(filename)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	buf, ok := r.buffers[norm]
	r.mu.RUnlock()
	if ok {
		r.hits.Add(1)
		return buf, nil
	}

	v, err, _ := r.flight.Do(norm, func() (any, error) {
		return r.loadAndRegister(ctx, norm, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Buffer), nil
}

// loadAndRegister builds a buffer for a filename that missed the fast
// path. Runs inside the singleflight group, at most once per filename
// at a time.
func (r *Registry) loadAndRegister(ctx context.Context, norm string, opts ResolveOptions) (*Buffer, error) {
	// Another goroutine may have registered the buffer between the
	// caller's miss and this call.
	r.mu.RLock()
	buf, ok := r.buffers[norm]
	r.mu.RUnlock()
	if ok {
		r.hits.Add(1)
		return buf, nil
	}

	content, loadErr := r.load(ctx, norm, opts.Binary)
	switch {
	case loadErr == nil:
		r.loads.Add(1)
	case opts.HardSync:
		return nil, fmt.Errorf("resolve %s: %w", norm, loadErr)
	default:
		// Soft sync swallows the failure. The caller gets an empty
		// unsynced buffer and no signal; the placeholder counter is the
		// only trace.
		content = ""
		r.placeholders.Add(1)
	}

	buf, err := NewBuffer(norm, opts.Workspace, content)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.buffers[norm]; ok {
		return existing, nil
	}
	r.buffers[norm] = buf
	return buf, nil
}

// load reads and decodes norm from disk.
func (r *Registry) load(ctx context.Context, norm string, binary bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(norm)
	if err != nil {
		return "", err
	}
	if binary {
		return string(raw), nil
	}
	return r.decode(raw)
}
