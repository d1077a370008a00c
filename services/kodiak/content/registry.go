// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package content

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/kodiak/services/kodiak/document"
)

// RegistryOptions configures a RegistryProvider. A nil value selects
// defaults.
type RegistryOptions struct {
	// Workspace seeds buffers the registry creates for files it has not
	// seen before. Default: "".
	Workspace string

	// Logger receives per-file skip warnings. Default: slog.Default().
	Logger *slog.Logger

	// Concurrency bounds parallel resolves within one batch.
	// Default: 8.
	Concurrency int
}

// RegistryProvider serves content from a buffer registry, so dispatches
// observe live editor state instead of a disk snapshot. Files without a
// buffer are loaded from disk through the registry, which also warms it
// for later events.
//
// Resolution is hard: a file the registry can neither find buffered nor
// load from disk counts as a read failure for that file alone, and the
// batch decides placeholder-versus-omit exactly as the disk provider
// does. No empty placeholder buffer is left behind.
//
// Thread Safety:
//
// Safe for concurrent use; the registry carries all shared state.
type RegistryProvider struct {
	registry  *document.Registry
	workspace string
	log       *slog.Logger
	limit     int
}

var _ Provider = (*RegistryProvider)(nil)

// NewRegistryProvider creates a provider over registry.
//
// Inputs:
//   - registry: the buffer registry to serve from. Must not be nil.
//   - opts: optional tuning. Pass nil for defaults.
//
// Outputs:
//   - *RegistryProvider: ready for use.
func NewRegistryProvider(registry *document.Registry, opts *RegistryOptions) *RegistryProvider {
	p := &RegistryProvider{
		registry: registry,
		log:      slog.Default(),
		limit:    defaultConcurrency,
	}
	if opts == nil {
		return p
	}
	p.workspace = opts.Workspace
	if opts.Logger != nil {
		p.log = opts.Logger
	}
	if opts.Concurrency > 0 {
		p.limit = opts.Concurrency
	}
	return p
}

// ContentMap implements Provider by resolving each file through the
// registry and reading the buffer's current lines.
func (p *RegistryProvider) ContentMap(ctx context.Context, filenames []string, allowMissing bool) (Map, error) {
	return gather(ctx, filenames, allowMissing, p.limit, p.log, p.fetch)
}

func (p *RegistryProvider) fetch(ctx context.Context, filename string) ([]string, error) {
	buf, err := p.registry.Resolve(ctx, filename, document.ResolveOptions{
		Workspace: p.workspace,
		HardSync:  true,
	})
	if err != nil {
		return nil, err
	}
	return buf.Lines(), nil
}
