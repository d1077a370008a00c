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
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/kodiak/services/kodiak/document"
)

// DiskOptions configures a DiskProvider. A nil value selects defaults.
type DiskOptions struct {
	// Decode turns raw file bytes into text. Default: document.DecodeText.
	Decode document.DecodeFunc

	// Logger receives per-file skip warnings. Default: slog.Default().
	Logger *slog.Logger

	// Concurrency bounds parallel reads within one batch.
	// Default: 8.
	Concurrency int
}

// DiskProvider reads every requested file fresh from disk, ignoring any
// editor buffers. It serves dispatches that must observe the flushed
// state of the workspace, such as post-save hooks and batch runs
// started from the command line.
//
// Thread Safety:
//
// Safe for concurrent use. The provider holds no per-batch state.
type DiskProvider struct {
	decode document.DecodeFunc
	log    *slog.Logger
	limit  int
}

var _ Provider = (*DiskProvider)(nil)

// NewDiskProvider creates a disk-backed provider.
//
// Inputs:
//   - opts: optional tuning. Pass nil for defaults.
//
// Outputs:
//   - *DiskProvider: ready for use.
func NewDiskProvider(opts *DiskOptions) *DiskProvider {
	p := &DiskProvider{
		decode: document.DecodeText,
		log:    slog.Default(),
		limit:  defaultConcurrency,
	}
	if opts == nil {
		return p
	}
	if opts.Decode != nil {
		p.decode = opts.Decode
	}
	if opts.Logger != nil {
		p.log = opts.Logger
	}
	if opts.Concurrency > 0 {
		p.limit = opts.Concurrency
	}
	return p
}

// ContentMap implements Provider by reading and decoding each file from
// disk. Decode failures count as read failures: the file is mapped to a
// placeholder or omitted like any unreadable file.
func (p *DiskProvider) ContentMap(ctx context.Context, filenames []string, allowMissing bool) (Map, error) {
	return gather(ctx, filenames, allowMissing, p.limit, p.log, p.read)
}

func (p *DiskProvider) read(ctx context.Context, filename string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	text, err := p.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return document.SplitLines(text), nil
}
