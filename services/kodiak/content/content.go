// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package content turns lists of filenames into the content mapping the
// analysis engine consumes.
//
// The Provider contract has two strategies, selected at construction:
// disk-backed (fresh reads) and registry-backed (live editor state with
// disk fallback). A logging decorator wraps either. Failures are always
// file-scoped: one unreadable file never aborts a batch.
package content

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Map maps filenames to their content lines.
//
// A nil value is the null placeholder recorded for a file that failed
// to resolve while placeholders were allowed; an existing file with no
// lines maps to an empty non-nil slice. Files whose failure was not
// placeholder-eligible are absent entirely.
type Map map[string][]string

// SortedFiles returns the mapped filenames in lexical order, for
// callers that need an ordered report.
func (m Map) SortedFiles() []string {
	files := make([]string, 0, len(m))
	for name := range m {
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}

// Missing returns the filenames mapped to the null placeholder, in
// lexical order.
func (m Map) Missing() []string {
	var missing []string
	for name, lines := range m {
		if lines == nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Provider resolves filenames into content for one analysis run.
type Provider interface {
	// ContentMap resolves every filename in the batch. A file that
	// fails to resolve maps to nil when allowMissing is true and is
	// omitted with a warning otherwise; either way the batch continues.
	// The error return is reserved for context cancellation.
	ContentMap(ctx context.Context, filenames []string, allowMissing bool) (Map, error)
}

// defaultConcurrency bounds parallel reads per batch.
const defaultConcurrency = 8

// gather applies fetch to every filename under the shared failure
// policy and assembles the result map.
func gather(ctx context.Context, filenames []string, allowMissing bool, limit int, log *slog.Logger, fetch func(context.Context, string) ([]string, error)) (Map, error) {
	if limit <= 0 {
		limit = defaultConcurrency
	}

	result := make(Map, len(filenames))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, filename := range filenames {
		g.Go(func() error {
			lines, err := fetch(gctx, filename)
			if err != nil {
				// Cancellation aborts the batch; everything else is
				// file-scoped.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !allowMissing {
					log.Warn("skipping unreadable file",
						"file", filename,
						"error", err)
					return nil
				}
				mu.Lock()
				result[filename] = nil
				mu.Unlock()
				return nil
			}
			if lines == nil {
				lines = []string{}
			}
			mu.Lock()
			result[filename] = lines
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
