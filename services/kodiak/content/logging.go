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
	"time"
)

// WithLogging wraps a provider so every batch reports its size, its
// misses, and how long it took. The decorator adds no failure modes of
// its own; abort errors pass through untouched.
//
// Inputs:
//   - next: the provider to decorate. Must not be nil.
//   - log: destination for batch records. Nil falls back to slog.Default().
//
// Outputs:
//   - Provider: the decorated provider.
func WithLogging(next Provider, log *slog.Logger) Provider {
	if log == nil {
		log = slog.Default()
	}
	return &loggingProvider{next: next, log: log}
}

type loggingProvider struct {
	next Provider
	log  *slog.Logger
}

var _ Provider = (*loggingProvider)(nil)

func (l *loggingProvider) ContentMap(ctx context.Context, filenames []string, allowMissing bool) (Map, error) {
	start := time.Now()
	m, err := l.next.ContentMap(ctx, filenames, allowMissing)
	if err != nil {
		l.log.Error("content batch aborted",
			"requested", len(filenames),
			"error", err,
		)
		return nil, err
	}

	missing := len(m.Missing())
	l.log.Debug("content batch resolved",
		"requested", len(filenames),
		"resolved", len(m)-missing,
		"missing", missing,
		"omitted", len(filenames)-len(m),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}
