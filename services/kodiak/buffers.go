// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kodiak

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/kodiak/services/kodiak/document"
)

// BufferState is the outward view of one live buffer.
type BufferState struct {
	// File is the buffer's normalized absolute path.
	File string `json:"file"`

	// Version is the last accepted editor version, -1 while unsynced.
	Version int64 `json:"version"`

	// Synced reports whether the buffer has seen a versioned replace.
	Synced bool `json:"synced"`
}

func stateOf(buf *document.Buffer) BufferState {
	return BufferState{
		File:    buf.Filename(),
		Version: buf.Version(),
		Synced:  buf.Synced(),
	}
}

// OpenBuffer registers a buffer seeded with the editor's content,
// replacing any buffer already held for the file. The buffer starts
// unsynced; the editor's first versioned replace moves it to synced.
// Construction never consults the disk.
func (s *Service) OpenBuffer(file, initial string) (BufferState, error) {
	buf, err := document.NewBuffer(s.resolvePath(file), s.cfg.Workspace, initial)
	if err != nil {
		return BufferState{}, err
	}
	s.registry.Add(buf, true)
	s.log.Info("buffer opened", "file", buf.Filename())
	return stateOf(buf), nil
}

// ReplaceBuffer applies one versioned replace to a live buffer.
//
// Description:
//
//	Accepted reports the buffer's decision: a stale or duplicate
//	version is rejected without touching the buffer, and that is not
//	an error. The error return covers files with no live buffer.
func (s *Service) ReplaceBuffer(ctx context.Context, file, content string, version int64) (BufferState, bool, error) {
	buf, ok := s.registry.Get(s.resolvePath(file))
	if !ok {
		s.countReplace(ctx, false)
		return BufferState{}, false, fmt.Errorf("replace %s: %w", file, ErrUnknownBuffer)
	}

	accepted := buf.Replace(content, version)
	s.countReplace(ctx, accepted)
	if !accepted {
		s.log.Debug("stale replace rejected",
			"file", buf.Filename(),
			"offered", version,
			"current", buf.Version())
	}
	return stateOf(buf), accepted, nil
}

// ClearBuffer resets a live buffer to unsynced and empty.
func (s *Service) ClearBuffer(file string) (BufferState, error) {
	buf, ok := s.registry.Get(s.resolvePath(file))
	if !ok {
		return BufferState{}, fmt.Errorf("clear %s: %w", file, ErrUnknownBuffer)
	}
	buf.Clear()
	return stateOf(buf), nil
}

// RemoveBuffer forgets the buffer for a file. Removing a file with no
// buffer is a no-op, matching the registry.
func (s *Service) RemoveBuffer(file string) {
	s.registry.Remove(s.resolvePath(file))
}

// Buffers lists the live buffers sorted by filename.
func (s *Service) Buffers() []BufferState {
	bufs := s.registry.Buffers()
	out := make([]BufferState, 0, len(bufs))
	for _, buf := range bufs {
		out = append(out, stateOf(buf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

func (s *Service) countReplace(ctx context.Context, accepted bool) {
	if s.metrics == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	s.metrics.ReplacesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome)))
}
