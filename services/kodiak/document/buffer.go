// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package document tracks the editor-side state of source files.
//
// A Buffer holds one file's latest known content together with a
// monotonically increasing sync version; the Registry maps normalized
// absolute filenames to exactly one Buffer each and loads buffers from
// disk on demand. Buffers are pure data structures: they never log and
// never talk to anything but their own file path.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// UnsyncedVersion is the version of a buffer that has never accepted a
// replace. Disk-loaded buffers start here too: the version counts
// editor synchronizations, not disk states.
const UnsyncedVersion int64 = -1

// Buffer is the in-memory representation of one file.
//
// The content/version pair only changes through Replace, which enforces
// last-writer-wins under a monotonic version clock. Identity (filename,
// workspace) is immutable after construction.
//
// Thread Safety:
//
//	Buffer is safe for concurrent use. A single RWMutex guards the
//	content/version pair, so concurrent replaces on the same buffer
//	cannot interleave and readers never observe a torn pair.
type Buffer struct {
	filename  string
	workspace string

	mu      sync.RWMutex
	content string
	version int64
}

// NewBuffer creates a buffer for filename holding initial content at
// version UnsyncedVersion.
//
// Description:
//
//	Validates and normalizes the filename, then constructs the buffer.
//	Construction never consults the disk; the initial content is taken
//	as given.
//
// Inputs:
//
//	filename - Absolute path to a file (not a directory)
//	workspace - Optional project root association, may be empty
//	initial - Starting content
//
// Outputs:
//
//	*Buffer - The unsynced buffer
//	error - ErrInvalidPath if filename is relative or directory-like
func NewBuffer(filename, workspace, initial string) (*Buffer, error) {
	norm, err := NormalizePath(filename)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		filename:  norm,
		workspace: workspace,
		content:   initial,
		version:   UnsyncedVersion,
	}, nil
}

// Filename returns the normalized absolute path, the buffer's identity.
func (b *Buffer) Filename() string {
	return b.filename
}

// Workspace returns the project root this buffer was associated with,
// or "" when none was given.
func (b *Buffer) Workspace() string {
	return b.workspace
}

// Version returns the version of the most recent accepted replace, or
// UnsyncedVersion if there has been none.
func (b *Buffer) Version() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Contents returns the current content.
func (b *Buffer) Contents() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.content
}

// Synced reports whether the buffer has accepted at least one replace.
func (b *Buffer) Synced() bool {
	return b.Version() > UnsyncedVersion
}

// Replace installs new content under a newer version.
//
// Description:
//
//	Accepts only if version is strictly greater than the current one;
//	acceptance updates content and version atomically. Out-of-order and
//	duplicate updates are discarded without error: the caller gets
//	false and the buffer is untouched. Callers that care about drops
//	should count them, not fail on them.
//
// Inputs:
//
//	content - The full new content
//	version - The editor's version for this content
//
// Outputs:
//
//	bool - true if the update was accepted
func (b *Buffer) Replace(content string, version int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if version <= b.version {
		return false
	}
	b.content = content
	b.version = version
	return true
}

// Clear resets the buffer to empty content at UnsyncedVersion, as if it
// had never been synchronized.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.content = ""
	b.version = UnsyncedVersion
	b.mu.Unlock()
}

// DiskContent reads the buffer's path from disk and returns the raw
// bytes. The read is independent: it never touches content or version,
// and the result may diverge from both (the file may have changed
// externally or may not have been flushed yet). Decoding the bytes is
// the caller's business.
func (b *Buffer) DiskContent() ([]byte, error) {
	raw, err := os.ReadFile(b.filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.filename, err)
	}
	return raw, nil
}

// Lines splits the content into lines, retaining terminators. Content
// with no detectable line structure (NUL bytes, the usual binary
// heuristic) yields nil rather than failing.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	content := b.content
	b.mu.RUnlock()
	return SplitLines(content)
}

// SplitLines splits s after every newline, keeping the terminator on
// each line. The final fragment is kept without one. Strings containing
// NUL yield nil.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	if strings.IndexByte(s, 0) >= 0 {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// NormalizePath validates filename as an absolute file path and returns
// its cleaned form, the canonical registry key.
//
// Outputs:
//
//	string - The cleaned path
//	error - ErrInvalidPath when filename is empty, relative, or ends
//	        with a path separator (directory-like)
func NormalizePath(filename string) (string, error) {
	if filename == "" || !filepath.IsAbs(filename) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, filename)
	}
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q denotes a directory", ErrInvalidPath, filename)
	}
	return filepath.Clean(filename), nil
}
