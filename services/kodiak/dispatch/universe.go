// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/AleutianAI/kodiak/services/kodiak/section"
)

// Universe enumerates the files an event's section globs are matched
// against. Paths must be absolute so the content provider can resolve
// them.
type Universe interface {
	Files(ctx context.Context) ([]string, error)
}

// UniverseFunc adapts a function to the Universe interface.
type UniverseFunc func(ctx context.Context) ([]string, error)

// Files calls f.
func (f UniverseFunc) Files(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Static returns a fixed-universe implementation, mainly for tests and
// one-shot CLI runs over explicit file lists.
func Static(files ...string) Universe {
	fixed := make([]string, len(files))
	copy(fixed, files)
	sort.Strings(fixed)
	return UniverseFunc(func(context.Context) ([]string, error) {
		return fixed, nil
	})
}

// WorkspaceUniverse walks the workspace root on every call, so a
// dispatch always sees files created since the last one.
//
// Thread Safety: safe for concurrent use.
type WorkspaceUniverse struct {
	root    string
	matcher *section.Matcher
}

var _ Universe = (*WorkspaceUniverse)(nil)

// NewWorkspaceUniverse creates a universe rooted at root. The root is
// made absolute so the yielded paths satisfy registry normalization. A
// nil ignore list applies section.DefaultIgnores; pass an empty non-nil
// slice to ignore nothing.
func NewWorkspaceUniverse(root string, ignore []string) *WorkspaceUniverse {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if ignore == nil {
		ignore = section.DefaultIgnores
	}
	return &WorkspaceUniverse{
		root:    root,
		matcher: section.NewMatcher(nil, ignore),
	}
}

// Files returns the absolute paths of every regular file under the
// root that no ignore pattern rejects, sorted. Unreadable entries are
// skipped; only context cancellation aborts the walk.
func (u *WorkspaceUniverse) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(u.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, rerr := filepath.Rel(u.root, path)
		if rerr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			// Trailing slash lets directory ignores like ".git/**"
			// prune the whole subtree.
			if !u.matcher.Match(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if u.matcher.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
