// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package section

import (
	"path/filepath"
	"strings"
)

// DefaultIgnores lists directories a workspace walk skips unless the
// service configuration overrides them. Editor workspaces routinely
// carry dependency trees and build output that no section should target.
var DefaultIgnores = []string{
	".git/**",
	"vendor/**",
	"node_modules/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/.tox/**",
	"dist/**",
	"build/**",
}

// Matcher matches file paths against include and ignore patterns.
//
// Patterns use glob syntax with ** for recursive matching:
//   - * matches any sequence of non-separator characters
//   - ** matches any sequence of characters including separators
//   - ? matches any single non-separator character
//   - [abc] matches one of the characters in brackets
//
// A bare pattern such as "*.py" also matches against the final path
// element, so section configurations can name file types without
// spelling out "**/".
//
// Thread Safety: safe for concurrent use after creation.
type Matcher struct {
	include []string
	ignore  []string
}

// NewMatcher creates a matcher.
//
// Empty include means every path is included; empty ignore means no
// path is rejected.
func NewMatcher(include, ignore []string) *Matcher {
	return &Matcher{include: include, ignore: ignore}
}

// Match reports whether path passes the matcher: rejected by no ignore
// pattern, and accepted by at least one include pattern (or include is
// empty). Paths are normalized to forward slashes first.
func (m *Matcher) Match(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.ignore {
		if matchGlob(pattern, path) {
			return false
		}
	}

	if len(m.include) == 0 {
		return true
	}
	for _, pattern := range m.include {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// matchGlob matches one path against one glob pattern, including the
// basename fallback described on Matcher.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}

// matchDoublestar handles patterns containing ** segments.
func matchDoublestar(pattern, path string) bool {
	parts := strings.Split(pattern, "**")
	if len(parts) == 1 {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	// The common prefix/**/suffix shape gets exact treatment.
	if len(parts) == 2 {
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")

		if prefix != "" {
			if !strings.HasPrefix(path, prefix+"/") && path != prefix {
				return false
			}
			path = strings.TrimPrefix(path, prefix+"/")
		}
		if suffix != "" {
			return matchTail(suffix, path)
		}
		return true
	}

	// Multiple ** segments: require the literal parts in order.
	pathIdx := 0
	for i, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		idx := strings.Index(path[pathIdx:], part)
		if idx == -1 {
			return false
		}
		if i == 0 && !strings.HasPrefix(pattern, "**") && idx != 0 {
			return false
		}
		pathIdx += idx + len(part)
	}
	if !strings.HasSuffix(pattern, "**") && pathIdx != len(path) {
		return false
	}
	return true
}

// matchTail checks whether some path suffix matches the pattern tail.
func matchTail(suffix, path string) bool {
	if strings.ContainsAny(suffix, "*?[") {
		parts := strings.Split(path, "/")
		for i := range parts {
			rest := strings.Join(parts[i:], "/")
			if matched, _ := filepath.Match(suffix, rest); matched {
				return true
			}
		}
		return false
	}
	return strings.HasSuffix(path, suffix) || strings.Contains(path, suffix+"/") || path == suffix
}
