// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package section models the configured analysis sections.
//
// A Section is a named bundle of bears, file patterns, and selection
// tags, loaded from sections.yaml. Tag inheritance between dotted names
// ("all" is the parent of "all.python") is resolved once at load time;
// after that, sections are immutable and safe to share.
package section

import (
	"path/filepath"
	"sort"
	"strings"
)

// Section is one configured analysis section.
//
// The tag set is the resolved, effective set: declared tags combined
// with inherited ones per the rules in Parse. An empty set means the
// section is never tag-selectable, though the identity filter (an empty
// request) still admits it.
type Section struct {
	// Name is the full dotted name, lowercase, e.g. "all.python".
	Name string

	// Enabled gates the section globally, regardless of tags.
	Enabled bool

	// Bears lists the analysis routines this section configures.
	Bears []string

	// Files lists the glob patterns selecting this section's targets.
	Files []string

	tags map[string]struct{}
}

// New creates an enabled section whose declared tags are already
// effective. Inheritance only happens in Parse; New is for building
// sections directly in code.
func New(name string, tags ...string) *Section {
	return &Section{
		Name:    strings.ToLower(strings.TrimSpace(name)),
		Enabled: true,
		tags:    normalizeTags(tags),
	}
}

// Tags returns the effective tag set in sorted order.
func (s *Section) Tags() []string {
	out := make([]string, 0, len(s.tags))
	for t := range s.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether tag is in the effective set. Matching is
// case-insensitive.
func (s *Section) HasTag(tag string) bool {
	_, ok := s.tags[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}

// Matches reports whether path matches at least one of the section's
// file patterns. A section with no patterns matches nothing: it
// contributes no target files to a dispatch.
func (s *Section) Matches(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range s.Files {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// OwningSection implements Holder: a section owns itself.
func (s *Section) OwningSection() *Section { return s }

// Holder exposes the section that owns an entity. Filters and the
// dispatcher work through this interface so sections and bear bindings
// are treated uniformly: an entity's tags are always its owning
// section's tags.
type Holder interface {
	OwningSection() *Section
}

// BearRef binds one bear name to the section that configures it.
type BearRef struct {
	Bear    string
	Section *Section
}

// OwningSection implements Holder.
func (r BearRef) OwningSection() *Section { return r.Section }

var (
	_ Holder = (*Section)(nil)
	_ Holder = BearRef{}
)

// normalizeTags lowercases and trims tags into a set, dropping empties.
func normalizeTags(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}
