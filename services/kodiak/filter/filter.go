// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package filter prunes configured analysis sections down to the set a
// single event should activate.
//
// Filters are pure predicates over section.Holder, so they compose with
// plain logical AND and evaluation order is unobservable. The tag
// filter carries the event-dispatch semantics; the bear-name and
// file-pattern filters narrow the survivors further. None of them
// mutate what they inspect and none of them return errors: an entity
// the filter cannot interrogate simply does not match.
package filter

import (
	"strings"

	"github.com/AleutianAI/kodiak/services/kodiak/section"
)

// Filter is a pure predicate over a configuration entity. A nil Filter
// is treated as the identity everywhere one is accepted.
type Filter func(entity section.Holder) bool

// Matches reports whether the entity's owning section is active for the
// requested tags.
//
// Description:
//
//	An empty requested set is the identity: every entity matches, tags
//	or not. A non-empty request matches iff the case-insensitive
//	intersection with the section's effective tags is non-empty, so a
//	section that declares no tags never matches a non-empty request.
//	Entities without an owning section never match and never error.
//
// Inputs:
//
//	requested - Tags named by the current event; blank entries ignored
//	entity - Anything that can name its owning section
//
// Outputs:
//
//	bool - true when the entity should stay active for this request
func Matches(requested []string, entity section.Holder) bool {
	requested = cleanRequest(requested)
	if len(requested) == 0 {
		return true
	}
	s := owning(entity)
	if s == nil {
		return false
	}
	for _, tag := range requested {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}

// Tags returns Matches over a fixed requested set as a composable
// Filter. Tags() with no arguments is the identity filter.
func Tags(requested ...string) Filter {
	cleaned := cleanRequest(requested)
	return func(entity section.Holder) bool {
		return Matches(cleaned, entity)
	}
}

// Bears returns a filter keeping entities bound to any of the named
// bears: a bear binding matches on its own bear name, a bare section on
// any bear it lists. Comparison folds case. Bears() with no arguments
// is the identity filter.
func Bears(names ...string) Filter {
	want := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			want[name] = struct{}{}
		}
	}
	return func(entity section.Holder) bool {
		if len(want) == 0 {
			return true
		}
		if ref, ok := entity.(section.BearRef); ok {
			_, hit := want[strings.ToLower(ref.Bear)]
			return hit
		}
		s := owning(entity)
		if s == nil {
			return false
		}
		for _, bear := range s.Bears {
			if _, hit := want[strings.ToLower(bear)]; hit {
				return true
			}
		}
		return false
	}
}

// Files returns a filter keeping sections whose glob patterns cover at
// least one of the given paths. Files() with no arguments is the
// identity filter.
func Files(paths ...string) Filter {
	var cleaned []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return func(entity section.Holder) bool {
		if len(cleaned) == 0 {
			return true
		}
		s := owning(entity)
		if s == nil {
			return false
		}
		for _, p := range cleaned {
			if s.Matches(p) {
				return true
			}
		}
		return false
	}
}

// All composes filters with logical AND. Nil members are skipped;
// All() with no arguments is the identity filter.
func All(filters ...Filter) Filter {
	return func(entity section.Holder) bool {
		for _, f := range filters {
			if f != nil && !f(entity) {
				return false
			}
		}
		return true
	}
}

// Keep applies f to every entity and returns the survivors in their
// original order. A nil f keeps everything.
func Keep[H section.Holder](f Filter, entities []H) []H {
	if f == nil {
		out := make([]H, len(entities))
		copy(out, entities)
		return out
	}
	out := make([]H, 0, len(entities))
	for _, e := range entities {
		if f(e) {
			out = append(out, e)
		}
	}
	return out
}

// owning unwraps the holder, tolerating nil entities and nil sections.
func owning(entity section.Holder) *section.Section {
	if entity == nil {
		return nil
	}
	return entity.OwningSection()
}

// cleanRequest drops blank tags so a request of empty strings behaves
// like no request at all.
func cleanRequest(requested []string) []string {
	out := requested[:0:0]
	for _, tag := range requested {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
