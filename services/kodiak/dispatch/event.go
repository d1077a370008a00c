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
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind names the editor action that triggered an event.
type Kind string

const (
	// KindOpen fires when a file is first opened.
	KindOpen Kind = "open"

	// KindChange fires on edits to an open buffer.
	KindChange Kind = "change"

	// KindSave fires when a buffer is flushed to disk.
	KindSave Kind = "save"

	// KindFormat fires on an explicit format action.
	KindFormat Kind = "format"

	// KindNone requests no tags at all, which the identity filter maps
	// to every enabled section.
	KindNone Kind = "none"
)

// Valid reports whether k is part of the trigger vocabulary.
func (k Kind) Valid() bool {
	switch k {
	case KindOpen, KindChange, KindSave, KindFormat, KindNone:
		return true
	default:
		return false
	}
}

// ParseKind folds and validates a kind name from the wire or the CLI.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Event is one editor action to dispatch.
//
// The requested tag set usually follows the kind alone; explicit Tags
// cover combined actions, a save that should also run format sections
// for example.
type Event struct {
	// ID correlates the event across logs, traces, and responses.
	// Dispatch assigns one when empty.
	ID string `json:"id,omitempty"`

	// Kind is the triggering editor action.
	Kind Kind `json:"kind"`

	// Tags overrides the requested tag set when non-empty.
	Tags []string `json:"tags,omitempty"`
}

// NewEvent builds an event with a fresh ID.
func NewEvent(kind Kind, tags ...string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Tags: tags}
}

// RequestedTags resolves the tag set this event asks for: explicit
// tags win, otherwise the kind is the singleton request, and a "none"
// kind requests nothing. Tags are folded to lower case; blank ones are
// dropped, so an all-blank list falls back to the kind.
func (e Event) RequestedTags() []string {
	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 0 {
		return tags
	}
	if e.Kind == KindNone {
		return nil
	}
	return []string{string(e.Kind)}
}
