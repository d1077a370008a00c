// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/dispatch"
)

// EventRequest is the POST /v1/events payload.
type EventRequest struct {
	// Kind is the editor action that triggered the event. One of
	// "open", "change", "save", "format", or "none".
	Kind string `json:"kind" binding:"required"`

	// Tags overrides the requested tag set when non-empty. Leaving it
	// empty falls back to the kind itself.
	Tags []string `json:"tags"`
}

// EventResponse wraps a dispatch outcome for the wire. EngineError
// reports an analysis failure without hiding the outcome that led to it.
type EventResponse struct {
	*dispatch.Outcome
	EngineError string `json:"engine_error,omitempty"`
}

// BufferRequest is the POST /v1/buffers/:op payload. Version is a
// pointer so the handler can tell "version 0" from "no version sent".
type BufferRequest struct {
	File    string `json:"file" binding:"required"`
	Content string `json:"content"`
	Version *int64 `json:"version"`
}

// BufferOpResponse reports the buffer state after an operation.
// Accepted is set only by replace, where stale versions are dropped.
type BufferOpResponse struct {
	kodiak.BufferState
	Accepted *bool `json:"accepted,omitempty"`
}

// BufferListResponse is the GET /v1/buffers payload.
type BufferListResponse struct {
	Buffers []kodiak.BufferState `json:"buffers"`
	Count   int                  `json:"count"`
}

// SectionListResponse is the GET /v1/sections payload.
type SectionListResponse struct {
	Sections []kodiak.SectionView `json:"sections"`
	Count    int                  `json:"count"`
}

// ErrorResponse is the standard error envelope for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
