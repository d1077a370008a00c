// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the dispatch service over HTTP and websocket.
//
// Editors talk to kodiak through three surfaces that all funnel into the
// same kodiak.Service: REST endpoints for one-shot operations, a
// websocket sync stream for the high-frequency buffer traffic, and the
// usual health and metrics endpoints for operators. The handlers hold no
// state of their own beyond the service reference, so anything the REST
// surface changes is immediately visible on the stream and vice versa.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/dispatch"
	"github.com/AleutianAI/kodiak/services/kodiak/document"
	"github.com/AleutianAI/kodiak/services/kodiak/telemetry"
)

// ServiceVersion is the kodiak service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the dispatch service.
type Handlers struct {
	svc *kodiak.Service
	log *slog.Logger
}

// NewHandlers creates handlers for the given service. A nil logger
// silences the handlers.
func NewHandlers(svc *kodiak.Service, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handlers{svc: svc, log: log}
}

// HandleEvent handles POST /v1/events.
//
// Description:
//
//	Dispatches one editor event: resolves the requested tags, selects
//	the matching sections, gathers file contents, and runs the engine.
//	The outcome reports what was selected and gathered even when the
//	engine itself fails.
//
// Request Body:
//
//	EventRequest
//
// Response:
//
//	200 OK: EventResponse
//	400 Bad Request: Malformed body or unknown event kind
//	502 Bad Gateway: EventResponse with engine_error set; the outcome
//	    is still present so clients can see what the engine was given
//	500 Internal Server Error: Dispatch pipeline failure
func (h *Handlers) HandleEvent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.log.With("request_id", requestID, "handler", "HandleEvent")

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	kind, err := dispatch.ParseKind(req.Kind)
	if err != nil {
		logger.Warn("Invalid event kind", "kind", req.Kind)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_KIND",
		})
		return
	}

	outcome, err := h.svc.Dispatch(c.Request.Context(), dispatch.NewEvent(kind, req.Tags...))
	if err != nil {
		var engineErr *dispatch.EngineError
		if errors.As(err, &engineErr) {
			logger.Error("Analysis engine failed",
				"event_id", outcome.EventID,
				"sections", len(outcome.Sections),
				"error", err)
			c.JSON(http.StatusBadGateway, EventResponse{
				Outcome:     outcome,
				EngineError: engineErr.Error(),
			})
			return
		}
		logger.Error("Dispatch failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DISPATCH_FAILED",
		})
		return
	}

	logger.Info("Event dispatched",
		"event_id", outcome.EventID,
		"kind", outcome.Kind,
		"sections", len(outcome.Sections),
		"files", len(outcome.TargetFiles))

	c.JSON(http.StatusOK, EventResponse{Outcome: outcome})
}

// HandleBufferOp handles POST /v1/buffers/:op.
//
// Description:
//
//	Applies one buffer operation. The :op path parameter selects the
//	operation: "open" registers a buffer with initial content, "replace"
//	applies a versioned content update, "clear" drops the content back
//	to the unsynced state, and "remove" forgets the buffer entirely.
//
// Request Body:
//
//	BufferRequest (version is required for replace)
//
// Response:
//
//	200 OK: BufferOpResponse
//	400 Bad Request: Malformed body, unknown op, invalid path, or a
//	    replace without a version
//	404 Not Found: Replace or clear on a file that was never opened
func (h *Handlers) HandleBufferOp(c *gin.Context) {
	op := c.Param("op")
	requestID := getOrCreateRequestID(c)
	logger := h.log.With("request_id", requestID, "handler", "HandleBufferOp", "op", op)

	var req BufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	switch op {
	case "open":
		state, err := h.svc.OpenBuffer(req.File, req.Content)
		if err != nil {
			writeBufferError(c, logger, err)
			return
		}
		logger.Info("Buffer opened", "file", state.File)
		c.JSON(http.StatusOK, BufferOpResponse{BufferState: state})

	case "replace":
		if req.Version == nil {
			logger.Warn("Replace without a version", "file", req.File)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "replace requires a version",
				Code:  "MISSING_VERSION",
			})
			return
		}
		state, accepted, err := h.svc.ReplaceBuffer(c.Request.Context(), req.File, req.Content, *req.Version)
		if err != nil {
			writeBufferError(c, logger, err)
			return
		}
		logger.Info("Buffer replaced",
			"file", state.File,
			"version", state.Version,
			"accepted", accepted)
		c.JSON(http.StatusOK, BufferOpResponse{BufferState: state, Accepted: &accepted})

	case "clear":
		state, err := h.svc.ClearBuffer(req.File)
		if err != nil {
			writeBufferError(c, logger, err)
			return
		}
		logger.Info("Buffer cleared", "file", state.File)
		c.JSON(http.StatusOK, BufferOpResponse{BufferState: state})

	case "remove":
		h.svc.RemoveBuffer(req.File)
		logger.Info("Buffer removed", "file", req.File)
		c.JSON(http.StatusOK, gin.H{"file": req.File, "removed": true})

	default:
		logger.Warn("Unknown buffer operation")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("unknown buffer operation %q", op),
			Code:  "UNKNOWN_OP",
		})
	}
}

// HandleListBuffers handles GET /v1/buffers.
//
// Response:
//
//	200 OK: BufferListResponse sorted by file path
func (h *Handlers) HandleListBuffers(c *gin.Context) {
	getOrCreateRequestID(c)
	buffers := h.svc.Buffers()
	c.JSON(http.StatusOK, BufferListResponse{Buffers: buffers, Count: len(buffers)})
}

// HandleSections handles GET /v1/sections.
//
// Description:
//
//	Lists the enabled sections a tag request would activate. Without
//	the tags parameter every enabled section is returned.
//
// Query Parameters:
//
//	tags: Comma-separated tag list (optional)
//
// Response:
//
//	200 OK: SectionListResponse in configuration order
func (h *Handlers) HandleSections(c *gin.Context) {
	getOrCreateRequestID(c)

	var tags []string
	if raw := c.Query("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	sections := h.svc.SelectSections(tags)
	c.JSON(http.StatusOK, SectionListResponse{Sections: sections, Count: len(sections)})
}

// HandleDrift handles GET /v1/drift.
//
// Description:
//
//	Compares an open buffer against its file on disk and reports the
//	divergence as added and removed line counts plus a unified patch.
//
// Query Parameters:
//
//	file: The buffer's file path (required)
//
// Response:
//
//	200 OK: drift.Report
//	400 Bad Request: Missing file parameter
//	404 Not Found: File was never opened
func (h *Handlers) HandleDrift(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.log.With("request_id", requestID, "handler", "HandleDrift")

	file := c.Query("file")
	if file == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "file query parameter is required",
			Code:  "MISSING_FILE",
		})
		return
	}

	report, err := h.svc.Drift(file)
	if err != nil {
		writeBufferError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleHealthz handles GET /healthz.
func (h *Handlers) HandleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "kodiak",
		"version":   ServiceVersion,
		"workspace": h.svc.Workspace(),
		"buffers":   h.svc.Registry().Len(),
	})
}

// HandleMetrics handles GET /metrics.
//
// Description:
//
//	Serves the Prometheus scrape endpoint. Responds 503 until telemetry
//	is initialized with the Prometheus exporter enabled.
func (h *Handlers) HandleMetrics(c *gin.Context) {
	promHandler := telemetry.MetricsHandler()
	if promHandler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "metrics are not enabled",
			Code:  "METRICS_DISABLED",
		})
		return
	}
	promHandler.ServeHTTP(c.Writer, c.Request)
}

// writeBufferError maps buffer and drift errors onto HTTP responses.
func writeBufferError(c *gin.Context, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	errCode := "BUFFER_OP_FAILED"

	if errors.Is(err, kodiak.ErrUnknownBuffer) {
		statusCode = http.StatusNotFound
		errCode = "UNKNOWN_BUFFER"
	} else if errors.Is(err, document.ErrInvalidPath) {
		statusCode = http.StatusBadRequest
		errCode = "INVALID_PATH"
	} else if errors.Is(err, document.ErrNotText) {
		statusCode = http.StatusBadRequest
		errCode = "NOT_TEXT"
	}

	logger.Warn("Buffer operation failed", "error", err)
	c.JSON(statusCode, ErrorResponse{
		Error: err.Error(),
		Code:  errCode,
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
