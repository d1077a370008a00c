// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch orchestrates one editor event end to end: prune the
// configured sections by the event's tags, glob the survivors' file
// patterns against the file universe, gather content, and hand the
// result to the external analysis engine.
//
// The dispatcher owns selection and plumbing, never analysis. Engine
// failures pass through uninterpreted and unretried; content failures
// stay file-scoped, so no section is dropped because an unrelated file
// failed to resolve.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/kodiak/services/kodiak/content"
	"github.com/AleutianAI/kodiak/services/kodiak/filter"
	"github.com/AleutianAI/kodiak/services/kodiak/section"
	"github.com/AleutianAI/kodiak/services/kodiak/telemetry"
)

// Engine is the external analysis engine the dispatcher feeds. The
// implementation decides what running a section means; the dispatcher
// only guarantees that contents covers the sections' target files as
// far as they resolved.
type Engine interface {
	Run(ctx context.Context, sections []*section.Section, contents content.Map) error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, sections []*section.Section, contents content.Map) error

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, sections []*section.Section, contents content.Map) error {
	return f(ctx, sections, contents)
}

var _ Engine = (EngineFunc)(nil)

// Outcome reports what one dispatch did.
type Outcome struct {
	// EventID is the dispatched event's correlation ID.
	EventID string `json:"event_id"`

	// Kind is the dispatched event's kind.
	Kind Kind `json:"kind"`

	// RequestedTags is the resolved tag request, empty for identity.
	RequestedTags []string `json:"requested_tags,omitempty"`

	// Sections names the sections the event activated, sorted.
	Sections []string `json:"sections"`

	// TargetFiles is the union of the active sections' glob matches
	// against the universe, sorted absolute paths.
	TargetFiles []string `json:"target_files,omitempty"`

	// MissingFiles lists target files that failed to resolve and were
	// recorded as placeholders.
	MissingFiles []string `json:"missing_files,omitempty"`

	// EngineRan reports whether the engine was invoked. It stays false
	// when no section matched the request.
	EngineRan bool `json:"engine_ran"`

	// DurationMS is the end-to-end dispatch duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// Options configures optional dispatcher collaborators.
type Options struct {
	// Universe supplies the known file set. Default: empty.
	Universe Universe

	// Provider resolves target files to content. Registry-backed when
	// serving live editor state, disk-backed otherwise.
	// Default: a disk provider.
	Provider content.Provider

	// Workspace, when set, lets section globs with literal prefixes
	// ("docs/**") match workspace-relative paths.
	Workspace string

	// Extra is ANDed with the per-event tag filter, for deployments
	// that pin dispatch to certain bears or paths.
	Extra filter.Filter

	// OmitMissing drops unresolvable files from the content map
	// instead of recording null placeholders.
	OmitMissing bool

	// Logger receives one line per dispatch. Default discards.
	Logger *slog.Logger

	// Metrics receives dispatch instrumentation. Nil disables it.
	Metrics *telemetry.Metrics
}

// Dispatcher routes editor events to the engine.
//
// Description:
//
//	One Dispatcher serves all events for a section configuration.
//	Dispatch calls are independent; the dispatcher keeps no per-event
//	state, so concurrent dispatches only contend on the registry and
//	the engine.
//
// Thread Safety: safe for concurrent use.
type Dispatcher struct {
	sections    *section.Config
	engine      Engine
	universe    Universe
	provider    content.Provider
	workspace   string
	extra       filter.Filter
	omitMissing bool
	log         *slog.Logger
	metrics     *telemetry.Metrics
}

// New creates a dispatcher over the section configuration and engine.
// Opts may be nil; see Options for the defaults.
func New(sections *section.Config, engine Engine, opts *Options) (*Dispatcher, error) {
	if sections == nil {
		return nil, ErrNilConfig
	}
	if engine == nil {
		return nil, ErrNilEngine
	}
	if opts == nil {
		opts = &Options{}
	}

	universe := opts.Universe
	if universe == nil {
		universe = Static()
	}
	provider := opts.Provider
	if provider == nil {
		provider = content.NewDiskProvider(nil)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		sections:    sections,
		engine:      engine,
		universe:    universe,
		provider:    provider,
		workspace:   opts.Workspace,
		extra:       opts.Extra,
		omitMissing: opts.OmitMissing,
		log:         log,
		metrics:     opts.Metrics,
	}, nil
}

// Dispatch runs one event through the pipeline.
//
// Description:
//
//	Disabled sections never survive; the active set is the enabled
//	sections matching the event's requested tags and any extra filter.
//	With no active sections the engine is not invoked and the outcome
//	says so. Engine failures come back as *EngineError with the cause
//	unwrapped inside; every other error is the pipeline's own.
//
// Inputs:
//
//	ctx - Cancels the universe walk and content gathering
//	event - The editor action; an empty ID is assigned
//
// Outputs:
//
//	*Outcome - What the dispatch selected and resolved. Non-nil
//	           whenever the active set was computed, including on
//	           engine failure.
//	error - ErrInvalidKind, a wrapped pipeline failure, or
//	        *EngineError
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (*Outcome, error) {
	if !event.Kind.Valid() {
		d.countEvent(ctx, event.Kind, "invalid")
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, event.Kind)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	ctx, span := telemetry.StartSpan(ctx, "kodiak.dispatch", "Dispatcher.Dispatch",
		trace.WithAttributes(
			attribute.String("event.id", event.ID),
			attribute.String("event.kind", string(event.Kind)),
		))
	defer span.End()

	start := time.Now()
	requested := event.RequestedTags()
	active := filter.Keep(filter.All(filter.Tags(requested...), d.extra), d.sections.Enabled())

	outcome := &Outcome{
		EventID:       event.ID,
		Kind:          event.Kind,
		RequestedTags: requested,
		Sections:      sectionNames(active),
	}

	if len(active) == 0 {
		outcome.DurationMS = time.Since(start).Milliseconds()
		d.finish(ctx, span, event, outcome, start)
		return outcome, nil
	}

	universeFiles, err := d.universe.Files(ctx)
	if err != nil {
		d.countEvent(ctx, event.Kind, "error")
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("file universe: %w", err)
	}

	outcome.TargetFiles = d.matchTargets(active, universeFiles)

	contents, err := d.provider.ContentMap(ctx, outcome.TargetFiles, !d.omitMissing)
	if err != nil {
		d.countEvent(ctx, event.Kind, "error")
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("content map: %w", err)
	}
	outcome.MissingFiles = missingTargets(outcome.TargetFiles, contents)
	if d.metrics != nil {
		if omitted := len(outcome.TargetFiles) - len(contents); omitted > 0 {
			d.metrics.ContentOmissionsTotal.Add(ctx, int64(omitted))
		}
	}

	outcome.EngineRan = true
	if err := d.engine.Run(ctx, active, contents); err != nil {
		outcome.DurationMS = time.Since(start).Milliseconds()
		d.countEvent(ctx, event.Kind, "engine_error")
		telemetry.RecordError(span, err)
		return outcome, &EngineError{Err: err}
	}

	outcome.DurationMS = time.Since(start).Milliseconds()
	d.finish(ctx, span, event, outcome, start)
	return outcome, nil
}

// finish records the success-path instrumentation and log line.
func (d *Dispatcher) finish(ctx context.Context, span trace.Span, event Event, outcome *Outcome, start time.Time) {
	if d.metrics != nil {
		d.countEvent(ctx, event.Kind, "ok")
		d.metrics.SectionsSelected.Record(ctx, int64(len(outcome.Sections)))
		d.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds())
	}
	span.SetAttributes(
		attribute.Int("dispatch.sections", len(outcome.Sections)),
		attribute.Int("dispatch.target_files", len(outcome.TargetFiles)),
		attribute.Int("dispatch.missing_files", len(outcome.MissingFiles)),
	)
	telemetry.SetSpanOK(span)

	telemetry.LoggerWithTrace(ctx, d.log).Info("event dispatched",
		"event_id", outcome.EventID,
		"kind", outcome.Kind,
		"tags", strings.Join(outcome.RequestedTags, ","),
		"sections", len(outcome.Sections),
		"target_files", len(outcome.TargetFiles),
		"missing_files", len(outcome.MissingFiles),
		"engine_ran", outcome.EngineRan,
		"duration_ms", outcome.DurationMS)
}

func (d *Dispatcher) countEvent(ctx context.Context, kind Kind, status string) {
	if d.metrics == nil {
		return
	}
	d.metrics.EventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", status),
	))
}

// matchTargets unions the active sections' glob matches over the
// universe. Matching sees workspace-relative paths when a workspace is
// configured; the returned paths stay absolute.
func (d *Dispatcher) matchTargets(active []*section.Section, universe []string) []string {
	var targets []string
	for _, file := range universe {
		candidate := d.relFor(file)
		for _, s := range active {
			if s.Matches(candidate) {
				targets = append(targets, file)
				break
			}
		}
	}
	sort.Strings(targets)
	return targets
}

// relFor maps an absolute path into the workspace, falling back to the
// path itself for files outside it.
func (d *Dispatcher) relFor(path string) string {
	if d.workspace == "" {
		return path
	}
	rel, err := filepath.Rel(d.workspace, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// missingTargets lists target files that did not resolve to content,
// whether recorded as placeholders or omitted outright. Targets arrive
// sorted, so the result is too.
func missingTargets(targets []string, contents content.Map) []string {
	var missing []string
	for _, file := range targets {
		if lines, ok := contents[file]; !ok || lines == nil {
			missing = append(missing, file)
		}
	}
	return missing
}

func sectionNames(sections []*section.Section) []string {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
