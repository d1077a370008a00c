// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the pre-defined instruments for the Kodiak service.
//
// Description:
//
//	Counters and histograms for the dispatch pipeline and the buffer
//	sync surface. All instruments use the "kodiak_" prefix. The
//	replace and resolve counters are the observable side of behavior
//	the core API keeps silent: stale replaces return false without an
//	error and soft-sync placeholders never surface to callers, so
//	this is where operators see them.
//
// Thread Safety: safe for concurrent use after creation.
type Metrics struct {
	// --- Dispatch Metrics ---

	// EventsTotal counts dispatched events by kind and status.
	EventsTotal metric.Int64Counter

	// SectionsSelected records how many sections each event activated.
	SectionsSelected metric.Int64Histogram

	// DispatchDuration records end-to-end dispatch duration in seconds.
	DispatchDuration metric.Float64Histogram

	// --- Buffer Sync Metrics ---

	// ReplacesTotal counts replace attempts by outcome
	// (accepted, rejected). Resolve outcomes are observable instead;
	// see RegisterResolveCounter.
	ReplacesTotal metric.Int64Counter

	// --- Content Metrics ---

	// ContentOmissionsTotal counts files omitted from a content map
	// because they failed to resolve with placeholders disallowed.
	ContentOmissionsTotal metric.Int64Counter

	// --- Watch Metrics ---

	// WatchBatchesTotal counts debounced watcher batches handled.
	WatchBatchesTotal metric.Int64Counter

	// --- Error Metrics ---

	// ErrorsTotal counts errors by component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics registers every pre-defined instrument with the meter.
//
// Inputs:
//
//	meter - The OTel meter to register against
//
// Outputs:
//
//	*Metrics - Ready-to-use instrument bundle
//	error - Non-nil if any registration fails
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Dispatch Metrics ---
	m.EventsTotal, err = meter.Int64Counter(
		"kodiak_events_total",
		metric.WithDescription("Total dispatched events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events_total: %w", err)
	}

	m.SectionsSelected, err = meter.Int64Histogram(
		"kodiak_sections_selected",
		metric.WithDescription("Sections activated per event"),
		metric.WithUnit("{section}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("create sections_selected: %w", err)
	}

	m.DispatchDuration, err = meter.Float64Histogram(
		"kodiak_dispatch_duration_seconds",
		metric.WithDescription("Event dispatch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create dispatch_duration: %w", err)
	}

	// --- Buffer Sync Metrics ---
	m.ReplacesTotal, err = meter.Int64Counter(
		"kodiak_replaces_total",
		metric.WithDescription("Total buffer replace attempts"),
		metric.WithUnit("{replace}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create replaces_total: %w", err)
	}

	// --- Content Metrics ---
	m.ContentOmissionsTotal, err = meter.Int64Counter(
		"kodiak_content_omissions_total",
		metric.WithDescription("Files omitted from content maps"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create content_omissions_total: %w", err)
	}

	// --- Watch Metrics ---
	m.WatchBatchesTotal, err = meter.Int64Counter(
		"kodiak_watch_batches_total",
		metric.WithDescription("Debounced watcher batches handled"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create watch_batches_total: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"kodiak_errors_total",
		metric.WithDescription("Total errors by component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RegisterBufferGauge registers an observable gauge reporting the
// number of live buffers. The callback runs on every scrape.
//
// Outputs:
//
//	metric.Registration - Handle for cleanup
//	error - Non-nil if registration fails
func RegisterBufferGauge(meter metric.Meter, count func() int64) (metric.Registration, error) {
	gauge, err := meter.Int64ObservableGauge(
		"kodiak_open_buffers",
		metric.WithDescription("Buffers currently held by the registry"),
		metric.WithUnit("{buffer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create open_buffers: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, count())
		return nil
	}, gauge)
}

// RegisterResolveCounter registers an observable counter over the
// registry's cumulative resolve statistics, split by outcome (hit,
// load, placeholder). Observing the registry's own counters keeps the
// numbers exact under concurrent resolves; per-call deltas would not.
//
// Inputs:
//
//	meter - The OTel meter to register against
//	stats - Snapshot of the cumulative hit/load/placeholder counts
//
// Outputs:
//
//	metric.Registration - Handle for cleanup
//	error - Non-nil if registration fails
func RegisterResolveCounter(meter metric.Meter, stats func() (hits, loads, placeholders int64)) (metric.Registration, error) {
	resolves, err := meter.Int64ObservableCounter(
		"kodiak_resolves_total",
		metric.WithDescription("Total registry resolves by outcome"),
		metric.WithUnit("{resolve}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create resolves_total: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		hits, loads, placeholders := stats()
		o.ObserveInt64(resolves, hits,
			metric.WithAttributes(attribute.String("outcome", "hit")))
		o.ObserveInt64(resolves, loads,
			metric.WithAttributes(attribute.String("outcome", "load")))
		o.ObserveInt64(resolves, placeholders,
			metric.WithAttributes(attribute.String("outcome", "placeholder")))
		return nil
	}, resolves)
}
