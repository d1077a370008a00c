// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kodiak assembles the analysis dispatch service.
//
// A Service wires the section configuration, the buffer registry, the
// registry-backed content provider, the event dispatcher, and the
// optional workspace watcher into one set of operations. The HTTP API,
// the websocket stream, and the CLI all call these operations, so the
// three surfaces cannot drift apart.
package kodiak

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/kodiak/services/kodiak/content"
	"github.com/AleutianAI/kodiak/services/kodiak/dispatch"
	"github.com/AleutianAI/kodiak/services/kodiak/document"
	"github.com/AleutianAI/kodiak/services/kodiak/drift"
	"github.com/AleutianAI/kodiak/services/kodiak/section"
	"github.com/AleutianAI/kodiak/services/kodiak/telemetry"
	"github.com/AleutianAI/kodiak/services/kodiak/watch"
)

// watchDispatchTimeout bounds the dispatch triggered by one watcher
// batch.
const watchDispatchTimeout = 30 * time.Second

// Service is the assembled dispatch core.
//
// Description:
//
//	Construction loads the section configuration and builds every
//	collaborator; after New returns, the service is ready to take
//	buffer operations and dispatch events. Start only launches the
//	background watcher.
//
// Thread Safety: safe for concurrent use. All fields are read-only
// after New returns; shared state lives in the registry.
type Service struct {
	cfg        ServiceConfig
	log        *slog.Logger
	metrics    *telemetry.Metrics
	engine     dispatch.Engine
	sections   *section.Config
	registry   *document.Registry
	provider   content.Provider
	dispatcher *dispatch.Dispatcher
	watcher    *watch.Watcher
}

// Option adjusts service construction.
type Option func(*Service)

// WithLogger injects the service logger. Default discards.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEngine injects the analysis engine dispatches feed. The default
// engine only logs what it was handed; real deployments plug in their
// integration here.
func WithEngine(engine dispatch.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithMetrics injects the telemetry instrument bundle. Nil disables
// instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSections injects an already-parsed section configuration instead
// of loading cfg.SectionsFile.
func WithSections(sections *section.Config) Option {
	return func(s *Service) {
		if sections != nil {
			s.sections = sections
		}
	}
}

// New assembles a service from the configuration.
func New(cfg ServiceConfig, opts ...Option) (*Service, error) {
	if abs, err := filepath.Abs(cfg.Workspace); err == nil {
		cfg.Workspace = abs
	}

	s := &Service{
		cfg: cfg,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.engine == nil {
		s.engine = loggingEngine(s.log)
	}
	if s.sections == nil {
		sections, err := section.Load(cfg.SectionsFile)
		if err != nil {
			return nil, err
		}
		s.sections = sections
	}

	s.registry = document.NewRegistry()
	s.provider = content.WithLogging(
		content.NewRegistryProvider(s.registry, &content.RegistryOptions{
			Workspace: cfg.Workspace,
			Logger:    s.log,
		}), s.log)

	dispatcher, err := dispatch.New(s.sections, s.engine, &dispatch.Options{
		Universe:    dispatch.NewWorkspaceUniverse(cfg.Workspace, nil),
		Provider:    s.provider,
		Workspace:   cfg.Workspace,
		OmitMissing: cfg.OmitMissing,
		Logger:      s.log,
		Metrics:     s.metrics,
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher = dispatcher

	if cfg.Watcher.Enabled {
		watchOpts := watch.DefaultOptions()
		if cfg.Watcher.DebounceMS > 0 {
			watchOpts.Debounce = time.Duration(cfg.Watcher.DebounceMS) * time.Millisecond
		}
		if cfg.Watcher.Ignore != nil {
			watchOpts.Ignore = cfg.Watcher.Ignore
		}
		watchOpts.Logger = s.log

		watcher, err := watch.New(cfg.Workspace, s.handleWatchBatch, &watchOpts)
		if err != nil {
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		s.watcher = watcher
	}

	s.log.Info("service assembled",
		"workspace", cfg.Workspace,
		"sections", s.sections.Len(),
		"watcher", s.watcher != nil)
	return s, nil
}

// Start launches the background watcher, when one is configured.
func (s *Service) Start(ctx context.Context) error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Start(ctx)
}

// Stop releases the watcher's OS watches. Safe to call more than once
// and without a prior Start.
func (s *Service) Stop() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// Config returns the effective configuration.
func (s *Service) Config() ServiceConfig { return s.cfg }

// Workspace returns the absolute workspace root.
func (s *Service) Workspace() string { return s.cfg.Workspace }

// Registry exposes the buffer registry for metric callbacks.
func (s *Service) Registry() *document.Registry { return s.registry }

// Dispatch routes one editor event through the pipeline.
func (s *Service) Dispatch(ctx context.Context, event dispatch.Event) (*dispatch.Outcome, error) {
	return s.dispatcher.Dispatch(ctx, event)
}

// resolvePath maps an editor-supplied path onto the workspace. Absolute
// paths pass through untouched so registry normalization keeps the last
// word on validity; relative ones are joined to the workspace root.
func (s *Service) resolvePath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(s.cfg.Workspace, file)
}

// handleWatchBatch reacts to external file changes. Files with a synced
// buffer only get a drift warning, since the editor owns their truth;
// everything else is re-analyzed through a save-tagged dispatch over
// just the changed files.
func (s *Service) handleWatchBatch(batch []watch.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), watchDispatchTimeout)
	defer cancel()

	if s.metrics != nil {
		s.metrics.WatchBatchesTotal.Add(ctx, 1)
	}

	var stale []string
	for _, change := range batch {
		if change.Op == watch.OpRemove || change.Op == watch.OpRename {
			continue
		}
		if info, err := os.Stat(change.Path); err != nil || info.IsDir() {
			continue
		}
		if buf, ok := s.registry.Get(change.Path); ok && buf.Synced() {
			s.warnDrift(buf)
			continue
		}
		stale = append(stale, change.Path)
	}
	if len(stale) == 0 {
		return
	}

	d, err := dispatch.New(s.sections, s.engine, &dispatch.Options{
		Universe:    dispatch.Static(stale...),
		Provider:    s.provider,
		Workspace:   s.cfg.Workspace,
		OmitMissing: s.cfg.OmitMissing,
		Logger:      s.log,
		Metrics:     s.metrics,
	})
	if err != nil {
		s.log.Error("watch dispatch setup failed", "error", err)
		return
	}
	if _, err := d.Dispatch(ctx, dispatch.NewEvent(dispatch.KindSave)); err != nil {
		s.log.Warn("watch-triggered dispatch failed",
			"files", len(stale), "error", err)
	}
}

// warnDrift logs how far the disk has moved from a synced buffer.
func (s *Service) warnDrift(buf *document.Buffer) {
	report, err := drift.Detect(buf)
	if err != nil {
		s.log.Warn("disk changed behind a synced buffer",
			"file", buf.Filename(), "error", err)
		return
	}
	if report.InSync {
		return
	}
	s.log.Warn("disk changed behind a synced buffer",
		"file", buf.Filename(),
		"version", buf.Version(),
		"added", report.Added,
		"removed", report.Removed)
}

// loggingEngine is the default engine: it records what a dispatch
// would hand to a real analysis integration.
func loggingEngine(log *slog.Logger) dispatch.Engine {
	return dispatch.EngineFunc(func(ctx context.Context, sections []*section.Section, contents content.Map) error {
		names := make([]string, 0, len(sections))
		for _, sec := range sections {
			names = append(names, sec.Name)
		}
		telemetry.LoggerWithTrace(ctx, log).Info("engine run",
			"sections", strings.Join(names, ","),
			"files", len(contents))
		return nil
	})
}
