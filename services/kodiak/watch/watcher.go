// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch surfaces external file changes in the workspace.
//
// Editors tell the service about their own edits; this package covers
// everyone else: formatters, code generators, branch switches. Raw
// fsnotify events arrive per syscall, so the watcher debounces them
// into batches before handing them over. What a batch means (dispatch,
// drift warning) is the caller's business.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is one debounced file system change.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the kind of change.
	Op Op

	// At is when the change was observed.
	At time.Time
}

// Op is the kind of file operation a Change reports.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// String returns the lowercase name of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// BatchHandler receives each debounced, deduplicated batch. It runs on
// the watcher's goroutine, so a slow handler delays the next batch.
type BatchHandler func(batch []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for the burst to settle before the
	// batch is handed over. Default 100ms.
	Debounce time.Duration

	// Ignore holds directory names and basename globs the watcher
	// skips. Default covers VCS metadata, dependency trees, build
	// output, and editor droppings.
	Ignore []string

	// Buffer is the pending-change channel capacity. Changes beyond it
	// are dropped rather than blocking the event reader. Default 1000.
	Buffer int

	// Logger receives watch errors and drop notices. Default discards.
	Logger *slog.Logger
}

// DefaultOptions returns the defaults described on Options.
func DefaultOptions() Options {
	return Options{
		Debounce: 100 * time.Millisecond,
		Ignore: []string{
			".git", ".idea", ".venv", ".tox", "__pycache__",
			"node_modules", "vendor", "dist", "build",
			"*.swp", "*.tmp", "*~",
		},
		Buffer: 1000,
	}
}

// Watcher reports debounced workspace file changes.
//
// Description:
//
//	Watches the root directory tree recursively. Changes are collected
//	until the debounce window passes without a new one, then the batch
//	is deduplicated (latest change per path wins) and handed to the
//	handler.
//
// Thread Safety: safe for concurrent use. The handler runs on a single
// goroutine.
type Watcher struct {
	root     string
	notify   *fsnotify.Watcher
	handler  BatchHandler
	debounce time.Duration
	ignore   []string
	log      *slog.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a watcher over root. Call Start to begin delivering
// batches and Stop to release the underlying OS watches.
func New(root string, handler BatchHandler, opts *Options) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultOptions().Buffer
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultOptions().Ignore
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     root,
		notify:   notify,
		handler:  handler,
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		log:      log,
		changes:  make(chan Change, opts.Buffer),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the root tree with the OS and begins delivering
// batches. Ctx cancellation stops delivery; Stop releases the watches.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.readEvents(ctx)
	go w.debounceLoop(ctx)

	w.log.Info("workspace watcher started",
		"root", w.root,
		"debounce", w.debounce.String())
	return nil
}

// Stop releases the OS watches and ends both goroutines. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.notify.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// Watching reports whether the watcher is active.
func (w *Watcher) Watching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive registers root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.notify.Add(path)
	})
}

// ignored reports whether any path element matches an ignore entry,
// by name or by basename glob.
func (w *Watcher) ignored(path string) bool {
	for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
		if elem == "" {
			continue
		}
		for _, pattern := range w.ignore {
			if elem == pattern {
				return true
			}
			if ok, _ := filepath.Match(pattern, elem); ok {
				return true
			}
		}
	}
	return false
}

// readEvents converts fsnotify events into Changes on the pending
// channel and keeps newly created directories watched.
func (w *Watcher) readEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}

			change := Change{
				Path: event.Name,
				Op:   convertOp(event.Op),
				At:   time.Now(),
			}
			select {
			case w.changes <- change:
			default:
				w.log.Debug("watch buffer full, change dropped", "path", event.Name)
			}

			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.notify.Add(event.Name); err != nil {
					w.log.Warn("failed to watch new directory",
						"path", event.Name, "error", err)
				}
			}

		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// debounceLoop collects pending changes and flushes the batch once the
// window passes without a new one.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupe(batch)
			if len(deduped) > 0 && w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupe keeps the latest change per path, preserving first-seen order.
func dedupe(batch []Change) []Change {
	seen := make(map[string]int, len(batch))
	out := make([]Change, 0, len(batch))
	for _, change := range batch {
		if i, dup := seen[change.Path]; dup {
			out[i] = change
			continue
		}
		seen[change.Path] = len(out)
		out = append(out, change)
	}
	return out
}
