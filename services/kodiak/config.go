// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kodiak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/kodiak/services/kodiak/telemetry"
)

// WatcherConfig configures the workspace watcher.
type WatcherConfig struct {
	// Enabled starts the watcher with the service. Default true.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// DebounceMS is the settle window for change bursts, in
	// milliseconds. Zero keeps the watcher default.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms"`

	// Ignore overrides the watcher's ignore list when non-nil.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// ServiceConfig is the daemon configuration, kodiak.yaml on disk.
type ServiceConfig struct {
	// ListenAddr is the HTTP listen address. Default ":8750".
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Workspace is the root directory events are dispatched over.
	// Relative paths are resolved against the working directory.
	// Default ".".
	Workspace string `yaml:"workspace" json:"workspace"`

	// SectionsFile locates sections.yaml. Default "sections.yaml".
	SectionsFile string `yaml:"sections_file" json:"sections_file"`

	// OmitMissing drops unresolvable files from content maps instead
	// of recording null placeholders.
	OmitMissing bool `yaml:"omit_missing" json:"omit_missing"`

	// Watcher configures external-change watching.
	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`

	// Telemetry configures tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// DefaultServiceConfig returns the defaults described on ServiceConfig.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:   ":8750",
		Workspace:    ".",
		SectionsFile: "sections.yaml",
		Watcher: WatcherConfig{
			Enabled: true,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadConfig reads a kodiak.yaml file over the defaults: keys the file
// leaves out keep their default values. Decoding is strict, so a typoed
// key fails the load rather than silently configuring nothing.
func LoadConfig(path string) (ServiceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("read service config: %w", err)
	}

	cfg := DefaultServiceConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return ServiceConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}
