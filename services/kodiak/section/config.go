// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package section

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a resolved, immutable section set.
//
// Thread Safety: safe for concurrent use after Parse returns.
type Config struct {
	sections []*Section
	byName   map[string]*Section
}

// entry is the on-disk shape of one section in sections.yaml.
//
// Tags and TagsPlus distinguish absent (nil) from declared-empty: a
// section with no tag key inherits, "tags: []" pins the empty set.
type entry struct {
	Tags     []string `yaml:"tags"`
	TagsPlus []string `yaml:"tags+"`
	Enabled  *bool    `yaml:"enabled"`
	Bears    []string `yaml:"bears"`
	Files    []string `yaml:"files"`
}

type fileFormat struct {
	Sections map[string]entry `yaml:"sections"`
}

// Load reads and resolves a sections.yaml file.
//
// Inputs:
//   - path: the configuration file.
//
// Outputs:
//   - *Config: the resolved section set.
//   - error: read failures, malformed YAML, unknown keys, or rule
//     violations (ErrTagConflict, ErrInvalidName, ErrDuplicateSection).
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sections config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes sections.yaml content and resolves tag inheritance.
//
// Decoding is strict: unknown keys fail the load rather than silently
// configuring nothing. Tag resolution happens here, once:
//
//   - "tags" replaces whatever the parent section carries.
//   - "tags+" unions the declared tags with the parent's effective set.
//   - declaring both is ErrTagConflict.
//   - no tag key at all inherits the parent's effective set.
//
// A section's parent is the dotted prefix of its name ("all" for
// "all.python"). A child whose named parent is absent resolves against
// the empty set.
func Parse(raw []byte) (*Config, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{byName: map[string]*Section{}}, nil
		}
		return nil, fmt.Errorf("decode sections: %w", err)
	}

	entries := make(map[string]entry, len(f.Sections))
	for rawName, e := range f.Sections {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if name == "" {
			return nil, ErrInvalidName
		}
		if _, dup := entries[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSection, name)
		}
		if e.Tags != nil && e.TagsPlus != nil {
			return nil, fmt.Errorf("section %s: %w", name, ErrTagConflict)
		}
		entries[name] = e
	}

	resolved := make(map[string]map[string]struct{}, len(entries))
	var resolve func(name string) map[string]struct{}
	resolve = func(name string) map[string]struct{} {
		if tags, done := resolved[name]; done {
			return tags
		}
		e, ok := entries[name]
		if !ok {
			return map[string]struct{}{}
		}

		parent := map[string]struct{}{}
		if i := strings.LastIndex(name, "."); i >= 0 {
			parent = resolve(name[:i])
		}

		var tags map[string]struct{}
		switch {
		case e.Tags != nil:
			tags = normalizeTags(e.Tags)
		case e.TagsPlus != nil:
			tags = normalizeTags(e.TagsPlus)
			for t := range parent {
				tags[t] = struct{}{}
			}
		default:
			tags = make(map[string]struct{}, len(parent))
			for t := range parent {
				tags[t] = struct{}{}
			}
		}
		resolved[name] = tags
		return tags
	}

	cfg := &Config{
		sections: make([]*Section, 0, len(entries)),
		byName:   make(map[string]*Section, len(entries)),
	}
	for name, e := range entries {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		s := &Section{
			Name:    name,
			Enabled: enabled,
			Bears:   cleanList(e.Bears),
			Files:   cleanList(e.Files),
			tags:    resolve(name),
		}
		cfg.sections = append(cfg.sections, s)
		cfg.byName[name] = s
	}
	sort.Slice(cfg.sections, func(i, j int) bool {
		return cfg.sections[i].Name < cfg.sections[j].Name
	})
	return cfg, nil
}

// Sections returns every section sorted by name. Callers must not
// mutate the result.
func (c *Config) Sections() []*Section { return c.sections }

// Get looks a section up by name, case-insensitively.
func (c *Config) Get(name string) (*Section, bool) {
	s, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Enabled returns the sections that are not disabled, sorted by name.
func (c *Config) Enabled() []*Section {
	out := make([]*Section, 0, len(c.sections))
	for _, s := range c.sections {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// BearRefs flattens the configuration into one BearRef per configured
// bear, ordered by section name then bear name as declared.
func (c *Config) BearRefs() []BearRef {
	var refs []BearRef
	for _, s := range c.sections {
		for _, b := range s.Bears {
			refs = append(refs, BearRef{Bear: b, Section: s})
		}
	}
	return refs
}

// Len returns the number of configured sections.
func (c *Config) Len() int { return len(c.sections) }

// cleanList trims entries and drops empties, preserving order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
