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
	"fmt"

	"github.com/AleutianAI/kodiak/services/kodiak/drift"
	"github.com/AleutianAI/kodiak/services/kodiak/filter"
	"github.com/AleutianAI/kodiak/services/kodiak/section"
)

// SectionView is the outward shape of one configured section.
type SectionView struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags"`
	Bears   []string `json:"bears,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// SelectSections lists the enabled sections matching the requested
// tags, through the same filter a dispatch uses. An empty request
// lists every enabled section. Results follow the configuration's
// name order.
func (s *Service) SelectSections(tags []string) []SectionView {
	return SectionViews(s.sections, tags)
}

// SectionViews is the plain-function form of SelectSections for
// callers that hold a section configuration but no running service,
// such as the CLI inspecting a sections file in place.
func SectionViews(cfg *section.Config, tags []string) []SectionView {
	matched := filter.Keep(filter.Tags(tags...), cfg.Enabled())
	views := make([]SectionView, 0, len(matched))
	for _, sec := range matched {
		views = append(views, SectionView{
			Name:    sec.Name,
			Enabled: sec.Enabled,
			Tags:    sec.Tags(),
			Bears:   sec.Bears,
			Files:   sec.Files,
		})
	}
	return views
}

// Drift reports buffer-versus-disk divergence for one live buffer.
func (s *Service) Drift(file string) (*drift.Report, error) {
	buf, ok := s.registry.Get(s.resolvePath(file))
	if !ok {
		return nil, fmt.Errorf("drift %s: %w", file, ErrUnknownBuffer)
	}
	return drift.Detect(buf)
}
