// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/kodiak/pkg/ux"
	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/section"
)

// runSections lists the enabled sections of a sections file, filtered
// by the --tags flag. It reads the file directly, so it works without
// a running server and on the exact selection path a dispatch uses.
func runSections(cmd *cobra.Command, args []string) {
	cfg, err := section.Load(sectionsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sections: %v\n", err)
		os.Exit(1)
	}

	views := kodiak.SectionViews(cfg, splitTags(sectionsTags))
	if sectionsJSON {
		outputJSON(views)
		return
	}
	renderSections(views)
}

// splitTags turns a comma-separated flag value into clean tags.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func renderSections(views []kodiak.SectionView) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, v := range views {
			fmt.Printf("SECTION: name=%s tags=%s bears=%s files=%s\n",
				v.Name,
				strings.Join(v.Tags, ","),
				strings.Join(v.Bears, ","),
				strings.Join(v.Files, ","))
		}
		return
	}

	ux.Title("Sections")
	if len(views) == 0 {
		ux.Warning("No sections matched")
		return
	}
	for _, v := range views {
		var parts []string
		if len(v.Tags) > 0 {
			parts = append(parts, strings.Join(v.Tags, ", "))
		}
		if len(v.Bears) > 0 {
			parts = append(parts, strings.Join(v.Bears, ", "))
		}
		ux.FileStatus(v.Name, ux.IconSection, strings.Join(parts, " · "))
		if len(v.Files) > 0 {
			ux.Muted("    " + strings.Join(v.Files, "  "))
		}
	}
	ux.Muted(fmt.Sprintf("%d section(s)", len(views)))
}
