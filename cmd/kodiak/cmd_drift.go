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
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/kodiak/pkg/ux"
	"github.com/AleutianAI/kodiak/services/kodiak/drift"
)

// runDrift asks a running server how far one tracked buffer has
// diverged from its file on disk. Drift only exists where a buffer is
// open, so this command always goes through the server rather than
// reading the workspace itself.
func runDrift(cmd *cobra.Command, args []string) {
	report, err := fetchDrift(serverURL, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Drift check failed: %v\n", err)
		os.Exit(1)
	}
	if driftJSON {
		outputJSON(report)
		return
	}
	renderDrift(report)
}

// fetchDrift fetches the drift report for file from a kodiak server.
func fetchDrift(baseURL, file string) (*drift.Report, error) {
	endpoint := serverEndpoint(baseURL, "/v1/drift?file="+url.QueryEscape(file))
	var report drift.Report
	if err := apiGet(endpoint, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func renderDrift(report *drift.Report) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Printf("DRIFT: file=%s version=%d in_sync=%t added=%d removed=%d disk_missing=%t\n",
			report.File, report.Version, report.InSync,
			report.Added, report.Removed, report.DiskMissing)
		if report.Patch != "" {
			fmt.Print(report.Patch)
		}
		return
	}

	ux.Title("Buffer Drift")
	switch {
	case report.InSync:
		ux.Success(fmt.Sprintf("%s is in sync with disk (version %d)", report.File, report.Version))
	case report.DiskMissing:
		ux.Warning(fmt.Sprintf("%s has no file on disk yet", report.File))
		ux.FileStatus(report.File, ux.IconDrift, fmt.Sprintf("+%d lines unsaved", report.Added))
	default:
		ux.FileStatus(report.File, ux.IconDrift,
			fmt.Sprintf("+%d -%d lines against disk, version %d", report.Added, report.Removed, report.Version))
	}
	if report.Patch != "" {
		fmt.Println()
		fmt.Print(report.Patch)
	}
}
