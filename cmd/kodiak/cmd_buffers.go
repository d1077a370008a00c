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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/kodiak/pkg/ux"
	"github.com/AleutianAI/kodiak/services/kodiak/server"
)

// runBuffers lists the buffers a running server currently tracks.
func runBuffers(cmd *cobra.Command, args []string) {
	var list server.BufferListResponse
	if err := apiGet(serverEndpoint(serverURL, "/v1/buffers"), &list); err != nil {
		fmt.Fprintf(os.Stderr, "Buffer listing failed: %v\n", err)
		os.Exit(1)
	}
	if buffersJSON {
		outputJSON(list)
		return
	}
	renderBuffers(list)
}

func renderBuffers(list server.BufferListResponse) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, b := range list.Buffers {
			fmt.Printf("BUFFER: file=%s version=%d synced=%t\n", b.File, b.Version, b.Synced)
		}
		return
	}

	ux.Title("Tracked Buffers")
	if list.Count == 0 {
		ux.Muted("No buffers tracked")
		return
	}
	for _, b := range list.Buffers {
		if b.Synced {
			ux.FileStatus(b.File, ux.IconSuccess, fmt.Sprintf("version %d", b.Version))
		} else {
			ux.FileStatus(b.File, ux.IconPending, "unsynced")
		}
	}
	ux.Muted(fmt.Sprintf("%d buffer(s)", list.Count))
}
