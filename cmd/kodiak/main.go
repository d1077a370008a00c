// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command kodiak runs the analysis dispatch server and the operator
// tooling around it.
//
// Usage:
//
//	kodiak serve                        # start the dispatch server
//	kodiak serve --workspace ~/project  # serve a specific workspace
//	kodiak sections --tags save         # list sections matching tags
//	kodiak drift src/app.py             # buffer-versus-disk drift
//	kodiak buffers                      # list tracked buffers
//	kodiak version
//
// Example requests against a running server:
//
//	# Health check
//	curl http://localhost:8750/healthz
//
//	# Dispatch a save event
//	curl -X POST http://localhost:8750/v1/events \
//	  -H "Content-Type: application/json" \
//	  -d '{"kind": "save"}'
package main

import "log"

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
