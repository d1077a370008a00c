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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/kodiak/services/kodiak/server"
)

// defaultServerURL matches the default listen address in
// kodiak.DefaultServiceConfig.
const defaultServerURL = "http://localhost:8750"

// maxResponseBytes caps how much of a server response the CLI reads.
// Drift patches for large buffers are the biggest payloads in practice.
const maxResponseBytes = 4 << 20

// apiGet fetches a JSON document from a running kodiak server and
// decodes it into out.
//
// Non-200 responses are decoded into the server's error envelope so
// the CLI surfaces the server's own message instead of a bare status.
func apiGet(rawURL string, out any) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr server.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// serverEndpoint joins the --server base URL with a path, tolerating a
// trailing slash on the base.
func serverEndpoint(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + path
}

// outputJSON prints v as indented JSON for scripting.
func outputJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}
