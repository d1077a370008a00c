// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/drift"
	"github.com/AleutianAI/kodiak/services/kodiak/server"
)

// newDriftStub serves a canned drift report for app.py and the server
// error envelope for everything else.
func newDriftStub(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/drift" {
			http.NotFound(w, r)
			return
		}
		file := r.URL.Query().Get("file")
		if file != "app.py" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(server.ErrorResponse{
				Error: "drift " + file + ": unknown buffer",
				Code:  "UNKNOWN_BUFFER",
			})
			return
		}
		json.NewEncoder(w).Encode(drift.Report{
			File:    "/ws/app.py",
			Version: 3,
			Added:   1,
			Removed: 1,
			Patch:   "--- a/app.py\n+++ b/app.py\n@@ -1 +1 @@\n-on disk\n+in the editor\n",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchDrift(t *testing.T) {
	srv := newDriftStub(t)

	report, err := fetchDrift(srv.URL, "app.py")
	if err != nil {
		t.Fatalf("fetchDrift failed: %v", err)
	}
	if report.File != "/ws/app.py" || report.Version != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Added != 1 || report.Removed != 1 {
		t.Errorf("unexpected line counts: %+v", report)
	}
}

func TestFetchDriftSurfacesServerError(t *testing.T) {
	srv := newDriftStub(t)

	_, err := fetchDrift(srv.URL, "missing.py")
	if err == nil {
		t.Fatal("expected an error for an untracked file")
	}
	if !strings.Contains(err.Error(), "unknown buffer") {
		t.Errorf("error should carry the server message, got: %v", err)
	}
}

func TestServerEndpoint(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{
			name: "plain base",
			base: "http://localhost:8750",
			path: "/v1/buffers",
			want: "http://localhost:8750/v1/buffers",
		},
		{
			name: "trailing slash",
			base: "http://localhost:8750/",
			path: "/v1/buffers",
			want: "http://localhost:8750/v1/buffers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serverEndpoint(tt.base, tt.path); got != tt.want {
				t.Errorf("serverEndpoint(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

func TestRenderDriftMachine(t *testing.T) {
	asMachine(t)

	report := &drift.Report{
		File:    "/ws/app.py",
		Version: 3,
		Added:   1,
		Removed: 1,
		Patch:   "+in the editor\n",
	}
	out := captureStdout(t, func() { renderDrift(report) })

	if !strings.Contains(out, "DRIFT: file=/ws/app.py version=3 in_sync=false added=1 removed=1 disk_missing=false") {
		t.Errorf("machine drift line malformed:\n%s", out)
	}
	if !strings.Contains(out, "+in the editor") {
		t.Errorf("patch missing from output:\n%s", out)
	}
}

func TestRenderBuffersMachine(t *testing.T) {
	asMachine(t)

	list := server.BufferListResponse{
		Buffers: []kodiak.BufferState{
			{File: "/ws/app.py", Version: 2, Synced: true},
			{File: "/ws/README.md", Version: -1, Synced: false},
		},
		Count: 2,
	}
	out := captureStdout(t, func() { renderBuffers(list) })

	if !strings.Contains(out, "BUFFER: file=/ws/app.py version=2 synced=true") {
		t.Errorf("synced buffer line malformed:\n%s", out)
	}
	if !strings.Contains(out, "BUFFER: file=/ws/README.md version=-1 synced=false") {
		t.Errorf("unsynced buffer line malformed:\n%s", out)
	}
}
