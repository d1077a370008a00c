// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/kodiak/services/kodiak/document"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func mustBuffer(t *testing.T, path, content string) *document.Buffer {
	t.Helper()
	buf, err := document.NewBuffer(path, filepath.Dir(path), content)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	return buf
}

func TestDetectInSync(t *testing.T) {
	path := writeTemp(t, "main.py", "a\nb\nc\n")
	buf := mustBuffer(t, path, "a\nb\nc\n")

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !rep.InSync {
		t.Error("identical buffer and disk should be in sync")
	}
	if rep.Added != 0 || rep.Removed != 0 {
		t.Errorf("counts = +%d/-%d, want 0/0", rep.Added, rep.Removed)
	}
	if rep.Patch != "" {
		t.Errorf("Patch = %q, want empty", rep.Patch)
	}
}

func TestDetectEmptyBufferEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.py", "")
	buf := mustBuffer(t, path, "")

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !rep.InSync {
		t.Error("empty buffer over empty file should be in sync")
	}
}

func TestDetectModifiedLine(t *testing.T) {
	path := writeTemp(t, "main.py", "a\nb\nc\n")
	buf := mustBuffer(t, path, "a\nb\nc\n")
	if !buf.Replace("a\nB\nc\n", 0) {
		t.Fatal("Replace() rejected")
	}

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if rep.InSync {
		t.Error("modified buffer should not be in sync")
	}
	if rep.Added != 1 || rep.Removed != 1 {
		t.Errorf("counts = +%d/-%d, want 1/1", rep.Added, rep.Removed)
	}
	if !strings.Contains(rep.Patch, "-b\n") || !strings.Contains(rep.Patch, "+B\n") {
		t.Errorf("Patch missing changed lines:\n%s", rep.Patch)
	}
	if !strings.Contains(rep.Patch, "--- "+path) || !strings.Contains(rep.Patch, "+++ "+path) {
		t.Errorf("Patch missing file headers:\n%s", rep.Patch)
	}
	if rep.Version != 0 {
		t.Errorf("Version = %d, want 0", rep.Version)
	}
}

func TestDetectDistantEditsSplitIntoHunks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString(strings.Repeat("x", i+1))
		sb.WriteByte('\n')
	}
	original := sb.String()

	path := writeTemp(t, "long.py", original)
	buf := mustBuffer(t, path, original)

	edited := strings.Split(original, "\n")
	edited[1] = "top edit"
	edited[27] = "bottom edit"
	if !buf.Replace(strings.Join(edited, "\n"), 0) {
		t.Fatal("Replace() rejected")
	}

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got := strings.Count(rep.Patch, "@@ -"); got != 2 {
		t.Errorf("hunk count = %d, want 2\n%s", got, rep.Patch)
	}
}

func TestDetectDiskMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.py")
	buf := mustBuffer(t, path, "only in the editor\n")

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !rep.DiskMissing {
		t.Error("DiskMissing should be set for an unsaved buffer")
	}
	if rep.InSync {
		t.Error("a missing backing file is never in sync")
	}
	if rep.Added != 1 || rep.Removed != 0 {
		t.Errorf("counts = +%d/-%d, want 1/0", rep.Added, rep.Removed)
	}
	if !strings.Contains(rep.Patch, "+only in the editor\n") {
		t.Errorf("Patch missing buffer line:\n%s", rep.Patch)
	}
}

func TestDetectDeletedEverything(t *testing.T) {
	path := writeTemp(t, "gone.py", "a\nb\n")
	buf := mustBuffer(t, path, "a\nb\n")
	if !buf.Replace("", 0) {
		t.Fatal("Replace() rejected")
	}

	rep, err := Detect(buf)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if rep.Added != 0 || rep.Removed != 2 {
		t.Errorf("counts = +%d/-%d, want 0/2", rep.Added, rep.Removed)
	}
}

func TestDetectNilBuffer(t *testing.T) {
	if _, err := Detect(nil); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("Detect(nil) error = %v, want ErrNilBuffer", err)
	}
}
