// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drift reports how far a live buffer has moved from the file
// on disk.
//
// A buffer and its backing file diverge whenever the editor holds
// unflushed edits or another process rewrote the file underneath a
// synced buffer. Detect quantifies the divergence and renders it as a
// unified diff (disk on the left, buffer on the right) so both the API
// and the CLI can show exactly what saving would change.
package drift

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/kodiak/services/kodiak/document"
)

// contextLines is the unified-diff context width.
const contextLines = 3

// Report describes one buffer's relation to its file on disk.
type Report struct {
	// File is the buffer's normalized filename.
	File string `json:"file"`

	// Version is the buffer's sync version at detection time.
	Version int64 `json:"version"`

	// DiskMissing is set when the backing file does not exist, which
	// happens for buffers that were never saved.
	DiskMissing bool `json:"disk_missing"`

	// InSync is true when the buffer and the disk agree line for line.
	// A missing backing file is never in sync.
	InSync bool `json:"in_sync"`

	// Added counts lines present in the buffer but not on disk.
	Added int `json:"added"`

	// Removed counts lines present on disk but not in the buffer.
	Removed int `json:"removed"`

	// Patch is the unified diff that saving the buffer would apply to
	// the disk. Empty when InSync.
	Patch string `json:"patch,omitempty"`
}

// Detect compares the buffer's live lines against the current disk
// lines.
//
// Description:
//
//	The disk side is read fresh on every call and never touches the
//	buffer's content or version, so detection may race a concurrent
//	writer; the report is a snapshot, not a lock. A nonexistent
//	backing file counts every buffer line as added. Reads and decode
//	failures other than absence propagate.
//
// Outputs:
//
//	*Report - Divergence counts plus the rendered patch
//	error - ErrNilBuffer, or a wrapped read/decode failure
func Detect(buf *document.Buffer) (*Report, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}

	rep := &Report{
		File:    buf.Filename(),
		Version: buf.Version(),
	}

	var diskLines []string
	raw, err := buf.DiskContent()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rep.DiskMissing = true
	case err != nil:
		return nil, fmt.Errorf("read disk state for %s: %w", rep.File, err)
	default:
		text, derr := document.DecodeText(raw)
		if derr != nil {
			return nil, fmt.Errorf("decode disk state for %s: %w", rep.File, derr)
		}
		diskLines = document.SplitLines(text)
	}

	bufLines := buf.Lines()
	matcher := difflib.NewMatcher(diskLines, bufLines)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'd':
			rep.Removed += op.I2 - op.I1
		case 'i':
			rep.Added += op.J2 - op.J1
		case 'r':
			rep.Removed += op.I2 - op.I1
			rep.Added += op.J2 - op.J1
		}
	}

	rep.InSync = rep.Added == 0 && rep.Removed == 0 && !rep.DiskMissing
	if rep.InSync {
		return rep, nil
	}

	patch, err := renderPatch(rep.File, diskLines, bufLines, matcher)
	if err != nil {
		return nil, fmt.Errorf("render patch for %s: %w", rep.File, err)
	}
	rep.Patch = patch
	return rep, nil
}

// renderPatch turns the matcher's grouped edit script into a unified
// diff, orig = disk, new = buffer.
func renderPatch(file string, diskLines, bufLines []string, matcher *difflib.SequenceMatcher) (string, error) {
	fd := &diff.FileDiff{
		OrigName: file,
		NewName:  file,
	}
	for _, group := range matcher.GetGroupedOpCodes(contextLines) {
		if len(group) == 0 {
			continue
		}
		first, last := group[0], group[len(group)-1]
		hunk := &diff.Hunk{
			OrigStartLine: int32(first.I1 + 1),
			OrigLines:     int32(last.I2 - first.I1),
			NewStartLine:  int32(first.J1 + 1),
			NewLines:      int32(last.J2 - first.J1),
		}
		// Zero-length ranges anchor to the line before the change.
		if hunk.OrigLines == 0 {
			hunk.OrigStartLine--
		}
		if hunk.NewLines == 0 {
			hunk.NewStartLine--
		}

		var body bytes.Buffer
		for _, op := range group {
			switch op.Tag {
			case 'e':
				writeBodyLines(&body, ' ', diskLines[op.I1:op.I2])
			case 'd':
				writeBodyLines(&body, '-', diskLines[op.I1:op.I2])
			case 'i':
				writeBodyLines(&body, '+', bufLines[op.J1:op.J2])
			case 'r':
				writeBodyLines(&body, '-', diskLines[op.I1:op.I2])
				writeBodyLines(&body, '+', bufLines[op.J1:op.J2])
			}
		}
		hunk.Body = body.Bytes()
		fd.Hunks = append(fd.Hunks, hunk)
	}

	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// writeBodyLines appends one prefixed, newline-terminated body line per
// input line, stripping the terminators the lines carry.
func writeBodyLines(body *bytes.Buffer, prefix byte, lines []string) {
	for _, line := range lines {
		body.WriteByte(prefix)
		body.WriteString(trimEOL(line))
		body.WriteByte('\n')
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
