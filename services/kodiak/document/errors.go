// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package document

import "errors"

var (
	// ErrInvalidPath indicates a filename that is not absolute or that
	// denotes a directory. Buffers are never created for such paths.
	ErrInvalidPath = errors.New("filename must be an absolute file path")

	// ErrNotText indicates loaded bytes that failed text decoding.
	// Resolve with Binary set skips the check.
	ErrNotText = errors.New("content is not valid text")
)
