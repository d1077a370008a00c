// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package section

import "errors"

var (
	// ErrTagConflict is returned when a section declares both "tags"
	// and "tags+". The two forms are mutually exclusive: one replaces
	// the inherited set, the other extends it.
	ErrTagConflict = errors.New(`section declares both "tags" and "tags+"`)

	// ErrInvalidName is returned for a section whose name is empty
	// after trimming.
	ErrInvalidName = errors.New("section name is empty")

	// ErrDuplicateSection is returned when two section names collide
	// after case folding.
	ErrDuplicateSection = errors.New("duplicate section name")
)
