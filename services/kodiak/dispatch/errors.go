// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import "errors"

var (
	// ErrNilConfig is returned by New when no section configuration is
	// supplied.
	ErrNilConfig = errors.New("section configuration is required")

	// ErrNilEngine is returned by New when no engine is supplied.
	ErrNilEngine = errors.New("engine is required")

	// ErrInvalidKind is returned for an event kind outside the trigger
	// vocabulary.
	ErrInvalidKind = errors.New("unknown event kind")
)

// EngineError marks a failure inside the external engine. The cause
// passes through uninterpreted; unwrap to get the engine's own error.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }
