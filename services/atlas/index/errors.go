// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides the symbol index used to resolve cross-file
// references.
//
// The index maps (module path, symbol name) pairs and plain symbol
// names to globally stable node identifiers. It is built once per scan,
// after all per-file results have been merged into the project graph,
// and is immutable for the remainder of that scan generation.
package index

import "errors"

// Sentinel errors for index operations.
var (
	// ErrIndexFrozen is returned when attempting to modify a frozen
	// index. Once Freeze() is called, the index is read-only.
	ErrIndexFrozen = errors.New("index is frozen and cannot be modified")

	// ErrInvalidEntry is returned when adding an entry that fails
	// validation.
	ErrInvalidEntry = errors.New("invalid index entry")

	// ErrDuplicateID is returned when adding an entry whose node ID is
	// already indexed.
	ErrDuplicateID = errors.New("duplicate node ID in index")

	// ErrMaxEntriesExceeded is returned when the index has reached its
	// configured capacity.
	ErrMaxEntriesExceeded = errors.New("maximum index entries exceeded")
)
