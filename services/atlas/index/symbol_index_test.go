// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(file, module, name string) Entry {
	return Entry{
		ID:       file + "::" + name,
		Name:     name,
		Kind:     "function",
		FilePath: file,
		Module:   module,
	}
}

// TestSymbolIndex_AddAndLookup verifies the core lookup paths.
func TestSymbolIndex_AddAndLookup(t *testing.T) {
	idx := NewSymbolIndex()

	require.NoError(t, idx.Add(entry("pkg/util.py", "pkg.util", "helper")))
	require.NoError(t, idx.Add(entry("app.py", "app", "run")))

	e, ok := idx.GetByID("app.py::run")
	require.True(t, ok)
	assert.Equal(t, "run", e.Name)

	id, ok := idx.Lookup("pkg.util", "helper")
	require.True(t, ok)
	assert.Equal(t, "pkg/util.py::helper", id)

	_, ok = idx.Lookup("pkg.util", "missing")
	assert.False(t, ok)

	assert.Equal(t, 2, idx.Size())
}

// TestSymbolIndex_Duplicates verifies duplicate IDs are rejected.
func TestSymbolIndex_Duplicates(t *testing.T) {
	idx := NewSymbolIndex()
	require.NoError(t, idx.Add(entry("a.py", "a", "f")))
	assert.ErrorIs(t, idx.Add(entry("a.py", "a", "f")), ErrDuplicateID)
}

// TestSymbolIndex_Validation verifies malformed entries are rejected.
func TestSymbolIndex_Validation(t *testing.T) {
	idx := NewSymbolIndex()
	assert.ErrorIs(t, idx.Add(Entry{Name: "f", FilePath: "a.py"}), ErrInvalidEntry)
	assert.ErrorIs(t, idx.Add(Entry{ID: "a.py::f", FilePath: "a.py"}), ErrInvalidEntry)
	assert.ErrorIs(t, idx.Add(Entry{ID: "a.py::f", Name: "f"}), ErrInvalidEntry)
}

// TestSymbolIndex_Freeze verifies a frozen index rejects writes but
// keeps serving reads.
func TestSymbolIndex_Freeze(t *testing.T) {
	idx := NewSymbolIndex()
	require.NoError(t, idx.Add(entry("a.py", "a", "f")))

	idx.Freeze()
	assert.True(t, idx.Frozen())
	assert.ErrorIs(t, idx.Add(entry("b.py", "b", "g")), ErrIndexFrozen)
	assert.ErrorIs(t, idx.AddBatch([]Entry{entry("b.py", "b", "g")}), ErrIndexFrozen)

	_, ok := idx.GetByID("a.py::f")
	assert.True(t, ok)
}

// TestSymbolIndex_NameOrdering verifies name lookups return candidates
// sorted by file path, so ambiguity resolution is deterministic.
func TestSymbolIndex_NameOrdering(t *testing.T) {
	idx := NewSymbolIndex()
	// Insert out of path order on purpose.
	require.NoError(t, idx.Add(entry("z.py", "z", "helper")))
	require.NoError(t, idx.Add(entry("a.py", "a", "helper")))
	require.NoError(t, idx.Add(entry("m.py", "m", "helper")))

	got := idx.GetByName("helper")
	require.Len(t, got, 3)
	assert.Equal(t, "a.py", got[0].FilePath)
	assert.Equal(t, "m.py", got[1].FilePath)
	assert.Equal(t, "z.py", got[2].FilePath)
}

// TestSymbolIndex_GetByFile verifies per-file grouping.
func TestSymbolIndex_GetByFile(t *testing.T) {
	idx := NewSymbolIndex()
	require.NoError(t, idx.Add(entry("a.py", "a", "f")))
	require.NoError(t, idx.Add(entry("a.py", "a", "g")))
	require.NoError(t, idx.Add(entry("b.py", "b", "h")))

	assert.Len(t, idx.GetByFile("a.py"), 2)
	assert.Len(t, idx.GetByFile("b.py"), 1)
	assert.Empty(t, idx.GetByFile("c.py"))
}

// TestSymbolIndex_AddBatch verifies all-or-nothing batch insertion.
func TestSymbolIndex_AddBatch(t *testing.T) {
	idx := NewSymbolIndex()
	require.NoError(t, idx.Add(entry("a.py", "a", "f")))

	err := idx.AddBatch([]Entry{
		entry("b.py", "b", "g"),
		entry("a.py", "a", "f"), // duplicate of an existing entry
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, idx.Size(), "failed batch leaves the index unchanged")

	require.NoError(t, idx.AddBatch([]Entry{
		entry("b.py", "b", "g"),
		entry("c.py", "c", "h"),
	}))
	assert.Equal(t, 3, idx.Size())
}

// TestSymbolIndex_MaxEntries verifies the capacity limit.
func TestSymbolIndex_MaxEntries(t *testing.T) {
	idx := NewSymbolIndex(WithMaxEntries(1))
	require.NoError(t, idx.Add(entry("a.py", "a", "f")))
	assert.ErrorIs(t, idx.Add(entry("b.py", "b", "g")), ErrMaxEntriesExceeded)
}
