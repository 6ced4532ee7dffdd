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
	"fmt"
	"sort"
	"sync"
)

// Entry is one indexed symbol.
//
// Entries are plain values decoupled from the graph's node type so the
// index carries no pointers into graph internals.
type Entry struct {
	// ID is the symbol's global node identifier.
	ID string

	// Name is the symbol's simple name.
	Name string

	// Kind is the node kind name (e.g. "function", "class").
	Kind string

	// FilePath is the canonical path of the defining file.
	FilePath string

	// Module is the project-relative module path of the defining file
	// (e.g. "pkg.helpers" for pkg/helpers.py).
	Module string
}

// Validate checks that the entry is well-formed.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidEntry)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: empty name for %s", ErrInvalidEntry, e.ID)
	}
	if e.FilePath == "" {
		return fmt.Errorf("%w: empty file path for %s", ErrInvalidEntry, e.ID)
	}
	return nil
}

// DefaultMaxEntries caps the index size.
const DefaultMaxEntries = 1_000_000

// moduleKey joins a module path and symbol name into one lookup key.
func moduleKey(module, name string) string {
	return module + "\x00" + name
}

// SymbolIndex maps symbol names and (module, name) pairs to node IDs.
//
// Description:
//
//	SymbolIndex is populated by the graph builder after merging and then
//	frozen. Lookups on a frozen index never block each other. Candidate
//	lists returned for name lookups are sorted by file path so that
//	"first in sorted-file order" tie-breaking is deterministic.
//
// Thread Safety:
//
//	Safe for concurrent use. Mutations take a write lock; lookups take
//	read locks and return defensive copies.
type SymbolIndex struct {
	mu     sync.RWMutex
	frozen bool

	byID     map[string]Entry
	byName   map[string][]Entry
	byFile   map[string][]Entry
	byModule map[string]string // moduleKey(module, name) -> node ID

	maxEntries int
}

// IndexOption configures a SymbolIndex.
type IndexOption func(*SymbolIndex)

// WithMaxEntries sets the index capacity. Values <= 0 are ignored.
func WithMaxEntries(n int) IndexOption {
	return func(idx *SymbolIndex) {
		if n > 0 {
			idx.maxEntries = n
		}
	}
}

// NewSymbolIndex creates an empty, unfrozen symbol index.
func NewSymbolIndex(opts ...IndexOption) *SymbolIndex {
	idx := &SymbolIndex{
		byID:       make(map[string]Entry),
		byName:     make(map[string][]Entry),
		byFile:     make(map[string][]Entry),
		byModule:   make(map[string]string),
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add inserts one entry.
//
// Outputs:
//
//	error - ErrIndexFrozen after Freeze; ErrInvalidEntry for malformed
//	        entries; ErrDuplicateID for an already-indexed node ID;
//	        ErrMaxEntriesExceeded at capacity.
//
// Thread Safety: Safe for concurrent use.
func (idx *SymbolIndex) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.frozen {
		return ErrIndexFrozen
	}
	if _, exists := idx.byID[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	if len(idx.byID) >= idx.maxEntries {
		return fmt.Errorf("%w: %d", ErrMaxEntriesExceeded, idx.maxEntries)
	}

	idx.byID[e.ID] = e
	idx.byName[e.Name] = insertSorted(idx.byName[e.Name], e)
	idx.byFile[e.FilePath] = append(idx.byFile[e.FilePath], e)

	// Module-qualified lookup. The first entry for a (module, name)
	// pair wins; merging guarantees deterministic insertion order.
	key := moduleKey(e.Module, e.Name)
	if _, exists := idx.byModule[key]; !exists {
		idx.byModule[key] = e.ID
	}
	return nil
}

// AddBatch inserts all entries or none.
//
// Description:
//
//	Validates every entry and checks for duplicates before inserting
//	anything, so a failure leaves the index unchanged.
//
// Thread Safety: Safe for concurrent use.
func (idx *SymbolIndex) AddBatch(entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.frozen {
		return ErrIndexFrozen
	}

	// Phase 1: validate without mutating.
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, exists := idx.byID[e.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %s (within batch)", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	if len(idx.byID)+len(entries) > idx.maxEntries {
		return fmt.Errorf("%w: %d", ErrMaxEntriesExceeded, idx.maxEntries)
	}

	// Phase 2: commit.
	for _, e := range entries {
		idx.byID[e.ID] = e
		idx.byName[e.Name] = insertSorted(idx.byName[e.Name], e)
		idx.byFile[e.FilePath] = append(idx.byFile[e.FilePath], e)
		key := moduleKey(e.Module, e.Name)
		if _, exists := idx.byModule[key]; !exists {
			idx.byModule[key] = e.ID
		}
	}
	return nil
}

// Freeze makes the index immutable. Lookups on a frozen index are
// lock-free in spirit; the read lock remains for safety.
func (idx *SymbolIndex) Freeze() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.frozen = true
}

// Frozen reports whether the index has been finalized.
func (idx *SymbolIndex) Frozen() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.frozen
}

// GetByID returns the entry for a node ID.
func (idx *SymbolIndex) GetByID(id string) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.byID[id]
	return e, ok
}

// GetByName returns all entries with the given simple name, sorted by
// file path. The returned slice is a copy.
func (idx *SymbolIndex) GetByName(name string) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copyEntries(idx.byName[name])
}

// GetByFile returns all entries defined in the given file.
// The returned slice is a copy.
func (idx *SymbolIndex) GetByFile(filePath string) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copyEntries(idx.byFile[filePath])
}

// Lookup resolves a (module path, symbol name) pair to a node ID.
func (idx *SymbolIndex) Lookup(module, name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.byModule[moduleKey(module, name)]
	return id, ok
}

// Size returns the number of indexed entries.
func (idx *SymbolIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byID)
}

// insertSorted inserts an entry into a file-path-sorted slice,
// preserving order so name lookups are deterministic.
func insertSorted(entries []Entry, e Entry) []Entry {
	pos := sort.Search(len(entries), func(i int) bool {
		if entries[i].FilePath != e.FilePath {
			return entries[i].FilePath > e.FilePath
		}
		return entries[i].ID > e.ID
	})
	entries = append(entries, Entry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = e
	return entries
}

func copyEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
