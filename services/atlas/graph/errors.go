// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the project dependency graph and its builder.
//
// The graph package merges per-file parse results into one global graph
// where nodes are files and their top-level symbols (functions, classes,
// global variables) and edges represent relationships (contains, calls,
// imports, inherits). Node identifiers are derived deterministically
// from the canonical file path and the symbol's qualified name, so
// merging is idempotent and independent of file-processing order.
//
// # Ownership Model
//
// The graph stores pointers to nodes but callers must not mutate them
// after AddNode(); the graph does not copy nodes.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use during building. It is designed
// for:
//   - Single-writer access during the build phase (AddNode, AddEdge)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from multiple goroutines.
//
// # Lifecycle
//
// A fresh graph is built on every scan and published atomically; a graph
// currently being read by consumers is never mutated in place.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	// Once Freeze() is called, the graph becomes read-only.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references a non-existent
	// node. Both endpoints must exist before an edge can be created.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a node with an ID that
	// already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrIdentifierCollision is returned when two distinct symbols
	// compute the same global identifier. Identifiers embed the file
	// path and are collision-free by construction, so this indicates a
	// programming-invariant failure and aborts the scan.
	ErrIdentifierCollision = errors.New("identifier collision")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrInvalidNode is returned when attempting to add a nil node or a
	// node that fails validation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrBuildCancelled is returned when a build operation is cancelled
	// via context before any result could be assembled.
	ErrBuildCancelled = errors.New("build cancelled")

	// ErrRootInaccessible is returned when the project root directory
	// itself cannot be read. Unlike per-file failures this aborts the
	// scan.
	ErrRootInaccessible = errors.New("project root inaccessible")
)
