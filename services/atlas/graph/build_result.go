// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/index"
)

// FileErrorKind classifies per-file failures.
type FileErrorKind string

const (
	// FileErrorRead is a permission or IO failure reading one file.
	FileErrorRead FileErrorKind = "read_error"

	// FileErrorSyntax is malformed source; the file contributes a
	// partial or empty local graph.
	FileErrorSyntax FileErrorKind = "syntax_error"
)

// FileError represents a non-fatal failure to process a single file.
type FileError struct {
	// FilePath is the path to the file that failed.
	FilePath string `json:"file_path"`

	// Kind classifies the failure.
	Kind FileErrorKind `json:"kind"`

	// Err is the underlying error. Nil for syntax errors reported by
	// the parser (Reason carries the detail).
	Err error `json:"-"`

	// Reason is the human-readable failure description.
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e FileError) Error() string {
	return fmt.Sprintf("file %s: %s", e.FilePath, e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e FileError) Unwrap() error {
	return e.Err
}

// ResolutionClass is the outcome of classifying an import declaration.
type ResolutionClass string

const (
	// ResolutionInternal means the referenced module corresponds to a
	// discovered project file.
	ResolutionInternal ResolutionClass = "internal"

	// ResolutionExternal means the referenced module is a recognized
	// standard or third-party module not present in the project.
	ResolutionExternal ResolutionClass = "external"

	// ResolutionUnresolved means neither case applies. All relative
	// imports are unresolved by design.
	ResolutionUnresolved ResolutionClass = "unresolved"
)

// ImportResolution records the classification of a single import
// declaration. Unresolved references are classification outcomes, not
// errors; they never abort a scan.
type ImportResolution struct {
	// FilePath is the importing file.
	FilePath string `json:"file_path"`

	// Declaration is the import as extracted from source.
	Declaration ast.ImportDeclaration `json:"declaration"`

	// Module is the module reference that was classified. Direct
	// imports with several modules produce one ImportResolution each.
	Module string `json:"module"`

	// Class is the classification outcome.
	Class ResolutionClass `json:"class"`

	// TargetFile is the resolved project file for internal imports.
	TargetFile string `json:"target_file,omitempty"`
}

// UnresolvedCall records a call site whose target could not be resolved
// to any node. Counted in diagnostics, never raised as an error.
type UnresolvedCall struct {
	// FilePath is the file containing the call.
	FilePath string `json:"file_path"`

	// Caller is the enclosing function name, or "" for module level.
	Caller string `json:"caller,omitempty"`

	// Callee is the unresolved target name.
	Callee string `json:"callee"`
}

// BuildStats contains statistics about a scan.
type BuildStats struct {
	// FilesDiscovered is the number of files found by discovery.
	FilesDiscovered int `json:"files_discovered"`

	// FilesParsed is the number of files successfully parsed.
	FilesParsed int `json:"files_parsed"`

	// FilesFailed is the number of files that failed processing.
	FilesFailed int `json:"files_failed"`

	// NodesCreated is the number of nodes in the graph.
	NodesCreated int `json:"nodes_created"`

	// EdgesCreated is the number of edges in the graph.
	EdgesCreated int `json:"edges_created"`

	// ImportsInternal counts imports resolved to project files.
	ImportsInternal int `json:"imports_internal"`

	// ImportsExternal counts imports classified as external modules.
	ImportsExternal int `json:"imports_external"`

	// ImportsUnresolved counts imports that could not be classified,
	// including all relative imports.
	ImportsUnresolved int `json:"imports_unresolved"`

	// CallsResolved counts call edges created (intra- and cross-file).
	CallsResolved int `json:"calls_resolved"`

	// CallsUnresolved counts call sites with no resolvable target.
	CallsUnresolved int `json:"calls_unresolved"`

	// DurationMilli is the total scan time in milliseconds.
	// NOTE: For fast scans (< 1ms) this rounds to 0. Use DurationMicro
	// for precision.
	DurationMilli int64 `json:"duration_milli"`

	// DurationMicro is the total scan time in microseconds.
	DurationMicro int64 `json:"duration_micro"`
}

// BuildResult contains the result of a scan.
//
// Scans are designed to be resilient: individual file failures do not
// fail the whole scan. The best-effort graph is returned along with an
// exhaustive diagnostics report.
type BuildResult struct {
	// Graph is the constructed project graph. Frozen on success. Nil
	// only when the scan failed outright (inaccessible root, identifier
	// collision, early cancellation).
	Graph *Graph

	// Index is the symbol index built from the merged graph. Frozen
	// together with the graph; nil when Graph is nil.
	Index *index.SymbolIndex

	// FileErrors contains per-file read and syntax failures. Files with
	// read errors are absent from the graph; files with syntax errors
	// contribute whatever could be extracted.
	FileErrors []FileError

	// Resolutions contains the classification of every import
	// declaration in the project.
	Resolutions []ImportResolution

	// UnresolvedCalls lists call sites with no resolvable target.
	UnresolvedCalls []UnresolvedCall

	// Stats contains scan statistics.
	Stats BuildStats

	// Incomplete is true if the scan was cancelled via context. An
	// incomplete result is never published to consumers.
	Incomplete bool
}

// HasErrors returns true if any per-file errors occurred.
func (r *BuildResult) HasErrors() bool {
	return len(r.FileErrors) > 0
}

// Success returns true if the scan completed without file errors.
func (r *BuildResult) Success() bool {
	return !r.Incomplete && !r.HasErrors()
}

// UnresolvedImports returns the unresolved import resolutions.
func (r *BuildResult) UnresolvedImports() []ImportResolution {
	var out []ImportResolution
	for _, res := range r.Resolutions {
		if res.Class == ResolutionUnresolved {
			out = append(out, res)
		}
	}
	return out
}
