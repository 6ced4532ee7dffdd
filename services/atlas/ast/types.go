// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefinitionKind identifies the kind of top-level definition extracted
// from a source file.
type DefinitionKind int

const (
	// DefUnknown is the zero value, used for unrecognized definitions.
	DefUnknown DefinitionKind = iota

	// DefFunction is a top-level function definition (including async).
	DefFunction

	// DefClass is a top-level class definition.
	DefClass

	// DefGlobalVariable is a module-level variable assignment.
	DefGlobalVariable
)

// definitionKindNames maps DefinitionKind values to their string representations.
var definitionKindNames = map[DefinitionKind]string{
	DefUnknown:        "unknown",
	DefFunction:       "function",
	DefClass:          "class",
	DefGlobalVariable: "global_variable",
}

// String returns the string representation of the definition kind.
func (k DefinitionKind) String() string {
	if name, ok := definitionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DefinitionKind(%d)", int(k))
}

// MarshalJSON implements json.Marshaler, encoding the kind as its string name.
func (k DefinitionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler, decoding the kind from its
// string name. Unknown names decode to DefUnknown rather than failing,
// so results serialized by newer versions remain readable.
func (k *DefinitionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("definition kind must be a string: %w", err)
	}
	for kind, name := range definitionKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	*k = DefUnknown
	return nil
}

// SourceRange is a statement-level span within a source file.
//
// Byte offsets are 0-indexed and half-open (EndByte is one past the last
// byte). Line numbers are 1-indexed and inclusive, matching the convention
// used by editors and compiler diagnostics.
type SourceRange struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Definition is a single top-level definition in a source file.
//
// Only top-level definitions are extracted: nested functions and methods
// belong to their enclosing definition's range and do not produce separate
// entries. The first definition of a given name in a file wins; later
// redefinitions are ignored.
type Definition struct {
	// Name is the simple identifier of the definition.
	Name string `json:"name"`

	// Kind classifies the definition.
	Kind DefinitionKind `json:"kind"`

	// Range is the span of the whole definition statement.
	Range SourceRange `json:"range"`

	// Bases holds base-class names for class definitions, in declaration
	// order. Only simple identifiers are recorded; dotted or computed
	// bases are omitted. Empty for non-class definitions.
	Bases []string `json:"bases,omitempty"`
}

// Validate checks that the definition is well-formed.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition name must not be empty")
	}
	if d.Kind == DefUnknown {
		return fmt.Errorf("definition %q has unknown kind", d.Name)
	}
	return nil
}

// CallSite is a call expression observed in a source file.
//
// Only calls whose callee is a simple identifier are recorded. Dotted
// calls (module.func()), method calls (obj.method()) and dynamically
// computed targets are out of scope and produce no CallSite.
type CallSite struct {
	// Caller is the name of the enclosing top-level function, or the
	// empty string for calls at module level.
	Caller string `json:"caller,omitempty"`

	// Callee is the simple identifier being called.
	Callee string `json:"callee"`

	// Range is the span of the call expression.
	Range SourceRange `json:"range"`
}

// ImportedModule is one module reference in a direct import statement,
// e.g. the "numpy as np" part of "import os, numpy as np".
type ImportedModule struct {
	// Name is the dotted module path as written.
	Name string `json:"name"`

	// Alias is the "as" binding, or empty if none.
	Alias string `json:"alias,omitempty"`
}

// ImportedName is one name in a from-import statement, e.g. the
// "path as p" part of "from os import path as p".
type ImportedName struct {
	// Name is the imported symbol name. Empty when IsWildcard is set.
	Name string `json:"name,omitempty"`

	// Alias is the "as" binding, or empty if none.
	Alias string `json:"alias,omitempty"`

	// IsWildcard marks a star import ("from module import *").
	IsWildcard bool `json:"is_wildcard,omitempty"`
}

// ImportDeclaration is a lossless representation of a single import
// statement.
//
// Exactly one of the two forms is populated:
//
//   - Direct form: Modules is non-empty ("import os", "import os, sys",
//     "import numpy as np"). Module, RelativeLevel and Names are zero.
//   - From form: Names is non-empty ("from os import path",
//     "from . import helper", "from module import *"). Module holds the
//     source module (may be empty for "from . import x") and
//     RelativeLevel counts leading dots (0 for absolute imports).
//
// The declaration captures every observable detail of the source syntax
// so that resolution never needs to re-inspect the file.
type ImportDeclaration struct {
	// Modules holds the module list for the direct form.
	Modules []ImportedModule `json:"modules,omitempty"`

	// Module is the source module of the from form. May be empty when
	// RelativeLevel > 0 ("from . import x").
	Module string `json:"module,omitempty"`

	// RelativeLevel is the number of leading dots in a relative from
	// import. 0 for absolute imports.
	RelativeLevel int `json:"relative_level,omitempty"`

	// Names holds the imported names for the from form.
	Names []ImportedName `json:"names,omitempty"`

	// Range is the span of the whole import statement.
	Range SourceRange `json:"range"`
}

// IsFromImport reports whether the declaration uses the from form.
func (d *ImportDeclaration) IsFromImport() bool {
	return len(d.Names) > 0 || d.RelativeLevel > 0 || (d.Module != "" && len(d.Modules) == 0)
}

// IsRelative reports whether the declaration is a relative from import.
func (d *ImportDeclaration) IsRelative() bool {
	return d.RelativeLevel > 0
}

// HasWildcard reports whether the declaration imports "*".
func (d *ImportDeclaration) HasWildcard() bool {
	for _, n := range d.Names {
		if n.IsWildcard {
			return true
		}
	}
	return false
}

// BindsName reports whether the declaration directly binds the given
// simple name in the importing file's namespace via the from form
// ("from module import name" or "from module import other as name").
// Star imports and direct module imports never bind individual symbol
// names and always report false.
func (d *ImportDeclaration) BindsName(name string) bool {
	for _, n := range d.Names {
		if n.IsWildcard {
			continue
		}
		if n.Alias != "" {
			if n.Alias == name {
				return true
			}
			continue
		}
		if n.Name == name {
			return true
		}
	}
	return false
}

// Validate checks structural consistency of the declaration.
func (d *ImportDeclaration) Validate() error {
	direct := len(d.Modules) > 0
	from := len(d.Names) > 0
	if direct && from {
		return fmt.Errorf("import declaration mixes direct and from forms")
	}
	if !direct && !from {
		return fmt.Errorf("import declaration is empty")
	}
	if direct && (d.Module != "" || d.RelativeLevel != 0) {
		return fmt.Errorf("direct import must not carry a from-module")
	}
	if d.RelativeLevel < 0 {
		return fmt.Errorf("relative level must be non-negative")
	}
	if from && d.Module == "" && d.RelativeLevel == 0 {
		return fmt.Errorf("from import must name a module or be relative")
	}
	for _, m := range d.Modules {
		if m.Name == "" {
			return fmt.Errorf("imported module name must not be empty")
		}
	}
	for _, n := range d.Names {
		if !n.IsWildcard && n.Name == "" {
			return fmt.Errorf("imported name must not be empty")
		}
		if n.IsWildcard && (n.Name != "" || n.Alias != "") {
			return fmt.Errorf("wildcard import must not carry a name or alias")
		}
	}
	return nil
}

// FileResult is the complete output of parsing one source file.
//
// A FileResult is a pure function of the file's content: it carries no
// global identifiers and no resolution outcomes. Merging results into a
// project graph and resolving imports happen downstream.
type FileResult struct {
	// FilePath is the canonical absolute path of the parsed file.
	FilePath string `json:"file_path"`

	// Language is the language tag (e.g. "python").
	Language string `json:"language"`

	// Definitions are the top-level definitions in source order,
	// deduplicated by name (first wins).
	Definitions []Definition `json:"definitions,omitempty"`

	// Calls are the simple-identifier call sites in source order.
	Calls []CallSite `json:"calls,omitempty"`

	// Imports are the import declarations in source order.
	Imports []ImportDeclaration `json:"imports,omitempty"`

	// Errors holds non-fatal parse issues (syntax errors). A file with
	// errors still contributes its successfully extracted definitions.
	Errors []string `json:"errors,omitempty"`

	// Hash is the SHA-256 of the file content, hex encoded.
	Hash string `json:"hash,omitempty"`

	// ParsedAtMilli is the Unix millisecond timestamp of the parse.
	ParsedAtMilli int64 `json:"parsed_at_milli"`

	// ParseDurationMs is how long the parse took.
	ParseDurationMs int64 `json:"parse_duration_ms"`
}

// HasErrors reports whether any parse issues were recorded.
func (r *FileResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// DefinitionNamed returns the definition with the given name, or nil.
func (r *FileResult) DefinitionNamed(name string) *Definition {
	for i := range r.Definitions {
		if r.Definitions[i].Name == name {
			return &r.Definitions[i]
		}
	}
	return nil
}

// Validate checks that the result is internally consistent.
func (r *FileResult) Validate() error {
	if r.FilePath == "" {
		return fmt.Errorf("file path must not be empty")
	}
	if strings.Contains(r.FilePath, "..") {
		return fmt.Errorf("file path must not contain path traversal: %s", r.FilePath)
	}
	if r.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	seen := make(map[string]struct{}, len(r.Definitions))
	for i := range r.Definitions {
		if err := r.Definitions[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Definitions[i].Name]; dup {
			return fmt.Errorf("duplicate definition %q (first occurrence must win at parse time)", r.Definitions[i].Name)
		}
		seen[r.Definitions[i].Name] = struct{}{}
	}
	for i := range r.Imports {
		if err := r.Imports[i].Validate(); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
	}
	return nil
}
