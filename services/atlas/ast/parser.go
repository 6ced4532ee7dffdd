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
	"context"
	"sync"
)

// Parser defines the contract for language-specific source file parsing.
//
// Description:
//
//	Parser implementations turn one file's contents into a FileResult:
//	top-level definitions, simple-identifier call sites, and a lossless
//	list of import declarations. Each implementation handles a specific
//	language but produces output in the common FileResult format defined
//	in types.go.
//
//	The Parser interface is designed to be:
//	- Context-aware: supports cancellation and timeouts via context.Context
//	- Language-agnostic: common output format regardless of source language
//	- Error-tolerant: partial results returned even when parse errors occur
//
// Inputs:
//
//	ctx      - Context for cancellation and timeout control.
//	content  - Raw source code bytes to parse. Must be valid UTF-8.
//	filePath - Canonical path to the file being parsed (for error
//	           reporting and downstream ID generation).
//
// Outputs:
//
//	*FileResult - Extracted definitions, calls, and imports. May contain
//	              partial results even when syntax errors occur.
//	error       - Non-nil only if parsing failed completely. Syntax
//	              errors are reported in FileResult.Errors instead.
//
// Limitations:
//
//   - Single-file analysis only; no cross-file resolution
//   - May produce incomplete results for syntactically invalid code
//   - No semantic analysis (type checking, reference resolution)
//
// Assumptions:
//
//   - Content is valid UTF-8 encoded text
//   - Caller handles concurrent access if sharing parser instances
type Parser interface {
	// Parse extracts definitions, calls, and imports from source code.
	//
	// Parameters:
	//   - ctx: Context for cancellation. Long-running parses should check ctx.Done().
	//   - content: Raw source code bytes (must be valid UTF-8).
	//   - filePath: Canonical path to the file.
	//
	// Returns:
	//   - *FileResult: Extracted contents. Never nil on success.
	//   - error: Non-nil only for complete parse failures (e.g., invalid UTF-8).
	//            Syntax errors are reported in FileResult.Errors.
	//
	// Thread Safety:
	//   Implementations must be safe for concurrent use. Multiple goroutines
	//   may call Parse simultaneously with different content.
	Parse(ctx context.Context, content []byte, filePath string) (*FileResult, error)

	// Language returns the canonical lowercase name of the language this
	// parser handles (e.g. "python").
	//
	// This value is used for:
	//   - Setting FileResult.Language and node Language fields
	//   - Parser selection based on file type
	//   - Logging and metrics
	Language() string

	// Extensions returns the file extensions this parser can handle,
	// including the leading dot (e.g. [".py", ".pyi"]). Extensions are
	// case-sensitive and should be lowercase.
	Extensions() []string
}

// ParserRegistry manages parser instances by language and file extension.
//
// Description:
//
//	ParserRegistry provides a central lookup mechanism for finding the
//	appropriate parser for a given file or language. Dispatch by language
//	tag through the registry (rather than a closed switch) is what keeps
//	adding a new language from being a breaking change.
//
// Thread Safety:
//
//	ParserRegistry is fully thread-safe. Registration uses write locks,
//	lookups use read locks.
type ParserRegistry struct {
	mu sync.RWMutex

	// byLanguage maps language names to parser instances.
	byLanguage map[string]Parser

	// byExtension maps file extensions to parser instances.
	byExtension map[string]Parser
}

// NewParserRegistry creates a new empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with all built-in parsers registered.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewPythonParser())
	return r
}

// Register adds a parser to the registry.
//
// The parser is registered under its Language() name and all its
// Extensions(). Already registered languages or extensions are
// overwritten.
//
// Thread Safety: This method is safe for concurrent use.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser

	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for the given language name.
//
// Thread Safety: This method is safe for concurrent use.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for the given file extension.
//
// Thread Safety: This method is safe for concurrent use.
//
// Parameters:
//   - ext: The file extension including the dot (e.g., ".py"). Case-sensitive.
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// Languages returns a list of all registered language names.
//
// Thread Safety: This method is safe for concurrent use.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	return languages
}

// Extensions returns a list of all registered file extensions.
//
// Thread Safety: This method is safe for concurrent use.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	return extensions
}
