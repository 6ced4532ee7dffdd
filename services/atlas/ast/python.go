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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxFileSize is the default maximum file size for parsing (5 MB).
// Files larger than this are rejected to prevent memory exhaustion.
const DefaultMaxFileSize = 5 * 1024 * 1024

// maxSyntaxErrorsReported caps how many ERROR nodes are surfaced per file.
const maxSyntaxErrorsReported = 10

// PythonParser extracts definitions, call sites, and import declarations
// from Python source files using tree-sitter.
//
// Description:
//
//	PythonParser implements the Parser interface for Python. It extracts:
//	- Top-level function definitions (including async and decorated)
//	- Top-level class definitions with base-class names
//	- Module-level variable assignments
//	- Call sites whose callee is a bare identifier
//	- Import declarations, losslessly (plain, aliased, multi-name,
//	  from-import, wildcard, relative)
//
//	Nested functions and methods do not produce definitions of their own;
//	they belong to their enclosing top-level definition.
//
// Thread Safety:
//
//	PythonParser is safe for concurrent use. A new tree-sitter parser is
//	created per Parse call, since tree-sitter parsers are not thread-safe.
//
// Limitations:
//
//   - Syntactically invalid files produce partial results plus Errors
//   - Dotted and computed call targets are never recorded
//   - No semantic analysis of any kind
type PythonParser struct {
	maxFileSize int
}

// PythonParserOption configures a PythonParser.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size in bytes.
// Values <= 0 are ignored.
func WithPythonMaxFileSize(size int) PythonParserOption {
	return func(p *PythonParser) {
		if size > 0 {
			p.maxFileSize = size
		}
	}
}

// NewPythonParser creates a Python parser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "python".
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions handled by this parser.
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// Parse extracts definitions, calls, and imports from Python source.
//
// Description:
//
//	Parses the content with tree-sitter and walks the resulting tree.
//	Syntax errors do not fail the parse: ERROR nodes are reported in
//	FileResult.Errors and extraction continues over the valid portions.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked before and after the
//	      tree-sitter parse.
//	content - Raw source bytes. Must be non-nil valid UTF-8.
//	filePath - Canonical path of the file, used for reporting only.
//
// Outputs:
//
//	*FileResult - Extraction result. Non-nil unless error is non-nil.
//	error - Non-nil for complete failures: invalid content, size limit,
//	        cancellation.
//
// Thread Safety: Safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*FileResult, error) {
	start := time.Now()

	ctx, span := startParseSpan(ctx, p.Language(), filePath, len(content))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "context canceled")
		return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
	}

	if content == nil {
		span.SetStatus(codes.Error, "nil content")
		recordParseMetrics(ctx, p.Language(), time.Since(start), 0, 0, false)
		return nil, fmt.Errorf("%w: nil content", ErrInvalidContent)
	}
	if len(content) > p.maxFileSize {
		span.SetStatus(codes.Error, "file too large")
		recordParseMetrics(ctx, p.Language(), time.Since(start), 0, 0, false)
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		span.SetStatus(codes.Error, "invalid UTF-8")
		recordParseMetrics(ctx, p.Language(), time.Since(start), 0, 0, false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	hash := sha256.Sum256(content)

	// Tree-sitter parsers are not thread-safe; create one per call.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		span.SetStatus(codes.Error, "tree-sitter parse failed")
		recordParseMetrics(ctx, p.Language(), time.Since(start), 0, 0, false)
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "context canceled")
		return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
	}

	result := &FileResult{
		FilePath:      filePath,
		Language:      p.Language(),
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: start.UnixMilli(),
	}

	root := tree.RootNode()
	if root.HasError() {
		p.collectSyntaxErrors(root, content, result)
	}

	p.extractTopLevel(root, content, result)
	p.extractCalls(root, content, result)

	result.ParseDurationMs = time.Since(start).Milliseconds()

	setParseSpanResult(span, len(result.Definitions), len(result.Imports), len(result.Errors))
	span.SetStatus(codes.Ok, "")
	recordParseMetrics(ctx, p.Language(), time.Since(start), len(result.Definitions), len(result.Imports), true)

	return result, nil
}

// collectSyntaxErrors walks the tree recording ERROR node locations.
func (p *PythonParser) collectSyntaxErrors(node *sitter.Node, content []byte, result *FileResult) {
	if len(result.Errors) >= maxSyntaxErrorsReported {
		return
	}
	if node.Type() == pyNodeError {
		result.Errors = append(result.Errors,
			fmt.Sprintf("syntax error at line %d", node.StartPoint().Row+1))
		return // nested ERROR nodes add no information
	}
	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.collectSyntaxErrors(node.NamedChild(i), content, result)
	}
}

// extractTopLevel walks the module's direct children extracting
// definitions and import declarations in source order.
func (p *PythonParser) extractTopLevel(root *sitter.Node, content []byte, result *FileResult) {
	seen := make(map[string]struct{})

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)

		switch stmt.Type() {
		case pyNodeImportStatement:
			if decl := extractImportStatement(stmt, content); decl != nil {
				result.Imports = append(result.Imports, *decl)
			}
		case pyNodeImportFromStatement:
			if decl := extractImportFromStatement(stmt, content); decl != nil {
				result.Imports = append(result.Imports, *decl)
			}
		case pyNodeFunctionDefinition, pyNodeAsyncFunctionDefinition:
			p.addDefinition(stmt, stmt, DefFunction, content, result, seen)
		case pyNodeClassDefinition:
			p.addDefinition(stmt, stmt, DefClass, content, result, seen)
		case pyNodeDecoratedDefinition:
			inner := stmt.ChildByFieldName("definition")
			if inner == nil {
				continue
			}
			switch inner.Type() {
			case pyNodeFunctionDefinition, pyNodeAsyncFunctionDefinition:
				// Span covers the decorators too.
				p.addDefinition(inner, stmt, DefFunction, content, result, seen)
			case pyNodeClassDefinition:
				p.addDefinition(inner, stmt, DefClass, content, result, seen)
			}
		case pyNodeExpressionStatement:
			p.addGlobalAssignments(stmt, content, result, seen)
		}
	}
}

// addDefinition records a top-level definition. defNode carries the name
// and (for classes) the superclass list; spanNode carries the statement
// span, which differs from defNode for decorated definitions.
func (p *PythonParser) addDefinition(defNode, spanNode *sitter.Node, kind DefinitionKind, content []byte, result *FileResult, seen map[string]struct{}) {
	nameNode := defNode.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)
	if name == "" {
		return
	}
	if _, dup := seen[name]; dup {
		// First definition of a name wins.
		return
	}
	seen[name] = struct{}{}

	def := Definition{
		Name:  name,
		Kind:  kind,
		Range: nodeRange(spanNode),
	}

	if kind == DefClass {
		def.Bases = extractBaseClasses(defNode, content)
	}

	result.Definitions = append(result.Definitions, def)
}

// extractBaseClasses returns the simple-identifier base names of a class.
// Dotted bases (module.Base) and subscripted bases (Generic[T]) are
// skipped; resolving them would require semantic analysis.
func extractBaseClasses(classNode *sitter.Node, content []byte) []string {
	args := classNode.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == pyNodeIdentifier {
			bases = append(bases, arg.Content(content))
		}
	}
	return bases
}

// addGlobalAssignments records module-level variable assignments.
// Only simple identifier targets are recorded; tuple unpacking and
// attribute targets are skipped.
func (p *PythonParser) addGlobalAssignments(stmt *sitter.Node, content []byte, result *FileResult, seen map[string]struct{}) {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() != pyNodeAssignment {
			continue
		}
		left := child.ChildByFieldName("left")
		if left == nil || left.Type() != pyNodeIdentifier {
			continue
		}
		name := left.Content(content)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		result.Definitions = append(result.Definitions, Definition{
			Name:  name,
			Kind:  DefGlobalVariable,
			Range: nodeRange(stmt),
		})
	}
}

// extractCalls walks the whole tree recording call sites, together
// with the nearest enclosing function name. Bare-identifier callees
// are candidates for resolution; dotted callees (os.path.exists,
// obj.method) keep their full dotted name so they can be reported as
// unresolved. Computed callees are skipped entirely.
func (p *PythonParser) extractCalls(node *sitter.Node, content []byte, result *FileResult) {
	if node.Type() == pyNodeCall {
		fn := node.ChildByFieldName("function")
		if fn != nil {
			if callee, ok := calleeName(fn, content); ok {
				result.Calls = append(result.Calls, CallSite{
					Caller: enclosingFunctionName(node, content),
					Callee: callee,
					Range:  nodeRange(node),
				})
			}
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.extractCalls(node.NamedChild(i), content, result)
	}
}

// calleeName renders a call target as a dotted name. It accepts a bare
// identifier or an attribute chain made entirely of identifiers;
// anything computed (subscripts, nested calls, literals) yields false.
func calleeName(fn *sitter.Node, content []byte) (string, bool) {
	switch fn.Type() {
	case pyNodeIdentifier:
		return fn.Content(content), true
	case pyNodeAttribute:
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil || attr.Type() != pyNodeIdentifier {
			return "", false
		}
		base, ok := calleeName(obj, content)
		if !ok {
			return "", false
		}
		return base + "." + attr.Content(content), true
	default:
		return "", false
	}
}

// enclosingFunctionName walks up the tree to the nearest enclosing
// function definition and returns its name, or "" for module-level code.
func enclosingFunctionName(node *sitter.Node, content []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		t := cur.Type()
		if t == pyNodeFunctionDefinition || t == pyNodeAsyncFunctionDefinition {
			if nameNode := cur.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(content)
			}
		}
	}
	return ""
}

// nodeRange converts a tree-sitter node span to a SourceRange.
// Tree-sitter rows are 0-indexed; SourceRange lines are 1-indexed.
func nodeRange(node *sitter.Node) SourceRange {
	return SourceRange{
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}
