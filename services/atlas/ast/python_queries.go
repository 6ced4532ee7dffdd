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

// Python Tree-sitter Node Types
//
// This file documents the tree-sitter node types used by PythonParser.
// The parser uses direct node traversal rather than tree-sitter's query
// language for more precise control over extraction.
//
// Reference: https://github.com/tree-sitter/tree-sitter-python/blob/master/src/grammar.json

// Node type constants for Python AST traversal.
const (
	// Top-level nodes
	pyNodeModule = "module"

	// Import-related nodes
	pyNodeImportStatement     = "import_statement"
	pyNodeImportFromStatement = "import_from_statement"
	pyNodeDottedName          = "dotted_name"
	pyNodeAliasedImport       = "aliased_import"
	pyNodeRelativeImport      = "relative_import"
	pyNodeImportPrefix        = "import_prefix"
	pyNodeWildcardImport      = "wildcard_import"

	// Definition nodes
	pyNodeFunctionDefinition      = "function_definition"
	pyNodeAsyncFunctionDefinition = "async_function_definition"
	pyNodeClassDefinition         = "class_definition"
	pyNodeDecoratedDefinition     = "decorated_definition"
	pyNodeArgumentList            = "argument_list"

	// Variable/assignment nodes
	pyNodeExpressionStatement = "expression_statement"
	pyNodeAssignment          = "assignment"

	// Identifier and expression nodes
	pyNodeIdentifier = "identifier"
	pyNodeAttribute  = "attribute"
	pyNodeCall       = "call"

	// Error nodes produced for malformed source
	pyNodeError = "ERROR"
)

// Python AST Structure Reference
//
// module
// ├── import_statement
// │   ├── dotted_name
// │   └── aliased_import
// │       ├── dotted_name (field: name)
// │       └── identifier (field: alias)
// ├── import_from_statement
// │   ├── relative_import (field: module_name, for relative imports)
// │   │   ├── import_prefix (dots)
// │   │   └── dotted_name (optional)
// │   ├── dotted_name (field: module_name, for absolute imports)
// │   ├── dotted_name+ (field: name, imported names)
// │   ├── aliased_import (field: name)
// │   └── wildcard_import
// ├── function_definition
// │   ├── identifier (field: name)
// │   └── block (field: body)
// ├── class_definition
// │   ├── identifier (field: name)
// │   ├── argument_list (field: superclasses)
// │   └── block (field: body)
// ├── decorated_definition
// │   ├── decorator+
// │   └── (function_definition | class_definition) (field: definition)
// └── expression_statement
//     └── assignment
//         ├── identifier (field: left)
//         └── expression (field: right)

// Python Call Resolution Rules
//
// Calls whose "function" field is a bare identifier or a pure
// attribute chain of identifiers produce a CallSite; computed callees
// do not:
//
//   helper()         -> CallSite{Callee: "helper"}
//   os.path.join()   -> CallSite{Callee: "os.path.join"}
//   obj.method()     -> CallSite{Callee: "obj.method"}
//   fns[i]()         -> no CallSite (computed callee)
//   f()()            -> no CallSite (computed callee)
//
// This is a syntax-level lookup, not semantic analysis. Dotted
// callees are recorded so unresolved-call diagnostics can name them,
// but they are never resolved to edges; that is a permanent scope
// boundary.
