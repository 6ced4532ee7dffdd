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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePython(t *testing.T, source string) *FileResult {
	t.Helper()
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// TestPythonParser_Functions verifies extraction of top-level functions.
func TestPythonParser_Functions(t *testing.T) {
	source := `
def helper(x):
    return x + 1

async def fetch(url):
    return url

def helper(x):
    return x - 1
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)

	// The redefinition of helper must not produce a second entry.
	require.Len(t, result.Definitions, 2)

	helper := result.DefinitionNamed("helper")
	require.NotNil(t, helper)
	assert.Equal(t, DefFunction, helper.Kind)
	assert.Equal(t, 2, helper.Range.StartLine)

	fetch := result.DefinitionNamed("fetch")
	require.NotNil(t, fetch)
	assert.Equal(t, DefFunction, fetch.Kind)
}

// TestPythonParser_Classes verifies class extraction with base names.
func TestPythonParser_Classes(t *testing.T) {
	source := `
class Base:
    pass

class Child(Base, dict):
    pass

class Dotted(module.Base):
    pass
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)
	require.Len(t, result.Definitions, 3)

	child := result.DefinitionNamed("Child")
	require.NotNil(t, child)
	assert.Equal(t, DefClass, child.Kind)
	assert.Equal(t, []string{"Base", "dict"}, child.Bases)

	// Dotted bases are skipped; only simple identifiers are recorded.
	dotted := result.DefinitionNamed("Dotted")
	require.NotNil(t, dotted)
	assert.Empty(t, dotted.Bases)
}

// TestPythonParser_DecoratedDefinitions verifies that decorators do not
// hide the definition and that the span covers the decorator.
func TestPythonParser_DecoratedDefinitions(t *testing.T) {
	source := `
@cached
def expensive():
    pass

@register
class Plugin:
    pass
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)

	expensive := result.DefinitionNamed("expensive")
	require.NotNil(t, expensive)
	assert.Equal(t, DefFunction, expensive.Kind)
	assert.Equal(t, 2, expensive.Range.StartLine, "span starts at the decorator")

	plugin := result.DefinitionNamed("Plugin")
	require.NotNil(t, plugin)
	assert.Equal(t, DefClass, plugin.Kind)
}

// TestPythonParser_GlobalVariables verifies module-level assignments.
func TestPythonParser_GlobalVariables(t *testing.T) {
	source := `
VERSION = "1.0"
count = 0
a, b = 1, 2
obj.attr = 3

def f():
    local = 1
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)

	version := result.DefinitionNamed("VERSION")
	require.NotNil(t, version)
	assert.Equal(t, DefGlobalVariable, version.Kind)

	count := result.DefinitionNamed("count")
	require.NotNil(t, count)

	// Tuple unpacking, attribute targets and function locals are not
	// module-level variables.
	assert.Nil(t, result.DefinitionNamed("a"))
	assert.Nil(t, result.DefinitionNamed("b"))
	assert.Nil(t, result.DefinitionNamed("local"))
}

// TestPythonParser_NestedDefinitionsSkipped verifies that methods and
// nested functions do not surface as top-level definitions.
func TestPythonParser_NestedDefinitionsSkipped(t *testing.T) {
	source := `
class Service:
    def method(self):
        pass

def outer():
    def inner():
        pass
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)
	require.Len(t, result.Definitions, 2)
	assert.NotNil(t, result.DefinitionNamed("Service"))
	assert.NotNil(t, result.DefinitionNamed("outer"))
	assert.Nil(t, result.DefinitionNamed("method"))
	assert.Nil(t, result.DefinitionNamed("inner"))
}

// TestPythonParser_Calls verifies call-site extraction and enclosing
// function attribution.
func TestPythonParser_Calls(t *testing.T) {
	source := `
def process(data):
    cleaned = sanitize(data)
    obj.method()
    os.path.exists("x")
    fns[0]()
    return cleaned

validate()
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)

	// Identifier and attribute-chain callees are recorded; the
	// subscripted callee is not.
	require.Len(t, result.Calls, 4)

	assert.Equal(t, "sanitize", result.Calls[0].Callee)
	assert.Equal(t, "process", result.Calls[0].Caller)

	assert.Equal(t, "obj.method", result.Calls[1].Callee)
	assert.Equal(t, "process", result.Calls[1].Caller)

	assert.Equal(t, "os.path.exists", result.Calls[2].Callee)
	assert.Equal(t, "process", result.Calls[2].Caller)

	assert.Equal(t, "validate", result.Calls[3].Callee)
	assert.Equal(t, "", result.Calls[3].Caller, "module-level call has no enclosing function")
}

// TestPythonParser_ComputedCallees verifies that call targets built at
// runtime never produce call sites.
func TestPythonParser_ComputedCallees(t *testing.T) {
	source := `
factory()()
handlers["x"]()
(a or b).run()
`
	result := parsePython(t, source)
	require.Empty(t, result.Errors)

	// Only the inner factory() call has a direct identifier target.
	require.Len(t, result.Calls, 1)
	assert.Equal(t, "factory", result.Calls[0].Callee)
}

// TestPythonParser_SyntaxErrors verifies error recovery: a broken file
// still yields the definitions around the damage.
func TestPythonParser_SyntaxErrors(t *testing.T) {
	source := `
def good():
    pass

def broken(:
    pass
`
	result := parsePython(t, source)
	assert.True(t, result.HasErrors())
	assert.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "syntax error at line")
	assert.NotNil(t, result.DefinitionNamed("good"))
}

// TestPythonParser_InvalidInput verifies input validation failures.
func TestPythonParser_InvalidInput(t *testing.T) {
	parser := NewPythonParser(WithPythonMaxFileSize(16))
	ctx := context.Background()

	t.Run("nil content", func(t *testing.T) {
		_, err := parser.Parse(ctx, nil, "test.py")
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("file too large", func(t *testing.T) {
		_, err := parser.Parse(ctx, []byte(strings.Repeat("x", 17)), "test.py")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, err := parser.Parse(ctx, []byte{0xff, 0xfe}, "test.py")
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := parser.Parse(cancelled, []byte("x = 1"), "test.py")
		assert.ErrorIs(t, err, ErrContextCanceled)
	})
}

// TestPythonParser_Metadata verifies the result carries content hash and
// language tags.
func TestPythonParser_Metadata(t *testing.T) {
	result := parsePython(t, "x = 1\n")
	assert.Equal(t, "python", result.Language)
	assert.Equal(t, "test.py", result.FilePath)
	assert.Len(t, result.Hash, 64, "hex SHA-256")

	again := parsePython(t, "x = 1\n")
	assert.Equal(t, result.Hash, again.Hash, "same content hashes equal")

	different := parsePython(t, "x = 2\n")
	assert.NotEqual(t, result.Hash, different.Hash)
}

// TestParserRegistry verifies registration and lookup by language and
// extension.
func TestParserRegistry(t *testing.T) {
	registry := DefaultRegistry()

	byLang, ok := registry.GetByLanguage("python")
	require.True(t, ok)
	assert.Equal(t, "python", byLang.Language())

	byExt, ok := registry.GetByExtension(".py")
	require.True(t, ok)
	assert.Equal(t, "python", byExt.Language())

	_, ok = registry.GetByExtension(".rs")
	assert.False(t, ok)

	assert.Contains(t, registry.Languages(), "python")
	assert.Contains(t, registry.Extensions(), ".pyi")
}
