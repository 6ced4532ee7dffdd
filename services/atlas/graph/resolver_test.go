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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
)

// TestModulePathForFile verifies the file-to-module mapping rules.
func TestModulePathForFile(t *testing.T) {
	cases := []struct {
		rel  string
		want string
	}{
		{"app.py", "app"},
		{"pkg/helpers.py", "pkg.helpers"},
		{"pkg/sub/deep.py", "pkg.sub.deep"},
		{"pkg/__init__.py", "pkg"},
		{"pkg/sub/__init__.py", "pkg.sub"},
		{"__init__.py", ""},
		{"stubs/typed.pyi", "stubs.typed"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ModulePathForFile(tc.rel), "rel=%s", tc.rel)
	}
}

// TestModuleResolver verifies registration and classification.
func TestModuleResolver(t *testing.T) {
	r := newModuleResolver("/proj")
	r.register("/proj/pkg/__init__.py")
	r.register("/proj/pkg/util.py")
	r.register("/proj/app.py")

	path, ok := r.resolve("pkg.util")
	require.True(t, ok)
	assert.Equal(t, "/proj/pkg/util.py", path)

	path, ok = r.resolve("pkg")
	require.True(t, ok)
	assert.Equal(t, "/proj/pkg/__init__.py", path)

	_, ok = r.resolve("os")
	assert.False(t, ok)

	absolute := &ast.ImportDeclaration{Module: "pkg.util", Names: []ast.ImportedName{{Name: "util"}}}
	class, target := r.classifyImport(absolute, "pkg.util")
	assert.Equal(t, ResolutionInternal, class)
	assert.Equal(t, "/proj/pkg/util.py", target)

	external := &ast.ImportDeclaration{Modules: []ast.ImportedModule{{Name: "os"}}}
	class, target = r.classifyImport(external, "os")
	assert.Equal(t, ResolutionExternal, class)
	assert.Empty(t, target)

	relative := &ast.ImportDeclaration{RelativeLevel: 1, Names: []ast.ImportedName{{Name: "x"}}}
	class, _ = r.classifyImport(relative, ".")
	assert.Equal(t, ResolutionUnresolved, class)
}
