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
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
)

// ModulePathForFile maps a project-relative file path to its Python
// module path: separators become dots, the source extension is
// stripped, and a package __init__ file collapses to the package path.
//
// Inputs:
//
//	relPath - file path relative to the project root, slash-separated.
//
// Outputs:
//
//	string - dotted module path (e.g. "pkg.helpers" for
//	         pkg/helpers.py, "pkg" for pkg/__init__.py). Empty for a
//	         root-level __init__.py.
func ModulePathForFile(relPath string) string {
	p := filepath.ToSlash(relPath)
	for _, ext := range []string{".py", ".pyi"} {
		if strings.HasSuffix(p, ext) {
			p = strings.TrimSuffix(p, ext)
			break
		}
	}
	if p == "__init__" {
		return ""
	}
	p = strings.TrimSuffix(p, "/__init__")
	return strings.ReplaceAll(p, "/", ".")
}

// moduleResolver maps module paths to project files for one scan.
//
// Thread Safety: Not safe for concurrent mutation. The builder
// populates it during merging and only reads it afterwards.
type moduleResolver struct {
	root string
	// byModule maps dotted module paths to canonical file paths.
	byModule map[string]string
}

func newModuleResolver(root string) *moduleResolver {
	return &moduleResolver{
		root:     root,
		byModule: make(map[string]string),
	}
}

// register records the module path for a scanned file. The first file
// registered for a module path wins; with sorted-order registration a
// package's __init__.py sorts before its sibling modules, so package
// imports resolve to the package file.
func (r *moduleResolver) register(canonicalPath string) {
	rel := canonicalPath
	if r.root != "" {
		if v, err := filepath.Rel(r.root, canonicalPath); err == nil {
			rel = v
		}
	}
	mod := ModulePathForFile(rel)
	if mod == "" {
		return
	}
	if _, exists := r.byModule[mod]; !exists {
		r.byModule[mod] = canonicalPath
	}
}

// resolve maps a dotted module path to a scanned file, if any.
func (r *moduleResolver) resolve(module string) (string, bool) {
	path, ok := r.byModule[module]
	return path, ok
}

// classifyImport determines how one imported module relates to the
// project.
//
// Outputs:
//
//	ResolutionClass - ResolutionInternal when the module maps to a
//	                  scanned file; ResolutionUnresolved for relative
//	                  imports (no resolution attempted); otherwise
//	                  ResolutionExternal.
//	string          - the target file path for internal resolutions.
func (r *moduleResolver) classifyImport(decl *ast.ImportDeclaration, module string) (ResolutionClass, string) {
	if decl.IsRelative() {
		return ResolutionUnresolved, ""
	}
	if path, ok := r.resolve(module); ok {
		return ResolutionInternal, path
	}
	return ResolutionExternal, ""
}
