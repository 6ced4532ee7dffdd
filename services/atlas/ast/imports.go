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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Import extraction is lossless and resolution-free: every observable
// detail of the source syntax (aliases, multiple names per statement,
// wildcard markers, relative-import depth) is captured so that
// resolution never needs to re-inspect the file.
//
// Covered variants:
//
//	import os                      -> Modules: [{os}]
//	import os, sys                 -> Modules: [{os}, {sys}]
//	import numpy as np             -> Modules: [{numpy, np}]
//	from os import path            -> Module: os, Names: [{path}]
//	from os import path as p       -> Module: os, Names: [{path, p}]
//	from os import path, sep       -> Module: os, Names: [{path}, {sep}]
//	from module import *           -> Module: module, Names: [{IsWildcard}]
//	from . import helper           -> RelativeLevel: 1, Names: [{helper}]
//	from ..pkg import thing        -> RelativeLevel: 2, Module: pkg, Names: [{thing}]

// extractImportStatement converts an import_statement node to a direct
// ImportDeclaration. Returns nil if no module names could be read
// (malformed source).
func extractImportStatement(stmt *sitter.Node, content []byte) *ImportDeclaration {
	decl := &ImportDeclaration{
		Range: nodeRange(stmt),
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case pyNodeDottedName:
			decl.Modules = append(decl.Modules, ImportedModule{
				Name: child.Content(content),
			})
		case pyNodeAliasedImport:
			mod := importedModuleFromAlias(child, content)
			if mod.Name != "" {
				decl.Modules = append(decl.Modules, mod)
			}
		}
	}

	if len(decl.Modules) == 0 {
		return nil
	}
	return decl
}

// extractImportFromStatement converts an import_from_statement node to a
// from-form ImportDeclaration. Returns nil if neither a module nor any
// name could be read (malformed source).
func extractImportFromStatement(stmt *sitter.Node, content []byte) *ImportDeclaration {
	decl := &ImportDeclaration{
		Range: nodeRange(stmt),
	}

	moduleNode := stmt.ChildByFieldName("module_name")
	if moduleNode != nil {
		switch moduleNode.Type() {
		case pyNodeDottedName:
			decl.Module = moduleNode.Content(content)
		case pyNodeRelativeImport:
			decl.RelativeLevel, decl.Module = splitRelativeImport(moduleNode, content)
		}
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			// Skip the module_name child itself.
			continue
		}
		switch child.Type() {
		case pyNodeWildcardImport:
			decl.Names = append(decl.Names, ImportedName{IsWildcard: true})
		case pyNodeDottedName:
			decl.Names = append(decl.Names, ImportedName{
				Name: child.Content(content),
			})
		case pyNodeAliasedImport:
			mod := importedModuleFromAlias(child, content)
			if mod.Name != "" {
				decl.Names = append(decl.Names, ImportedName{
					Name:  mod.Name,
					Alias: mod.Alias,
				})
			}
		}
	}

	if decl.Module == "" && decl.RelativeLevel == 0 && len(decl.Names) == 0 {
		return nil
	}
	return decl
}

// importedModuleFromAlias reads an aliased_import node ("name as alias").
func importedModuleFromAlias(node *sitter.Node, content []byte) ImportedModule {
	var mod ImportedModule
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		mod.Name = nameNode.Content(content)
	}
	if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
		mod.Alias = aliasNode.Content(content)
	}
	return mod
}

// splitRelativeImport reads a relative_import node, returning the number
// of leading dots and the optional trailing module path.
//
// "from . import x"      -> (1, "")
// "from ..pkg import x"  -> (2, "pkg")
func splitRelativeImport(node *sitter.Node, content []byte) (level int, module string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeImportPrefix:
			level += strings.Count(child.Content(content), ".")
		case pyNodeDottedName:
			module = child.Content(content)
		}
	}
	return level, module
}
