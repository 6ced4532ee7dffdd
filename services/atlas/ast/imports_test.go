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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseImports(t *testing.T, source string) []ImportDeclaration {
	t.Helper()
	result := parsePython(t, source)
	require.Empty(t, result.Errors)
	return result.Imports
}

// TestImports_Plain verifies "import os".
func TestImports_Plain(t *testing.T) {
	decls := parseImports(t, "import os\n")
	require.Len(t, decls, 1)

	d := decls[0]
	assert.False(t, d.IsFromImport())
	assert.False(t, d.IsRelative())
	require.Len(t, d.Modules, 1)
	assert.Equal(t, "os", d.Modules[0].Name)
	assert.Empty(t, d.Modules[0].Alias)
	require.NoError(t, d.Validate())
}

// TestImports_Dotted verifies "import os.path".
func TestImports_Dotted(t *testing.T) {
	decls := parseImports(t, "import os.path\n")
	require.Len(t, decls, 1)
	require.Len(t, decls[0].Modules, 1)
	assert.Equal(t, "os.path", decls[0].Modules[0].Name)
}

// TestImports_MultiModule verifies "import os, sys, numpy as np" keeps
// every module with its own alias state.
func TestImports_MultiModule(t *testing.T) {
	decls := parseImports(t, "import os, sys, numpy as np\n")
	require.Len(t, decls, 1)

	d := decls[0]
	require.Len(t, d.Modules, 3)
	assert.Equal(t, ImportedModule{Name: "os"}, d.Modules[0])
	assert.Equal(t, ImportedModule{Name: "sys"}, d.Modules[1])
	assert.Equal(t, ImportedModule{Name: "numpy", Alias: "np"}, d.Modules[2])
	require.NoError(t, d.Validate())
}

// TestImports_Aliased verifies "import numpy as np".
func TestImports_Aliased(t *testing.T) {
	decls := parseImports(t, "import numpy as np\n")
	require.Len(t, decls, 1)
	require.Len(t, decls[0].Modules, 1)
	assert.Equal(t, "numpy", decls[0].Modules[0].Name)
	assert.Equal(t, "np", decls[0].Modules[0].Alias)
}

// TestImports_From verifies "from os import path, sep".
func TestImports_From(t *testing.T) {
	decls := parseImports(t, "from os import path, sep\n")
	require.Len(t, decls, 1)

	d := decls[0]
	assert.True(t, d.IsFromImport())
	assert.False(t, d.IsRelative())
	assert.Equal(t, "os", d.Module)
	require.Len(t, d.Names, 2)
	assert.Equal(t, "path", d.Names[0].Name)
	assert.Equal(t, "sep", d.Names[1].Name)
	assert.True(t, d.BindsName("path"))
	assert.True(t, d.BindsName("sep"))
	assert.False(t, d.BindsName("os"))
	require.NoError(t, d.Validate())
}

// TestImports_FromAliased verifies "from os import path as p".
func TestImports_FromAliased(t *testing.T) {
	decls := parseImports(t, "from os import path as p\n")
	require.Len(t, decls, 1)

	d := decls[0]
	require.Len(t, d.Names, 1)
	assert.Equal(t, "path", d.Names[0].Name)
	assert.Equal(t, "p", d.Names[0].Alias)

	// The alias is the binding, not the source name.
	assert.True(t, d.BindsName("p"))
	assert.False(t, d.BindsName("path"))
}

// TestImports_Wildcard verifies "from module import *".
func TestImports_Wildcard(t *testing.T) {
	decls := parseImports(t, "from collections import *\n")
	require.Len(t, decls, 1)

	d := decls[0]
	assert.True(t, d.IsFromImport())
	assert.True(t, d.HasWildcard())
	assert.Equal(t, "collections", d.Module)

	// Star imports bind no individual names.
	assert.False(t, d.BindsName("anything"))
	require.NoError(t, d.Validate())
}

// TestImports_Relative verifies relative from imports at each depth.
func TestImports_Relative(t *testing.T) {
	t.Run("from . import helper", func(t *testing.T) {
		decls := parseImports(t, "from . import helper\n")
		require.Len(t, decls, 1)

		d := decls[0]
		assert.True(t, d.IsRelative())
		assert.Equal(t, 1, d.RelativeLevel)
		assert.Empty(t, d.Module)
		require.Len(t, d.Names, 1)
		assert.Equal(t, "helper", d.Names[0].Name)
		require.NoError(t, d.Validate())
	})

	t.Run("from ..pkg.mod import thing", func(t *testing.T) {
		decls := parseImports(t, "from ..pkg.mod import thing\n")
		require.Len(t, decls, 1)

		d := decls[0]
		assert.True(t, d.IsRelative())
		assert.Equal(t, 2, d.RelativeLevel)
		assert.Equal(t, "pkg.mod", d.Module)
		require.Len(t, d.Names, 1)
		assert.Equal(t, "thing", d.Names[0].Name)
	})
}

// TestImports_SourceOrder verifies declarations keep file order, which
// cross-file resolution depends on.
func TestImports_SourceOrder(t *testing.T) {
	source := `import os
from collections import OrderedDict
import sys
from . import sibling
`
	decls := parseImports(t, source)
	require.Len(t, decls, 4)
	assert.Equal(t, "os", decls[0].Modules[0].Name)
	assert.Equal(t, "collections", decls[1].Module)
	assert.Equal(t, "sys", decls[2].Modules[0].Name)
	assert.True(t, decls[3].IsRelative())

	for i := range decls {
		assert.Greater(t, decls[i].Range.StartLine, i, "ranges follow source order")
	}
}
