// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package atlas

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/config"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/graph"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/storage/badger"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func sampleProject(t *testing.T) string {
	t.Helper()
	return writeProject(t, map[string]string{
		"util.py": "def helper():\n    pass\n",
		"app.py":  "from util import helper\n\ndef run():\n    helper()\n",
	})
}

// TestService_ScanAndQuery verifies the scan lifecycle and queries
// against the published generation.
func TestService_ScanAndQuery(t *testing.T) {
	service := NewService(config.Default())
	ctx := context.Background()

	_, err := service.Current()
	assert.ErrorIs(t, err, ErrNoScan)
	_, err = service.Rescan(ctx)
	assert.ErrorIs(t, err, ErrNoScan)

	root := sampleProject(t)
	scan, err := service.Scan(ctx, root)
	require.NoError(t, err)
	assert.NotEmpty(t, scan.ID)
	assert.True(t, scan.Graph.Frozen())

	cur, err := service.Current()
	require.NoError(t, err)
	assert.Equal(t, scan.ID, cur.ID)

	node, err := service.NodeByID(graph.MakeNodeID(filepath.Join(root, "util.py"), "helper"))
	require.NoError(t, err)
	assert.Equal(t, "helper", node.Name)

	_, err = service.NodeByID("missing")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	entries, err := service.SymbolsByName("helper")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "util", entries[0].Module)

	incoming, outgoing, err := service.Neighbors(graph.MakeNodeID(filepath.Join(root, "util.py"), "helper"))
	require.NoError(t, err)
	assert.NotEmpty(t, incoming)
	assert.Empty(t, outgoing)

	data, err := service.Export()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	diags, err := service.Diagnostics()
	require.NoError(t, err)
	assert.Empty(t, diags.FileErrors)
	assert.Empty(t, diags.UnresolvedCalls)
}

// TestService_RescanPublishesNewGeneration verifies a rescan swaps in a
// new generation reflecting file changes.
func TestService_RescanPublishesNewGeneration(t *testing.T) {
	service := NewService(config.Default())
	ctx := context.Background()

	root := sampleProject(t)
	first, err := service.Scan(ctx, root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.py"),
		[]byte("def added():\n    pass\n"), 0o644))

	second, err := service.Rescan(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	cur, err := service.Current()
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.ID)

	_, err = service.NodeByID(graph.MakeNodeID(filepath.Join(root, "extra.py"), "added"))
	assert.NoError(t, err)

	// The first generation is untouched; readers holding it keep a
	// consistent view.
	_, ok := first.Graph.GetNode(graph.MakeNodeID(filepath.Join(root, "extra.py"), "added"))
	assert.False(t, ok)
}

// TestService_FailedScanKeepsPrevious verifies a failing scan leaves
// the published generation in place.
func TestService_FailedScanKeepsPrevious(t *testing.T) {
	service := NewService(config.Default())
	ctx := context.Background()

	root := sampleProject(t)
	scan, err := service.Scan(ctx, root)
	require.NoError(t, err)

	_, err = service.Scan(ctx, filepath.Join(root, "does-not-exist"))
	require.Error(t, err)

	cur, err := service.Current()
	require.NoError(t, err)
	assert.Equal(t, scan.ID, cur.ID)
}

// TestService_ExternalModules verifies the external import summary.
func TestService_ExternalModules(t *testing.T) {
	service := NewService(config.Default())
	root := writeProject(t, map[string]string{
		"a.py": "import os\nimport numpy as np\n",
		"b.py": "import os\n",
	})

	_, err := service.Scan(context.Background(), root)
	require.NoError(t, err)

	mods, err := service.ExternalModules()
	require.NoError(t, err)
	assert.Len(t, mods["os"], 2)
	assert.Len(t, mods["numpy"], 1)
}

// TestService_Snapshots verifies the snapshot round trip through the
// service layer.
func TestService_Snapshots(t *testing.T) {
	db, err := badger.OpenDB(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	manager, err := graph.NewSnapshotManager(db)
	require.NoError(t, err)

	service := NewService(config.Default(), WithSnapshotManager(manager))
	ctx := context.Background()

	_, err = service.SaveSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = service.Scan(ctx, sampleProject(t))
	require.NoError(t, err)

	meta, err := service.SaveSnapshot(ctx)
	require.NoError(t, err)

	metas, err := service.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)

	restored, loadedMeta, err := service.LoadSnapshot(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.GraphHash, loadedMeta.GraphHash)
	assert.True(t, restored.Frozen())

	require.NoError(t, service.DeleteSnapshot(ctx, meta.ID))
	metas, err = service.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

// TestService_SnapshotsDisabled verifies the sentinel when no manager
// is configured.
func TestService_SnapshotsDisabled(t *testing.T) {
	service := NewService(config.Default())
	ctx := context.Background()

	_, err := service.SaveSnapshot(ctx)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
	_, err = service.ListSnapshots(ctx)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
	assert.ErrorIs(t, service.DeleteSnapshot(ctx, "x"), ErrSnapshotsDisabled)
}

// TestService_MaxFileSizeConfig verifies the configured per-file size
// cap reaches the parser and oversized files become read diagnostics.
func TestService_MaxFileSizeConfig(t *testing.T) {
	root := writeProject(t, map[string]string{
		"big.py":   "def helper():\n    return 1\n",
		"small.py": "x = 1\n",
	})
	cfg := config.Default()
	cfg.Scan.MaxFileSize = 10

	service := NewService(cfg)
	scan, err := service.Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, scan.Result.FileErrors, 1)
	fe := scan.Result.FileErrors[0]
	assert.Equal(t, graph.FileErrorRead, fe.Kind)
	assert.ErrorIs(t, fe.Err, ast.ErrFileTooLarge)
	assert.Equal(t, filepath.Join(root, "big.py"), fe.FilePath)

	// The file under the cap still parsed.
	assert.Equal(t, 1, scan.Result.Stats.FilesParsed)
}
