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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/storage/badger"
)

func testSnapshotManager(t *testing.T) *SnapshotManager {
	t.Helper()
	db, err := badger.OpenDB(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := NewSnapshotManager(db)
	require.NoError(t, err)
	return m
}

// TestSnapshotManager_SaveLoad verifies the persist/restore cycle.
func TestSnapshotManager_SaveLoad(t *testing.T) {
	m := testSnapshotManager(t)
	ctx := context.Background()
	g := smallGraph(t)

	meta, err := m.Save(ctx, g, "abc123")
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "abc123", meta.CommitHash)
	assert.Equal(t, g.NodeCount(), meta.NodeCount)
	assert.Equal(t, g.EdgeCount(), meta.EdgeCount)

	wantHash, err := g.Hash()
	require.NoError(t, err)
	assert.Equal(t, wantHash, meta.GraphHash)

	restored, loadedMeta, err := m.Load(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, loadedMeta.ID)

	gotHash, err := restored.Hash()
	require.NoError(t, err)
	assert.Equal(t, wantHash, gotHash, "restored graph is content-identical")
}

// TestSnapshotManager_ListDelete verifies listing order and deletion.
func TestSnapshotManager_ListDelete(t *testing.T) {
	m := testSnapshotManager(t)
	ctx := context.Background()
	g := smallGraph(t)

	first, err := m.Save(ctx, g, "")
	require.NoError(t, err)
	second, err := m.Save(ctx, g, "")
	require.NoError(t, err)

	metas, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	require.NoError(t, m.Delete(ctx, first.ID))
	metas, err = m.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, second.ID, metas[0].ID)

	err = m.Delete(ctx, first.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

// TestSnapshotManager_LoadMissing verifies the not-found sentinel.
func TestSnapshotManager_LoadMissing(t *testing.T) {
	m := testSnapshotManager(t)
	_, _, err := m.Load(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

// TestSnapshotManager_RejectsUnfrozen verifies only frozen graphs can
// be persisted.
func TestSnapshotManager_RejectsUnfrozen(t *testing.T) {
	m := testSnapshotManager(t)
	_, err := m.Save(context.Background(), NewGraph("/proj"), "")
	assert.Error(t, err)
}
