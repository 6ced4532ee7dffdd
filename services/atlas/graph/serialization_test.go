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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("/proj")
	require.NoError(t, g.AddNode(fileNode("a.py")))
	require.NoError(t, g.AddNode(fileNode("b.py")))
	require.NoError(t, g.AddNode(funcNode("a.py", "f")))
	require.NoError(t, g.AddNode(funcNode("b.py", "g")))
	require.NoError(t, g.AddEdge(FileNodeID("a.py"), MakeNodeID("a.py", "f"), EdgeTypeContains))
	require.NoError(t, g.AddEdge(FileNodeID("b.py"), MakeNodeID("b.py", "g"), EdgeTypeContains))
	require.NoError(t, g.AddEdge(MakeNodeID("a.py", "f"), MakeNodeID("b.py", "g"), EdgeTypeCalls))
	require.NoError(t, g.AddEdge(FileNodeID("a.py"), FileNodeID("b.py"), EdgeTypeImports))
	g.Freeze()
	return g
}

// TestSerialization_RoundTrip verifies marshal/unmarshal preserves the
// graph exactly.
func TestSerialization_RoundTrip(t *testing.T) {
	g := smallGraph(t)

	data, err := g.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)

	assert.True(t, restored.Frozen())
	assert.Equal(t, g.NodeCount(), restored.NodeCount())
	assert.Equal(t, g.EdgeCount(), restored.EdgeCount())
	assert.Equal(t, g.ProjectRoot(), restored.ProjectRoot())

	assert.True(t, restored.HasEdge(MakeNodeID("a.py", "f"), MakeNodeID("b.py", "g"), EdgeTypeCalls))

	// Adjacency is rebuilt, not persisted.
	incoming, outgoing, err := restored.Neighbors(MakeNodeID("b.py", "g"))
	require.NoError(t, err)
	assert.Len(t, incoming, 2)
	assert.Empty(t, outgoing)

	// The round trip is byte-stable.
	again, err := restored.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

// TestSerialization_Hash verifies equal graphs hash equal and any
// difference changes the hash.
func TestSerialization_Hash(t *testing.T) {
	h1, err := smallGraph(t).Hash()
	require.NoError(t, err)
	h2, err := smallGraph(t).Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	other := NewGraph("/proj")
	require.NoError(t, other.AddNode(fileNode("a.py")))
	other.Freeze()
	h3, err := other.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

// TestSerialization_RequiresFrozen verifies unfrozen graphs refuse to
// serialize.
func TestSerialization_RequiresFrozen(t *testing.T) {
	g := NewGraph("/proj")
	_, err := g.Marshal()
	assert.Error(t, err)
}

// TestSerialization_SchemaVersion verifies version checking on decode.
func TestSerialization_SchemaVersion(t *testing.T) {
	g := smallGraph(t)
	s, err := g.ToSerializable()
	require.NoError(t, err)

	s.SchemaVersion = SchemaVersion + 1
	_, err = FromSerializable(s)
	assert.ErrorContains(t, err, "schema version")
}

// TestSerialization_RangeAlwaysPresent verifies every serialized node
// carries its range field, including zero-valued file-node spans.
func TestSerialization_RangeAlwaysPresent(t *testing.T) {
	data, err := smallGraph(t).Marshal()
	require.NoError(t, err)

	var raw struct {
		Nodes []map[string]json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotEmpty(t, raw.Nodes)
	for _, node := range raw.Nodes {
		assert.Contains(t, node, "range")
	}
}
