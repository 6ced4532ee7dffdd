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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaVersion identifies the serialized graph format. Bump on any
// incompatible change to SerializableGraph.
const SchemaVersion = 1

// SerializableGraph is the wire form of a frozen graph.
//
// Nodes are sorted by ID and edges by (from, to, type), so the encoded
// bytes are identical for identical graphs. That property backs both
// snapshot deduplication and the content hash.
type SerializableGraph struct {
	SchemaVersion int               `json:"schema_version"`
	ProjectRoot   string            `json:"project_root"`
	Nodes         []*Node           `json:"nodes"`
	Edges         []*Edge           `json:"edges"`
	Provenance    map[string]string `json:"provenance,omitempty"`
	Stats         GraphStats        `json:"stats"`
}

// ToSerializable converts a graph to its deterministic wire form.
//
// Outputs:
//
//	*SerializableGraph - nodes sorted by ID, edges sorted by
//	                     (from, to, type).
//	error              - ErrGraphFrozen inverted: the graph must be
//	                     frozen first so the content is final.
func (g *Graph) ToSerializable() (*SerializableGraph, error) {
	if !g.Frozen() {
		return nil, fmt.Errorf("serialize: graph must be frozen")
	}

	nodes := g.Nodes() // already sorted by ID

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromID != edges[j].FromID {
			return edges[i].FromID < edges[j].FromID
		}
		if edges[i].ToID != edges[j].ToID {
			return edges[i].ToID < edges[j].ToID
		}
		return edges[i].Type < edges[j].Type
	})

	provenance := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if file, ok := g.Provenance(n.ID); ok {
			provenance[n.ID] = file
		}
	}

	return &SerializableGraph{
		SchemaVersion: SchemaVersion,
		ProjectRoot:   g.ProjectRoot(),
		Nodes:         nodes,
		Edges:         edges,
		Provenance:    provenance,
		Stats:         g.Stats(),
	}, nil
}

// Marshal encodes the graph as deterministic JSON.
func (g *Graph) Marshal() ([]byte, error) {
	s, err := g.ToSerializable()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Hash returns the hex SHA-256 of the deterministic encoding. Equal
// graphs hash equal; any node or edge difference changes the hash.
func (g *Graph) Hash() (string, error) {
	data, err := g.Marshal()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FromSerializable rebuilds a frozen graph from its wire form.
//
// Outputs:
//
//	*Graph - frozen, with all secondary indexes rebuilt.
//	error  - schema mismatch, invalid nodes, or dangling edges.
func FromSerializable(s *SerializableGraph) (*Graph, error) {
	if s == nil {
		return nil, fmt.Errorf("deserialize: nil graph")
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("deserialize: unsupported schema version %d (want %d)",
			s.SchemaVersion, SchemaVersion)
	}

	g := NewGraph(s.ProjectRoot,
		WithMaxNodes(maxInt(DefaultMaxNodes, len(s.Nodes))),
		WithMaxEdges(maxInt(DefaultMaxEdges, len(s.Edges))),
	)

	for _, n := range s.Nodes {
		// Adjacency is rebuilt from the edge list.
		node := &Node{
			ID:       n.ID,
			Name:     n.Name,
			Kind:     n.Kind,
			Language: n.Language,
			FilePath: n.FilePath,
			Range:    n.Range,
		}
		if err := g.AddNode(node); err != nil {
			return nil, fmt.Errorf("deserialize node %s: %w", n.ID, err)
		}
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e.FromID, e.ToID, e.Type); err != nil {
			return nil, fmt.Errorf("deserialize edge %s -> %s: %w", e.FromID, e.ToID, err)
		}
	}

	g.Freeze()
	return g, nil
}

// Unmarshal decodes deterministic JSON back into a frozen graph.
func Unmarshal(data []byte) (*Graph, error) {
	var s SerializableGraph
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	return FromSerializable(&s)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
