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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
)

// NodeKind identifies the kind of entity a graph node represents.
type NodeKind int

const (
	// NodeKindUnknown is the zero value.
	NodeKindUnknown NodeKind = iota

	// NodeKindFile is a source file.
	NodeKindFile

	// NodeKindModule is an external or package-level module reference.
	NodeKindModule

	// NodeKindClass is a class definition.
	NodeKindClass

	// NodeKindFunction is a function definition.
	NodeKindFunction

	// NodeKindGlobalVariable is a module-level variable.
	NodeKindGlobalVariable
)

var nodeKindNames = map[NodeKind]string{
	NodeKindUnknown:        "unknown",
	NodeKindFile:           "file",
	NodeKindModule:         "module",
	NodeKindClass:          "class",
	NodeKindFunction:       "function",
	NodeKindGlobalVariable: "global_variable",
}

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// MarshalJSON encodes the kind as its string name.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its string name. Unknown names
// decode to NodeKindUnknown rather than failing.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("node kind must be a string: %w", err)
	}
	for kind, name := range nodeKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	*k = NodeKindUnknown
	return nil
}

// KindForDefinition maps a parse-level definition kind to a node kind.
func KindForDefinition(kind ast.DefinitionKind) NodeKind {
	switch kind {
	case ast.DefFunction:
		return NodeKindFunction
	case ast.DefClass:
		return NodeKindClass
	case ast.DefGlobalVariable:
		return NodeKindGlobalVariable
	default:
		return NodeKindUnknown
	}
}

// EdgeType identifies the relationship an edge represents.
type EdgeType int

const (
	// EdgeTypeContains connects a file node to a definition it contains.
	EdgeTypeContains EdgeType = iota

	// EdgeTypeCalls connects a caller to a callee.
	EdgeTypeCalls

	// EdgeTypeImports connects an importing file to an imported file.
	EdgeTypeImports

	// EdgeTypeInherits connects a class to a base class.
	EdgeTypeInherits

	// NumEdgeTypes is a sentinel for sizing per-type indexes.
	// New edge types must be added above this line.
	NumEdgeTypes
)

var edgeTypeNames = map[EdgeType]string{
	EdgeTypeContains: "contains",
	EdgeTypeCalls:    "calls",
	EdgeTypeImports:  "imports",
	EdgeTypeInherits: "inherits",
}

// String returns the string representation of the edge type.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EdgeType(%d)", int(t))
}

// MarshalJSON encodes the type as its string name.
func (t EdgeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the type from its string name.
func (t *EdgeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("edge type must be a string: %w", err)
	}
	for typ, name := range edgeTypeNames {
		if name == s {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown edge type %q", s)
}

// nodeIDSeparator joins the canonical file path and the qualified name.
const nodeIDSeparator = "::"

// MakeNodeID derives the global identifier for a symbol.
//
// The identifier embeds the canonical file path, so two files defining
// same-named symbols can never collide, and re-parsing the same file
// always reproduces the same identifiers.
func MakeNodeID(canonicalPath, qualifiedName string) string {
	return canonicalPath + nodeIDSeparator + qualifiedName
}

// FileNodeID derives the global identifier for a file node, which is
// its canonical path.
func FileNodeID(canonicalPath string) string {
	return canonicalPath
}

// SplitNodeID splits a symbol node ID into its path and qualified name.
// File node IDs return (path, "").
func SplitNodeID(id string) (path, qualifiedName string) {
	if idx := strings.Index(id, nodeIDSeparator); idx >= 0 {
		return id[:idx], id[idx+len(nodeIDSeparator):]
	}
	return id, ""
}

// Node is a vertex in the project graph.
//
// Nodes must not be mutated after being added to a graph.
type Node struct {
	// ID is the globally stable identifier (see MakeNodeID).
	ID string `json:"id"`

	// Name is the simple name of the entity (file base name for files).
	Name string `json:"name"`

	// Kind classifies the node.
	Kind NodeKind `json:"kind"`

	// Language is the source language tag (e.g. "python").
	Language string `json:"language,omitempty"`

	// FilePath is the canonical path of the defining file.
	FilePath string `json:"file_path"`

	// Range is the statement-level span of the definition. Zero for
	// file nodes.
	Range ast.SourceRange `json:"range"`

	// Outgoing and Incoming are adjacency lists maintained by the graph.
	Outgoing []*Edge `json:"-"`
	Incoming []*Edge `json:"-"`
}

// Validate checks that the node is well-formed.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidNode)
	}
	if n.Name == "" {
		return fmt.Errorf("%w: empty name for %s", ErrInvalidNode, n.ID)
	}
	if n.Kind == NodeKindUnknown {
		return fmt.Errorf("%w: unknown kind for %s", ErrInvalidNode, n.ID)
	}
	if n.FilePath == "" {
		return fmt.Errorf("%w: empty file path for %s", ErrInvalidNode, n.ID)
	}
	return nil
}

// Edge is a directed relationship between two nodes.
//
// Edges only ever reference node identifiers that exist in the graph; an
// unresolvable reference is recorded as a diagnostic, never as a
// dangling edge.
type Edge struct {
	// FromID is the source node ID.
	FromID string `json:"from_id"`

	// ToID is the target node ID.
	ToID string `json:"to_id"`

	// Type is the relationship kind.
	Type EdgeType `json:"type"`
}

// edgeKey is the dedup key for an edge.
func edgeKey(fromID, toID string, t EdgeType) string {
	return fromID + "\x00" + toID + "\x00" + t.String()
}

// Graph is the merged project dependency graph.
//
// Description:
//
//	Graph holds the deduplicated, globally identified node set and edge
//	set produced by merging per-file parse results, together with a
//	provenance map (node ID -> defining file) and a reverse file map
//	(canonical path -> file node).
//
// Lifecycle:
//
//  1. Create with NewGraph(projectRoot)
//  2. Build with AddNode() and AddEdge() calls
//  3. Call Freeze() to finalize
//  4. Query from any number of goroutines
//
// Thread Safety:
//
//	NOT safe for concurrent use during building (single-writer). After
//	Freeze() the graph is immutable and safe for concurrent reads.
type Graph struct {
	projectRoot string
	frozen      bool

	nodes map[string]*Node
	edges []*Edge

	// Secondary indexes, maintained on insert.
	nodesByName map[string][]*Node
	nodesByKind map[NodeKind][]*Node
	edgesByType [NumEdgeTypes][]*Edge
	edgeKeys    map[string]struct{}

	// provenance maps every node ID to the file that produced it.
	provenance map[string]string

	// fileNodes maps canonical file paths to their file node IDs.
	fileNodes map[string]string

	maxNodes int
	maxEdges int
}

// Default capacity limits. A million nodes is far beyond any project
// this engine is pointed at; the caps exist to catch runaway inputs.
const (
	DefaultMaxNodes = 1_000_000
	DefaultMaxEdges = 5_000_000
)

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithMaxNodes sets the maximum node capacity. Values <= 0 are ignored.
func WithMaxNodes(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.maxNodes = n
		}
	}
}

// WithMaxEdges sets the maximum edge capacity. Values <= 0 are ignored.
func WithMaxEdges(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.maxEdges = n
		}
	}
}

// NewGraph creates an empty, unfrozen graph for the given project root.
func NewGraph(projectRoot string, opts ...GraphOption) *Graph {
	g := &Graph{
		projectRoot: projectRoot,
		nodes:       make(map[string]*Node),
		nodesByName: make(map[string][]*Node),
		nodesByKind: make(map[NodeKind][]*Node),
		edgeKeys:    make(map[string]struct{}),
		provenance:  make(map[string]string),
		fileNodes:   make(map[string]string),
		maxNodes:    DefaultMaxNodes,
		maxEdges:    DefaultMaxEdges,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProjectRoot returns the project root the graph was built from.
func (g *Graph) ProjectRoot() string {
	return g.projectRoot
}

// Frozen reports whether the graph has been finalized.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// Freeze finalizes the graph. After Freeze, all mutation attempts fail
// with ErrGraphFrozen and the graph is safe for concurrent reads.
func (g *Graph) Freeze() {
	g.frozen = true
}

// AddNode inserts a node into the graph.
//
// Outputs:
//
//	error - ErrGraphFrozen after Freeze; ErrInvalidNode for nil or
//	        malformed nodes; ErrDuplicateNode if the ID already exists;
//	        ErrMaxNodesExceeded at capacity.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) AddNode(node *Node) error {
	if g.frozen {
		return ErrGraphFrozen
	}
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}
	if len(g.nodes) >= g.maxNodes {
		return fmt.Errorf("%w: %d", ErrMaxNodesExceeded, g.maxNodes)
	}

	g.nodes[node.ID] = node
	g.nodesByName[node.Name] = append(g.nodesByName[node.Name], node)
	g.nodesByKind[node.Kind] = append(g.nodesByKind[node.Kind], node)
	g.provenance[node.ID] = node.FilePath
	if node.Kind == NodeKindFile {
		g.fileNodes[node.FilePath] = node.ID
	}
	return nil
}

// AddEdge inserts a directed edge. Both endpoints must already exist.
// An edge identical to an existing one (same endpoints and type) is
// silently skipped, which keeps merging idempotent.
//
// Outputs:
//
//	error - ErrGraphFrozen after Freeze; ErrNodeNotFound if either
//	        endpoint is missing; ErrMaxEdgesExceeded at capacity.
//
// Thread Safety: NOT safe for concurrent use.
func (g *Graph) AddEdge(fromID, toID string, t EdgeType) error {
	if g.frozen {
		return ErrGraphFrozen
	}
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, toID)
	}

	key := edgeKey(fromID, toID, t)
	if _, dup := g.edgeKeys[key]; dup {
		return nil
	}
	if len(g.edges) >= g.maxEdges {
		return fmt.Errorf("%w: %d", ErrMaxEdgesExceeded, g.maxEdges)
	}

	edge := &Edge{FromID: fromID, ToID: toID, Type: t}
	g.edges = append(g.edges, edge)
	g.edgeKeys[key] = struct{}{}
	g.edgesByType[t] = append(g.edgesByType[t], edge)
	from.Outgoing = append(from.Outgoing, edge)
	to.Incoming = append(to.Incoming, edge)
	return nil
}

// HasEdge reports whether an identical edge already exists.
func (g *Graph) HasEdge(fromID, toID string, t EdgeType) bool {
	_, ok := g.edgeKeys[edgeKey(fromID, toID, t)]
	return ok
}

// GetNode returns the node with the given ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// GetNodesByName returns all nodes with the given simple name.
// The returned slice is a copy.
func (g *Graph) GetNodesByName(name string) []*Node {
	return copyNodes(g.nodesByName[name])
}

// GetNodesByKind returns all nodes of the given kind.
// The returned slice is a copy.
func (g *Graph) GetNodesByKind(kind NodeKind) []*Node {
	return copyNodes(g.nodesByKind[kind])
}

// GetFileNode returns the file node for a canonical path.
func (g *Graph) GetFileNode(canonicalPath string) (*Node, bool) {
	id, ok := g.fileNodes[canonicalPath]
	if !ok {
		return nil, false
	}
	node, ok := g.nodes[id]
	return node, ok
}

// Provenance returns the defining file for a node ID.
func (g *Graph) Provenance(id string) (string, bool) {
	path, ok := g.provenance[id]
	return path, ok
}

// FilePaths returns the canonical paths of every file node, sorted.
func (g *Graph) FilePaths() []string {
	paths := make([]string, 0, len(g.fileNodes))
	for p := range g.fileNodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Nodes returns all nodes sorted by ID. The slice is a copy.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges in insertion order. The slice is a copy.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// EdgesByType returns all edges of the given type. The slice is a copy.
func (g *Graph) EdgesByType(t EdgeType) []*Edge {
	if t < 0 || t >= NumEdgeTypes {
		return nil
	}
	edges := make([]*Edge, len(g.edgesByType[t]))
	copy(edges, g.edgesByType[t])
	return edges
}

// Neighbors returns the inbound and outbound edges of a node.
//
// Outputs:
//
//	incoming, outgoing - Copies of the node's adjacency lists.
//	error - ErrNodeNotFound if the node does not exist.
func (g *Graph) Neighbors(id string) (incoming, outgoing []*Edge, err error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	incoming = make([]*Edge, len(node.Incoming))
	copy(incoming, node.Incoming)
	outgoing = make([]*Edge, len(node.Outgoing))
	copy(outgoing, node.Outgoing)
	return incoming, outgoing, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// GraphStats summarizes graph contents.
type GraphStats struct {
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	FileCount   int            `json:"file_count"`
	NodesByKind map[string]int `json:"nodes_by_kind"`
	EdgesByType map[string]int `json:"edges_by_type"`
	Frozen      bool           `json:"frozen"`
}

// Stats returns summary statistics for the graph.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		FileCount:   len(g.fileNodes),
		NodesByKind: make(map[string]int),
		EdgesByType: make(map[string]int),
		Frozen:      g.frozen,
	}
	for kind, nodes := range g.nodesByKind {
		if len(nodes) > 0 {
			stats.NodesByKind[kind.String()] = len(nodes)
		}
	}
	for t := EdgeType(0); t < NumEdgeTypes; t++ {
		if len(g.edgesByType[t]) > 0 {
			stats.EdgesByType[t.String()] = len(g.edgesByType[t])
		}
	}
	return stats
}

func copyNodes(nodes []*Node) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	return out
}
