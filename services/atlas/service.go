// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package atlas is the service layer for the project dependency graph.
//
// The service owns the scan lifecycle: it runs builds, publishes the
// resulting immutable graph and index atomically, and answers queries
// against whichever scan generation is current. Readers never observe
// a partially built graph; a failed or cancelled scan leaves the
// previous generation in place.
package atlas

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/config"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/discovery"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/graph"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/index"
)

// ScanResult is one published scan generation.
//
// All fields are immutable after publication.
type ScanResult struct {
	// ID identifies this scan generation.
	ID string `json:"id"`

	// Root is the scanned project directory.
	Root string `json:"root"`

	// CommitHash is the VCS revision at scan time, if the root is a
	// git checkout.
	CommitHash string `json:"commit_hash,omitempty"`

	// StartedAt and FinishedAt bound the scan (UTC).
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Graph is the frozen project graph.
	Graph *graph.Graph `json:"-"`

	// Index is the frozen symbol index for this generation.
	Index *index.SymbolIndex `json:"-"`

	// Result carries diagnostics and stats from the build.
	Result *graph.BuildResult `json:"-"`
}

// Service coordinates scans and serves graph queries.
//
// Thread Safety: Safe for concurrent use. Scans are serialized by a
// mutex; the published generation is swapped atomically.
type Service struct {
	cfg       config.Config
	builder   *graph.Builder
	snapshots *graph.SnapshotManager
	logger    *slog.Logger

	scanMu  sync.Mutex
	running atomic.Bool
	current atomic.Pointer[ScanResult]
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSnapshotManager enables snapshot persistence.
func WithSnapshotManager(m *graph.SnapshotManager) ServiceOption {
	return func(s *Service) { s.snapshots = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder replaces the default builder.
func WithBuilder(b *graph.Builder) ServiceOption {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// NewService creates the service from configuration.
func NewService(cfg config.Config, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = graph.NewBuilder(parserRegistry(cfg), builderOptions(cfg, s.logger)...)
	}
	return s
}

// parserRegistry builds the parser registry for scans, applying the
// configured per-file size cap when one is set.
func parserRegistry(cfg config.Config) *ast.ParserRegistry {
	if cfg.Scan.MaxFileSize <= 0 {
		return ast.DefaultRegistry()
	}
	registry := ast.NewParserRegistry()
	registry.Register(ast.NewPythonParser(ast.WithPythonMaxFileSize(cfg.Scan.MaxFileSize)))
	return registry
}

// builderOptions maps scan configuration onto builder options.
func builderOptions(cfg config.Config, logger *slog.Logger) []graph.BuilderOption {
	opts := []graph.BuilderOption{
		graph.WithWorkers(cfg.Scan.Workers),
		graph.WithLogger(logger),
	}
	var graphOpts []graph.GraphOption
	if cfg.Scan.MaxNodes > 0 {
		graphOpts = append(graphOpts, graph.WithMaxNodes(cfg.Scan.MaxNodes))
	}
	if cfg.Scan.MaxEdges > 0 {
		graphOpts = append(graphOpts, graph.WithMaxEdges(cfg.Scan.MaxEdges))
	}
	if len(graphOpts) > 0 {
		opts = append(opts, graph.WithGraphOptions(graphOpts...))
	}
	var discOpts []discovery.Option
	if len(cfg.Scan.Include) > 0 {
		discOpts = append(discOpts, discovery.WithIncludePatterns(cfg.Scan.Include))
	}
	if len(cfg.Scan.Ignore) > 0 {
		discOpts = append(discOpts, discovery.WithIgnoreRules(cfg.Scan.Ignore))
	}
	if len(discOpts) > 0 {
		opts = append(opts, graph.WithDiscoveryOptions(discOpts...))
	}
	return opts
}

// Scan runs a full project scan and publishes the result.
//
// Description:
//
//	Builds a fresh graph for the root and, if the build completes,
//	swaps it in as the current generation. An incomplete build leaves
//	the previous generation published.
//
// Outputs:
//
//	*ScanResult - the newly published generation.
//	error       - ErrScanInProgress when another scan is running, or
//	              the build error.
func (s *Service) Scan(ctx context.Context, root string) (*ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	started := time.Now().UTC()
	result, err := s.builder.Build(ctx, root)
	if err != nil {
		s.logger.Error("scan failed", "root", root, "error", err)
		return nil, err
	}
	if result.Incomplete {
		return nil, graph.ErrBuildCancelled
	}

	scan := &ScanResult{
		ID:         uuid.NewString(),
		Root:       result.Graph.ProjectRoot(),
		CommitHash: readCommitHash(result.Graph.ProjectRoot()),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Graph:      result.Graph,
		Index:      result.Index,
		Result:     result,
	}
	s.current.Store(scan)

	s.logger.Info("scan published",
		"scan_id", scan.ID,
		"root", scan.Root,
		"nodes", result.Stats.NodesCreated,
		"edges", result.Stats.EdgesCreated,
		"file_errors", len(result.FileErrors),
	)
	return scan, nil
}

// Rescan re-runs the scan for the current generation's root.
func (s *Service) Rescan(ctx context.Context) (*ScanResult, error) {
	cur := s.current.Load()
	if cur == nil {
		return nil, ErrNoScan
	}
	return s.Scan(ctx, cur.Root)
}

// Current returns the published scan generation, or ErrNoScan.
func (s *Service) Current() (*ScanResult, error) {
	cur := s.current.Load()
	if cur == nil {
		return nil, ErrNoScan
	}
	return cur, nil
}

// NodeByID looks up a node in the current graph.
func (s *Service) NodeByID(id string) (*graph.Node, error) {
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	node, ok := cur.Graph.GetNode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	return node, nil
}

// Neighbors returns a node's incoming and outgoing edges.
func (s *Service) Neighbors(id string) (incoming, outgoing []*graph.Edge, err error) {
	cur, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	return cur.Graph.Neighbors(id)
}

// SymbolsByName returns index entries matching a simple name.
func (s *Service) SymbolsByName(name string) ([]index.Entry, error) {
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	return cur.Index.GetByName(name), nil
}

// Diagnostics bundles every diagnostic from the current scan.
type Diagnostics struct {
	FileErrors        []graph.FileError        `json:"file_errors"`
	UnresolvedImports []graph.ImportResolution `json:"unresolved_imports"`
	UnresolvedCalls   []graph.UnresolvedCall   `json:"unresolved_calls"`
}

// Diagnostics returns the current scan's diagnostics report.
func (s *Service) Diagnostics() (*Diagnostics, error) {
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	return &Diagnostics{
		FileErrors:        cur.Result.FileErrors,
		UnresolvedImports: cur.Result.UnresolvedImports(),
		UnresolvedCalls:   cur.Result.UnresolvedCalls,
	}, nil
}

// Stats returns graph and build statistics for the current scan.
func (s *Service) Stats() (graph.GraphStats, graph.BuildStats, error) {
	cur, err := s.Current()
	if err != nil {
		return graph.GraphStats{}, graph.BuildStats{}, err
	}
	return cur.Graph.Stats(), cur.Result.Stats, nil
}

// Export serializes the current graph as deterministic JSON.
func (s *Service) Export() ([]byte, error) {
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	return cur.Graph.Marshal()
}

// ExternalModules summarizes external imports of the current scan,
// mapping each external module to the files importing it.
func (s *Service) ExternalModules() (map[string][]string, error) {
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, res := range cur.Result.Resolutions {
		if res.Class != graph.ResolutionExternal {
			continue
		}
		if seen[res.Module] == nil {
			seen[res.Module] = make(map[string]struct{})
		}
		if _, dup := seen[res.Module][res.FilePath]; dup {
			continue
		}
		seen[res.Module][res.FilePath] = struct{}{}
		out[res.Module] = append(out[res.Module], res.FilePath)
	}
	return out, nil
}

// SaveSnapshot persists the current graph.
func (s *Service) SaveSnapshot(ctx context.Context) (*graph.SnapshotMeta, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	cur, err := s.Current()
	if err != nil {
		return nil, err
	}
	return s.snapshots.Save(ctx, cur.Graph, cur.CommitHash)
}

// ListSnapshots returns stored snapshot metadata, newest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]graph.SnapshotMeta, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.List(ctx)
}

// LoadSnapshot reads a stored graph without publishing it.
func (s *Service) LoadSnapshot(ctx context.Context, id string) (*graph.Graph, *graph.SnapshotMeta, error) {
	if s.snapshots == nil {
		return nil, nil, ErrSnapshotsDisabled
	}
	return s.snapshots.Load(ctx, id)
}

// DeleteSnapshot removes a stored snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if s.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	return s.snapshots.Delete(ctx, id)
}

// readCommitHash resolves the git HEAD revision of a checkout without
// shelling out. Returns "" when the root is not a git work tree.
func readCommitHash(root string) string {
	head, err := os.ReadFile(filepath.Join(root, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	ref := strings.TrimSpace(string(head))
	if !strings.HasPrefix(ref, "ref: ") {
		// Detached HEAD holds the hash directly.
		return ref
	}
	refPath := strings.TrimPrefix(ref, "ref: ")
	data, err := os.ReadFile(filepath.Join(root, ".git", filepath.FromSlash(refPath)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
