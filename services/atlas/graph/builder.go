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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianAtlas/services/atlas/ast"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/discovery"
	"github.com/AleutianAI/AleutianAtlas/services/atlas/index"
)

// Builder orchestrates a full project scan: discovery, parallel
// parsing, deterministic merging, index construction and cross-file
// resolution.
//
// Description:
//
//	A Builder is configured once and may run any number of builds.
//	Each Build call produces a fresh frozen Graph and SymbolIndex;
//	nothing is shared between builds. Parsing runs on a bounded worker
//	pool; merging and resolution are sequential over results sorted by
//	canonical path, which makes the output independent of parse
//	completion order.
//
// Thread Safety: Safe for concurrent use; Build does not mutate the
// receiver.
type Builder struct {
	registry     *ast.ParserRegistry
	workers      int
	graphOpts    []GraphOption
	indexOpts    []index.IndexOption
	discoverOpts []discovery.Option
	logger       *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets the parse worker count. Values <= 0 keep the
// default (GOMAXPROCS).
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithGraphOptions forwards options to each build's Graph.
func WithGraphOptions(opts ...GraphOption) BuilderOption {
	return func(b *Builder) {
		b.graphOpts = append(b.graphOpts, opts...)
	}
}

// WithIndexOptions forwards options to each build's SymbolIndex.
func WithIndexOptions(opts ...index.IndexOption) BuilderOption {
	return func(b *Builder) {
		b.indexOpts = append(b.indexOpts, opts...)
	}
}

// WithDiscoveryOptions forwards options to file discovery.
func WithDiscoveryOptions(opts ...discovery.Option) BuilderOption {
	return func(b *Builder) {
		b.discoverOpts = append(b.discoverOpts, opts...)
	}
}

// WithLogger sets the structured logger used during builds.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder. A nil registry gets the default
// registry with the Python parser registered.
func NewBuilder(registry *ast.ParserRegistry, opts ...BuilderOption) *Builder {
	if registry == nil {
		registry = ast.DefaultRegistry()
	}
	b := &Builder{
		registry: registry,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// parseOutcome carries one file's parse result through the pipeline.
type parseOutcome struct {
	path   string
	result *ast.FileResult
	err    *FileError
}

// Build scans the project root and constructs its dependency graph.
//
// Inputs:
//
//	ctx  - cancellation stops parsing promptly; already-merged state is
//	       discarded and the result is marked Incomplete.
//	root - project directory to scan.
//
// Outputs:
//
//	*BuildResult - frozen graph, per-file diagnostics, resolution
//	               records and stats. Per-file read and syntax errors
//	               do not fail the build.
//	error        - discovery failure, cancellation, node or edge
//	               capacity exhaustion, or ErrIdentifierCollision.
func (b *Builder) Build(ctx context.Context, root string) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx, root)
	defer span.End()
	start := time.Now()

	disc, err := discovery.New(root, b.discoverOpts...)
	if err != nil {
		if errors.Is(err, discovery.ErrRootInaccessible) {
			return nil, fmt.Errorf("%w: %v", ErrRootInaccessible, err)
		}
		return nil, err
	}
	files, err := disc.Discover(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}
		if errors.Is(err, discovery.ErrRootInaccessible) {
			return nil, fmt.Errorf("%w: %v", ErrRootInaccessible, err)
		}
		return nil, err
	}

	b.logger.Info("graph build started",
		"root", disc.Root(),
		"files", len(files),
		"workers", b.workers,
	)

	outcomes, parseErr := b.parseFiles(ctx, files)
	if parseErr != nil {
		stats := BuildStats{FilesDiscovered: len(files)}
		setBuildSpanResult(span, stats, true)
		recordBuildMetrics(ctx, time.Since(start), stats, false)
		return &BuildResult{Stats: stats, Incomplete: true},
			fmt.Errorf("%w: %v", ErrBuildCancelled, parseErr)
	}

	result, err := b.assemble(ctx, disc.Root(), files, outcomes)
	if err != nil {
		setBuildSpanResult(span, result.Stats, true)
		recordBuildMetrics(ctx, time.Since(start), result.Stats, false)
		return result, err
	}

	elapsed := time.Since(start)
	result.Stats.DurationMilli = elapsed.Milliseconds()
	result.Stats.DurationMicro = elapsed.Microseconds()

	setBuildSpanResult(span, result.Stats, result.Incomplete)
	recordBuildMetrics(ctx, elapsed, result.Stats, result.Success())

	b.logger.Info("graph build finished",
		"nodes", result.Stats.NodesCreated,
		"edges", result.Stats.EdgesCreated,
		"files_failed", result.Stats.FilesFailed,
		"duration_ms", result.Stats.DurationMilli,
	)
	return result, nil
}

// parseFiles parses all discovered files on a bounded worker pool.
// Results land in a slot per file, so completion order never matters.
func (b *Builder) parseFiles(ctx context.Context, files []string) ([]parseOutcome, error) {
	outcomes := make([]parseOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = b.parseOne(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// parseOne reads and parses a single file. All failures are captured
// as diagnostics; parseOne never fails the build.
func (b *Builder) parseOne(ctx context.Context, path string) parseOutcome {
	out := parseOutcome{path: path}

	parser, ok := b.registry.GetByExtension(filepath.Ext(path))
	if !ok {
		out.err = &FileError{
			FilePath: path,
			Kind:     FileErrorRead,
			Reason:   "no parser registered for extension",
		}
		return out
	}

	content, err := os.ReadFile(path)
	if err != nil {
		out.err = &FileError{
			FilePath: path,
			Kind:     FileErrorRead,
			Err:      err,
			Reason:   err.Error(),
		}
		return out
	}

	result, err := parser.Parse(ctx, content, path)
	if err != nil {
		out.err = &FileError{
			FilePath: path,
			Kind:     FileErrorRead,
			Err:      err,
			Reason:   err.Error(),
		}
		return out
	}

	out.result = result
	if result.HasErrors() {
		// Partial results from error recovery still merge; the
		// syntax errors surface as diagnostics.
		out.err = &FileError{
			FilePath: path,
			Kind:     FileErrorSyntax,
			Reason:   strings.Join(result.Errors, "; "),
		}
	}
	return out
}

// pendingCall is a call whose callee was not defined in its own file.
type pendingCall struct {
	filePath string
	callerID string
	call     ast.CallSite
}

// pendingBase is a class base not defined in the class's own file.
type pendingBase struct {
	filePath string
	classID  string
	base     string
}

// assemble runs the sequential phases: merge, index, import
// resolution, cross-file edges.
func (b *Builder) assemble(ctx context.Context, root string, files []string, outcomes []parseOutcome) (*BuildResult, error) {
	result := &BuildResult{
		Graph: NewGraph(root, b.graphOpts...),
		Stats: BuildStats{FilesDiscovered: len(files)},
	}

	// Diagnostics keep discovery order, which is already sorted.
	parsed := make([]parseOutcome, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			result.FileErrors = append(result.FileErrors, *out.err)
		}
		if out.result != nil {
			parsed = append(parsed, out)
		} else {
			result.Stats.FilesFailed++
		}
	}

	// Merge commits files in canonical path order regardless of how
	// discovery or parsing ordered them. sort.SliceStable plus the
	// adjacency filter below make a repeated parse of the same file a
	// no-op: the first occurrence wins and the rest are discarded.
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].path < parsed[j].path })
	deduped := parsed[:0]
	for i, out := range parsed {
		if i > 0 && out.path == parsed[i-1].path {
			continue
		}
		deduped = append(deduped, out)
	}
	parsed = deduped
	result.Stats.FilesParsed = len(parsed)

	resolver := newModuleResolver(root)
	var pendingCalls []pendingCall
	var pendingBases []pendingBase

	for _, out := range parsed {
		if err := ctx.Err(); err != nil {
			result.Incomplete = true
			return result, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
		}
		calls, bases, err := b.mergeFile(result, out)
		if err != nil {
			result.Incomplete = true
			return result, err
		}
		pendingCalls = append(pendingCalls, calls...)
		pendingBases = append(pendingBases, bases...)
		resolver.register(out.path)
	}

	idx, err := b.buildIndex(result.Graph, root)
	if err != nil {
		result.Incomplete = true
		return result, err
	}

	if err := b.resolveImports(result, parsed, resolver); err != nil {
		result.Incomplete = true
		return result, err
	}
	if err := b.resolveCalls(result, parsed, resolver, idx, pendingCalls); err != nil {
		result.Incomplete = true
		return result, err
	}
	b.resolveBases(result, parsed, resolver, idx, pendingBases)

	result.Graph.Freeze()
	idx.Freeze()
	result.Stats.NodesCreated = result.Graph.NodeCount()
	result.Stats.EdgesCreated = result.Graph.EdgeCount()
	result.Index = idx
	return result, nil
}

// mergeFile adds one file's nodes and intra-file edges to the graph.
func (b *Builder) mergeFile(result *BuildResult, out parseOutcome) ([]pendingCall, []pendingBase, error) {
	g := result.Graph
	path := out.path
	res := out.result

	fileID := FileNodeID(path)
	fileNode := &Node{
		ID:       fileID,
		Name:     filepath.Base(path),
		Kind:     NodeKindFile,
		Language: res.Language,
		FilePath: path,
	}
	if err := g.AddNode(fileNode); err != nil {
		if errors.Is(err, ErrDuplicateNode) {
			// The file was already merged. Identifiers embed the file
			// path, so a repeated path means a repeated parse of the
			// same file: the existing nodes win and this result is
			// discarded.
			return nil, nil, nil
		}
		return nil, nil, err
	}

	local := make(map[string]string, len(res.Definitions))

	for _, def := range res.Definitions {
		id := MakeNodeID(path, def.Name)
		node := &Node{
			ID:       id,
			Name:     def.Name,
			Kind:     KindForDefinition(def.Kind),
			Language: res.Language,
			FilePath: path,
			Range:    def.Range,
		}
		if err := g.AddNode(node); err != nil {
			if errors.Is(err, ErrDuplicateNode) {
				if existing, ok := g.GetNode(id); ok && existing.FilePath == path {
					// Same file, same name: the first definition wins.
					local[def.Name] = id
					continue
				}
				// Two distinct symbols computed one identifier. IDs
				// embed the file path, so this cannot happen without a
				// broken invariant; abort the scan.
				return nil, nil, fmt.Errorf("%w: %s", ErrIdentifierCollision, id)
			}
			return nil, nil, err
		}
		if err := g.AddEdge(fileID, id, EdgeTypeContains); err != nil {
			return nil, nil, err
		}
		local[def.Name] = id
	}

	var calls []pendingCall
	for _, call := range res.Calls {
		callerID := fileID
		if call.Caller != "" {
			if id, ok := local[call.Caller]; ok {
				callerID = id
			}
		}
		calleeID, ok := local[call.Callee]
		if ok {
			if node, exists := g.GetNode(calleeID); exists && node.Kind == NodeKindFunction {
				if err := g.AddEdge(callerID, calleeID, EdgeTypeCalls); err != nil {
					return nil, nil, err
				}
				result.Stats.CallsResolved++
				continue
			}
		}
		calls = append(calls, pendingCall{filePath: path, callerID: callerID, call: call})
	}

	var bases []pendingBase
	for _, def := range res.Definitions {
		if KindForDefinition(def.Kind) != NodeKindClass {
			continue
		}
		classID := local[def.Name]
		for _, base := range def.Bases {
			if baseID, ok := local[base]; ok {
				if node, exists := g.GetNode(baseID); exists && node.Kind == NodeKindClass {
					if err := g.AddEdge(classID, baseID, EdgeTypeInherits); err != nil {
						return nil, nil, err
					}
					continue
				}
			}
			bases = append(bases, pendingBase{filePath: path, classID: classID, base: base})
		}
	}
	return calls, bases, nil
}

// buildIndex populates a fresh symbol index from the merged graph.
func (b *Builder) buildIndex(g *Graph, root string) (*index.SymbolIndex, error) {
	idx := index.NewSymbolIndex(b.indexOpts...)
	for _, node := range g.Nodes() {
		if node.Kind == NodeKindFile {
			continue
		}
		module := ""
		if rel, err := filepath.Rel(root, node.FilePath); err == nil {
			module = ModulePathForFile(rel)
		}
		entry := index.Entry{
			ID:       node.ID,
			Name:     node.Name,
			Kind:     node.Kind.String(),
			FilePath: node.FilePath,
			Module:   module,
		}
		if err := idx.Add(entry); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// resolveImports classifies every import declaration and adds
// file-to-file Imports edges for internal modules.
func (b *Builder) resolveImports(result *BuildResult, parsed []parseOutcome, resolver *moduleResolver) error {
	g := result.Graph
	for _, out := range parsed {
		fileID := FileNodeID(out.path)
		for _, decl := range out.result.Imports {
			for _, module := range declaredModules(&decl) {
				class, target := resolver.classifyImport(&decl, module)
				result.Resolutions = append(result.Resolutions, ImportResolution{
					FilePath:    out.path,
					Declaration: decl,
					Module:      module,
					Class:       class,
					TargetFile:  target,
				})
				switch class {
				case ResolutionInternal:
					result.Stats.ImportsInternal++
					// AddEdge drops exact duplicates, so repeated
					// imports of the same module collapse to one edge.
					if err := g.AddEdge(fileID, FileNodeID(target), EdgeTypeImports); err != nil {
						return err
					}
				case ResolutionExternal:
					result.Stats.ImportsExternal++
				case ResolutionUnresolved:
					result.Stats.ImportsUnresolved++
				}
			}
		}
	}
	return nil
}

// declaredModules lists the module paths one declaration references.
// The direct form may name several; the from form names exactly one.
// Relative from imports render their leading dots so diagnostics show
// the statement as written.
func declaredModules(decl *ast.ImportDeclaration) []string {
	if len(decl.Modules) > 0 {
		modules := make([]string, 0, len(decl.Modules))
		for _, m := range decl.Modules {
			modules = append(modules, m.Name)
		}
		return modules
	}
	if decl.RelativeLevel > 0 {
		return []string{strings.Repeat(".", decl.RelativeLevel) + decl.Module}
	}
	return []string{decl.Module}
}

// resolveCalls wires cross-file Calls edges through from-import
// bindings and the symbol index. Calls that cannot be resolved become
// diagnostics, never dangling edges.
func (b *Builder) resolveCalls(result *BuildResult, parsed []parseOutcome, resolver *moduleResolver, idx *index.SymbolIndex, pending []pendingCall) error {
	g := result.Graph
	imports := importsByFile(parsed)

	for _, pc := range pending {
		targetID, ok := b.resolveName(imports[pc.filePath], resolver, idx, pc.call.Callee, "function")
		if !ok {
			result.Stats.CallsUnresolved++
			result.UnresolvedCalls = append(result.UnresolvedCalls, UnresolvedCall{
				FilePath: pc.filePath,
				Caller:   pc.call.Caller,
				Callee:   pc.call.Callee,
			})
			continue
		}
		if err := g.AddEdge(pc.callerID, targetID, EdgeTypeCalls); err != nil {
			return err
		}
		result.Stats.CallsResolved++
	}
	return nil
}

// resolveBases wires cross-file Inherits edges for class bases bound
// by from imports. An unresolvable base is simply skipped; base
// classes frequently come from external libraries.
func (b *Builder) resolveBases(result *BuildResult, parsed []parseOutcome, resolver *moduleResolver, idx *index.SymbolIndex, pending []pendingBase) {
	g := result.Graph
	imports := importsByFile(parsed)

	for _, pb := range pending {
		targetID, ok := b.resolveName(imports[pb.filePath], resolver, idx, pb.base, "class")
		if !ok {
			continue
		}
		// Edge failures here can only be capacity errors; a skipped
		// Inherits edge is not worth failing a completed build.
		_ = g.AddEdge(pb.classID, targetID, EdgeTypeInherits)
	}
}

// importsByFile groups import declarations by file path.
func importsByFile(parsed []parseOutcome) map[string][]ast.ImportDeclaration {
	out := make(map[string][]ast.ImportDeclaration, len(parsed))
	for _, p := range parsed {
		out[p.path] = p.result.Imports
	}
	return out
}

// resolveName maps a locally bound name to an indexed node ID of the
// wanted kind by scanning the file's from-import bindings in
// declaration order. Star imports and direct module imports never bind
// simple names and are skipped; relative imports are never resolved.
// Dotted names (os.path.exists, self.run) require attribute semantics
// and are never resolved; they surface as diagnostics instead.
func (b *Builder) resolveName(decls []ast.ImportDeclaration, resolver *moduleResolver, idx *index.SymbolIndex, name, wantKind string) (string, bool) {
	if strings.Contains(name, ".") {
		return "", false
	}
	for i := range decls {
		decl := &decls[i]
		if !decl.IsFromImport() || decl.IsRelative() {
			continue
		}
		source, ok := sourceNameFor(decl, name)
		if !ok {
			continue
		}
		if _, found := resolver.resolve(decl.Module); !found {
			continue
		}
		id, found := idx.Lookup(decl.Module, source)
		if !found {
			continue
		}
		entry, _ := idx.GetByID(id)
		if entry.Kind != wantKind {
			continue
		}
		return id, true
	}
	return "", false
}

// sourceNameFor maps a name bound in the importing file back to its
// name in the source module, honoring aliases.
func sourceNameFor(decl *ast.ImportDeclaration, local string) (string, bool) {
	for _, n := range decl.Names {
		if n.IsWildcard {
			continue
		}
		bound := n.Name
		if n.Alias != "" {
			bound = n.Alias
		}
		if bound == local {
			return n.Name, true
		}
	}
	return "", false
}
