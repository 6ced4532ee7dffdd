// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery walks a project root and produces the canonical list
// of source files to scan.
//
// Discovery applies two layers of filtering: include patterns (glob
// syntax, matched against project-relative paths) select candidate
// files, and ignore rules (gitignore syntax plus a built-in default
// set) exclude files and prune whole directory subtrees. The result is
// a sorted list of absolute file paths.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Sentinel errors for discovery failures.
var (
	// ErrRootInaccessible indicates the project root does not exist or
	// cannot be read.
	ErrRootInaccessible = errors.New("project root inaccessible")

	// ErrInvalidPattern indicates an include pattern is not valid glob
	// syntax.
	ErrInvalidPattern = errors.New("invalid include pattern")
)

// defaultIgnoreDirs are directory names pruned regardless of any
// user-supplied ignore rules.
var defaultIgnoreDirs = map[string]struct{}{
	".git":         {},
	"venv":         {},
	".venv":        {},
	"__pycache__":  {},
	"node_modules": {},
	".tox":         {},
	".mypy_cache":  {},
	".ruff_cache":  {},
}

// DefaultIncludePatterns selects Python sources when no patterns are
// configured.
var DefaultIncludePatterns = []string{"**/*.py", "**/*.pyi"}

// Discoverer enumerates source files under a project root.
//
// Thread Safety: Safe for concurrent use after construction; Discover
// does not mutate the receiver.
type Discoverer struct {
	root     string
	includes []string
	extra    []string
	rules    *ignore.GitIgnore
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithIncludePatterns replaces the default include patterns.
func WithIncludePatterns(patterns []string) Option {
	return func(d *Discoverer) {
		if len(patterns) > 0 {
			d.includes = patterns
		}
	}
}

// WithIgnoreRules adds gitignore-syntax rules on top of the project's
// own .gitignore file.
func WithIgnoreRules(rules []string) Option {
	return func(d *Discoverer) {
		d.extra = append(d.extra, rules...)
	}
}

// New creates a Discoverer for the given project root.
//
// Inputs:
//
//	root - directory to scan; must exist and be readable.
//
// Outputs:
//
//	*Discoverer - ready to use.
//	error       - ErrRootInaccessible if root is missing or not a
//	              directory; ErrInvalidPattern for malformed globs.
func New(root string, opts ...Option) (*Discoverer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootInaccessible, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootInaccessible, abs)
	}

	d := &Discoverer{
		root:     abs,
		includes: DefaultIncludePatterns,
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, p := range d.includes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	d.rules = compileIgnoreRules(abs, d.extra)
	return d, nil
}

// compileIgnoreRules merges the project's .gitignore (if present) with
// extra configured rules. A missing or unreadable .gitignore is not an
// error; discovery proceeds with the remaining rules.
func compileIgnoreRules(root string, extra []string) *ignore.GitIgnore {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	lines = append(lines, extra...)
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

// Discover walks the root and returns all matching files.
//
// Outputs:
//
//	[]string - absolute paths of regular files matching the include
//	           patterns and not excluded by ignore rules, sorted.
//	error    - context cancellation or a walk failure on the root
//	           itself. A pattern matching zero files is not an error.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == d.root {
				return fmt.Errorf("%w: %v", ErrRootInaccessible, err)
			}
			// Unreadable subdirectories are skipped, not fatal.
			return nil
		}

		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if d.ignoreDir(entry.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if d.ignoreFile(rel) {
			return nil
		}
		if !d.matchesInclude(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ignoreDir reports whether a whole directory subtree should be pruned.
func (d *Discoverer) ignoreDir(name, rel string) bool {
	if _, ok := defaultIgnoreDirs[name]; ok {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	if d.rules != nil && d.rules.MatchesPath(rel+"/") {
		return true
	}
	return false
}

// ignoreFile reports whether a single file is excluded by ignore rules.
func (d *Discoverer) ignoreFile(rel string) bool {
	return d.rules != nil && d.rules.MatchesPath(rel)
}

// matchesInclude reports whether a project-relative path matches any
// include pattern.
func (d *Discoverer) matchesInclude(rel string) bool {
	for _, p := range d.includes {
		ok, err := doublestar.Match(p, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Root returns the absolute project root.
func (d *Discoverer) Root() string {
	return d.root
}
