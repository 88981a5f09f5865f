// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package peid ties the EXE reader, signature database, and trie matcher
// together into the top-level packer/compiler identification operation.
package peid

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/petools/peidgo/exe"
	"github.com/petools/peidgo/sigdb"
	"github.com/petools/peidgo/trie"
)

// Option configures an Identifier.
type Option func(*config)

type config struct {
	logger                *slog.Logger
	keepTrailingWildcards bool
	useCache              bool
}

// WithLogger injects a structured logger, used to report trie-cache load and
// write failures and per-file MalformedPE results during batch scans. The
// zero value falls back to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTrailingWildcards keeps a signature's trailing `??` run when building
// the trie, rather than stripping it. Off by default, since trailing
// wildcards add no matching power.
func WithTrailingWildcards() Option {
	return func(c *config) { c.keepTrailingWildcards = true }
}

// WithoutCache disables the trie-cache sidecar, forcing the database to be
// re-parsed and rebuilt on every Open.
func WithoutCache() Option {
	return func(c *config) { c.useCache = false }
}

// Identifier holds a built signature trie ready to match byte windows from
// opened executables. It carries no interior mutability, so a *Identifier is
// safe to share read-only across goroutines once Open returns.
type Identifier struct {
	tree   *trie.Tree
	logger *slog.Logger
}

// Open parses (or loads the cached build of) the signature database at
// dbPath and returns an Identifier ready to match against it. If a trie
// cache sidecar exists and loads cleanly, parsing is skipped entirely; a
// cache that fails to load is logged and the database is rebuilt from
// source. An existing cache is not checked against the database for
// staleness.
func Open(dbPath string, opts ...Option) (*Identifier, error) {
	cfg := config{logger: slog.Default(), useCache: true}
	for _, o := range opts {
		o(&cfg)
	}

	cachePath := trie.CachePath(dbPath, cfg.keepTrailingWildcards)
	if cfg.useCache && trie.CacheExists(cachePath) {
		tree, err := trie.LoadCache(cachePath)
		if err == nil {
			return &Identifier{tree: tree, logger: cfg.logger}, nil
		}
		cfg.logger.Warn("failed to load trie cache, rebuilding", "path", cachePath, "error", err)
	}

	db, err := sigdb.ParseFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("peid: parsing %s: %w", dbPath, err)
	}

	tree := trie.Build(db, cfg.keepTrailingWildcards)
	if cfg.useCache {
		if err := tree.SaveCache(cachePath); err != nil {
			cfg.logger.Warn("failed to write trie cache", "path", cachePath, "error", err)
		}
	}
	return &Identifier{tree: tree, logger: cfg.logger}, nil
}

// Identify scans ex against the identifier's trie and returns the matching
// signature names. It implements the §4.4 dispatch table: exactly one scope
// is scanned per call — a single window at the entry point, one window per
// section start, or a sliding scan of the whole file — never a cascade
// through more than one. The scope defaults to EPOnly, matching the
// original tool's own default; passing a scope explicitly selects
// SectionStart or Anywhere instead. If matchAll is false, the first window
// to produce at least one match wins, keeping only its deepest
// (last-reported) match, and no further windows are scanned. An entry point
// outside every section is reported as a *exe.MalformedError; callers doing
// batch identification should treat it as a per-file failure, not abort the
// batch.
func (id *Identifier) Identify(ex exe.Executable, matchAll bool, scopes ...trie.Scope) ([]string, error) {
	maxDepth := id.tree.MaxDepth
	if maxDepth == 0 {
		return nil, nil
	}

	scope := trie.EPOnly
	if len(scopes) > 0 {
		scope = scopes[0]
	}
	if !hasSignatures(id.tree, scope) {
		return nil, nil
	}

	var matches []string
	record := func(window []byte) (stop bool) {
		m := id.tree.Match(scope, window)
		if len(m) == 0 {
			return false
		}
		if matchAll {
			matches = append(matches, m...)
			return false
		}
		matches = []string{m[len(m)-1]}
		return true
	}

	switch scope {
	case trie.EPOnly:
		ep, err := ex.EntrypointOffset()
		if err != nil {
			return nil, err
		}
		for w := range ex.Read(maxDepth, ep) {
			if record(w) {
				return matches, nil
			}
		}
	case trie.SectionStart:
		offsets, err := ex.SectionsOffsets()
		if err != nil {
			return nil, err
		}
		for _, off := range offsets {
			for w := range ex.Read(maxDepth, off) {
				if record(w) {
					return matches, nil
				}
			}
		}
	case trie.Anywhere:
		for w := range ex.Read(maxDepth) {
			if record(w) {
				return matches, nil
			}
		}
	}

	return matches, nil
}

func hasSignatures(t *trie.Tree, scope trie.Scope) bool {
	root, ok := t.Roots[scope]
	return ok && len(root.Children) > 0
}

// FileResult is one path's outcome from IdentifyBatch.
type FileResult struct {
	Path    string
	Matches []string
	Err     error
}

// IdentifyBatch opens and identifies every path independently, recording a
// per-path error (open failure, MalformedPE, ...) rather than aborting the
// whole batch on the first failing file.
func (id *Identifier) IdentifyBatch(paths []string, matchAll bool, scopes ...trie.Scope) []FileResult {
	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, id.identifyOne(path, matchAll, scopes...))
	}
	return results
}

func (id *Identifier) identifyOne(path string, matchAll bool, scopes ...trie.Scope) FileResult {
	ex, err := exe.Open(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	defer ex.Close()

	matches, err := id.Identify(ex, matchAll, scopes...)
	if err != nil {
		var malformed *exe.MalformedError
		if errors.As(err, &malformed) {
			id.logger.Warn("entry point outside any section", "path", path, "error", err)
			return FileResult{Path: path, Err: err}
		}
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Matches: matches}
}
