// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trie

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// CachePath returns the sidecar path for dbPath: a hidden file next to it,
// distinguished by whether trailing wildcards are kept, so the two build
// modes never collide on one cache file.
func CachePath(dbPath string, keepTrailingWildcards bool) string {
	dir := filepath.Dir(dbPath)
	base := strings.ReplaceAll(filepath.Base(dbPath), ".", "_")
	suffix := ""
	if keepTrailingWildcards {
		suffix = "_tw"
	}
	return filepath.Join(dir, "."+base+suffix+".json")
}

// jsonTree mirrors Tree for serialization, naming each scope's root with a
// string key ("ep_only", "section_start_only", "anywhere") instead of the
// in-memory Scope enum's integer value.
type jsonTree struct {
	EPOnly                *Node `json:"ep_only"`
	SectionStart          *Node `json:"section_start_only"`
	Anywhere              *Node `json:"anywhere"`
	MaxDepth              int   `json:"max_depth"`
	KeepTrailingWildcards bool  `json:"keep_trailing_wildcards"`
}

func (t *Tree) toJSON() jsonTree {
	return jsonTree{
		EPOnly:                t.Roots[EPOnly],
		SectionStart:          t.Roots[SectionStart],
		Anywhere:              t.Roots[Anywhere],
		MaxDepth:              t.MaxDepth,
		KeepTrailingWildcards: t.KeepTrailingWildcards,
	}
}

func fromJSON(j jsonTree) *Tree {
	return &Tree{
		Roots: map[Scope]*Node{
			EPOnly:       orEmpty(j.EPOnly),
			SectionStart: orEmpty(j.SectionStart),
			Anywhere:     orEmpty(j.Anywhere),
		},
		MaxDepth:              j.MaxDepth,
		KeepTrailingWildcards: j.KeepTrailingWildcards,
	}
}

func orEmpty(n *Node) *Node {
	if n == nil {
		return newNode()
	}
	return n
}

// SaveCache serialises t to path as JSON.
func (t *Tree) SaveCache(path string) error {
	data, err := json.Marshal(t.toJSON())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCache reads a previously saved Tree from path. No staleness check is
// performed: if the source database changed since the cache was written,
// the caller must remove the sidecar itself.
func LoadCache(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var j jsonTree
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return fromJSON(j), nil
}

// CacheExists reports whether a sidecar exists at path.
func CacheExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
