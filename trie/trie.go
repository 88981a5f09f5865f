// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trie implements a wildcard-aware prefix tree over hex-byte
// signature tokens, matching the `??`-as-wildcard grammar of PEiD
// signatures, scoped independently for entry-point-only, section-start-only,
// and anywhere signatures.
package trie

import (
	"fmt"

	"github.com/petools/peidgo/sigdb"
)

const wildcardKey = "??"

// Node is one position in the trie: a branch keyed by hex-byte token (or the
// wildcard key), optionally terminal with a signature name. A node may
// carry both a value and children when one signature is a strict prefix of
// another.
type Node struct {
	Children map[string]*Node `json:"children,omitempty"`
	Value    string           `json:"value,omitempty"`
}

func newNode() *Node {
	return &Node{Children: make(map[string]*Node)}
}

func (n *Node) child(key string) *Node {
	c, ok := n.Children[key]
	if !ok {
		c = newNode()
		n.Children[key] = c
	}
	return c
}

// Scope selects which of a Tree's three roots a signature belongs to, and
// which byte windows it is legal to match against.
type Scope int

const (
	// Anywhere signatures may match at any offset in the file.
	Anywhere Scope = iota
	// EPOnly signatures may only match the window starting at the entry
	// point.
	EPOnly
	// SectionStart signatures may only match windows starting at a
	// section's raw data pointer.
	SectionStart
)

// Tree holds the three scope-independent search trees built from a
// signature database, plus the maximum token depth of any inserted
// signature. It carries no interior mutability after Build returns, so a
// *Tree is safe to share read-only across goroutines.
type Tree struct {
	Roots    map[Scope]*Node `json:"roots"`
	MaxDepth int             `json:"max_depth"`

	// KeepTrailingWildcards records whether trailing `??` runs were
	// inserted (rather than stripped) when this tree was built, since a
	// tree's cache sidecar and its contents depend on that choice.
	KeepTrailingWildcards bool `json:"keep_trailing_wildcards"`
}

// Build constructs a Tree from db's records. keepTrailingWildcards controls
// whether a signature's trailing `??` run (which adds no matching power) is
// inserted into the tree; peid.Open passes false unless the
// WithTrailingWildcards option is given.
func Build(db *sigdb.DB, keepTrailingWildcards bool) *Tree {
	t := &Tree{
		Roots: map[Scope]*Node{
			Anywhere:     newNode(),
			EPOnly:       newNode(),
			SectionStart: newNode(),
		},
		KeepTrailingWildcards: keepTrailingWildcards,
	}
	for _, r := range db.Records() {
		scope := Anywhere
		switch {
		case r.EPOnly:
			scope = EPOnly
		case r.SectionStartOnly:
			scope = SectionStart
		}

		tokens := r.Bytes
		if keepTrailingWildcards {
			tokens = r.AllTokens()
		}
		if len(tokens) > t.MaxDepth {
			t.MaxDepth = len(tokens)
		}

		node := t.Roots[scope]
		for _, tok := range tokens {
			node = node.child(tokenKey(tok))
		}
		node.Value = r.Name
	}
	return t
}

func tokenKey(t sigdb.Token) string {
	if t.Wildcard {
		return wildcardKey
	}
	return fmt.Sprintf("%02X", t.Value)
}

// Match runs the wildcard-aware DFS of a byte window against the root for
// scope, returning every terminal name reached along any path (including
// more than one terminal per path, when one signature prefixes another).
// The wildcard branch is explored before the exact-byte branch at each
// node, so all wildcard expansions of a prefix are considered before a
// concrete continuation is tried.
func (t *Tree) Match(scope Scope, window []byte) []string {
	var matches []string
	visit(t.Roots[scope], window, &matches)
	return matches
}

func visit(node *Node, window []byte, matches *[]string) {
	for {
		if node.Value != "" {
			*matches = append(*matches, node.Value)
		}
		if wc, ok := node.Children[wildcardKey]; ok && len(window) > 0 {
			visit(wc, window[1:], matches)
		}
		if len(window) == 0 {
			return
		}
		key := fmt.Sprintf("%02X", window[0])
		next, ok := node.Children[key]
		if !ok {
			return
		}
		node = next
		window = window[1:]
	}
}
