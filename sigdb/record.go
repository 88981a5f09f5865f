// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sigdb reads and writes PEiD-format signature databases: a
// latin-1 text file of named byte patterns with optional `??` wildcards,
// each scoped to match at the entry point, at section starts, or anywhere.
package sigdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Token is one position of a signature: either a concrete byte value or the
// wildcard `??`, which matches any byte.
type Token struct {
	Value    byte
	Wildcard bool
}

// String renders the token the way it appears in a PEiD database: two
// uppercase hex digits, or "??".
func (t Token) String() string {
	if t.Wildcard {
		return "??"
	}
	return fmt.Sprintf("%02X", t.Value)
}

func parseToken(s string) (Token, error) {
	if s == "??" {
		return Token{Wildcard: true}, nil
	}
	if len(s) != 2 {
		return Token{}, fmt.Errorf("sigdb: invalid signature token %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return Token{}, fmt.Errorf("sigdb: invalid signature token %q: %w", s, err)
	}
	return Token{Value: byte(v)}, nil
}

// Record is a named signature: an ordered sequence of tokens, an optional
// trailing run of wildcard tokens kept only for round-tripping, and a match
// scope. Exactly one of EPOnly, SectionStartOnly, or neither ("anywhere")
// holds.
type Record struct {
	Name              string
	Bytes             []Token
	TrailingWildcards []Token
	EPOnly            bool
	SectionStartOnly  bool
}

// Key is the record's identity in a database: its non-trailing byte
// sequence, rendered as a space-separated token string. Two records with
// the same Key collide; the later one wins.
func (r Record) Key() string {
	return tokensString(r.Bytes)
}

func tokensString(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Signature renders Bytes (and, if keep is true, TrailingWildcards) as the
// space-separated hex string used in the PEiD text format.
func (r Record) Signature(keepTrailingWildcards bool) string {
	if !keepTrailingWildcards || len(r.TrailingWildcards) == 0 {
		return tokensString(r.Bytes)
	}
	all := make([]Token, 0, len(r.Bytes)+len(r.TrailingWildcards))
	all = append(all, r.Bytes...)
	all = append(all, r.TrailingWildcards...)
	return tokensString(all)
}

// AllTokens returns Bytes followed by TrailingWildcards, the sequence
// inserted into the trie when keep-trailing-wildcards is enabled.
func (r Record) AllTokens() []Token {
	all := make([]Token, 0, len(r.Bytes)+len(r.TrailingWildcards))
	all = append(all, r.Bytes...)
	all = append(all, r.TrailingWildcards...)
	return all
}
