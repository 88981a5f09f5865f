// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trie

import (
	"testing"

	"github.com/petools/peidgo/sigdb"
)

// FuzzMatch replaces the legacy go-fuzz-style Fuzz([]byte) int entry point:
// Match must never panic on an arbitrary byte window, regardless of the
// scope requested.
func FuzzMatch(f *testing.F) {
	comments, records, err := sigdb.ParseText(`[UPX]
signature = 60 BE ?? ?? ?? ?? 8D BE
ep_only = true

[ASPack]
signature = 60 E8 03 00 00 00
ep_only = true

[SEC]
signature = 33 44
ep_only = false
section_start_only = true
`)
	if err != nil {
		f.Fatalf("parsing fuzz fixture db: %v", err)
	}
	tree := Build(sigdb.New(comments, records), false)

	f.Add([]byte{0x60, 0xBE, 0x8D, 0xBE})
	f.Add([]byte{})
	f.Add([]byte{0xFF})

	f.Fuzz(func(t *testing.T, window []byte) {
		for _, scope := range []Scope{Anywhere, EPOnly, SectionStart} {
			_ = tree.Match(scope, window)
		}
	})
}
