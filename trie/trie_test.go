// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trie

import (
	"reflect"
	"testing"

	"github.com/petools/peidgo/sigdb"
)

func dbFrom(t *testing.T, text string) *sigdb.DB {
	t.Helper()
	comments, records, err := sigdb.ParseText(text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	return sigdb.New(comments, records)
}

func bytesOf(hex ...byte) []byte { return hex }

func TestMatch_ExactSignature(t *testing.T) {
	db := dbFrom(t, "[UPX]\nsignature = 60 BE 8D BE\nep_only = true\n")
	tree := Build(db, false)

	got := tree.Match(EPOnly, bytesOf(0x60, 0xBE, 0x8D, 0xBE))
	want := []string{"UPX"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMatch_NoMatchForDifferentBytes(t *testing.T) {
	db := dbFrom(t, "[UPX]\nsignature = 60 BE\nep_only = true\n")
	tree := Build(db, false)

	got := tree.Match(EPOnly, bytesOf(0x61, 0xBE))
	if len(got) != 0 {
		t.Fatalf("got %v, want no matches", got)
	}
}

func TestMatch_WildcardMatchesAnyByte(t *testing.T) {
	db := dbFrom(t, "[UPX]\nsignature = 60 ?? 8D\nep_only = true\n")
	tree := Build(db, false)

	for _, b := range []byte{0x00, 0x42, 0xFF} {
		got := tree.Match(EPOnly, bytesOf(0x60, b, 0x8D))
		if !reflect.DeepEqual(got, []string{"UPX"}) {
			t.Fatalf("byte %02X: got %v", b, got)
		}
	}
}

func TestMatch_ReportsEveryTerminalOnPath(t *testing.T) {
	db := dbFrom(t, `[A]
signature = 60 BE
ep_only = true

[UPX]
signature = 60 BE ?? ?? ?? ?? 8D BE
ep_only = true
`)
	tree := Build(db, false)

	window := bytesOf(0x60, 0xBE, 0x10, 0x20, 0x30, 0x40, 0x8D, 0xBE)
	got := tree.Match(EPOnly, window)

	// "A" is a prefix of UPX's signature; the wildcard branch (explored
	// first) reaches UPX's terminal after "A"'s terminal is recorded.
	want := []string{"A", "UPX"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMatch_ScopesAreIndependent(t *testing.T) {
	db := dbFrom(t, `[EP]
signature = 11 22
ep_only = true

[SEC]
signature = 33 44
ep_only = false
section_start_only = true
`)
	tree := Build(db, false)

	if got := tree.Match(EPOnly, bytesOf(0x33, 0x44)); len(got) != 0 {
		t.Fatalf("EPOnly scope should not see SEC signature, got %v", got)
	}
	if got := tree.Match(SectionStart, bytesOf(0x33, 0x44)); !reflect.DeepEqual(got, []string{"SEC"}) {
		t.Fatalf("got %v", got)
	}
}

func TestBuild_TrailingWildcardsDroppedByDefault(t *testing.T) {
	db := dbFrom(t, "[T]\nsignature = 60 BE ?? ??\nep_only = true\n")

	dropped := Build(db, false)
	if dropped.MaxDepth != 2 {
		t.Fatalf("got MaxDepth %d, want 2", dropped.MaxDepth)
	}

	kept := Build(db, true)
	if kept.MaxDepth != 4 {
		t.Fatalf("got MaxDepth %d, want 4", kept.MaxDepth)
	}
}

func TestBuild_CollisionLastWins(t *testing.T) {
	db := dbFrom(t, `[First]
signature = AA BB
ep_only = true

[Second]
signature = AA BB
ep_only = true
`)
	tree := Build(db, false)
	got := tree.Match(EPOnly, bytesOf(0xAA, 0xBB))
	if !reflect.DeepEqual(got, []string{"Second"}) {
		t.Fatalf("got %v, want [Second]", got)
	}
}
