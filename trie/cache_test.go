// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trie

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestCachePath_DistinguishesTrailingWildcardMode(t *testing.T) {
	p1 := CachePath("/data/userdb.txt", false)
	p2 := CachePath("/data/userdb.txt", true)
	if p1 == p2 {
		t.Fatal("cache paths should differ between modes")
	}
	if filepath.Base(p1) != ".userdb_txt.json" {
		t.Fatalf("got %q", p1)
	}
	if filepath.Base(p2) != ".userdb_txt_tw.json" {
		t.Fatalf("got %q", p2)
	}
}

func TestSaveLoadCache_RoundTrips(t *testing.T) {
	db := dbFrom(t, `[UPX]
signature = 60 BE ?? ?? 8D BE
ep_only = true

[SEC]
signature = 33 44
ep_only = false
section_start_only = true
`)
	original := Build(db, false)

	path := filepath.Join(t.TempDir(), "cache.json")
	if err := original.SaveCache(path); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}
	if !CacheExists(path) {
		t.Fatal("expected cache file to exist")
	}

	loaded, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}

	window := []byte{0x60, 0xBE, 0x01, 0x02, 0x8D, 0xBE}
	got := loaded.Match(EPOnly, window)
	want := original.Match(EPOnly, window)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cache-loaded match %v != fresh-built match %v", got, want)
	}
	if loaded.MaxDepth != original.MaxDepth {
		t.Fatalf("got MaxDepth %d, want %d", loaded.MaxDepth, original.MaxDepth)
	}
}
