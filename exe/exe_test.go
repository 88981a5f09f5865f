// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_PreferPEOverMSDOS(t *testing.T) {
	path := buildPE(t, 0x1000, 0x1000, 0x200, 0x200, 0x400, []byte{0x90})

	ex, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ex.Close()

	if _, ok := ex.(*PEView); !ok {
		t.Fatalf("got %T, want *PEView", ex)
	}
}

func TestOpen_FallsBackToMSDOS(t *testing.T) {
	path := buildMZ(t, 0, 0, 0, 0x1c, nil)

	ex, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ex.Close()

	if _, ok := ex.(*MSDOSView); !ok {
		t.Fatalf("got %T, want *MSDOSView", ex)
	}
}

func TestOpen_RejectsUnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("want error for unsupported file")
	}
}
