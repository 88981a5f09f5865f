// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exe

import (
	"os"
	"path/filepath"
	"testing"
)

// FuzzParseFile replaces the legacy go-fuzz-style Fuzz([]byte) int entry
// point: Open and every Executable method reachable from it must never
// panic on an arbitrary byte blob, well-formed or not.
func FuzzParseFile(f *testing.F) {
	f.Add([]byte("MZ"))
	f.Add([]byte("not an exe at all"))
	f.Add(append([]byte("MZ"), make([]byte, 0x40)...))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.bin")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}

		ex, err := Open(path)
		if err != nil {
			return
		}
		defer ex.Close()

		ep, err := ex.EntrypointOffset()
		if err == nil {
			for range ex.Read(16, ep) {
			}
		}

		offsets, err := ex.SectionsOffsets()
		if err == nil {
			for range ex.Read(16, offsets...) {
			}
		}
	})
}
