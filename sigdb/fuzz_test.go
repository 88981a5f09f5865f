// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import "testing"

// FuzzParseText replaces the legacy go-fuzz-style Fuzz([]byte) int entry
// point: ParseText must never panic on arbitrary text, and any DB it does
// return must pass the scope invariant ParseText itself is supposed to
// enforce.
func FuzzParseText(f *testing.F) {
	f.Add(sampleDB)
	f.Add("")
	f.Add("[Unterminated")
	f.Add("[X]\nsignature = 11 22\nep_only = true\nsection_start_only = true\n")
	f.Add("; comment only\n")

	f.Fuzz(func(t *testing.T, data string) {
		_, records, err := ParseText(data)
		if err != nil {
			return
		}
		for _, r := range records {
			if r.EPOnly && r.SectionStartOnly {
				t.Fatalf("record %q parsed with both scopes set", r.Name)
			}
			if len(r.Bytes) == 0 {
				t.Fatalf("record %q parsed with no non-wildcard bytes", r.Name)
			}
		}
	})
}
