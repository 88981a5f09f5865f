// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import "testing"

func TestDefaultDBPath_ParsesCleanly(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	db, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(%s): %v", path, err)
	}
	if db.Len() == 0 {
		t.Fatal("embedded default database is empty")
	}
}
