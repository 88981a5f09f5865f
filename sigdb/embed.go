// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import (
	_ "embed"
	"os"
	"path/filepath"
	"sync"
)

//go:embed embed/userdb.txt
var defaultDB []byte

var (
	defaultDBOnce sync.Once
	defaultDBPath string
	defaultDBErr  error
)

// DefaultDBPath materialises the module's embedded starter database to a
// file on disk and returns its path. The database is always configuration
// injected by path into every operation, never a loaded singleton, so
// tests and callers can point at fixture databases independently; this
// just gives the embedded default a real path to be configuration with.
func DefaultDBPath() (string, error) {
	defaultDBOnce.Do(func() {
		dir, err := os.MkdirTemp("", "peidgo-defaultdb-")
		if err != nil {
			defaultDBErr = err
			return
		}
		path := filepath.Join(dir, "userdb.txt")
		if err := os.WriteFile(path, defaultDB, 0o600); err != nil {
			defaultDBErr = err
			return
		}
		defaultDBPath = path
	})
	return defaultDBPath, defaultDBErr
}
