// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Dump serialises the database back to PEiD text format at path: the
// comment lines (each re-prefixed "; "), a blank line, then every record in
// ascending name order.
func (db *DB) Dump(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(charmap.ISO8859_1.NewEncoder().Writer(f))

	for _, c := range db.Comments {
		fmt.Fprintf(w, "; %s\n", c)
	}
	fmt.Fprint(w, "\n")

	for _, r := range db.Records() {
		fmt.Fprintf(w, "[%s]\n", r.Name)
		fmt.Fprintf(w, "signature = %s\n", r.Signature(false))
		fmt.Fprintf(w, "ep_only = %s\n", boolString(r.EPOnly))
		if r.SectionStartOnly {
			fmt.Fprintf(w, "section_start_only = %s\n", boolString(r.SectionStartOnly))
		}
		fmt.Fprint(w, "\n")
	}

	return w.Flush()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Merge folds the records of dbs into db, replacing db.Comments with a
// merge banner dated at, one bullet per contributing source (including db
// itself if it was non-empty before the merge), and a trailing signature
// tally. A source contributes a bullet only if it adds at least one record
// not already present.
func (db *DB) Merge(at time.Time, dbs ...*DB) {
	hadSignatures := db.Len() > 0
	selfName := filepath.Base(db.Path)

	db.Comments = []string{"Merged with peidgo on " + at.Format("January 02, 2006")}
	if hadSignatures {
		db.Comments = append(db.Comments, " - "+selfName)
	}

	for _, other := range dbs {
		added := false
		for _, r := range other.Records() {
			if db.put(r) {
				added = true
			}
		}
		if added {
			db.Comments = append(db.Comments, " - "+filepath.Base(other.Path))
		}
	}

	db.setCountComment()
}

// Set adds or overwrites a signature for packer, appending version and
// author annotations to the stored name the way PEiD signature authors
// conventionally do. It rejects a signature that is both ep_only and
// section_start_only.
func (db *DB) Set(packer string, bytes []Token, epOnly, sectionStartOnly bool, author, version string) error {
	if epOnly && sectionStartOnly {
		return ErrConflictingScope
	}
	name := packer
	if version != "" {
		name += " " + version
	}
	if author != "" {
		name += " -> " + author
	}
	db.put(Record{Name: name, Bytes: bytes, EPOnly: epOnly, SectionStartOnly: sectionStartOnly})
	db.setCountComment()
	return nil
}

func (db *DB) setCountComment() {
	c := fmt.Sprintf("%d signatures in list", db.Len())
	for i, existing := range db.Comments {
		if strings.HasSuffix(existing, "signatures in list") {
			db.Comments[i] = c
			return
		}
	}
	db.Comments = append(db.Comments, c)
}

// Compare returns the names of signatures present in other but absent from
// db, keyed by byte sequence.
func (db *DB) Compare(other *DB) []string {
	var out []string
	for key, r := range other.records {
		if !db.Has(key) {
			out = append(out, r.Name)
		}
	}
	sort.Strings(out)
	return out
}
