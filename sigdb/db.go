// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import (
	"io"
	"os"
	"sort"

	"golang.org/x/text/encoding/charmap"
)

// DB is a parsed PEiD signature database: the leading comment lines plus the
// set of records, keyed by their byte-sequence identity. Inserting a record
// whose Key already exists supersedes the previous one.
type DB struct {
	Path     string
	Comments []string
	records  map[string]Record
}

// New builds a DB from parsed comments and records, applying the "last
// insertion wins" collision rule.
func New(comments []string, records []Record) *DB {
	db := &DB{Comments: append([]string(nil), comments...), records: make(map[string]Record, len(records))}
	for _, r := range records {
		db.records[r.Key()] = r
	}
	return db
}

// ParseFile reads and parses a PEiD signature database from path. The file
// is decoded as latin-1, the encoding PEiD databases are specified in.
func ParseFile(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(f))
	if err != nil {
		return nil, err
	}

	comments, records, err := ParseText(string(raw))
	if err != nil {
		return nil, err
	}
	db := New(comments, records)
	db.Path = path
	return db, nil
}

// Records returns every record in the database, sorted by name, matching
// the DB Writer's Dump ordering.
func (db *DB) Records() []Record {
	out := make([]Record, 0, len(db.records))
	for _, r := range db.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of distinct signatures in the database.
func (db *DB) Len() int { return len(db.records) }

// Get looks up a record by its byte-sequence key.
func (db *DB) Get(key string) (Record, bool) {
	r, ok := db.records[key]
	return r, ok
}

// Has reports whether a record with the given key exists.
func (db *DB) Has(key string) bool {
	_, ok := db.records[key]
	return ok
}

// put installs r, overwriting any record with the same key. It reports
// whether the key was previously unseen.
func (db *DB) put(r Record) bool {
	if db.records == nil {
		db.records = make(map[string]Record)
	}
	_, existed := db.records[r.Key()]
	db.records[r.Key()] = r
	return !existed
}
