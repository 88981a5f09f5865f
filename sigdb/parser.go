// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sigdb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflictingScope is a DBParseError: a record set both ep_only and
// section_start_only, which are mutually exclusive.
var ErrConflictingScope = errors.New("sigdb: ep_only and section_start_only are mutually exclusive")

// ParseText parses the PEiD text format already decoded to a Go string
// (PEiD databases are latin-1 on disk; see ParseFile). It returns the
// leading comment lines and the records in file order; it does not
// deduplicate.
func ParseText(data string) (comments []string, records []Record, err error) {
	lines := strings.Split(data, "\n")
	i := 0

	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, ";") {
			break
		}
		for _, c := range strings.Split(trimmed, ";") {
			c = strings.TrimSpace(c)
			if c != "" {
				comments = append(comments, c)
			}
		}
		i++
	}

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		i++
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "[") {
			continue
		}
		end := strings.Index(line, "]")
		if end < 0 {
			return nil, nil, fmt.Errorf("sigdb: malformed record header %q", line)
		}
		name := line[1:end]

		rec, next, err := parseRecordBody(lines, i, name)
		if err != nil {
			return nil, nil, err
		}
		i = next
		records = append(records, rec)
	}
	return comments, records, nil
}

func parseRecordBody(lines []string, i int, name string) (Record, int, error) {
	var tokens []string
	var epOnlyVal string
	sawSignature, sawEPOnly := false, false

scan:
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		i++
		if l == "" {
			continue
		}
		lower := strings.ToLower(l)
		switch {
		case strings.HasPrefix(lower, "ep_only"):
			v, err := valueAfterEquals(l)
			if err != nil {
				return Record{}, 0, fmt.Errorf("sigdb: record %q: %w", name, err)
			}
			epOnlyVal = strings.ToLower(v)
			sawEPOnly = true
			break scan
		case strings.HasPrefix(lower, "signature"):
			v, err := valueAfterEquals(l)
			if err != nil {
				return Record{}, 0, fmt.Errorf("sigdb: record %q: %w", name, err)
			}
			tokens = append(tokens, strings.Fields(v)...)
			sawSignature = true
		default:
			tokens = append(tokens, strings.Fields(l)...)
		}
	}
	if !sawSignature || !sawEPOnly {
		return Record{}, 0, fmt.Errorf("sigdb: record %q is missing signature or ep_only", name)
	}

	secOnly, secStr := false, ""
	if i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if strings.HasPrefix(strings.ToLower(l), "section_start_only") {
			v, err := valueAfterEquals(l)
			if err != nil {
				return Record{}, 0, fmt.Errorf("sigdb: record %q: %w", name, err)
			}
			secStr = strings.ToLower(v)
			secOnly = secStr == "true"
			i++
		}
	}

	epOnly := epOnlyVal == "true"
	if epOnly && secOnly {
		return Record{}, 0, fmt.Errorf("%w (record %q)", ErrConflictingScope, name)
	}

	mainLen := len(tokens)
	for mainLen > 0 && tokens[mainLen-1] == "??" {
		mainLen--
	}

	rec := Record{Name: name, EPOnly: epOnly, SectionStartOnly: secOnly}
	for _, tk := range tokens[:mainLen] {
		t, err := parseToken(tk)
		if err != nil {
			return Record{}, 0, fmt.Errorf("sigdb: record %q: %w", name, err)
		}
		rec.Bytes = append(rec.Bytes, t)
	}
	for _, tk := range tokens[mainLen:] {
		t, err := parseToken(tk)
		if err != nil {
			return Record{}, 0, fmt.Errorf("sigdb: record %q: %w", name, err)
		}
		rec.TrailingWildcards = append(rec.TrailingWildcards, t)
	}
	if len(rec.Bytes) == 0 {
		return Record{}, 0, fmt.Errorf("sigdb: record %q has no non-wildcard bytes", name)
	}
	return rec, i, nil
}

func valueAfterEquals(line string) (string, error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", fmt.Errorf("malformed line %q: missing '='", line)
	}
	return strings.TrimSpace(line[idx+1:]), nil
}
