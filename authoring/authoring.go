// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package authoring derives a common-prefix, wildcard-tolerant entry-point
// signature from a handful of sample packed binaries.
package authoring

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petools/peidgo/exe"
)

// Options configures FindEPOnlySignature. The zero value is invalid; use
// Defaults to get PEiD's conventional defaults.
type Options struct {
	MinLength int
	MaxLength int
	Threshold float64
	Logger    *slog.Logger
}

// Defaults returns the conventional authoring parameters: a 16-64 byte
// window and a threshold requiring at least half the output to be
// non-wildcard bytes.
func Defaults() Options {
	return Options{MinLength: 16, MaxLength: 64, Threshold: 0.5, Logger: slog.Default()}
}

// ErrNoSuitableSignature is returned when no candidate length satisfies the
// wildcard-ratio threshold.
var ErrNoSuitableSignature = errors.New("authoring: could not find a suitable signature")

// FindEPOnlySignature reads the entry-point window of every path in paths
// and derives a consensus signature: for each candidate length (descending
// from the shortest sample's length down to MinLength), columns that
// disagree across samples become `??`; the first length whose wildcard
// ratio satisfies Threshold is accepted. Samples that fail to open are
// logged and skipped; the search fails only if no sample yields any bytes
// or no length satisfies the threshold.
func FindEPOnlySignature(paths []string, opts Options) (string, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	samples := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := readEntrypointWindow(p, opts.MaxLength)
		if err != nil {
			opts.Logger.Warn("skipping sample", "path", p, "error", err)
			continue
		}
		samples = append(samples, data)
	}
	if len(samples) == 0 {
		return "", fmt.Errorf("%w: no sample produced a window", ErrNoSuitableSignature)
	}

	maxLen := opts.MaxLength
	shortest := maxLen
	for _, s := range samples {
		if len(s) < shortest {
			shortest = len(s)
		}
	}
	length := shortest
	if length > maxLen {
		length = maxLen
	}
	if length < opts.MinLength {
		length = opts.MinLength
	}

	for length >= opts.MinLength {
		sig := buildColumns(samples, length)
		sig = rightTrimWildcards(sig, opts.MinLength)

		wildcards := countWildcards(sig)
		if float64(wildcards)/float64(len(sig)) <= 1-opts.Threshold {
			sig = rightTrimWildcards(sig, opts.MinLength)
			return renderSignature(sig), nil
		}
		length--
	}
	return "", ErrNoSuitableSignature
}

func readEntrypointWindow(path string, maxLength int) ([]byte, error) {
	ex, err := exe.Open(path)
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	ep, err := ex.EntrypointOffset()
	if err != nil {
		return nil, err
	}

	for w := range ex.Read(maxLength, ep) {
		return w, nil
	}
	return nil, fmt.Errorf("authoring: no bytes readable at entry point of %s", path)
}

// column tracks one signature position across every sample: unset until the
// first sample writes it, a concrete byte once one sample has, wildcard
// once two samples disagree.
type column struct {
	set      bool
	wildcard bool
	value    byte
}

func buildColumns(samples [][]byte, length int) []column {
	cols := make([]column, length)
	for i := 0; i < length; i++ {
		for _, s := range samples {
			if i >= len(s) {
				continue
			}
			if !cols[i].set {
				cols[i] = column{set: true, value: s[i]}
				continue
			}
			if !cols[i].wildcard && cols[i].value != s[i] {
				cols[i] = column{set: true, wildcard: true}
				break
			}
		}
	}
	return cols
}

func rightTrimWildcards(sig []column, minLength int) []column {
	for len(sig) > minLength && sig[len(sig)-1].wildcard {
		sig = sig[:len(sig)-1]
	}
	return sig
}

func countWildcards(sig []column) int {
	n := 0
	for _, c := range sig {
		if c.wildcard {
			n++
		}
	}
	return n
}

func renderSignature(sig []column) string {
	tokens := make([]string, len(sig))
	for i, c := range sig {
		if c.wildcard {
			tokens[i] = "??"
		} else {
			tokens[i] = fmt.Sprintf("%02X", c.value)
		}
	}
	return strings.Join(tokens, " ")
}
