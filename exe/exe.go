// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exe implements a minimal MZ/PE reader: just enough of the header
// to resolve an entry-point file offset and the raw-data offset of every
// section, without modelling imports, resources, relocations or any of the
// rest of the PE format.
package exe

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidMagic is returned when a format's constructor does not find its
// expected magic bytes. It is recoverable: the caller may try another
// format's constructor on the same path.
var ErrInvalidMagic = errors.New("exe: invalid magic")

// MalformedError is returned when a file has well-formed MZ/PE headers but
// the entry point cannot be resolved to any section.
type MalformedError struct {
	RVA      uint32
	FileSize int64
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("exe: entry point (0x%08x) offset is outside sections (file size: 0x%08x)", e.RVA, e.FileSize)
}

// Executable is a read-only cursor over an MZ or PE file, exposing only the
// fields needed to locate signature-matching windows.
type Executable interface {
	// Size returns the file size in bytes.
	Size() int64

	// EntrypointOffset returns the file offset of the program's entry point.
	EntrypointOffset() (int64, error)

	// SectionsOffsets returns the raw file offset of the start of every
	// section (PE) or relocation target (MSDOS).
	SectionsOffsets() ([]int64, error)

	// Read yields up to n bytes read at each offset, in order. If no offsets
	// are given, it slides a window of n bytes across the whole file.
	// Windows are truncated, never padded, at EOF.
	Read(n int, offsets ...int64) iter.Seq[[]byte]

	// Close releases the underlying file descriptor. Safe to call more than
	// once.
	Close() error
}

// Open tries each supported format in turn and returns the first one that
// recognises path. Formats that report ErrInvalidMagic are skipped so the
// next one gets a chance; any other error is fatal.
func Open(path string) (Executable, error) {
	pe, err := OpenPE(path)
	if err == nil {
		return pe, nil
	}
	if !errors.Is(err, ErrInvalidMagic) {
		return nil, err
	}

	ms, err := OpenMSDOS(path)
	if err == nil {
		return ms, nil
	}
	if !errors.Is(err, ErrInvalidMagic) {
		return nil, err
	}

	return nil, fmt.Errorf("exe: %s is not a supported executable", path)
}
