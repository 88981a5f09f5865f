// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exe

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func buildMZ(t *testing.T, initialCS, initialIP, numRelocs, relocTableOffset uint16, relocs [][2]uint16) string {
	t.Helper()

	size := 64
	if needed := int(relocTableOffset) + len(relocs)*4; needed > size {
		size = needed
	}
	buf := make([]byte, size)
	copy(buf[0:2], "MZ")
	binary.LittleEndian.PutUint16(buf[6:8], numRelocs)
	binary.LittleEndian.PutUint16(buf[20:22], initialIP)
	binary.LittleEndian.PutUint16(buf[22:24], initialCS)
	binary.LittleEndian.PutUint16(buf[24:26], relocTableOffset)

	for i, r := range relocs {
		off := int(relocTableOffset) + i*4
		binary.LittleEndian.PutUint16(buf[off:], r[0])   // segment
		binary.LittleEndian.PutUint16(buf[off+2:], r[1]) // offset
	}

	path := filepath.Join(t.TempDir(), "sample.com")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenMSDOS_RejectsNonMZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	if err := os.WriteFile(path, []byte{0, 1, 2, 3}, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := OpenMSDOS(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("want ErrInvalidMagic, got %v", err)
	}
}

func TestMSDOSView_EntrypointOffset(t *testing.T) {
	path := buildMZ(t, 0x0100, 0x0010, 0, 0x1c, nil)

	v, err := OpenMSDOS(path)
	if err != nil {
		t.Fatalf("OpenMSDOS: %v", err)
	}
	defer v.Close()

	off, err := v.EntrypointOffset()
	if err != nil {
		t.Fatalf("EntrypointOffset: %v", err)
	}
	if want := int64(0x0100<<4) + 0x0010; off != want {
		t.Fatalf("got %d, want %d", off, want)
	}
}

func TestMSDOSView_SectionsOffsets(t *testing.T) {
	path := buildMZ(t, 0, 0, 2, 0x1c, [][2]uint16{{0x0100, 0x0010}, {0x0200, 0x0000}})

	v, err := OpenMSDOS(path)
	if err != nil {
		t.Fatalf("OpenMSDOS: %v", err)
	}
	defer v.Close()

	offsets, err := v.SectionsOffsets()
	if err != nil {
		t.Fatalf("SectionsOffsets: %v", err)
	}
	want := []int64{(0x0100 << 4) + 0x0010, (0x0200 << 4) + 0x0000}
	if len(offsets) != len(want) || offsets[0] != want[0] || offsets[1] != want[1] {
		t.Fatalf("got %v, want %v", offsets, want)
	}
}
