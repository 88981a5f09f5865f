// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"log/slog"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MSDOSView is a read-only cursor over a pure MZ (DOS) executable: one with
// no PE header attached. It is tried only after OpenPE reports
// ErrInvalidMagic, since every PE file also starts with a valid MZ stub.
type MSDOSView struct {
	path   string
	data   mmap.MMap
	f      *os.File
	logger *slog.Logger

	bytesLastPage         uint16
	pagesInFile           uint16
	numberRelocations     uint16
	headerParagraphs      uint16
	initialIP             uint16
	initialCS             uint16
	relocationTableOffset uint16
}

// OpenMSDOS opens path as a plain MZ executable.
func OpenMSDOS(path string, opts ...Option) (*MSDOSView, error) {
	o := applyOptions(opts)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 64)
	n, err := f.ReadAt(header, 0)
	if err != nil && n < 26 {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidMagic, err)
	}
	if !bytes.Equal(header[0:2], []byte("MZ")) {
		f.Close()
		return nil, fmt.Errorf("%w: missing MZ signature", ErrInvalidMagic)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	v := &MSDOSView{path: path, data: data, f: f, logger: o.logger}
	v.bytesLastPage = le16(header[2:4])
	if v.bytesLastPage == 0 {
		v.bytesLastPage = 512
	}
	v.pagesInFile = le16(header[4:6])
	v.numberRelocations = le16(header[6:8])
	v.headerParagraphs = le16(header[8:10])
	v.initialIP = le16(header[20:22])
	v.initialCS = le16(header[22:24])
	v.relocationTableOffset = le16(header[24:26])

	return v, nil
}

func le16(b []byte) uint16 {
	var x uint16
	binary.Read(bytes.NewReader(b), binary.LittleEndian, &x)
	return x
}

// Size returns the file size in bytes.
func (v *MSDOSView) Size() int64 { return int64(len(v.data)) }

// EntrypointOffset computes (CS << 4) + IP, the classic real-mode linear
// address of the entry point relative to the load segment.
func (v *MSDOSView) EntrypointOffset() (int64, error) {
	off := (int64(v.initialCS) << 4) + int64(v.initialIP)
	v.logger.Debug("resolved msdos entry point offset", "offset", off)
	return off, nil
}

// SectionsOffsets walks the relocation table, yielding (segment<<4)+offset
// for each entry. MZ binaries have no sections; relocation targets are the
// closest analogue PEiD-style signatures are authored against.
func (v *MSDOSView) SectionsOffsets() ([]int64, error) {
	offsets := make([]int64, 0, v.numberRelocations)
	base := int64(v.relocationTableOffset)
	for i := 0; i < int(v.numberRelocations); i++ {
		entryOff := base + int64(i)*4
		if entryOff+4 > v.Size() {
			break
		}
		segment := le16(v.data[entryOff : entryOff+2])
		offset := le16(v.data[entryOff+2 : entryOff+4])
		offsets = append(offsets, (int64(segment)<<4)+int64(offset))
	}
	return offsets, nil
}

// Read yields up to n bytes at each of offsets, in order; with no offsets it
// slides a window of n bytes across the entire file.
func (v *MSDOSView) Read(n int, offsets ...int64) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if len(offsets) == 0 {
			size := v.Size()
			for o := int64(0); o < size-int64(n); o++ {
				if !yield(v.windowAt(o, n)) {
					return
				}
			}
			return
		}
		for _, o := range offsets {
			if !yield(v.windowAt(o, n)) {
				return
			}
		}
	}
}

func (v *MSDOSView) windowAt(offset int64, n int) []byte {
	if offset < 0 || offset >= v.Size() {
		return nil
	}
	end := offset + int64(n)
	if max := v.Size(); end > max {
		end = max
	}
	return v.data[offset:end]
}

// Close releases the memory mapping and the underlying file descriptor.
func (v *MSDOSView) Close() error {
	var err error
	if v.data != nil {
		err = v.data.Unmap()
		v.data = nil
	}
	if v.f != nil {
		if cerr := v.f.Close(); err == nil {
			err = cerr
		}
		v.f = nil
	}
	return err
}
