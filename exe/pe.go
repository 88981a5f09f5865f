// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	sectionHeaderSize    = 40
	sectionVirtualSizeOff = 8
	sectionVirtualAddrOff = 12
	sectionRawSizeOff     = 16
	sectionRawPointerOff  = 20
)

// PEView is a read-only cursor over a Portable Executable file, exposing the
// offsets required by the signature matcher: the entry-point file offset and
// the raw-data start of every section.
type PEView struct {
	path            string
	data            mmap.MMap
	f               *os.File
	logger          *slog.Logger
	peOffset        uint32
	numberOfSections uint16
	sizeOfOptHeader  uint16
}

// Option configures an Executable constructor.
type Option func(*peOptions)

type peOptions struct {
	logger *slog.Logger
}

// WithLogger injects a structured logger used for debug traces of resolved
// offsets and byte windows. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *peOptions) { o.logger = l }
}

func applyOptions(opts []Option) *peOptions {
	o := &peOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OpenPE opens path as a PE file. It returns an error wrapping
// ErrInvalidMagic when the MZ or PE signature is missing, so callers may try
// another format.
func OpenPE(path string, opts ...Option) (*PEView, error) {
	o := applyOptions(opts)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	v := &PEView{path: path, data: data, f: f, logger: o.logger}
	if err := v.parseHeaders(); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *PEView) parseHeaders() error {
	if len(v.data) < 0x40 {
		return fmt.Errorf("%w: file too small for MZ header", ErrInvalidMagic)
	}
	if !bytes.Equal(v.data[0:2], []byte("MZ")) {
		return fmt.Errorf("%w: missing MZ signature", ErrInvalidMagic)
	}

	peOffset, err := v.readUint32(0x3c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMagic, err)
	}
	v.peOffset = peOffset

	magic, err := v.slice(int64(peOffset), 4)
	if err != nil || !bytes.Equal(magic, []byte("PE\x00\x00")) {
		return fmt.Errorf("%w: missing PE signature", ErrInvalidMagic)
	}

	numSections, err := v.readUint16(int64(peOffset) + 6)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMagic, err)
	}
	v.numberOfSections = numSections

	sizeOptHdr, err := v.readUint16(int64(peOffset) + 20)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMagic, err)
	}
	v.sizeOfOptHeader = sizeOptHdr

	return nil
}

// Size returns the file size in bytes.
func (v *PEView) Size() int64 { return int64(len(v.data)) }

type rawSection struct {
	virtualSize uint32
	virtualAddr uint32
	rawSize     uint32
	rawPointer  uint32
}

func (v *PEView) sectionsTableStart() int64 {
	return int64(v.peOffset) + 24 + int64(v.sizeOfOptHeader)
}

func (v *PEView) sections() ([]rawSection, error) {
	start := v.sectionsTableStart()
	out := make([]rawSection, 0, v.numberOfSections)
	for i := 0; i < int(v.numberOfSections); i++ {
		base := start + int64(i)*sectionHeaderSize
		vsize, err := v.readUint32(base + sectionVirtualSizeOff)
		if err != nil {
			return nil, err
		}
		vaddr, err := v.readUint32(base + sectionVirtualAddrOff)
		if err != nil {
			return nil, err
		}
		rsize, err := v.readUint32(base + sectionRawSizeOff)
		if err != nil {
			return nil, err
		}
		rptr, err := v.readUint32(base + sectionRawPointerOff)
		if err != nil {
			return nil, err
		}
		out = append(out, rawSection{vsize, vaddr, rsize, rptr})
	}
	return out, nil
}

// EntrypointOffset resolves the AddressOfEntryPoint RVA to a raw file
// offset by finding the section that contains it. The containment test uses
// virtual_size, not raw_size: packed binaries routinely have raw_size == 0
// for the section holding the unpacking stub, which virtual_size still
// covers correctly.
func (v *PEView) EntrypointOffset() (int64, error) {
	rva, err := v.readUint32(int64(v.peOffset) + 40)
	if err != nil {
		return 0, err
	}
	v.logger.Debug("resolved entry point rva", "rva", fmt.Sprintf("0x%08x", rva))

	secs, err := v.sections()
	if err != nil {
		return 0, err
	}
	for _, s := range secs {
		if rva >= s.virtualAddr && rva < s.virtualAddr+s.virtualSize {
			off := int64(s.rawPointer) + int64(rva-s.virtualAddr)
			v.logger.Debug("resolved entry point offset", "offset", off)
			return off, nil
		}
	}
	return 0, &MalformedError{RVA: rva, FileSize: v.Size()}
}

// SectionsOffsets returns PointerToRawData for every section, in section
// table order.
func (v *PEView) SectionsOffsets() ([]int64, error) {
	secs, err := v.sections()
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, len(secs))
	for i, s := range secs {
		offsets[i] = int64(s.rawPointer)
	}
	return offsets, nil
}

// Read yields up to n bytes at each of offsets, in order; with no offsets it
// slides a window of n bytes across the entire file.
func (v *PEView) Read(n int, offsets ...int64) iter.Seq[[]byte] {
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

func (v *PEView) windowAt(offset int64, n int) []byte {
	if offset < 0 || offset >= v.Size() {
		return nil
	}
	end := offset + int64(n)
	if max := v.Size(); end > max {
		end = max
	}
	w := v.data[offset:end]
	if v.logger.Enabled(context.Background(), slog.LevelDebug) {
		v.logger.Debug("read window", "offset", offset, "bytes", fmt.Sprintf("% 02X", w))
	}
	return w
}

func (v *PEView) slice(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset+int64(n) > v.Size() {
		return nil, errors.New("exe: read outside file bounds")
	}
	return v.data[offset : offset+int64(n)], nil
}

func (v *PEView) readUint16(offset int64) (uint16, error) {
	b, err := v.slice(offset, 2)
	if err != nil {
		return 0, err
	}
	var x uint16
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &x); err != nil {
		return 0, err
	}
	return x, nil
}

func (v *PEView) readUint32(offset int64) (uint32, error) {
	b, err := v.slice(offset, 4)
	if err != nil {
		return 0, err
	}
	var x uint32
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &x); err != nil {
		return 0, err
	}
	return x, nil
}

// Close releases the memory mapping and the underlying file descriptor.
func (v *PEView) Close() error {
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
