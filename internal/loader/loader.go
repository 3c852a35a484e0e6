// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loader reads application images into a flat memory image ready to
// be placed at their load address.
package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

// Format identifies how an image file is encoded.
type Format string

// Supported formats.
const (
	// FormatBinary is a raw memory image.
	FormatBinary Format = "bin"
	// FormatELF is an ELF executable; PT_LOAD segments are placed at their
	// physical addresses.
	FormatELF Format = "elf"
	// FormatExt4 is a file stored inside an ext4 filesystem image. The file
	// itself may be raw or ELF.
	FormatExt4 Format = "ext4"
)

// maxImageSize bounds the flattened size of an ELF image.
const maxImageSize = 64 << 20

var (
	// ErrTooShort is returned for images which cannot hold a stack pointer
	// and reset vector.
	ErrTooShort = errors.New("image too short to hold a vector table")
	// ErrNotFound is returned when a file is missing from a filesystem image.
	ErrNotFound = errors.New("file not found")
)

// Image is an application image and the address it must be placed at.
type Image struct {
	Base uint32
	Data []byte
}

// Vectors returns the initial stack pointer and reset handler stored in the
// first two slots of the image's vector table.
func (i Image) Vectors() (sp, entry uint32, err error) {
	if len(i.Data) < 8 {
		return 0, 0, ErrTooShort
	}
	return binary.LittleEndian.Uint32(i.Data[0:]), binary.LittleEndian.Uint32(i.Data[4:]), nil
}

// Opts says where to find an image and how to read it.
type Opts struct {
	// Path is the image file, or the filesystem image for FormatExt4.
	Path string
	// Format of the file at Path.
	Format Format
	// Base is the load address of raw images. For ELF images a zero Base
	// selects the lowest PT_LOAD address.
	Base uint32
	// Ext4Path is the path of the image inside the filesystem.
	Ext4Path string
	// Ext4Offset is the byte offset of the filesystem inside Path.
	Ext4Offset int64
}

// Load reads the image described by o.
func Load(o Opts) (Image, error) {
	glog.V(1).Infof("loader: reading %s image from %q", o.Format, o.Path)
	switch o.Format {
	case FormatBinary:
		data, err := os.ReadFile(o.Path)
		if err != nil {
			return Image{}, fmt.Errorf("failed to read image: %w", err)
		}
		return FromBinary(data, o.Base)
	case FormatELF:
		data, err := os.ReadFile(o.Path)
		if err != nil {
			return Image{}, fmt.Errorf("failed to read image: %w", err)
		}
		return FromELF(data, o.Base)
	case FormatExt4:
		f, err := os.Open(o.Path)
		if err != nil {
			return Image{}, fmt.Errorf("failed to open filesystem image: %w", err)
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return Image{}, fmt.Errorf("failed to stat filesystem image: %w", err)
		}
		if o.Ext4Offset < 0 || o.Ext4Offset >= st.Size() {
			return Image{}, fmt.Errorf("filesystem offset %d outside %d byte image", o.Ext4Offset, st.Size())
		}
		data, err := ReadExt4File(io.NewSectionReader(f, o.Ext4Offset, st.Size()-o.Ext4Offset), o.Ext4Path)
		if err != nil {
			return Image{}, fmt.Errorf("failed to read %q from filesystem: %w", o.Ext4Path, err)
		}
		if IsELF(data) {
			return FromELF(data, o.Base)
		}
		return FromBinary(data, o.Base)
	default:
		return Image{}, fmt.Errorf("unknown image format %q", o.Format)
	}
}

// IsELF returns true if data starts with the ELF magic number.
func IsELF(data []byte) bool {
	return bytes.HasPrefix(data, []byte(elf.ELFMAG))
}

// FromBinary returns a raw image placed at base.
func FromBinary(data []byte, base uint32) (Image, error) {
	if base%4 != 0 {
		return Image{}, fmt.Errorf("base %#x is not word aligned", base)
	}
	if len(data) < 8 {
		return Image{}, ErrTooShort
	}
	return Image{Base: base, Data: data}, nil
}

// FromELF flattens the PT_LOAD segments of an ELF executable into a single
// image. Gaps between segments and the tail of each segment beyond its file
// size are zero filled.
func FromELF(data []byte, base uint32) (Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("failed to parse ELF: %w", err)
	}
	defer f.Close()

	var loads []*elf.Prog
	lo, hi := uint64(1<<32), uint64(0)
	for _, prg := range f.Progs {
		if prg.Type != elf.PT_LOAD || prg.Memsz == 0 {
			continue
		}
		if prg.Filesz > prg.Memsz {
			return Image{}, fmt.Errorf("segment at %#x has file size %d beyond memory size %d", prg.Paddr, prg.Filesz, prg.Memsz)
		}
		loads = append(loads, prg)
		if prg.Paddr < lo {
			lo = prg.Paddr
		}
		if end := prg.Paddr + prg.Memsz; end > hi {
			hi = end
		}
	}
	if len(loads) == 0 {
		return Image{}, errors.New("ELF has no loadable segments")
	}
	if base == 0 {
		if lo >= 1<<32 {
			return Image{}, fmt.Errorf("lowest segment address %#x outside 32-bit address space", lo)
		}
		base = uint32(lo)
	}
	if uint64(base) > lo {
		return Image{}, fmt.Errorf("segment at %#x lies below base %#x", lo, base)
	}
	if hi-uint64(base) > maxImageSize {
		return Image{}, fmt.Errorf("flattened image of %d bytes is too large", hi-uint64(base))
	}

	mem := make([]byte, hi-uint64(base))
	for idx, prg := range loads {
		off := prg.Paddr - uint64(base)
		if _, err := prg.ReadAt(mem[off:off+prg.Filesz], 0); err != nil && err != io.EOF {
			return Image{}, fmt.Errorf("failed to read LOAD segment at idx %d: %w", idx, err)
		}
		glog.V(2).Infof("loader: segment %d: %d bytes at %#08x", idx, prg.Filesz, prg.Paddr)
	}
	return FromBinary(mem, base)
}
