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

package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func vectorTable(sp, entry uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], sp)
	binary.LittleEndian.PutUint32(b[4:], entry)
	return b
}

type segment struct {
	paddr uint32
	data  []byte
	memsz uint32
}

// buildELF assembles a minimal little-endian ARM executable.
func buildELF(t *testing.T, entry uint32, segs []segment) []byte {
	t.Helper()
	const (
		ehsize    = 52
		phentsize = 32
	)
	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_ARM),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(segs)),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	off := uint32(ehsize + phentsize*len(segs))
	for _, s := range segs {
		p := elf.Prog32{
			Type:   uint32(elf.PT_LOAD),
			Off:    off,
			Vaddr:  s.paddr,
			Paddr:  s.paddr,
			Filesz: uint32(len(s.data)),
			Memsz:  s.memsz,
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Align:  4,
		}
		if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
			t.Fatalf("failed to write program header: %v", err)
		}
		off += uint32(len(s.data))
	}
	for _, s := range segs {
		buf.Write(s.data)
	}
	return buf.Bytes()
}

func TestFromBinary(t *testing.T) {
	for _, test := range []struct {
		desc      string
		data      []byte
		base      uint32
		wantSP    uint32
		wantEntry uint32
		wantErr   bool
	}{
		{
			desc:      "vector table",
			data:      vectorTable(0x20004000, 0x08010101),
			base:      0x08010000,
			wantSP:    0x20004000,
			wantEntry: 0x08010101,
		}, {
			desc:    "too short",
			data:    []byte{1, 2, 3, 4},
			base:    0x08010000,
			wantErr: true,
		}, {
			desc:    "misaligned",
			data:    vectorTable(0x20004000, 0x08010101),
			base:    0x08010002,
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			img, err := FromBinary(test.data, test.base)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("FromBinary() = %v, wantErr %t", err, test.wantErr)
			}
			if err != nil {
				return
			}
			sp, entry, err := img.Vectors()
			if err != nil {
				t.Fatalf("Vectors(): %v", err)
			}
			if sp != test.wantSP || entry != test.wantEntry {
				t.Errorf("Vectors() = (%#x, %#x), want (%#x, %#x)", sp, entry, test.wantSP, test.wantEntry)
			}
		})
	}
}

func TestVectorsTooShort(t *testing.T) {
	if _, _, err := (Image{Data: []byte{1}}).Vectors(); !errors.Is(err, ErrTooShort) {
		t.Errorf("Vectors() = %v, want %v", err, ErrTooShort)
	}
}

func TestFromELF(t *testing.T) {
	code := []byte{0xfe, 0xe7, 0x00, 0xbf}
	data := buildELF(t, 0x08010101, []segment{
		{paddr: 0x08010000, data: vectorTable(0x20004000, 0x08010101), memsz: 16},
		{paddr: 0x08010100, data: code, memsz: 4},
	})

	for _, test := range []struct {
		desc     string
		base     uint32
		wantBase uint32
		wantErr  bool
	}{
		{desc: "lowest segment", base: 0, wantBase: 0x08010000},
		{desc: "explicit base", base: 0x08010000, wantBase: 0x08010000},
		{desc: "base above segments", base: 0x08020000, wantErr: true},
	} {
		t.Run(test.desc, func(t *testing.T) {
			img, err := FromELF(data, test.base)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("FromELF() = %v, wantErr %t", err, test.wantErr)
			}
			if err != nil {
				return
			}
			want := make([]byte, 0x104)
			copy(want, vectorTable(0x20004000, 0x08010101))
			copy(want[0x100:], code)
			if img.Base != test.wantBase {
				t.Errorf("Base = %#x, want %#x", img.Base, test.wantBase)
			}
			if diff := cmp.Diff(want, img.Data); diff != "" {
				t.Errorf("image diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromELFGarbage(t *testing.T) {
	if _, err := FromELF([]byte("not an elf at all"), 0); err == nil {
		t.Error("FromELF() succeeded on garbage, want error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.bin")
	if err := os.WriteFile(bin, vectorTable(0x20004000, 0x08010101), 0o644); err != nil {
		t.Fatal(err)
	}
	elfPath := filepath.Join(dir, "app.elf")
	if err := os.WriteFile(elfPath, buildELF(t, 0x08010101, []segment{
		{paddr: 0x08010000, data: vectorTable(0x20004000, 0x08010101), memsz: 8},
	}), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, test := range []struct {
		desc    string
		opts    Opts
		wantErr bool
	}{
		{
			desc: "binary",
			opts: Opts{Path: bin, Format: FormatBinary, Base: 0x08010000},
		}, {
			desc: "elf",
			opts: Opts{Path: elfPath, Format: FormatELF},
		}, {
			desc:    "missing file",
			opts:    Opts{Path: filepath.Join(dir, "nope"), Format: FormatBinary},
			wantErr: true,
		}, {
			desc:    "missing filesystem",
			opts:    Opts{Path: filepath.Join(dir, "nope"), Format: FormatExt4, Ext4Path: "/boot/app.bin"},
			wantErr: true,
		}, {
			desc:    "unknown format",
			opts:    Opts{Path: bin, Format: "hex"},
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			img, err := Load(test.opts)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Load() = %v, wantErr %t", err, test.wantErr)
			}
			if err != nil {
				return
			}
			if img.Base != 0x08010000 {
				t.Errorf("Base = %#x, want 0x8010000", img.Base)
			}
			if sp, entry, _ := img.Vectors(); sp != 0x20004000 || entry != 0x08010101 {
				t.Errorf("Vectors() = (%#x, %#x)", sp, entry)
			}
		})
	}
}

func TestReadExt4FileEmptyPath(t *testing.T) {
	if _, err := ReadExt4File(bytes.NewReader(nil), "/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadExt4File() = %v, want %v", err, ErrNotFound)
	}
}

func TestIsELF(t *testing.T) {
	if !IsELF([]byte("\x7fELF\x01")) {
		t.Error("IsELF() = false for ELF magic")
	}
	if IsELF(vectorTable(0x20004000, 0x08010101)) {
		t.Error("IsELF() = true for raw image")
	}
}
