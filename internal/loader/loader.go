// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/parvule/guestboot/internal/mem"
	"github.com/parvule/guestboot/internal/vm"
)

// ELF header offsets read manually because [debug/elf] does not expose
// the program header table location.
const (
	offPhoff     = 0x20
	offPhentsize = 0x36
	offPhnum     = 0x38

	headerSize = 64
)

// Image describes a loaded ELF image. It is produced by [Load] and
// consumed immediately by the bootstrapper; nothing retains it.
type Image struct {
	// Base is the load base every segment address was offset by.
	Base uint64

	// Entry is the declared entry point, relocated by Base.
	Entry uint64

	// MaxExtent is the highest page-aligned address any segment
	// touched. The bootstrapper seeds the heap from the main
	// executable's extent.
	MaxExtent uint64

	// Phdr is the program header table location and shape, relocated
	// by Base. The dynamic linker receives it through the auxiliary
	// vector.
	Phdr PhdrTable
}

// PhdrTable locates a loaded image's program header table in guest
// virtual memory.
type PhdrTable struct {
	Addr  uint64
	Entry uint64
	Count uint64
}

// Load parses a position-independent ELF image and maps its loadable
// segments into the address space at the given base.
//
// Malformed input fails with [ErrInvalidImage], a fixed-address image
// with [ErrNotPositionIndependent], and a segment with filesz > memsz
// with [ErrCorruptSegment]. Segment validation happens before the first
// page is mapped, so a failed load leaves the address space untouched.
func Load(as *vm.AddressSpace, image []byte, base uint64) (Image, error) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if f.Class != elf.ELFCLASS64 || len(f.Progs) == 0 || len(image) < headerSize {
		return Image{}, fmt.Errorf("%w: need 64-bit image with program headers",
			ErrInvalidImage)
	}

	if f.Type != elf.ET_DYN {
		return Image{}, fmt.Errorf("%w: type %s", ErrNotPositionIndependent, f.Type)
	}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}

		if p.Filesz > p.Memsz {
			return Image{}, fmt.Errorf("%w: vaddr %#x filesz %#x memsz %#x",
				ErrCorruptSegment, p.Vaddr, p.Filesz, p.Memsz)
		}

		if p.Off+p.Filesz > uint64(len(image)) {
			return Image{}, fmt.Errorf("%w: segment %#x exceeds image",
				ErrInvalidImage, p.Vaddr)
		}
	}

	img := Image{
		Base:  base,
		Entry: base + f.Entry,
		Phdr:  phdrInfo(image, base),
	}

	// Loadable segments are ordered by vaddr; adjacent segments may
	// share a page, so already-covered pages are skipped by keeping a
	// high-water mark.
	var mapped uint64

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}

		start := base + p.Vaddr
		end := start + p.Memsz

		lo := max(mem.AlignDown(start, mem.PageSize), mapped)
		hi := mem.AlignUp(end, mem.PageSize)

		if hi > lo {
			if err := as.MapNew(lo, hi-lo); err != nil {
				return Image{}, fmt.Errorf("map segment %#x: %w", p.Vaddr, err)
			}

			mapped = hi
		}

		data := image[p.Off : p.Off+p.Filesz]
		if err := as.WriteAt(data, start); err != nil {
			return Image{}, fmt.Errorf("copy segment %#x: %w", p.Vaddr, err)
		}

		if err := zeroFill(as, start+p.Filesz, p.Memsz-p.Filesz); err != nil {
			return Image{}, fmt.Errorf("zero segment %#x: %w", p.Vaddr, err)
		}

		if hi > img.MaxExtent {
			img.MaxExtent = hi
		}
	}

	return img, nil
}

// zeroFill clears [va, va+length). Fresh pages are already zero, but a
// bss sharing its first page with the previous segment's file bytes is
// not.
func zeroFill(as *vm.AddressSpace, va, length uint64) error {
	var zero [mem.PageSize]byte

	for length > 0 {
		n := uint64(len(zero))
		if length < n {
			n = length
		}

		if err := as.WriteAt(zero[:n], va); err != nil {
			return err
		}

		va += n
		length -= n
	}

	return nil
}

// phdrInfo reads the program header table location from the raw ELF
// header and relocates it by base. For the usual PIE layout the table
// sits inside the first loadable segment at its file offset.
func phdrInfo(image []byte, base uint64) PhdrTable {
	return PhdrTable{
		Addr:  base + binary.LittleEndian.Uint64(image[offPhoff:]),
		Entry: uint64(binary.LittleEndian.Uint16(image[offPhentsize:])),
		Count: uint64(binary.LittleEndian.Uint16(image[offPhnum:])),
	}
}
