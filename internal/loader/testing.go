// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package loader

import "encoding/binary"

// TestSegment describes one program header for [BuildTestImage].
type TestSegment struct {
	Type   uint32 // 1 = PT_LOAD
	Vaddr  uint64
	Data   []byte // file bytes, placed after the headers
	Filesz uint64 // defaults to len(Data)
	Memsz  uint64 // defaults to Filesz
}

// TestImage describes a synthetic ELF image for tests.
type TestImage struct {
	Type     uint16 // defaults to 3 (ET_DYN)
	Entry    uint64
	Segments []TestSegment
}

// BuildTestImage assembles a minimal 64-bit little-endian RISC-V ELF
// image from the description. It exists for tests only; images carry
// no section headers.
func BuildTestImage(spec TestImage) []byte {
	const (
		ehsize    = 64
		phentsize = 56
		etDyn     = 3
		emRISCV   = 243
		ptLoad    = 1
	)

	le := binary.LittleEndian
	phnum := len(spec.Segments)
	dataOff := uint64(ehsize + phnum*phentsize)

	etype := spec.Type
	if etype == 0 {
		etype = etDyn
	}

	ehdr := make([]byte, ehsize)
	copy(ehdr, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le.PutUint16(ehdr[0x10:], etype)
	le.PutUint16(ehdr[0x12:], emRISCV)
	le.PutUint32(ehdr[0x14:], 1)
	le.PutUint64(ehdr[0x18:], spec.Entry)
	le.PutUint64(ehdr[0x20:], ehsize) // phoff
	le.PutUint16(ehdr[0x34:], ehsize)
	le.PutUint16(ehdr[0x36:], phentsize)
	le.PutUint16(ehdr[0x38:], uint16(phnum))

	image := ehdr
	off := dataOff

	var bodies []byte

	for _, seg := range spec.Segments {
		if seg.Type == 0 {
			seg.Type = ptLoad
		}

		filesz := seg.Filesz
		if filesz == 0 {
			filesz = uint64(len(seg.Data))
		}

		memsz := seg.Memsz
		if memsz == 0 {
			memsz = filesz
		}

		phdr := make([]byte, phentsize)
		le.PutUint32(phdr[0x00:], seg.Type)
		le.PutUint32(phdr[0x04:], 7) // RWX, ignored by the loader
		le.PutUint64(phdr[0x08:], off)
		le.PutUint64(phdr[0x10:], seg.Vaddr)
		le.PutUint64(phdr[0x18:], seg.Vaddr)
		le.PutUint64(phdr[0x20:], filesz)
		le.PutUint64(phdr[0x28:], memsz)
		le.PutUint64(phdr[0x30:], 0x1000)

		image = append(image, phdr...)
		bodies = append(bodies, seg.Data...)
		off += uint64(len(seg.Data))
	}

	return append(image, bodies...)
}
