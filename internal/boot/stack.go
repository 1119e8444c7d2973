// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package boot

import (
	"encoding/binary"

	"github.com/parvule/guestboot/internal/abi"
	"github.com/parvule/guestboot/internal/loader"
	"github.com/parvule/guestboot/internal/mem"
	"github.com/parvule/guestboot/internal/vm"
)

// buildStack writes the initial stack contract for the dynamic linker:
// the argument strings at the very top, and at the returned stack
// pointer, in ascending address order, argc, the argv pointers, a null
// terminator, and the auxiliary vector closed by a null tag.
func buildStack(as *vm.AddressSpace, name string, execImg, interpImg loader.Image) (uint64, error) {
	args := []string{name, syntheticArg}

	// Argument strings, NUL-terminated, at the highest addresses.
	var blob []byte

	addrs := make([]uint64, len(args))
	for i, arg := range args {
		addrs[i] = uint64(len(blob))
		blob = append(blob, arg...)
		blob = append(blob, 0)
	}

	strBase := StackTop - uint64(len(blob))
	for i := range addrs {
		addrs[i] += strBase
	}

	auxv := [][2]uint64{
		{abi.AuxPhdr, execImg.Phdr.Addr},
		{abi.AuxPhent, execImg.Phdr.Entry},
		{abi.AuxPhnum, execImg.Phdr.Count},
		{abi.AuxPagesz, mem.PageSize},
		{abi.AuxBase, interpImg.Base},
		{abi.AuxEntry, execImg.Entry},
		{abi.AuxNull, 0},
	}

	words := make([]uint64, 0, 2+len(args)+2*len(auxv))
	words = append(words, uint64(len(args)))
	words = append(words, addrs...)
	words = append(words, 0)

	for _, pair := range auxv {
		words = append(words, pair[0], pair[1])
	}

	vector := make([]byte, len(words)*abi.WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint64(vector[i*abi.WordSize:], w)
	}

	// The ABI requires a 16-byte aligned stack pointer.
	stackPtr := mem.AlignDown(strBase-uint64(len(vector)), 16)

	if err := as.WriteAt(blob, strBase); err != nil {
		return 0, err
	}

	if err := as.WriteAt(vector, stackPtr); err != nil {
		return 0, err
	}

	return stackPtr, nil
}
