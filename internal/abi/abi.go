// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package abi holds the numeric contract between the bootstrapper and
// the guest process: Linux riscv64 syscall numbers as musl uses them,
// the errno values the dispatcher hands back, the auxiliary-vector tags
// the dynamic linker reads, and the iovec wire layout.
package abi

// Syscall numbers, Linux riscv64 convention.
const (
	SysIoctl         = 29
	SysClose         = 57
	SysWritev        = 66
	SysExit          = 93
	SysExitGroup     = 94
	SysSetTIDAddress = 96
	SysBrk           = 214
	SysMmap          = 222
	SysMprotect      = 226
)

// Errno values returned to the guest via the negative-return
// convention.
const (
	EIO    = 5
	EBADF  = 9
	EINVAL = 22
)

// Auxiliary-vector tags. A (tag, value) sequence terminated by AuxNull
// is written onto the initial stack for the dynamic linker.
const (
	AuxNull   uint64 = 0 // end of vector
	AuxPhdr   uint64 = 3 // program header table address
	AuxPhent  uint64 = 4 // size of one program header entry
	AuxPhnum  uint64 = 5 // number of program headers
	AuxPagesz uint64 = 6 // page size
	AuxBase   uint64 = 7 // interpreter load base
	AuxEntry  uint64 = 9 // executable entry address
)

// IovecSize is the size of one struct iovec on a 64-bit guest: a base
// pointer followed by a length word.
const IovecSize = 16

// WordSize is the guest register and stack slot width.
const WordSize = 8
