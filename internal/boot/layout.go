// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package boot

// Virtual layout of the bootstrapped process. The three load windows
// and the stack are fixed and pairwise disjoint; images must fit their
// windows.
const (
	// ExecBase is the load base of the main executable. Its max
	// extent seeds the heap, which grows upward from here via brk.
	ExecBase = 0x40_0000

	// InterpBase is the load base of the dynamic linker, far above
	// any plausible executable-plus-heap extent.
	InterpBase = 0x10_0000_0000

	// StackBase/StackSize reserve the initial stack right below the
	// top of the Sv39 user half. The stack grows down from StackTop.
	StackBase = 0x3F_FFE0_0000
	StackSize = 0x20_0000
	StackTop  = StackBase + StackSize

	// LoaderWindow is the 1 GiB physical window the loader itself
	// executes in. It stays identity-mapped, and aliased high, so the
	// loader survives its own address space activation.
	LoaderWindow = 0x8000_0000

	// AliasBase is where the high half mirrors physical memory.
	AliasBase = 0xFFFF_FFC0_0000_0000
)

// interpreterPrefix identifies the dynamic-linker archive entry by
// name: "ld.so", "ld-musl-riscv64.so.1" and friends.
const interpreterPrefix = "ld"

// syntheticArg is the single argument handed to every bootstrapped
// process, making argc exactly 2.
const syntheticArg = "boot"
