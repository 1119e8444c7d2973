// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package vm builds and owns per-process virtual address spaces.
//
// The page table is the RISC-V Sv39 format: a 3-level radix trie of
// 512-entry nodes, indexed by successive 9-bit slices of the virtual
// address. Nodes live in guest physical pages and are walked through
// the [mem.Backing] accessor, never through raw pointers. Mappings are
// built lazily and are never torn down; the address space exists for
// exactly one boot.
package vm
