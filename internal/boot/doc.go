// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package boot constructs the initial user process: it picks the
// dynamic linker and the executable out of the boot archive, loads both
// into a fresh address space, builds the stack and auxiliary vector the
// linker expects, and hands control over. Every failure on this path is
// boot-fatal; there is nothing to fall back to.
package boot
