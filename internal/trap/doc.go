// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package trap services the syscalls a freshly bootstrapped process
// raises. The dispatcher is stateless and table-driven; per-call errors
// go back to the guest as negated errno values and never touch loader
// state. An unknown syscall number is a guest programming error and
// surfaces as a fatal dispatch error, not a transient condition.
package trap
