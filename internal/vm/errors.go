// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package vm

import "errors"

var (
	// ErrUnaligned is returned if an address or length does not have
	// the alignment the requested mapping level needs.
	ErrUnaligned = errors.New("address not aligned for mapping level")

	// ErrBadLevel is returned if a mapping level is not 0, 1 or 2.
	ErrBadLevel = errors.New("invalid page table level")

	// ErrAlreadyMapped is returned if a leaf entry is already present
	// for the virtual address. Mappings are never replaced.
	ErrAlreadyMapped = errors.New("virtual address already mapped")

	// ErrNotMapped is returned if a translation hits an invalid entry.
	ErrNotMapped = errors.New("virtual address not mapped")
)
