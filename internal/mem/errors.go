// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package mem

import "errors"

var (
	// ErrOutOfMemory is returned if the arena has no free pages left.
	ErrOutOfMemory = errors.New("out of physical pages")

	// ErrBadFrame is returned if a frame does not belong to the arena.
	ErrBadFrame = errors.New("frame outside of arena")

	// ErrUnaligned is returned if an address or size is not page-aligned.
	ErrUnaligned = errors.New("not page-aligned")
)
