// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package loader

import "errors"

var (
	// ErrInvalidImage is returned if the image is not a well-formed
	// 64-bit ELF file with a program header table.
	ErrInvalidImage = errors.New("invalid ELF image")

	// ErrNotPositionIndependent is returned if the image declares a
	// fixed load address. Only load-base-relocatable images are
	// supported.
	ErrNotPositionIndependent = errors.New("image is not position-independent")

	// ErrCorruptSegment is returned if a loadable segment declares
	// more file bytes than memory bytes. No bytes are copied in that
	// case.
	ErrCorruptSegment = errors.New("segment file size exceeds memory size")
)
