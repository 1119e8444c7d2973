// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package boot

import "errors"

var (
	// ErrMissingInterpreter is returned if the boot archive has no
	// dynamic-linker entry.
	ErrMissingInterpreter = errors.New("no interpreter in boot archive")

	// ErrMissingExecutable is returned if the boot archive has no
	// entry besides the interpreter.
	ErrMissingExecutable = errors.New("no executable in boot archive")

	// ErrReentrantAccess is returned if process state is acquired
	// while another acquisition is still outstanding. The bootstrap
	// and the syscall dispatcher run on one hardware thread; nested
	// mutation would corrupt state and must fail fast instead.
	ErrReentrantAccess = errors.New("process state already borrowed")
)
