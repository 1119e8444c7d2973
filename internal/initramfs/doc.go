// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package initramfs reads and writes the boot archive. The archive is a
// cpio file holding the dynamic linker and the user executable; the
// bootstrapper consumes it as a forward iterator of named entries.
package initramfs
