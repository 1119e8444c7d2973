// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package loader materializes position-independent ELF images into an
// address space. It maps the page-aligned cover of every loadable
// segment, copies the file bytes and zero-fills the rest. Fixed-address
// (ET_EXEC) images are rejected; the bootstrapper picks every load base
// itself.
package loader
