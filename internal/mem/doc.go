// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package mem provides the guest physical memory arena and the page
// allocator the rest of the bootstrapper draws from. Physical pages are
// addressed by opaque [Frame] handles instead of raw pointers; the arena
// is the single place that turns a frame into bytes.
package mem
