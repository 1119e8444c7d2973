// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package fdt resolves the boot archive's physical location from a
// flattened device tree. It walks the structure block for the /chosen
// node and reads the linux,initrd-start and linux,initrd-end cells the
// firmware placed there. Nothing else of the tree is interpreted.
package fdt
