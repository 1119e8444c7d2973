// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package cmd implements the guestboot command: it stands up a
// simulated machine, places the boot archive in flash, resolves the
// archive location from a device tree if one is given, and runs the
// process bootstrap against it.
package cmd
