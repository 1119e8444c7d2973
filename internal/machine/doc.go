// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// Package machine provides a simulated single-hart machine: a guest RAM
// arena, a flash window the boot archive lives in, a translation-base
// register and a console sink. It is the in-tree implementation of the
// narrow architecture boundary the bootstrapper needs (activate, flush,
// transfer control); a hypervisor-backed vCPU would provide the same
// surface with real registers.
package machine
