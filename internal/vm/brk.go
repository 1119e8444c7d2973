// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package vm

import "github.com/parvule/guestboot/internal/mem"

// SetHeap seeds the program break from the highest address an image
// load touched. All three bounds start at the page-aligned limit, so
// brkMin <= brk <= brkMax holds from the first moment on.
func (as *AddressSpace) SetHeap(limit uint64) {
	limit = mem.AlignUp(limit, mem.PageSize)

	as.brk = limit
	as.brkMin = limit
	as.brkMax = limit
}

// Break returns the current program break.
func (as *AddressSpace) Break() uint64 {
	return as.brk
}

// Brk moves the program break and returns the resulting break.
//
// Lowering below the initial break is a no-op; memory above a lowered
// break stays mapped, brkMax never decreases. Raising beyond brkMax
// maps fresh zero pages for the page-rounded delta. If that mapping
// fails the break is left unchanged, which the guest observes as a
// failed brk in the usual Linux way.
func (as *AddressSpace) Brk(n uint64) uint64 {
	if n < as.brkMin {
		return as.brk
	}

	if n > as.brkMax {
		newMax := mem.AlignUp(n, mem.PageSize)

		if err := as.MapNew(as.brkMax, newMax-as.brkMax); err != nil {
			return as.brk
		}

		as.brkMax = newMax
	}

	as.brk = n

	return as.brk
}
