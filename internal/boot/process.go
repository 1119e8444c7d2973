// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package boot

import (
	"sync/atomic"

	"github.com/parvule/guestboot/internal/vm"
)

// Process is the state of the single bootstrapped process: its address
// space and the control-transfer target. It is scoped to the one
// hardware thread that runs both the bootstrap and, later, the syscall
// dispatcher.
type Process struct {
	as *vm.AddressSpace

	entry    uint64
	stackPtr uint64

	borrowed atomic.Bool
}

// Entry returns the interpreter entry point control was handed to.
func (p *Process) Entry() uint64 {
	return p.entry
}

// StackPtr returns the initial stack pointer.
func (p *Process) StackPtr() uint64 {
	return p.stackPtr
}

// Use runs fn with exclusive access to the address space. A nested Use
// while one is outstanding fails with [ErrReentrantAccess]; the syscall
// dispatcher must never run while the bootstrap itself holds the state.
func (p *Process) Use(fn func(*vm.AddressSpace) error) error {
	if !p.borrowed.CompareAndSwap(false, true) {
		return ErrReentrantAccess
	}
	defer p.borrowed.Store(false)

	return fn(p.as)
}
