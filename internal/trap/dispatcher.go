// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package trap

import (
	"encoding/binary"
	"io"

	"github.com/parvule/guestboot/internal/abi"
	"github.com/parvule/guestboot/internal/boot"
	"github.com/parvule/guestboot/internal/mem"
	"github.com/parvule/guestboot/internal/vm"
)

// Args is one trap's register state: the syscall number and the six
// argument registers of the Linux riscv64 convention.
type Args struct {
	Num uint64
	A   [6]uint64
}

type handler func(*Dispatcher, *boot.Process, Args) (int64, error)

// Dispatcher routes guest syscalls. One dispatch per trap, keyed by
// syscall number; returns follow the signed-word convention where
// negative values are negated errno codes.
type Dispatcher struct {
	console io.Writer
	table   map[uint64]handler
}

// New creates a dispatcher writing console output to the given sink.
func New(console io.Writer) *Dispatcher {
	return &Dispatcher{
		console: console,
		table: map[uint64]handler{
			abi.SysWritev:        (*Dispatcher).writev,
			abi.SysBrk:           (*Dispatcher).brk,
			abi.SysMmap:          (*Dispatcher).mmap,
			abi.SysMprotect:      (*Dispatcher).mprotect,
			abi.SysSetTIDAddress: (*Dispatcher).setTIDAddress,
			abi.SysIoctl:         (*Dispatcher).ioctl,
			abi.SysClose:         (*Dispatcher).close,
			abi.SysExit:          (*Dispatcher).exit,
			abi.SysExitGroup:     (*Dispatcher).exit,
		},
	}
}

// Handle services one trap. The returned error is nil for everything
// the guest can continue from; [ExitError] reports guest termination
// and [UnknownSyscallError] an unservable trap.
func (d *Dispatcher) Handle(p *boot.Process, a Args) (int64, error) {
	h, ok := d.table[a.Num]
	if !ok {
		return 0, &UnknownSyscallError{Num: a.Num}
	}

	return h(d, p, a)
}

// writev writes the guest's iovec buffers in order to the console sink.
// Buffers are copied out in page-sized chunks, so iov_len is never
// trusted for an allocation; an unmapped address surfaces as the
// partial count. A short or failed write stops iteration and returns
// the bytes written so far; a failure before any byte went out is an
// I/O or address error.
func (d *Dispatcher) writev(p *boot.Process, a Args) (int64, error) {
	if fd := a.A[0]; fd > 2 {
		return -abi.EBADF, nil
	}

	var ret int64

	err := p.Use(func(as *vm.AddressSpace) error {
		base, cnt := a.A[1], a.A[2]
		hdr := make([]byte, abi.IovecSize)
		buf := make([]byte, mem.PageSize)

		for i := uint64(0); i < cnt; i++ {
			if err := as.ReadAt(hdr, base+i*abi.IovecSize); err != nil {
				if ret == 0 {
					ret = -abi.EINVAL
				}

				return nil
			}

			ptr := binary.LittleEndian.Uint64(hdr)
			left := binary.LittleEndian.Uint64(hdr[8:])

			for left > 0 {
				// Chunks never cross a page boundary, so every byte
				// of a mapped prefix goes out before a fault.
				chunk := mem.PageSize - ptr%mem.PageSize
				if left < chunk {
					chunk = left
				}

				if err := as.ReadAt(buf[:chunk], ptr); err != nil {
					if ret == 0 {
						ret = -abi.EINVAL
					}

					return nil
				}

				n, err := d.console.Write(buf[:chunk])
				ret += int64(n)

				if err != nil {
					if ret == 0 {
						ret = -abi.EIO
					}

					return nil
				}

				if uint64(n) < chunk {
					return nil
				}

				ptr += chunk
				left -= chunk
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return ret, nil
}

// brk moves the program break. Always returns the resulting break.
func (d *Dispatcher) brk(p *boot.Process, a Args) (int64, error) {
	var ret int64

	err := p.Use(func(as *vm.AddressSpace) error {
		ret = int64(as.Brk(a.A[0]))
		return nil
	})
	if err != nil {
		return 0, err
	}

	return ret, nil
}

// mmap is recognized but unimplemented: a documented gap. The stub
// return keeps musl's allocator on the brk path without corrupting any
// state.
func (d *Dispatcher) mmap(*boot.Process, Args) (int64, error) {
	return 0, nil
}

// mprotect is recognized but unimplemented; there is no per-segment
// permission enforcement to apply it to.
func (d *Dispatcher) mprotect(*boot.Process, Args) (int64, error) {
	return 0, nil
}

// setTIDAddress returns a constant success value; no thread-id state
// exists in the single-threaded model.
func (d *Dispatcher) setTIDAddress(*boot.Process, Args) (int64, error) {
	return 1, nil
}

// ioctl always fails; the console sink is not a terminal device.
func (d *Dispatcher) ioctl(*boot.Process, Args) (int64, error) {
	return -abi.EINVAL, nil
}

// close trivially succeeds; there is no descriptor table.
func (d *Dispatcher) close(*boot.Process, Args) (int64, error) {
	return 0, nil
}

// exit terminates the process immediately.
func (d *Dispatcher) exit(_ *boot.Process, a Args) (int64, error) {
	return 0, &ExitError{Status: int(a.A[0])}
}
