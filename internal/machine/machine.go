// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package machine

import (
	"errors"
	"fmt"
	"io"

	"github.com/parvule/guestboot/internal/mem"
)

// Physical layout, mirroring the usual virt board: flash low, RAM high.
const (
	FlashBase = 0x2200_0000
	FlashSize = 32 << 20

	RAMBase = 0x8000_0000
)

var (
	// ErrFlashOverflow is returned if an image does not fit the flash
	// window.
	ErrFlashOverflow = errors.New("image exceeds flash window")

	// ErrBadPhysRange is returned if a physical range is outside the
	// flash window.
	ErrBadPhysRange = errors.New("physical range outside flash window")
)

// Machine is a simulated single-hart machine. It assumes one owning
// goroutine, like the hardware thread it stands in for.
type Machine struct {
	ram     *mem.Arena
	flash   []byte
	console io.Writer

	satp    uint64
	flushes int

	handoff  bool
	entry    uint64
	stackPtr uint64
}

// New creates a machine with ramSize bytes of RAM and the given console
// sink.
func New(ramSize int, console io.Writer) (*Machine, error) {
	ram, err := mem.NewArena(RAMBase, ramSize)
	if err != nil {
		return nil, fmt.Errorf("create RAM arena: %w", err)
	}

	return &Machine{
		ram:     ram,
		flash:   make([]byte, FlashSize),
		console: console,
	}, nil
}

// RAM returns the physical memory the bootstrapper allocates from.
func (m *Machine) RAM() *mem.Arena {
	return m.ram
}

// Console returns the sink guest console writes end up in.
func (m *Machine) Console() io.Writer {
	return m.console
}

// LoadFlash places an image at the start of the flash window.
func (m *Machine) LoadFlash(data []byte) error {
	if len(data) > len(m.flash) {
		return fmt.Errorf("%w: %d bytes", ErrFlashOverflow, len(data))
	}

	copy(m.flash, data)

	return nil
}

// Flash returns the physical byte range [start, end) of the flash
// window, as resolved from the device tree.
func (m *Machine) Flash(start, end uint64) ([]byte, error) {
	if start < FlashBase || end > FlashBase+FlashSize || end < start {
		return nil, fmt.Errorf("%w: [%#x, %#x)", ErrBadPhysRange, start, end)
	}

	return m.flash[start-FlashBase : end-FlashBase], nil
}

// SetTranslationBase implements [vm.TranslationControl].
func (m *Machine) SetTranslationBase(v uint64) {
	m.satp = v
}

// FlushTranslationCache implements [vm.TranslationControl]. The
// simulation has no translation cache; the call is counted so tests can
// assert activation order.
func (m *Machine) FlushTranslationCache() {
	m.flushes++
}

// TranslationBase returns the current translation-base register value.
func (m *Machine) TranslationBase() uint64 {
	return m.satp
}

// Flushes returns how many translation cache invalidations happened.
func (m *Machine) Flushes() int {
	return m.flushes
}

// TransferControl records the permanent handoff into the loaded
// process. On real hardware this call does not return; the simulation
// latches the target state instead so a host can inspect or resume it.
func (m *Machine) TransferControl(entry, stackPtr uint64) {
	m.handoff = true
	m.entry = entry
	m.stackPtr = stackPtr
}

// Handoff returns the latched control transfer target, if any.
func (m *Machine) Handoff() (entry, stackPtr uint64, ok bool) {
	return m.entry, m.stackPtr, m.handoff
}
