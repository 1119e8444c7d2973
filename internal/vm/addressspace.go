// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package vm

import (
	"fmt"

	"github.com/parvule/guestboot/internal/mem"
)

// Mapping levels. Level 0 maps 4 KiB pages, level 1 maps 2 MiB, level 2
// maps 1 GiB.
const (
	Level4K = 0
	Level2M = 1
	Level1G = 2
)

const (
	satpModeSv39 = uint64(8) << 60

	topLevel = 2
)

// TranslationControl is the hardware side of address space activation.
// A hypervisor or bare-metal host provides the real registers; the
// simulated machine provides an in-memory stand-in.
type TranslationControl interface {
	// SetTranslationBase installs a new translation-base register
	// value (satp on RISC-V). Irreversible from the guest's view.
	SetTranslationBase(v uint64)

	// FlushTranslationCache invalidates all cached translations.
	FlushTranslationCache()
}

// AddressSpace owns one page table root and the process heap bounds.
// It is created once per boot and mutated only by Map* and Brk.
//
// An AddressSpace assumes exactly one owning thread for its whole
// lifetime. Concurrent use is undefined without external
// synchronization.
type AddressSpace struct {
	backing mem.Backing

	root     mem.Frame
	haveRoot bool

	brk    uint64
	brkMin uint64
	brkMax uint64
}

// New creates an empty address space on the given physical memory. The
// root node is allocated lazily on the first mapping.
func New(backing mem.Backing) *AddressSpace {
	return &AddressSpace{backing: backing}
}

// vpn returns the 9-bit trie index of va at the given level.
func vpn(va uint64, level int) int {
	return int(va >> (mem.PageShift + 9*level) & 0x1ff)
}

// levelSize returns the bytes mapped by one leaf entry at level.
func levelSize(level int) uint64 {
	return 1 << (mem.PageShift + 9*level)
}

func (as *AddressSpace) rootNode() (node, error) {
	if !as.haveRoot {
		f, err := as.backing.AllocPage()
		if err != nil {
			return node{}, err
		}

		as.root = f
		as.haveRoot = true
	}

	return as.node(as.root)
}

// MapOne installs a single leaf mapping of vaddr to the physical frame
// at the given level, allocating missing intermediate nodes. Leaf
// entries get full read/write/execute/user permissions plus
// accessed/dirty; intermediate entries get only valid+global.
func (as *AddressSpace) MapOne(vaddr uint64, frame mem.Frame, level int) error {
	if level < Level4K || level > Level1G {
		return ErrBadLevel
	}

	if vaddr%levelSize(level) != 0 || frame.Addr()%levelSize(level) != 0 {
		return fmt.Errorf("%w: %#x at level %d", ErrUnaligned, vaddr, level)
	}

	n, err := as.rootNode()
	if err != nil {
		return err
	}

	for lvl := topLevel; lvl > level; lvl-- {
		idx := vpn(vaddr, lvl)
		e := n.entry(idx)

		if !e.valid() {
			f, err := as.backing.AllocPage()
			if err != nil {
				return err
			}

			e = newEntry(f, EntryValid|EntryGlobal)
			n.setEntry(idx, e)
		} else if e.leaf() {
			return fmt.Errorf("%w: %#x inside level %d leaf",
				ErrAlreadyMapped, vaddr, lvl)
		}

		n, err = as.node(e.frame())
		if err != nil {
			return err
		}
	}

	idx := vpn(vaddr, level)
	if n.entry(idx).valid() {
		return fmt.Errorf("%w: %#x", ErrAlreadyMapped, vaddr)
	}

	n.setEntry(idx, newEntry(frame, leafPerms))

	return nil
}

// MapNew allocates length/PageSize fresh zero pages and leaf-maps each
// one starting at vaddr. Both arguments must be page-aligned.
func (as *AddressSpace) MapNew(vaddr, length uint64) error {
	if vaddr%mem.PageSize != 0 || length%mem.PageSize != 0 {
		return fmt.Errorf("%w: map %#x+%#x", ErrUnaligned, vaddr, length)
	}

	for off := uint64(0); off < length; off += mem.PageSize {
		f, err := as.backing.AllocPage()
		if err != nil {
			return err
		}

		if err := as.MapOne(vaddr+off, f, Level4K); err != nil {
			return err
		}
	}

	return nil
}

// Activate installs the address space into the hardware translation
// base and invalidates the translation cache. It must run after any
// structural change that already-executing code depends on.
func (as *AddressSpace) Activate(tc TranslationControl) error {
	// An empty address space still activates; the root is created so
	// the base register points at a real node.
	if _, err := as.rootNode(); err != nil {
		return err
	}

	tc.SetTranslationBase(satpModeSv39 | uint64(as.root))
	tc.FlushTranslationCache()

	return nil
}

// Translate resolves a virtual address to its physical address by
// walking the trie, honoring leaf entries at any level.
func (as *AddressSpace) Translate(va uint64) (uint64, error) {
	if !as.haveRoot {
		return 0, fmt.Errorf("%w: %#x", ErrNotMapped, va)
	}

	n, err := as.node(as.root)
	if err != nil {
		return 0, err
	}

	for lvl := topLevel; lvl >= 0; lvl-- {
		e := n.entry(vpn(va, lvl))

		if !e.valid() {
			break
		}

		if e.leaf() {
			return e.frame().Addr() + va%levelSize(lvl), nil
		}

		n, err = as.node(e.frame())
		if err != nil {
			return 0, err
		}
	}

	return 0, fmt.Errorf("%w: %#x", ErrNotMapped, va)
}

// WriteAt copies p into guest memory at the virtual address va,
// crossing page boundaries as needed. Every page in the range must be
// mapped.
func (as *AddressSpace) WriteAt(p []byte, va uint64) error {
	return as.access(va, len(p), func(dst []byte, off int) {
		copy(dst, p[off:])
	})
}

// ReadAt fills p from guest memory at the virtual address va.
func (as *AddressSpace) ReadAt(p []byte, va uint64) error {
	return as.access(va, len(p), func(src []byte, off int) {
		copy(p[off:], src)
	})
}

// access walks [va, va+length) in page-bounded chunks and hands each
// chunk's physical byte window to fn together with the chunk's offset
// into the range.
func (as *AddressSpace) access(va uint64, length int, fn func([]byte, int)) error {
	for off := 0; off < length; {
		pa, err := as.Translate(va + uint64(off))
		if err != nil {
			return err
		}

		page, err := as.backing.Page(mem.FrameAt(pa))
		if err != nil {
			return err
		}

		chunk := page[pa%mem.PageSize:]
		if left := length - off; left < len(chunk) {
			chunk = chunk[:left]
		}

		fn(chunk, off)
		off += len(chunk)
	}

	return nil
}
