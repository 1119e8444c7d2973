// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package mem

const (
	// PageSize is the only page granule the allocator hands out.
	PageSize = 4096

	// PageShift is the number of offset bits within a page.
	PageShift = 12
)

// Frame is an opaque handle for one physical page. It is the physical
// page number, so frame N covers the byte range [N<<12, (N+1)<<12).
type Frame uint64

// FrameAt returns the frame containing the given physical address.
func FrameAt(paddr uint64) Frame {
	return Frame(paddr >> PageShift)
}

// Addr returns the physical base address of the frame.
func (f Frame) Addr() uint64 {
	return uint64(f) << PageShift
}

// AlignUp rounds v up to the next multiple of align. align must be a
// power of two.
func AlignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// AlignDown rounds v down to a multiple of align. align must be a power
// of two.
func AlignDown(v, align uint64) uint64 {
	return v &^ (align - 1)
}

// Allocator hands out zero-initialized physical pages.
type Allocator interface {
	// AllocPage returns a fresh zeroed page. It returns
	// [ErrOutOfMemory] once the backing memory is exhausted.
	AllocPage() (Frame, error)
}

// Backing combines page allocation with frame access. It is the view of
// physical memory the address space layer works against.
type Backing interface {
	Allocator

	// Page returns the 4 KiB byte window of the given frame.
	Page(Frame) ([]byte, error)
}

// Arena is a contiguous guest physical memory range with a bump page
// allocator on top. It assumes a single owning thread; callers that
// share an arena between goroutines must synchronize externally.
type Arena struct {
	base Frame
	ram  []byte
	next Frame
}

// NewArena creates an arena of size bytes of guest RAM starting at the
// physical address base. Both must be page-aligned.
func NewArena(base uint64, size int) (*Arena, error) {
	if base%PageSize != 0 || size <= 0 || size%PageSize != 0 {
		return nil, ErrUnaligned
	}

	first := FrameAt(base)

	return &Arena{
		base: first,
		ram:  make([]byte, size),
		next: first,
	}, nil
}

// Base returns the physical address of the first arena byte.
func (a *Arena) Base() uint64 {
	return a.base.Addr()
}

// Size returns the arena size in bytes.
func (a *Arena) Size() int {
	return len(a.ram)
}

// AllocPage implements [Allocator]. Pages come back zeroed and are
// never reclaimed; the bootstrapper maps each page exactly once and
// keeps it mapped for the lifetime of the process.
func (a *Arena) AllocPage() (Frame, error) {
	if !a.contains(a.next) {
		return 0, ErrOutOfMemory
	}

	f := a.next
	a.next++

	return f, nil
}

// Page implements [Backing]. Writes through the returned slice hit
// guest RAM directly.
func (a *Arena) Page(f Frame) ([]byte, error) {
	if !a.contains(f) {
		return nil, ErrBadFrame
	}

	off := (f - a.base).Addr()

	return a.ram[off : off+PageSize : off+PageSize], nil
}

func (a *Arena) contains(f Frame) bool {
	return f >= a.base && f < a.base+Frame(len(a.ram)/PageSize)
}
