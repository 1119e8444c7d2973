// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package vm

import (
	"encoding/binary"

	"github.com/parvule/guestboot/internal/mem"
)

// Entry is one Sv39 page table entry: the physical page number in bits
// 10..53 and the permission bits below.
type Entry uint64

// Sv39 page table entry bits.
const (
	EntryValid  Entry = 1 << 0
	EntryRead   Entry = 1 << 1
	EntryWrite  Entry = 1 << 2
	EntryExec   Entry = 1 << 3
	EntryUser   Entry = 1 << 4
	EntryGlobal Entry = 1 << 5
	EntryAccess Entry = 1 << 6
	EntryDirty  Entry = 1 << 7
)

// leafPerms is the full permission set leaf mappings get. The
// bootstrapper runs a single trusted image, so segments are not mapped
// with their declared flags.
const leafPerms = EntryValid | EntryRead | EntryWrite | EntryExec |
	EntryUser | EntryAccess | EntryDirty

const (
	entriesPerNode = 512
	entrySize      = 8
	ppnShift       = 10
)

// newEntry builds an entry pointing at the given frame.
func newEntry(f mem.Frame, flags Entry) Entry {
	return Entry(f)<<ppnShift | flags
}

// frame returns the physical page the entry points at.
func (e Entry) frame() mem.Frame {
	return mem.Frame(e >> ppnShift)
}

func (e Entry) valid() bool {
	return e&EntryValid != 0
}

// leaf reports whether the entry maps a page rather than pointing at
// the next trie level. Per the Sv39 walk rules an entry with any of
// R/W/X set terminates the walk.
func (e Entry) leaf() bool {
	return e&(EntryRead|EntryWrite|EntryExec) != 0
}

// node is a 512-entry page table node viewed through its backing page.
// All entry access goes through this accessor so the physical-to-bytes
// translation lives in exactly one place.
type node struct {
	page []byte
}

func (as *AddressSpace) node(f mem.Frame) (node, error) {
	page, err := as.backing.Page(f)
	if err != nil {
		return node{}, err
	}

	return node{page: page}, nil
}

func (n node) entry(idx int) Entry {
	return Entry(binary.LittleEndian.Uint64(n.page[idx*entrySize:]))
}

func (n node) setEntry(idx int, e Entry) {
	binary.LittleEndian.PutUint64(n.page[idx*entrySize:], uint64(e))
}
