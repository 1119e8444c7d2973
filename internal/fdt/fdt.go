// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package fdt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

const magic = 0xd00dfeed

// Structure block tokens.
const (
	tokenBeginNode = 0x1
	tokenEndNode   = 0x2
	tokenProp      = 0x3
	tokenNop       = 0x4
	tokenEnd       = 0x9
)

var (
	// ErrBadMagic is returned if the blob does not start with the FDT
	// magic number.
	ErrBadMagic = errors.New("invalid FDT magic")

	// ErrMalformed is returned if the structure block is truncated or
	// a token is unknown.
	ErrMalformed = errors.New("malformed FDT structure block")

	// ErrNoInitrd is returned if /chosen carries no complete initrd
	// range.
	ErrNoInitrd = errors.New("no initrd range in /chosen")
)

// InitrdRange returns the physical [start, end) range of the initrd as
// declared by the /chosen node.
func InitrdRange(blob []byte) (uint64, uint64, error) {
	var start, end uint64

	found := 0

	err := walk(blob, func(path string, name string, value []byte) error {
		if path != "/chosen" {
			return nil
		}

		v, ok := cellValue(value)
		if !ok {
			return nil
		}

		switch name {
		case "linux,initrd-start":
			start = v
			found++
		case "linux,initrd-end":
			end = v
			found++
		}

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	if found != 2 || end <= start {
		return 0, 0, ErrNoInitrd
	}

	return start, end, nil
}

// cellValue decodes a property holding one address: a single u32 or u64
// cell, both big-endian.
func cellValue(value []byte) (uint64, bool) {
	switch len(value) {
	case 4:
		return uint64(binary.BigEndian.Uint32(value)), true
	case 8:
		return binary.BigEndian.Uint64(value), true
	default:
		return 0, false
	}
}

// walk runs fn for every property in the structure block, with the full
// path of the containing node.
func walk(blob []byte, fn func(path, name string, value []byte) error) error {
	if len(blob) < 40 {
		return ErrBadMagic
	}

	be := binary.BigEndian

	if be.Uint32(blob) != magic {
		return ErrBadMagic
	}

	structOff := be.Uint32(blob[8:])
	stringsOff := be.Uint32(blob[12:])
	structSize := be.Uint32(blob[36:])

	if int(structOff)+int(structSize) > len(blob) || int(stringsOff) > len(blob) {
		return fmt.Errorf("%w: block offsets exceed blob", ErrMalformed)
	}

	buf := blob[structOff : structOff+structSize]
	strs := blob[stringsOff:]
	pos := 0

	// Node name stack; the root node has an empty name.
	var nodes []string

	path := func() string {
		if len(nodes) < 2 {
			return "/"
		}

		return "/" + strings.Join(nodes[1:], "/")
	}

	next := func() (uint32, bool) {
		if pos+4 > len(buf) {
			return 0, false
		}

		v := be.Uint32(buf[pos:])
		pos += 4

		return v, true
	}

	for {
		token, ok := next()
		if !ok {
			return fmt.Errorf("%w: truncated token stream", ErrMalformed)
		}

		switch token {
		case tokenBeginNode:
			name, n := nodeName(buf[pos:])
			if n < 0 {
				return fmt.Errorf("%w: unterminated node name", ErrMalformed)
			}

			pos += n
			nodes = append(nodes, name)

		case tokenEndNode:
			if len(nodes) == 0 {
				return fmt.Errorf("%w: unbalanced end-node", ErrMalformed)
			}

			nodes = nodes[:len(nodes)-1]

		case tokenProp:
			length, ok1 := next()
			nameOff, ok2 := next()

			if !ok1 || !ok2 || pos+align4(int(length)) > len(buf) {
				return fmt.Errorf("%w: truncated property", ErrMalformed)
			}

			if int(nameOff) >= len(strs) {
				return fmt.Errorf("%w: property name out of range", ErrMalformed)
			}

			name := unix.ByteSliceToString(strs[nameOff:])
			value := buf[pos : pos+int(length)]
			pos += align4(int(length))

			if err := fn(path(), name, value); err != nil {
				return err
			}

		case tokenNop:

		case tokenEnd:
			return nil

		default:
			return fmt.Errorf("%w: unknown token %#x", ErrMalformed, token)
		}
	}
}

// nodeName reads the NUL-terminated node name and returns it with the
// number of bytes consumed, padded to 4. The root node has an empty
// name.
func nodeName(buf []byte) (string, int) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), align4(i + 1)
		}
	}

	return "", -1
}

func align4(n int) int {
	return (n + 3) &^ 3
}
