// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package trap_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parvule/guestboot/internal/abi"
	"github.com/parvule/guestboot/internal/boot"
	"github.com/parvule/guestboot/internal/initramfs"
	"github.com/parvule/guestboot/internal/loader"
	"github.com/parvule/guestboot/internal/machine"
	"github.com/parvule/guestboot/internal/trap"
	"github.com/parvule/guestboot/internal/vm"
)

// scratch is guest memory the tests stage iovecs and buffers in. It
// sits at the low end of the stack window, far below the initial stack
// pointer.
const scratch = uint64(boot.StackBase)

func bootProcess(t *testing.T) *boot.Process {
	t.Helper()

	image := loader.BuildTestImage(loader.TestImage{
		Entry: 0x100,
		Segments: []loader.TestSegment{
			{Vaddr: 0x0, Data: bytes.Repeat([]byte{0x13}, 0x80)},
		},
	})

	var buf bytes.Buffer

	writer := initramfs.NewWriter(&buf)
	require.NoError(t, writer.WriteRegular("ld.so", 0o755, image))
	require.NoError(t, writer.WriteRegular("main", 0o755, image))
	require.NoError(t, writer.Close())

	m, err := machine.New(16<<20, io.Discard)
	require.NoError(t, err)

	p, err := boot.Run(boot.Config{
		Archive: buf.Bytes(),
		Memory:  m.RAM(),
		CPU:     m,
	})
	require.NoError(t, err)

	return p
}

// stageIovecs writes the buffers and an iovec array describing them
// into guest memory and returns the array's guest address.
func stageIovecs(t *testing.T, p *boot.Process, bufs ...[]byte) uint64 {
	t.Helper()

	hdrs := make([]byte, len(bufs)*abi.IovecSize)
	dataBase := scratch + uint64(len(hdrs))
	next := dataBase

	var data []byte

	for i, buf := range bufs {
		binary.LittleEndian.PutUint64(hdrs[i*abi.IovecSize:], next)
		binary.LittleEndian.PutUint64(hdrs[i*abi.IovecSize+8:], uint64(len(buf)))

		data = append(data, buf...)
		next += uint64(len(buf))
	}

	err := p.Use(func(as *vm.AddressSpace) error {
		if err := as.WriteAt(hdrs, scratch); err != nil {
			return err
		}

		return as.WriteAt(data, dataBase)
	})
	require.NoError(t, err)

	return scratch
}

func TestWritev(t *testing.T) {
	p := bootProcess(t)

	var console bytes.Buffer

	d := trap.New(&console)

	iov := stageIovecs(t, p, []byte("Hello, "), []byte("world\n"))

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{1, iov, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(13), ret)
	assert.Equal(t, "Hello, world\n", console.String())
}

func TestWritevEmptyBuffer(t *testing.T) {
	p := bootProcess(t)

	var console bytes.Buffer

	d := trap.New(&console)

	iov := stageIovecs(t, p, []byte("hello"), nil)

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{2, iov, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ret)
	assert.Equal(t, "hello", console.String())
}

func TestWritevBadDescriptor(t *testing.T) {
	p := bootProcess(t)

	var console bytes.Buffer

	d := trap.New(&console)

	iov := stageIovecs(t, p, []byte("nope"))

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{3, iov, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-abi.EBADF), ret)
	assert.Empty(t, console.String())
}

func TestWritevBadIovecArray(t *testing.T) {
	p := bootProcess(t)

	d := trap.New(io.Discard)

	// No mapping anywhere near the zero page.
	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{1, 0x1000, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-abi.EINVAL), ret)
}

func TestWritevBadBuffer(t *testing.T) {
	p := bootProcess(t)

	var console bytes.Buffer

	d := trap.New(&console)

	// Hand-built iovec array: a good buffer, then one pointing into
	// unmapped space. The fault surfaces as the partial count.
	hdrs := make([]byte, 2*abi.IovecSize)
	binary.LittleEndian.PutUint64(hdrs[0:], scratch+0x100)
	binary.LittleEndian.PutUint64(hdrs[8:], 4)
	binary.LittleEndian.PutUint64(hdrs[16:], 0x1000)
	binary.LittleEndian.PutUint64(hdrs[24:], 4)

	err := p.Use(func(as *vm.AddressSpace) error {
		if err := as.WriteAt(hdrs, scratch); err != nil {
			return err
		}

		return as.WriteAt([]byte("good"), scratch+0x100)
	})
	require.NoError(t, err)

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{1, scratch, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), ret)
	assert.Equal(t, "good", console.String())
}

func TestWritevUnboundedLength(t *testing.T) {
	// iov_len comes straight from guest registers; the largest
	// possible value must translate into errno semantics, never into
	// a host allocation.
	mapped := uint64(boot.StackBase) + 0x1000 - 64

	t.Run("mapped base", func(t *testing.T) {
		p := bootProcess(t)
		d := trap.New(io.Discard)

		hdrs := make([]byte, abi.IovecSize)
		binary.LittleEndian.PutUint64(hdrs[0:], mapped)
		binary.LittleEndian.PutUint64(hdrs[8:], ^uint64(0))

		err := p.Use(func(as *vm.AddressSpace) error {
			return as.WriteAt(hdrs, scratch)
		})
		require.NoError(t, err)

		// The stack window above the buffer is mapped; the count
		// stops where the mapping ends.
		ret, err := d.Handle(p, trap.Args{
			Num: abi.SysWritev,
			A:   [6]uint64{1, scratch, 1},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(boot.StackTop-mapped), ret)
	})

	t.Run("unmapped base", func(t *testing.T) {
		p := bootProcess(t)
		d := trap.New(io.Discard)

		hdrs := make([]byte, abi.IovecSize)
		binary.LittleEndian.PutUint64(hdrs[0:], 0x1000)
		binary.LittleEndian.PutUint64(hdrs[8:], ^uint64(0))

		err := p.Use(func(as *vm.AddressSpace) error {
			return as.WriteAt(hdrs, scratch)
		})
		require.NoError(t, err)

		ret, err := d.Handle(p, trap.Args{
			Num: abi.SysWritev,
			A:   [6]uint64{1, scratch, 1},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-abi.EINVAL), ret)
	})
}

func TestWritevBadFirstBuffer(t *testing.T) {
	p := bootProcess(t)

	d := trap.New(io.Discard)

	hdrs := make([]byte, abi.IovecSize)
	binary.LittleEndian.PutUint64(hdrs[0:], 0x1000)
	binary.LittleEndian.PutUint64(hdrs[8:], 4)

	err := p.Use(func(as *vm.AddressSpace) error {
		return as.WriteAt(hdrs, scratch)
	})
	require.NoError(t, err)

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{1, scratch, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-abi.EINVAL), ret)
}

type failingWriter struct {
	failAfter int
	written   int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written >= w.failAfter {
		return 0, errors.New("sink broken")
	}

	w.written += len(p)

	return len(p), nil
}

func TestWritevSinkError(t *testing.T) {
	t.Run("first buffer", func(t *testing.T) {
		p := bootProcess(t)
		d := trap.New(&failingWriter{})

		iov := stageIovecs(t, p, []byte("lost"))

		ret, err := d.Handle(p, trap.Args{
			Num: abi.SysWritev,
			A:   [6]uint64{1, iov, 1},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-abi.EIO), ret)
	})

	t.Run("second buffer", func(t *testing.T) {
		p := bootProcess(t)
		d := trap.New(&failingWriter{failAfter: 1})

		iov := stageIovecs(t, p, []byte("kept"), []byte("lost"))

		ret, err := d.Handle(p, trap.Args{
			Num: abi.SysWritev,
			A:   [6]uint64{1, iov, 2},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), ret)
	})
}

type shortWriter struct {
	bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	return w.Buffer.Write(p[:len(p)/2])
}

func TestWritevShortWrite(t *testing.T) {
	p := bootProcess(t)

	var console shortWriter

	d := trap.New(&console)

	iov := stageIovecs(t, p, []byte("abcdef"), []byte("never"))

	ret, err := d.Handle(p, trap.Args{
		Num: abi.SysWritev,
		A:   [6]uint64{1, iov, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ret)
	assert.Equal(t, "abc", console.String())
}

func TestBrk(t *testing.T) {
	p := bootProcess(t)
	d := trap.New(io.Discard)

	var initial uint64

	err := p.Use(func(as *vm.AddressSpace) error {
		initial = as.Break()
		return nil
	})
	require.NoError(t, err)

	// Query: an address below the break leaves it unchanged.
	ret, err := d.Handle(p, trap.Args{Num: abi.SysBrk})
	require.NoError(t, err)
	assert.Equal(t, int64(initial), ret)

	// Grow by a page and a half; the result is what was asked for.
	ret, err = d.Handle(p, trap.Args{
		Num: abi.SysBrk,
		A:   [6]uint64{initial + 0x1800},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(initial+0x1800), ret)

	// The grown range is mapped and writable.
	err = p.Use(func(as *vm.AddressSpace) error {
		return as.WriteAt([]byte{0xaa}, initial+0x17ff)
	})
	require.NoError(t, err)

	// Lowering back to the initial break is honored, the pages stay
	// mapped.
	ret, err = d.Handle(p, trap.Args{
		Num: abi.SysBrk,
		A:   [6]uint64{initial},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(initial), ret)

	err = p.Use(func(as *vm.AddressSpace) error {
		return as.WriteAt([]byte{0xbb}, initial+0x17ff)
	})
	require.NoError(t, err)

	// Below the initial break the request is refused; the unchanged
	// break comes back.
	ret, err = d.Handle(p, trap.Args{
		Num: abi.SysBrk,
		A:   [6]uint64{initial - 0x1000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(initial), ret)
}

func TestStubs(t *testing.T) {
	tests := []struct {
		name string
		num  uint64
		want int64
	}{
		{name: "mmap", num: abi.SysMmap, want: 0},
		{name: "mprotect", num: abi.SysMprotect, want: 0},
		{name: "set_tid_address", num: abi.SysSetTIDAddress, want: 1},
		{name: "ioctl", num: abi.SysIoctl, want: -abi.EINVAL},
		{name: "close", num: abi.SysClose, want: 0},
	}

	p := bootProcess(t)
	d := trap.New(io.Discard)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret, err := d.Handle(p, trap.Args{Num: tt.num})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ret)
		})
	}
}

func TestExit(t *testing.T) {
	tests := []struct {
		name string
		num  uint64
	}{
		{name: "exit", num: abi.SysExit},
		{name: "exit_group", num: abi.SysExitGroup},
	}

	p := bootProcess(t)
	d := trap.New(io.Discard)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Handle(p, trap.Args{
				Num: tt.num,
				A:   [6]uint64{42},
			})
			require.ErrorIs(t, err, &trap.ExitError{})

			var exitErr *trap.ExitError

			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 42, exitErr.Status)
		})
	}
}

func TestUnknownSyscall(t *testing.T) {
	p := bootProcess(t)
	d := trap.New(io.Discard)

	_, err := d.Handle(p, trap.Args{Num: 4711})
	require.ErrorIs(t, err, &trap.UnknownSyscallError{})

	var unknownErr *trap.UnknownSyscallError

	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, uint64(4711), unknownErr.Num)
}
