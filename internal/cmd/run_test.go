// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parvule/guestboot/internal/initramfs"
	"github.com/parvule/guestboot/internal/loader"
	"github.com/parvule/guestboot/internal/machine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeArchive writes a bootable archive with an interpreter and a main
// executable to a temp file and returns its path and size.
func writeArchive(t *testing.T) (string, int) {
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

	path := filepath.Join(t.TempDir(), "boot.cpio")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	return path, buf.Len()
}

// writeFDT writes a minimal device tree declaring the given initrd range
// in /chosen and returns its path.
func writeFDT(t *testing.T, start, end uint64) string {
	t.Helper()

	be := binary.BigEndian

	u32 := func(buf *bytes.Buffer, v uint32) {
		var b [4]byte

		be.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	strs := []byte("linux,initrd-start\x00linux,initrd-end\x00")

	var structure bytes.Buffer

	u32(&structure, 0x1) // begin root node
	u32(&structure, 0)   // empty name, padded
	u32(&structure, 0x1) // begin /chosen
	structure.WriteString("chosen\x00\x00")

	prop := func(nameOff uint32, v uint64) {
		u32(&structure, 0x3)
		u32(&structure, 8)
		u32(&structure, nameOff)

		var b [8]byte

		be.PutUint64(b[:], v)
		structure.Write(b[:])
	}

	prop(0, start)
	prop(19, end)

	u32(&structure, 0x2) // end /chosen
	u32(&structure, 0x2) // end root
	u32(&structure, 0x9) // end of structure block

	var blob bytes.Buffer

	u32(&blob, 0xd00dfeed)                           // magic
	u32(&blob, uint32(40+structure.Len()+len(strs))) // totalsize
	u32(&blob, 40)                                   // off_dt_struct
	u32(&blob, uint32(40+structure.Len()))           // off_dt_strings
	u32(&blob, 0)                                    // off_mem_rsvmap
	u32(&blob, 17)                                   // version
	u32(&blob, 16)                                   // last_comp_version
	u32(&blob, 0)                                    // boot_cpuid_phys
	u32(&blob, uint32(len(strs)))                    // size_dt_strings
	u32(&blob, uint32(structure.Len()))              // size_dt_struct
	blob.Write(structure.Bytes())
	blob.Write(strs)

	path := filepath.Join(t.TempDir(), "guest.dtb")
	require.NoError(t, os.WriteFile(path, blob.Bytes(), 0o644))

	return path
}

func TestRun(t *testing.T) {
	archive, _ := writeArchive(t)

	var stdout, stderr bytes.Buffer

	rc := Run("guestboot", []string{"-archive", archive}, IO{
		Stdout: &stdout,
		Stderr: &stderr,
	})

	assert.Zero(t, rc, stderr.String())
	assert.Contains(t, stdout.String(), "handoff: entry=0x1000000100")
}

func TestRunWithFDT(t *testing.T) {
	archive, size := writeArchive(t)
	fdtPath := writeFDT(t,
		machine.FlashBase,
		machine.FlashBase+uint64(size))

	var stdout, stderr bytes.Buffer

	rc := Run("guestboot", []string{
		"-archive", archive,
		"-fdt", fdtPath,
		"-memory", "64",
		"-debug",
	}, IO{
		Stdout: &stdout,
		Stderr: &stderr,
	})

	assert.Zero(t, rc, stderr.String())
	assert.Contains(t, stdout.String(), "handoff:")
	assert.Contains(t, stderr.String(), "Resolved initrd range")
}

func TestRunFailure(t *testing.T) {
	archive, _ := writeArchive(t)

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "no archive flag",
			args: []string{},
		},
		{
			name: "missing archive file",
			args: []string{"-archive", "does/not/exist.cpio"},
		},
		{
			name: "missing fdt file",
			args: []string{"-archive", archive, "-fdt", "does/not/exist.dtb"},
		},
		{
			name: "bad memory size",
			args: []string{"-archive", archive, "-memory", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			rc := Run("guestboot", tt.args, IO{
				Stdout: &stdout,
				Stderr: &stderr,
			})

			assert.Equal(t, 1, rc)
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	rc := Run("guestboot", []string{"-help"}, IO{
		Stdout: &stdout,
		Stderr: &stderr,
	})

	assert.Zero(t, rc)
	assert.Contains(t, stderr.String(), "-archive")
}
