// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package initramfs

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"
)

// Writer builds a cpio boot archive.
type Writer struct {
	cpioWriter *cpio.Writer
}

// NewWriter creates a new archive writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{cpio.NewWriter(w)}
}

// WriteRegular adds a regular file entry with the given payload.
func (w *Writer) WriteRegular(name string, mode fs.FileMode, data []byte) error {
	hdr := &cpio.Header{
		Name: name,
		Mode: cpio.TypeReg | cpio.FileMode(mode.Perm()),
		Size: int64(len(data)),
	}

	if err := w.cpioWriter.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	if _, err := w.cpioWriter.Write(data); err != nil {
		return fmt.Errorf("write body for %s: %w", name, err)
	}

	return nil
}

// Close writes the archive end marker and flushes. The underlying
// writer is not closed.
func (w *Writer) Close() error {
	if err := w.cpioWriter.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}
