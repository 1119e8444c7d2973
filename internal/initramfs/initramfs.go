// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package initramfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"
)

// ErrNoEntries is returned if an archive holds no regular files at all.
var ErrNoEntries = errors.New("archive holds no entries")

// Entry is one named archive member.
type Entry struct {
	Name string
	Mode fs.FileMode
	Data []byte
}

// Reader iterates the regular-file entries of a cpio boot archive.
type Reader struct {
	cpioReader *cpio.Reader
}

// NewReader creates a reader on the raw archive bytes stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{cpio.NewReader(r)}
}

// Next returns the next regular-file entry. It returns [io.EOF] once
// the archive's end marker is reached.
func (r *Reader) Next() (*Entry, error) {
	for {
		hdr, err := r.cpioReader.Next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}

		if !hdr.Mode.IsRegular() {
			continue
		}

		// The header's size field is untrusted input; allocate from
		// the bytes actually present, not from the declared size.
		data, err := io.ReadAll(r.cpioReader)
		if err != nil {
			return nil, fmt.Errorf("read body for %s: %w", hdr.Name, err)
		}

		if int64(len(data)) != hdr.Size {
			return nil, fmt.Errorf("read body for %s: %w",
				hdr.Name, io.ErrUnexpectedEOF)
		}

		return &Entry{
			Name: hdr.Name,
			Mode: hdr.FileInfo().Mode(),
			Data: data,
		}, nil
	}
}

// ReadAll drains the archive into a slice, preserving entry order.
func ReadAll(r io.Reader) ([]Entry, error) {
	reader := NewReader(r)

	var entries []Entry

	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		entries = append(entries, *entry)
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	return entries, nil
}
