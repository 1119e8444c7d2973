// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

const defaultMemoryMiB = 128

// ErrNoArchive is returned if no boot archive path is given.
var ErrNoArchive = errors.New("boot archive path is required")

type flags struct {
	archivePath string
	fdtPath     string
	memoryMiB   int
	debug       bool
}

func parseArgs(name string, args []string, output io.Writer) (*flags, error) {
	f := &flags{}

	fs := flag.NewFlagSet(name+" -archive file [flags...]", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(
		&f.archivePath,
		"archive",
		"",
		"path to the cpio boot archive",
	)

	fs.StringVar(
		&f.fdtPath,
		"fdt",
		"",
		"device tree blob to resolve the archive location from",
	)

	fs.IntVar(
		&f.memoryMiB,
		"memory",
		defaultMemoryMiB,
		"guest RAM size in MiB",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		false,
		"enable debug output",
	)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	if f.archivePath == "" {
		fs.Usage()
		return nil, ErrNoArchive
	}

	return f, nil
}
