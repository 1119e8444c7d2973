// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

// mkbootimage builds a cpio boot archive from a dynamic linker and a
// main executable, plus any additional files. The archive is written to
// stdout.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parvule/guestboot/internal/initramfs"
)

func run(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: mkbootimage interpreter executable [files...]")
	}

	writer := initramfs.NewWriter(os.Stdout)

	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}

		info, err := os.Stat(file)
		if err != nil {
			return err
		}

		name := filepath.Base(file)
		if err := writer.WriteRegular(name, info.Mode(), data); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}

	return writer.Close()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
