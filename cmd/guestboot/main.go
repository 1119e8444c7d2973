// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/parvule/guestboot/internal/cmd"
)

func main() {
	exitCode := cmd.Run(os.Args[0], os.Args[1:], cmd.IO{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	os.Exit(exitCode)
}
