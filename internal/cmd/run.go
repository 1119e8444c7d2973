// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/parvule/guestboot/internal/boot"
	"github.com/parvule/guestboot/internal/fdt"
	"github.com/parvule/guestboot/internal/machine"
)

// IO provides input and output details for the command.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the guestboot command and returns its exit code.
func Run(name string, args []string, cfg IO) int {
	flags, err := parseArgs(name, args, cfg.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		fmt.Fprintf(cfg.Stderr, "Error: %v\n", err)

		return 1
	}

	setupLogging(cfg.Stderr, flags.debug)

	if err := run(flags, cfg); err != nil {
		slog.Error("Boot failed", slog.Any("error", err))
		return 1
	}

	return 0
}

func run(flags *flags, cfg IO) error {
	image, err := os.ReadFile(flags.archivePath)
	if err != nil {
		return fmt.Errorf("read boot archive: %w", err)
	}

	// Guest console output is pumped to stdout until the console
	// writer closes.
	consoleRead, consoleWrite := io.Pipe()

	pump := errgroup.Group{}
	pump.Go(func() error {
		_, err := io.Copy(cfg.Stdout, consoleRead)
		return err
	})

	m, err := machine.New(flags.memoryMiB<<20, consoleWrite)
	if err != nil {
		_ = consoleWrite.Close()
		_ = pump.Wait()

		return fmt.Errorf("create machine: %w", err)
	}

	err = bootstrap(m, image, flags.fdtPath)

	// Hosts driving a real vCPU would keep the console open for the
	// running guest; the simulation is done once control is handed
	// over.
	_ = consoleWrite.Close()

	if pumpErr := pump.Wait(); pumpErr != nil && err == nil {
		err = fmt.Errorf("console pump: %w", pumpErr)
	}

	if err != nil {
		return err
	}

	entry, stackPtr, _ := m.Handoff()

	fmt.Fprintf(cfg.Stdout,
		"handoff: entry=%#x sp=%#x satp=%#x\n",
		entry, stackPtr, m.TranslationBase())

	return nil
}

// bootstrap loads the archive into flash, locates it the way firmware
// describes it, and runs the process bootstrap.
func bootstrap(m *machine.Machine, image []byte, fdtPath string) error {
	if err := m.LoadFlash(image); err != nil {
		return err
	}

	start := uint64(machine.FlashBase)
	end := start + uint64(len(image))

	if fdtPath != "" {
		blob, err := os.ReadFile(fdtPath)
		if err != nil {
			return fmt.Errorf("read device tree: %w", err)
		}

		start, end, err = fdt.InitrdRange(blob)
		if err != nil {
			return fmt.Errorf("locate initrd: %w", err)
		}

		slog.Debug("Resolved initrd range from device tree",
			slog.String("start", fmt.Sprintf("%#x", start)),
			slog.String("end", fmt.Sprintf("%#x", end)))
	}

	archive, err := m.Flash(start, end)
	if err != nil {
		return err
	}

	_, err = boot.Run(boot.Config{
		Archive: archive,
		Memory:  m.RAM(),
		CPU:     m,
	})

	return err
}
