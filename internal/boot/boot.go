// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package boot

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parvule/guestboot/internal/initramfs"
	"github.com/parvule/guestboot/internal/loader"
	"github.com/parvule/guestboot/internal/mem"
	"github.com/parvule/guestboot/internal/vm"
)

// CPU is the architecture boundary the bootstrap needs: translation
// control for activation plus the final, irreversible control transfer.
type CPU interface {
	vm.TranslationControl

	// TransferControl jumps into the loaded interpreter with the
	// prepared stack. On real hardware it does not return.
	TransferControl(entry, stackPtr uint64)
}

// Config carries the bootstrap inputs.
type Config struct {
	// Archive is the raw boot archive, as located by the device tree.
	Archive []byte

	// Memory is the physical page supply and view.
	Memory mem.Backing

	// CPU hosts the process.
	CPU CPU
}

// Run builds the initial process and hands control to its dynamic
// linker. Any error is boot-fatal; no retry path exists. The returned
// Process is the state a trap dispatcher operates on afterwards.
func Run(cfg Config) (*Process, error) {
	entries, err := initramfs.ReadAll(bytes.NewReader(cfg.Archive))
	if err != nil {
		return nil, fmt.Errorf("read boot archive: %w", err)
	}

	interp, exec, err := selectImages(entries)
	if err != nil {
		return nil, err
	}

	slog.Debug("Selected boot images",
		slog.String("interpreter", interp.Name),
		slog.String("executable", exec.Name))

	as := vm.New(cfg.Memory)

	// The loader's own code window must stay reachable through both
	// its identity address and its high alias once the new address
	// space is live.
	window := mem.FrameAt(LoaderWindow)

	if err := as.MapOne(LoaderWindow, window, vm.Level1G); err != nil {
		return nil, fmt.Errorf("identity-map loader window: %w", err)
	}

	if err := as.MapOne(AliasBase+LoaderWindow, window, vm.Level1G); err != nil {
		return nil, fmt.Errorf("alias-map loader window: %w", err)
	}

	if err := as.MapNew(StackBase, StackSize); err != nil {
		return nil, fmt.Errorf("reserve stack: %w", err)
	}

	execImg, err := loader.Load(as, exec.Data, ExecBase)
	if err != nil {
		return nil, fmt.Errorf("load executable %s: %w", exec.Name, err)
	}

	as.SetHeap(execImg.MaxExtent)

	interpImg, err := loader.Load(as, interp.Data, InterpBase)
	if err != nil {
		return nil, fmt.Errorf("load interpreter %s: %w", interp.Name, err)
	}

	stackPtr, err := buildStack(as, exec.Name, execImg, interpImg)
	if err != nil {
		return nil, fmt.Errorf("build initial stack: %w", err)
	}

	if err := as.Activate(cfg.CPU); err != nil {
		return nil, fmt.Errorf("activate address space: %w", err)
	}

	slog.Info("Handing control to interpreter",
		slog.String("entry", fmt.Sprintf("%#x", interpImg.Entry)),
		slog.String("sp", fmt.Sprintf("%#x", stackPtr)))

	// Permanent handoff, process-exec semantics. Everything below
	// only runs on a simulated CPU.
	cfg.CPU.TransferControl(interpImg.Entry, stackPtr)

	return &Process{
		as:       as,
		entry:    interpImg.Entry,
		stackPtr: stackPtr,
	}, nil
}

// selectImages picks the interpreter entry by name and the first other
// entry as the main executable.
func selectImages(entries []initramfs.Entry) (interp, exec *initramfs.Entry, err error) {
	for i := range entries {
		entry := &entries[i]

		slog.Debug("Boot archive entry",
			slog.String("name", entry.Name),
			slog.Int("size", len(entry.Data)))

		switch {
		case interp == nil && strings.HasPrefix(entry.Name, interpreterPrefix):
			interp = entry
		case exec == nil:
			exec = entry
		}
	}

	if interp == nil {
		return nil, nil, ErrMissingInterpreter
	}

	if exec == nil {
		return nil, nil, ErrMissingExecutable
	}

	return interp, exec, nil
}
