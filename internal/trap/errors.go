// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package trap

import "fmt"

// UnknownSyscallError is returned by the dispatcher for a syscall
// number outside the supported table. The host must halt the guest;
// the fixed ABI leaves no recovery.
type UnknownSyscallError struct {
	Num uint64
}

// Error implements the [error] interface.
func (e *UnknownSyscallError) Error() string {
	return fmt.Sprintf("syscall %d not implemented", e.Num)
}

// Is implements the [errors.Is] interface.
func (*UnknownSyscallError) Is(other error) bool {
	_, ok := other.(*UnknownSyscallError)
	return ok
}

// ExitError reports that the guest terminated itself via exit or
// exit_group.
type ExitError struct {
	Status int
}

// Error implements the [error] interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("guest exited with status %d", e.Status)
}

// Is implements the [errors.Is] interface.
func (*ExitError) Is(other error) bool {
	_, ok := other.(*ExitError)
	return ok
}
