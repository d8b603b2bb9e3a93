// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// ExitError carries the status jobcontainer exits with after a command
// has already reported its own outcome: 1 from a failed validate, or
// the job's status from run. main exits with Code and prints nothing.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// FromProcess converts the error returned by a finished child process
// into an *ExitError. A child killed by a signal reports 128+signal, the
// way a shell does. nil and errors that are not exit statuses are
// returned unchanged.
func FromProcess(err error) error {
	var processExit *exec.ExitError
	if !errors.As(err, &processExit) {
		return err
	}
	code := processExit.ExitCode()
	if status, ok := processExit.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		code = 128 + int(status.Signal())
	}
	return &ExitError{Code: code}
}

// ExitStatus reports the status err asks the process to exit with. ok
// is false for errors that still have to be printed.
func ExitStatus(err error) (code int, ok bool) {
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code, true
	}
	return 0, false
}
