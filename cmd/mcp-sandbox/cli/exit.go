// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output, as "validate" does with its check list.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCode reports the exit code carried by err, if any error in its
// chain has an ExitCode method. Codes a process cannot exit with, such
// as the -1 of an unreaped child, become 1.
func ExitCode(err error) (int, bool) {
	var coded interface{ ExitCode() int }
	if !errors.As(err, &coded) {
		return 0, false
	}
	code := coded.ExitCode()
	if code < 0 || code > 255 {
		code = 1
	}
	return code, true
}
