// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by Write on a session that has been
// closed or whose process has exited.
var ErrSessionClosed = errors.New("sandbox session closed")

// PreconditionError reports a host resource an invocation depends on that
// is missing or unusable. Nothing is created on the caller's behalf.
type PreconditionError struct {
	// Path is the host path that failed the check.
	Path string

	// Reason says what is wrong with it.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// StartError reports that the runtime process could not be spawned.
type StartError struct {
	Binary string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Binary, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ExitError reports that the sandbox process exited on its own. A
// process killed by a signal reports 128 plus the signal number.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("sandbox exited with code %d", e.Code)
}

// ExitCode returns Code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// IsExitError checks if an error is an ExitError and returns the code.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
