// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/guardiagent/mcp-sandbox/lib/clock"
)

// State is a session's lifecycle position.
type State int

const (
	// StateUnstarted is the zero value, before a process exists.
	StateUnstarted State = iota

	// StateRunning means the process is alive and the stream is open.
	StateRunning

	// StateClosed means Close was called and the process has exited.
	StateClosed

	// StateFailed means the process exited without Close being called.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is a running sandbox. Reads return the tool server's standard
// output and writes go to its standard input. Read and Write may be used
// from different goroutines at the same time.
//
// A session is never restarted. When the process exits unexpectedly the
// session moves to StateFailed, reads drain the remaining output and
// then return io.EOF, and Err reports the exit.
type Session struct {
	invocation  *Invocation
	cmd         *exec.Cmd
	stdin       *os.File
	stdout      *os.File
	logger      *slog.Logger
	gracePeriod time.Duration
	clock       clock.Clock
	startedAt   time.Time
	environ     []string
	group       *errgroup.Group

	mu          sync.Mutex
	state       State
	closing     bool
	inputClosed bool
	err         error

	done      chan struct{}
	cleaned   chan struct{}
	closeOnce sync.Once
}

// Invocation returns the invocation the session was started from.
func (s *Session) Invocation() *Invocation {
	return s.invocation
}

// Pid returns the runtime process ID.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the process has exited, for whatever reason.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the process exited unexpectedly: an *ExitError
// for a normal exit, or the wait error. It returns nil while the process
// is running and after a requested Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the process has exited, then returns Err.
func (s *Session) Wait() error {
	s.group.Wait()
	return s.Err()
}

// Read reads from the tool server's standard output.
func (s *Session) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

// Write writes to the tool server's standard input.
func (s *Session) Write(p []byte) (int, error) {
	n, err := s.stdin.Write(p)
	if err != nil && (s.finished() || errors.Is(err, os.ErrClosed)) {
		return n, ErrSessionClosed
	}
	return n, err
}

// CloseWrite closes the tool server's standard input and nothing else.
// The process keeps running, so replies to requests already written can
// still be read until it exits on its own. Later writes fail with
// ErrSessionClosed. Close is still required to release the session.
func (s *Session) CloseWrite() error {
	s.mu.Lock()
	s.inputClosed = true
	s.mu.Unlock()

	if err := s.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func (s *Session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Close terminates the session: it closes standard input, sends SIGTERM
// to the process group, escalates to SIGKILL after the grace period, and
// finally asks the runtime to remove the container. Close is idempotent
// and safe to call concurrently; every call returns after termination.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		s.stdin.Close()
		s.terminate()
		s.removeContainer()
		s.stdout.Close()
		close(s.cleaned)
	})
	<-s.cleaned
	return nil
}

// terminate signals the process group and waits for the process to
// exit.
func (s *Session) terminate() {
	select {
	case <-s.done:
		return
	default:
	}

	processGroup := -s.cmd.Process.Pid
	if s.gracePeriod > 0 {
		if err := unix.Kill(processGroup, unix.SIGTERM); err == nil {
			timer := s.clock.NewTimer(s.gracePeriod)
			defer timer.Stop()
			select {
			case <-s.done:
				return
			case <-timer.C:
				s.logger.Warn("sandbox did not exit after SIGTERM, killing", "grace_period", s.gracePeriod)
			}
		}
	}
	// ESRCH from a process group that already exited is harmless.
	_ = unix.Kill(processGroup, unix.SIGKILL)
	<-s.done
}

// removeContainer asks the runtime to remove the container in case the
// runtime CLI died before it could clean up. Failure is logged only.
func (s *Session) removeContainer() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.invocation.binary, "rm", "-f", s.invocation.name)
	cmd.Env = s.environ
	if output, err := cmd.CombinedOutput(); err != nil {
		s.logger.Debug("container removal failed", "error", err, "output", string(output))
	}
}

// exitStatus follows the shell convention of 128 plus the signal number
// for a process killed by a signal.
func exitStatus(err *exec.ExitError) int {
	if status, ok := err.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return err.ExitCode()
}

// wait reaps the process and records how it ended.
func (s *Session) wait() error {
	waitErr := s.cmd.Wait()

	s.mu.Lock()
	if s.closing {
		s.state = StateClosed
	} else {
		s.state = StateFailed
		var exitErr *exec.ExitError
		switch {
		case waitErr == nil:
			s.err = &ExitError{Code: 0}
		case errors.As(waitErr, &exitErr):
			s.err = &ExitError{Code: exitStatus(exitErr)}
		default:
			s.err = fmt.Errorf("waiting for sandbox: %w", waitErr)
		}
	}
	state, err, inputClosed := s.state, s.err, s.inputClosed
	s.mu.Unlock()

	close(s.done)

	uptime := s.clock.Now().Sub(s.startedAt)
	code, exited := IsExitError(err)
	switch {
	case state != StateFailed:
		s.logger.Info("sandbox closed", "uptime", uptime)
	case inputClosed && exited && code == 0:
		s.logger.Info("sandbox exited after end of input", "uptime", uptime)
	default:
		s.logger.Warn("sandbox exited unexpectedly", "error", err, "uptime", uptime)
	}
	return nil
}
