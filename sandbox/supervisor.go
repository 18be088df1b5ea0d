// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guardiagent/mcp-sandbox/lib/clock"
)

// DefaultGracePeriod is how long Close waits after SIGTERM before
// sending SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// cleanupTimeout bounds the best-effort container removal after a
// session ends.
const cleanupTimeout = 10 * time.Second

// SupervisorConfig holds configuration for creating a Supervisor.
type SupervisorConfig struct {
	// Logger for lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// Stderr receives the runtime's standard error. Defaults to
	// os.Stderr.
	Stderr io.Writer

	// GracePeriod is the delay between SIGTERM and SIGKILL on Close.
	// Zero means DefaultGracePeriod; a negative value kills immediately.
	GracePeriod time.Duration

	// Clock times the grace period and session uptime. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// Supervisor starts invocations as child processes and hands back a
// Session for each. A Supervisor holds no per-session state and may
// start any number of concurrent sessions.
type Supervisor struct {
	logger      *slog.Logger
	stderr      io.Writer
	gracePeriod time.Duration
	clock       clock.Clock
	environ     func() []string
}

// NewSupervisor creates a supervisor.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stderr := config.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	gracePeriod := config.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = DefaultGracePeriod
	}
	if gracePeriod < 0 {
		gracePeriod = 0
	}
	sessionClock := config.Clock
	if sessionClock == nil {
		sessionClock = clock.Real()
	}
	return &Supervisor{
		logger:      logger,
		stderr:      stderr,
		gracePeriod: gracePeriod,
		clock:       sessionClock,
		environ:     os.Environ,
	}
}

// Start spawns the invocation. The returned session is Running; its
// standard input and output are the tool server's data stream.
//
// Cancelling ctx closes the session as if Close had been called. There
// is no other timeout: a session lives until it is closed or its process
// exits.
func (s *Supervisor) Start(ctx context.Context, inv *Invocation) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stdinReader, stdinWriter, err := os.Pipe()
	if err != nil {
		return nil, &StartError{Binary: inv.binary, Err: err}
	}
	stdoutReader, stdoutWriter, err := os.Pipe()
	if err != nil {
		stdinReader.Close()
		stdinWriter.Close()
		return nil, &StartError{Binary: inv.binary, Err: err}
	}

	argv := inv.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = stdinReader
	cmd.Stdout = stdoutWriter
	cmd.Stderr = s.stderr
	cmd.Env = runtimeEnvironment(s.environ())

	// Own process group so that signals reach the runtime CLI and
	// anything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	startErr := cmd.Start()

	// The child holds its own copies; the parent keeps only its ends.
	stdinReader.Close()
	stdoutWriter.Close()

	if startErr != nil {
		stdinWriter.Close()
		stdoutReader.Close()
		return nil, &StartError{Binary: inv.binary, Err: startErr}
	}

	session := &Session{
		invocation:  inv,
		cmd:         cmd,
		stdin:       stdinWriter,
		stdout:      stdoutReader,
		logger:      s.logger.With("container", inv.name, "package", inv.pkg),
		gracePeriod: s.gracePeriod,
		clock:       s.clock,
		startedAt:   s.clock.Now(),
		environ:     cmd.Env,
		state:       StateRunning,
		done:        make(chan struct{}),
		cleaned:     make(chan struct{}),
	}

	session.logger.Info("sandbox started",
		"pid", cmd.Process.Pid,
		"image", inv.image,
		"instance_id", inv.instanceID,
	)

	group, groupCtx := errgroup.WithContext(context.Background())
	session.group = group
	group.Go(session.wait)
	group.Go(func() error {
		select {
		case <-ctx.Done():
			session.logger.Info("context cancelled, closing sandbox")
			session.Close()
		case <-session.done:
		case <-groupCtx.Done():
		}
		return nil
	})

	return session, nil
}

// runtimeEnvironment reduces the parent environment to what the runtime
// CLI needs to reach its daemon. Values granted to the tool server travel
// on the command line, not through the runtime's own environment.
func runtimeEnvironment(environ []string) []string {
	var result []string
	for _, entry := range environ {
		name, _, _ := strings.Cut(entry, "=")
		switch {
		case name == "PATH", name == "HOME", name == "XDG_RUNTIME_DIR":
		case strings.HasPrefix(name, "DOCKER_"):
		default:
			continue
		}
		result = append(result, entry)
	}
	return result
}
