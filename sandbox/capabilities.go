// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds each runtime probe command.
const probeTimeout = 10 * time.Second

// Capabilities describes what the host's container runtime can do.
type Capabilities struct {
	// RuntimeAvailable is true if the runtime CLI is installed.
	RuntimeAvailable bool

	// RuntimePath is the resolved path to the runtime CLI.
	RuntimePath string

	// ClientVersion is the runtime CLI version.
	ClientVersion string

	// DaemonReachable is true if the CLI can talk to its daemon.
	DaemonReachable bool

	// ServerVersion is the daemon version, when reachable.
	ServerVersion string
}

// DetectCapabilities probes the runtime named by binary.
func DetectCapabilities(ctx context.Context, binary string) *Capabilities {
	caps := &Capabilities{}

	path, err := exec.LookPath(binary)
	if err != nil {
		return caps
	}
	caps.RuntimeAvailable = true
	caps.RuntimePath = path

	if out, err := probe(ctx, path, "version", "--format", "{{.Client.Version}}"); err == nil {
		caps.ClientVersion = out
	}
	if out, err := probe(ctx, path, "version", "--format", "{{.Server.Version}}"); err == nil && out != "" {
		caps.DaemonReachable = true
		caps.ServerVersion = out
	}
	return caps
}

// CanRunSandbox returns true if sandboxes can be started.
func (c *Capabilities) CanRunSandbox() bool {
	return c.RuntimeAvailable && c.DaemonReachable
}

// SkipReason returns a human-readable reason why sandboxing isn't available,
// or empty string if it is available.
func (c *Capabilities) SkipReason() string {
	if !c.RuntimeAvailable {
		return "container runtime not installed"
	}
	if !c.DaemonReachable {
		return "container runtime daemon not reachable"
	}
	return ""
}

// imagePresent reports whether the runtime already has image locally.
func imagePresent(ctx context.Context, runtimePath, image string) bool {
	_, err := probe(ctx, runtimePath, "image", "inspect", "--format", "{{.Id}}", image)
	return err == nil
}

func probe(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = runtimeEnvironment(cmd.Environ())
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}
