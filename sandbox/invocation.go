// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"slices"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Mount is a host directory or file bind-mounted into the sandbox.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// String renders the mount in the runtime's --mount syntax.
func (m Mount) String() string {
	spec := "type=bind,src=" + m.Source + ",dst=" + m.Target
	if m.ReadOnly {
		spec += ",readonly"
	}
	return spec
}

// EnvVar is a variable set inside the sandbox.
type EnvVar struct {
	Name  string
	Value string
}

func (e EnvVar) String() string {
	return e.Name + "=" + e.Value
}

// Invocation is a fully resolved runtime command line for one tool
// server. It is immutable: every accessor returns a copy, and nothing
// about the host (environment, files) is consulted after Build.
type Invocation struct {
	binary     string
	args       []string
	pkg        string
	image      string
	name       string
	instanceID string
	mounts     []Mount
	egress     []string
	env        []EnvVar
	trailing   []string
	redact     map[string]bool
}

// Argv returns the runtime binary followed by its arguments.
func (inv *Invocation) Argv() []string {
	return append([]string{inv.binary}, inv.args...)
}

// Binary returns the runtime binary.
func (inv *Invocation) Binary() string {
	return inv.binary
}

// Args returns the runtime arguments, starting with "run".
func (inv *Invocation) Args() []string {
	return slices.Clone(inv.args)
}

// Package returns the package identifier the sandbox will run.
func (inv *Invocation) Package() string {
	return inv.pkg
}

// Image returns the image reference.
func (inv *Invocation) Image() string {
	return inv.image
}

// Name returns the container name.
func (inv *Invocation) Name() string {
	return inv.name
}

// InstanceID returns the identifier that, with the package, determines
// the container name.
func (inv *Invocation) InstanceID() string {
	return inv.instanceID
}

// Mounts returns the bind mounts in argument order, including the
// development source mount if any.
func (inv *Invocation) Mounts() []Mount {
	return slices.Clone(inv.mounts)
}

// Egress returns the allowed outbound destinations as "host:port"
// entries, in argument order.
func (inv *Invocation) Egress() []string {
	return slices.Clone(inv.egress)
}

// Env returns the host variables passed through and the static
// variables, in argument order. Control variables (PACKAGE,
// ALLOWED_EGRESS, PRE_INSTALLED, EXE) are not included.
func (inv *Invocation) Env() []EnvVar {
	return slices.Clone(inv.env)
}

// TrailingArgs returns the arguments passed to the tool server after the
// image reference.
func (inv *Invocation) TrailingArgs() []string {
	return slices.Clone(inv.trailing)
}

// CommandLine renders the invocation as a shell command for display.
// Values of passed-through and static environment variables are
// replaced so the line can be logged.
func (inv *Invocation) CommandLine() string {
	words := inv.Argv()
	options := len(words) - len(inv.trailing) - 1
	for i := 1; i < options; i++ {
		if words[i-1] != "-e" {
			continue
		}
		name, _, found := strings.Cut(words[i], "=")
		if found && inv.redact[name] {
			words[i] = name + "=<redacted>"
		}
	}
	return shellescape.QuoteCommand(words)
}
