// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guardiagent/mcp-sandbox/consent"
	"github.com/guardiagent/mcp-sandbox/manifest"
	"github.com/guardiagent/mcp-sandbox/permission"
)

// Launcher runs the full pipeline for one tool invocation: validate the
// requested permissions against the manifest, ask for consent, build the
// command line, and start it.
type Launcher struct {
	builder    *Builder
	gate       *consent.Gate
	supervisor *Supervisor
	logger     *slog.Logger
}

// NewLauncher creates a launcher. A nil logger uses slog.Default().
func NewLauncher(builder *Builder, gate *consent.Gate, supervisor *Supervisor, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		builder:    builder,
		gate:       gate,
		supervisor: supervisor,
		logger:     logger,
	}
}

// Prepare validates, gates and builds without starting anything. The
// consent result is returned alongside the invocation so callers can
// tell a denied permission from one that was never requested.
func (l *Launcher) Prepare(ctx context.Context, m manifest.Manifest, requested []permission.Permission, options BuildOptions) (*Invocation, consent.Result, error) {
	validated, err := permission.Validate(m.Capabilities, requested)
	if err != nil {
		return nil, consent.Result{}, fmt.Errorf("package %s: %w", m.Package, err)
	}

	result, err := l.gate.Filter(ctx, m.Package, validated)
	if err != nil {
		return nil, consent.Result{}, err
	}
	for _, denied := range result.Denied {
		l.logger.Info("permission denied", "package", m.Package, "permission", denied.String())
	}

	inv, err := l.builder.Build(m, result.Granted, options)
	if err != nil {
		return nil, result, fmt.Errorf("package %s: %w", m.Package, err)
	}
	l.logger.Debug("invocation built", "package", m.Package, "command", inv.CommandLine())
	return inv, result, nil
}

// Launch prepares the invocation and starts it.
func (l *Launcher) Launch(ctx context.Context, m manifest.Manifest, requested []permission.Permission, options BuildOptions) (*Session, consent.Result, error) {
	inv, result, err := l.Prepare(ctx, m, requested, options)
	if err != nil {
		return nil, result, err
	}
	session, err := l.supervisor.Start(ctx, inv)
	if err != nil {
		return nil, result, err
	}
	return session, result, nil
}
