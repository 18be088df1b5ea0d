// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// DebugVariable enables debug logging when set to any non-empty value.
const DebugVariable = "MCP_SANDBOX_DEBUG"

// NewCommandLogger creates the structured logger for CLI operations on
// stderr. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped (an MCP client capturing
// logs, CI) it uses slog.JSONHandler.
//
// Standard output is never used for logs: in "run" it carries the tool
// server's protocol stream.
func NewCommandLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(DebugVariable) != "" {
		level = slog.LevelDebug
	}
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
