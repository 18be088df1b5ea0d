// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree used by the mcp-sandbox binary.
//
// A [Command] has a name, help text, optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] dispatches on the first positional argument, parses
// flags, and suggests the closest command or flag name on typos.
// Commands that forward arguments to a tool server set
// [Command.Passthrough] to collect everything after "--" untouched.
//
// [NewCommandLogger] builds the slog logger shared by all commands, and
// [ExitCode] extracts exit codes from errors that carry one.
package cli
