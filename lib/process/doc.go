// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the mcp-sandbox
// binary: reporting a fatal error to stderr before the structured
// logger exists, and exiting with a sandboxed tool server's exit code.
package process
