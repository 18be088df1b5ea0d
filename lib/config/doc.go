// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the sandbox
// launcher.
//
// Configuration is loaded from a single file specified by either the
// MCP_SANDBOX_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. When no file is named, callers use
// [Default].
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter:
// consent runs in rules mode, so nothing ever waits on a terminal.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
//	environment: development
//	runtime:
//	  binary: docker
//	  version: "1.4"
//	  grace_period: 10s
//	consent:
//	  mode: prompt
//	  deny: [filesystem-write]
//	manifests:
//	  directory: ${HOME}/.config/mcp-sandbox/manifests
package config
