// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the
// mcp-sandbox binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// For example:
//
//	go build -ldflags "-X github.com/guardiagent/mcp-sandbox/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [ImageTag] maps the build to a sandbox image tag, so a release binary
// runs the images published alongside it.
package version
