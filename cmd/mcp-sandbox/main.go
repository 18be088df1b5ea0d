// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// mcp-sandbox runs MCP tool servers inside containers whose network,
// filesystem and environment access is limited to consented permissions.
//
// Usage:
//
//	mcp-sandbox run [flags] <manifest> [-- <args>...]
//	mcp-sandbox build [flags] <manifest> [-- <args>...]
//	mcp-sandbox validate [flags] <manifest>
//	mcp-sandbox list-manifests [flags]
//	mcp-sandbox show-manifest [flags] <manifest>
//	mcp-sandbox schema
//	mcp-sandbox version
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/guardiagent/mcp-sandbox/cmd/mcp-sandbox/cli"
	"github.com/guardiagent/mcp-sandbox/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand().Execute(ctx, os.Args[1:])
	stop()

	if err == nil {
		return
	}
	if code, ok := cli.ExitCode(err); ok {
		process.Exit(code, nil)
	}
	process.Fatal(err)
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp-sandbox",
		Summary: "Run MCP tool servers in permission-scoped containers",
		Description: `mcp-sandbox - Run MCP tool servers in permission-scoped containers

Each tool server runs in a throwaway container that can reach only the
network destinations, host paths and environment variables it was
granted. Grants are limited to the capability categories its manifest
declares, and every grant passes a consent decision first.`,
		Subcommands: []*cli.Command{
			runCommand(),
			buildCommand(),
			validateCommand(),
			listManifestsCommand(),
			showManifestCommand(),
			schemaCommand(),
			versionCommand(),
		},
	}
}
