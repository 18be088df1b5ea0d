// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/guardiagent/mcp-sandbox/cmd/mcp-sandbox/cli"
)

func buildCommand() *cli.Command {
	var flags launchFlags
	var trailing []string
	var argv bool

	return &cli.Command{
		Name:    "build",
		Summary: "Print the runtime command line without running it",
		Description: `Resolve permissions and consent exactly as "run" does, then print the
container runtime command line instead of starting it. Passed-through
environment values are shown as <redacted> unless --argv is given.`,
		Usage: "mcp-sandbox build [flags] <manifest> [-- <args>...]",
		Examples: []cli.Example{
			{
				Description: "Dry run with rules-based consent",
				Command:     "mcp-sandbox build --consent=rules --allow env:GITHUB_TOKEN github",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flags.addFlags(flagSet)
			flagSet.BoolVar(&argv, "argv", false, "print one unredacted argument per line")
			return flagSet
		},
		Passthrough: &trailing,
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one manifest name is required")
			}
			logger := cli.NewCommandLogger().With("command", "build", "manifest", args[0])
			return buildInvocation(ctx, &flags, args[0], trailing, argv, os.Stdout, logger)
		},
	}
}

func buildInvocation(ctx context.Context, flags *launchFlags, key string, trailing []string, argv bool, out io.Writer, logger *slog.Logger) error {
	setup, err := setupLaunch(flags, key, trailing, logger)
	if err != nil {
		return err
	}
	defer setup.closer.Close()

	inv, result, err := setup.launcher.Prepare(ctx, setup.manifest, setup.requested, setup.options)
	if err != nil {
		return err
	}
	for _, denied := range result.Denied {
		logger.Warn("permission not granted", "permission", denied.String())
	}

	if argv {
		for _, arg := range inv.Argv() {
			fmt.Fprintln(out, arg)
		}
		return nil
	}
	fmt.Fprintln(out, inv.CommandLine())
	return nil
}
