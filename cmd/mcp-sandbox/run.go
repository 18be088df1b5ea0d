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
	"github.com/guardiagent/mcp-sandbox/sandbox"
)

func runCommand() *cli.Command {
	var flags launchFlags
	var trailing []string

	return &cli.Command{
		Name:    "run",
		Summary: "Run a tool server in a sandbox",
		Description: `Run a tool server in a sandbox, connected to this process's stdin and stdout.

Every requested permission is checked against the manifest's declared
categories and then put to the consent policy. Only granted permissions
reach the container. The exit code is the tool server's.`,
		Usage: "mcp-sandbox run [flags] <manifest> [-- <args>...]",
		Examples: []cli.Example{
			{
				Description: "Fetch server limited to one HTTPS destination",
				Command:     "mcp-sandbox run --allow net:example.com:443 fetch",
			},
			{
				Description: "SQLite server with a writable data directory",
				Command:     "mcp-sandbox run --allow fs:/home/user/data:rw sqlite -- --db-path /home/user/data/app.db",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.addFlags(flagSet)
			return flagSet
		},
		Passthrough: &trailing,
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one manifest name is required")
			}
			logger := cli.NewCommandLogger().With("command", "run", "manifest", args[0])
			return runSandbox(ctx, &flags, args[0], trailing, os.Stdin, os.Stdout, logger)
		},
	}
}

// runSandbox launches the tool server and relays stdin and stdout until
// the server exits. End of input closes only the server's standard
// input; its remaining output is still relayed. Cancelling ctx closes
// the session.
func runSandbox(ctx context.Context, flags *launchFlags, key string, trailing []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	setup, err := setupLaunch(flags, key, trailing, logger)
	if err != nil {
		return err
	}

	session, result, err := setup.launcher.Launch(ctx, setup.manifest, setup.requested, setup.options)
	// Prompts are over once the invocation is built.
	setup.closer.Close()
	if err != nil {
		return err
	}
	defer session.Close()

	logger.Info("permissions resolved",
		"granted", len(result.Granted),
		"denied", len(result.Denied),
		"container", session.Invocation().Name(),
	)

	go func() {
		if _, err := io.Copy(session, stdin); err != nil {
			logger.Debug("input relay ended", "error", err)
		}
		if err := session.CloseWrite(); err != nil {
			logger.Debug("closing sandbox input", "error", err)
		}
	}()

	if _, err := io.Copy(stdout, session); err != nil {
		logger.Debug("output relay ended", "error", err)
	}
	if err := session.Wait(); err != nil {
		if code, ok := sandbox.IsExitError(err); ok && code == 0 {
			return nil
		}
		return err
	}
	return nil
}
