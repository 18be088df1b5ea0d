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
	"github.com/guardiagent/mcp-sandbox/permission"
	"github.com/guardiagent/mcp-sandbox/sandbox"
)

func validateCommand() *cli.Command {
	var flags commonFlags
	var allow []string

	return &cli.Command{
		Name:    "validate",
		Summary: "Check that a tool server can be sandboxed",
		Description: `Check the container runtime, the sandbox image, the manifest and the
requested permissions without asking for consent or starting anything.`,
		Usage: "mcp-sandbox validate [flags] <manifest>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			flags.addFlags(flagSet)
			flagSet.StringArrayVar(&allow, "allow", nil, "requested permission to check, repeatable")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one manifest name is required")
			}
			logger := cli.NewCommandLogger().With("command", "validate", "manifest", args[0])
			return validateSandbox(ctx, &flags, args[0], allow, os.Stdout, logger)
		},
	}
}

func validateSandbox(ctx context.Context, flags *commonFlags, key string, allow []string, out io.Writer, logger *slog.Logger) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	loader, err := loadManifests(cfg, flags.manifestFiles, logger)
	if err != nil {
		return fmt.Errorf("loading manifests: %w", err)
	}
	m, err := loader.Resolve(key)
	if err != nil {
		return err
	}
	requested, err := permission.ParseList(allow)
	if err != nil {
		return err
	}

	validator := sandbox.NewValidator()
	validator.ValidateAll(ctx, runtimeConfig(cfg), m, requested)
	validator.Report(out)

	if validator.HasErrors() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
