// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/guardiagent/mcp-sandbox/cmd/mcp-sandbox/cli"
	"github.com/guardiagent/mcp-sandbox/lib/version"
	"github.com/guardiagent/mcp-sandbox/manifest"
)

func listManifestsCommand() *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "list-manifests",
		Summary: "List available manifests",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list-manifests", pflag.ContinueOnError)
			flags.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			loader, err := loadFromFlags(&flags)
			if err != nil {
				return err
			}
			return listManifests(loader, os.Stdout)
		},
	}
}

func listManifests(loader *manifest.Loader, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREGISTRY\tPACKAGE\tCAPABILITIES\tSOURCE")
	for _, key := range loader.List() {
		m, err := loader.Resolve(key)
		if err != nil {
			return err
		}
		capabilities := "-"
		if !m.Capabilities.Empty() {
			var names []string
			for _, category := range m.Capabilities.List() {
				names = append(names, category.String())
			}
			capabilities = strings.Join(names, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, m.Registry, m.Package, capabilities, loader.Source(key))
	}
	return tw.Flush()
}

func showManifestCommand() *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "show-manifest",
		Summary: "Print a manifest in file format",
		Usage:   "mcp-sandbox show-manifest [flags] <manifest>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show-manifest", pflag.ContinueOnError)
			flags.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one manifest name is required")
			}
			loader, err := loadFromFlags(&flags)
			if err != nil {
				return err
			}
			return showManifest(loader, args[0], os.Stdout)
		},
	}
}

func showManifest(loader *manifest.Loader, key string, out io.Writer) error {
	m, err := loader.Resolve(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# source: %s\n", loader.Source(key))
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(manifest.File{Manifests: map[string]*manifest.Entry{key: manifest.ToEntry(m)}}); err != nil {
		return err
	}
	return encoder.Close()
}

func loadFromFlags(flags *commonFlags) (*manifest.Loader, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger()
	loader, err := loadManifests(cfg, flags.manifestFiles, logger)
	if err != nil {
		return nil, fmt.Errorf("loading manifests: %w", err)
	}
	return loader, nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:    "schema",
		Summary: "Print the JSON Schema for manifest files",
		Run: func(ctx context.Context, args []string) error {
			schema, err := manifest.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, string(schema))
			return err
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Run: func(ctx context.Context, args []string) error {
			fmt.Printf("mcp-sandbox %s\n  Image tag: %s\n", version.Full(), version.ImageTag())
			return nil
		},
	}
}
