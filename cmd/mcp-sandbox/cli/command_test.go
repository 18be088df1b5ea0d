// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/guardiagent/mcp-sandbox/sandbox"
)

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "mcp-sandbox",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(ctx context.Context, args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "show-manifest",
				Run: func(ctx context.Context, args []string) error {
					called = "show-manifest"
					receivedArgs = args
					return nil
				},
			},
		},
	}

	if err := root.execute(context.Background(), []string{"show-manifest", "fetch"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "show-manifest" {
		t.Errorf("dispatched to %q, want show-manifest", called)
	}
	if diff := cmp.Diff([]string{"fetch"}, receivedArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteFlagsAndPassthrough(t *testing.T) {
	var (
		allow       []string
		consentMode string
		passthrough []string
		received    []string
	)

	run := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.StringArrayVar(&allow, "allow", nil, "permission")
			flagSet.StringVar(&consentMode, "consent", "", "consent mode")
			return flagSet
		},
		Passthrough: &passthrough,
		Run: func(ctx context.Context, args []string) error {
			received = args
			return nil
		},
	}
	root := &Command{Name: "mcp-sandbox", Subcommands: []*Command{run}}

	args := []string{"run", "--allow", "net:example.com:443", "sqlite", "--consent=deny", "--", "--db", "/data/app.db"}
	if err := root.execute(context.Background(), args, &bytes.Buffer{}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if diff := cmp.Diff([]string{"net:example.com:443"}, allow); diff != "" {
		t.Errorf("allow mismatch (-want +got):\n%s", diff)
	}
	if consentMode != "deny" {
		t.Errorf("consent = %q, want deny", consentMode)
	}
	if diff := cmp.Diff([]string{"sqlite"}, received); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"--db", "/data/app.db"}, passthrough); diff != "" {
		t.Errorf("passthrough mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "mcp-sandbox",
		Subcommands: []*Command{
			{Name: "validate", Run: func(context.Context, []string) error { return nil }},
			{Name: "version", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.execute(context.Background(), []string{"valdate"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), `did you mean "validate"`) {
		t.Errorf("error = %v, want suggestion for validate", err)
	}

	err = root.execute(context.Background(), []string{"completely-different"}, &bytes.Buffer{})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	var instanceID string
	command := &Command{
		Name: "build",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.StringVar(&instanceID, "instance-id", "", "instance")
			return flagSet
		},
		Run: func(context.Context, []string) error { return nil },
	}

	err := command.execute(context.Background(), []string{"--instance-di=x"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "did you mean --instance-id?") {
		t.Errorf("error = %v, want flag suggestion", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	var ran bool
	var format string
	command := &Command{
		Name:        "build",
		Summary:     "Print the runtime command line",
		Description: "Print the runtime command line without starting it.",
		Examples: []Example{
			{Description: "Dry run", Command: "mcp-sandbox build fetch"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.StringVar(&format, "format", "shell", "output format")
			return flagSet
		},
		Run: func(context.Context, []string) error {
			ran = true
			return nil
		},
	}

	for _, args := range [][]string{{"--help"}, {"-h"}, {"fetch", "--help"}} {
		var help bytes.Buffer
		if err := command.execute(context.Background(), args, &help); err != nil {
			t.Fatalf("Execute(%v) error: %v", args, err)
		}
		for _, want := range []string{"without starting it", "--format", "# Dry run", "mcp-sandbox build fetch"} {
			if !strings.Contains(help.String(), want) {
				t.Errorf("help for %v missing %q:\n%s", args, want, help.String())
			}
		}
	}
	if ran {
		t.Error("Run called for a help request")
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	root := &Command{
		Name: "mcp-sandbox",
		Subcommands: []*Command{
			{Name: "run", Summary: "Run a tool server", Run: func(context.Context, []string) error { return nil }},
		},
	}

	var help bytes.Buffer
	if err := root.execute(context.Background(), nil, &help); err == nil {
		t.Error("expected error without a command")
	}
	if !strings.Contains(help.String(), "Run a tool server") {
		t.Errorf("help does not list commands:\n%s", help.String())
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "run", 3},
		{"run", "run", 0},
		{"bulid", "build", 2},
		{"valdate", "validate", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
		ok   bool
	}{
		{&ExitError{Code: 2}, 2, true},
		{fmt.Errorf("wrapped: %w", &sandbox.ExitError{Code: 7}), 7, true},
		{&sandbox.ExitError{Code: 137}, 137, true},
		{&sandbox.ExitError{Code: -1}, 1, true},
		{&ExitError{Code: 300}, 1, true},
		{errors.New("plain"), 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		code, ok := ExitCode(tt.err)
		if code != tt.code || ok != tt.ok {
			t.Errorf("ExitCode(%v) = %d, %v; want %d, %v", tt.err, code, ok, tt.code, tt.ok)
		}
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var text, json bytes.Buffer
	newLogger(&text, true, slog.LevelInfo).Info("sandbox started", "package", "fetch")
	newLogger(&json, false, slog.LevelInfo).Info("sandbox started", "package", "fetch")

	if !strings.Contains(text.String(), "package=fetch") {
		t.Errorf("text output = %q", text.String())
	}
	if !strings.Contains(json.String(), `"package":"fetch"`) {
		t.Errorf("json output = %q", json.String())
	}

	var quiet bytes.Buffer
	newLogger(&quiet, true, slog.LevelInfo).Debug("hidden")
	if quiet.Len() != 0 {
		t.Errorf("debug message logged at info level: %q", quiet.String())
	}
}
