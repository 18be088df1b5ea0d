// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/guardiagent/mcp-sandbox/cmd/mcp-sandbox/cli"
	"github.com/guardiagent/mcp-sandbox/consent"
	"github.com/guardiagent/mcp-sandbox/lib/config"
	"github.com/guardiagent/mcp-sandbox/lib/testutil"
	"github.com/guardiagent/mcp-sandbox/permission"
	"github.com/guardiagent/mcp-sandbox/sandbox"
)

const testTimeout = 10 * time.Second

var discard = slog.New(slog.DiscardHandler)

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// testConfig writes a config file whose manifest directory is empty and
// whose runtime is binary.
func testConfig(t *testing.T, binary, consentSection string) string {
	t.Helper()
	dir := t.TempDir()
	return writeFile(t, dir, "config.yaml", `
runtime:
  binary: `+binary+`
  grace_period: 1s
manifests:
  directory: `+filepath.Join(dir, "manifests")+`
`+consentSection)
}

func noTerminal() (*consent.Terminal, error) {
	return nil, consent.ErrNoTerminal
}

func TestLoadConfigSources(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig defaults: %v", err)
	}
	if cfg.Runtime.Binary != "docker" {
		t.Errorf("default binary = %s", cfg.Runtime.Binary)
	}

	fromEnvironment := testConfig(t, "podman", "")
	t.Setenv(config.EnvironmentVariable, fromEnvironment)
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig from environment: %v", err)
	}
	if cfg.Runtime.Binary != "podman" {
		t.Errorf("binary from %s = %s, want podman", config.EnvironmentVariable, cfg.Runtime.Binary)
	}

	// --config wins over the environment variable.
	cfg, err = loadConfig(testConfig(t, "nerdctl", ""))
	if err != nil {
		t.Fatalf("loadConfig from flag: %v", err)
	}
	if cfg.Runtime.Binary != "nerdctl" {
		t.Errorf("binary from --config = %s, want nerdctl", cfg.Runtime.Binary)
	}

	invalid := testConfig(t, "docker", "consent:\n  mode: sometimes\n")
	if _, err := loadConfig(invalid); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("invalid config: got %v", err)
	}
}

func TestLoadManifestsOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestDir := filepath.Join(dir, "manifests")
	if err := os.Mkdir(manifestDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, manifestDir, "fetch.yaml", `
manifests:
  fetch:
    name: Patched Fetch
    registry: pypi
    package: mcp-server-fetch-patched
    capabilities: [network-client]
`)
	configured := writeFile(t, dir, "configured.jsonc", `{
  // Configured file.
  "manifests": {
    "weather": {"name": "Weather", "registry": "npm", "package": "weather-mcp", "capabilities": ["network-client"]},
  },
}`)
	extra := writeFile(t, dir, "extra.yaml", `
manifests:
  weather:
    name: Weather (local)
    registry: npm
    package: weather-mcp-local
`)

	cfg := config.Default()
	cfg.Manifests.Directory = manifestDir
	cfg.Manifests.Files = []string{configured}

	loader, err := loadManifests(cfg, []string{extra}, discard)
	if err != nil {
		t.Fatalf("loadManifests: %v", err)
	}
	if diff := cmp.Diff([]string{"fetch", "sqlite", "weather"}, loader.List()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	fetch, _ := loader.Resolve("fetch")
	if fetch.Package != "mcp-server-fetch-patched" {
		t.Errorf("directory did not override built-in fetch: %s", fetch.Package)
	}
	weather, _ := loader.Resolve("weather")
	if weather.Package != "weather-mcp-local" || loader.Source("weather") != extra {
		t.Errorf("--manifest-file did not override configured file: %s from %s", weather.Package, loader.Source("weather"))
	}
}

func TestConsentPolicyModes(t *testing.T) {
	t.Parallel()

	fetchRequest := func(perm permission.Permission) consent.Request {
		return consent.Request{Package: "mcp-server-fetch", Permission: perm}
	}
	network := fetchRequest(permission.DomainPort{Domain: "example.com", Port: 443})
	write := fetchRequest(permission.FSAccess{Path: "/tmp", Write: true})
	environment := fetchRequest(permission.EnvironmentVariable{Name: "TOKEN"})

	cfg := config.Default()
	cfg.Consent.Allow = []string{"network-client"}
	cfg.Consent.Deny = []string{"filesystem-write", "network-client"}
	cfg.Consent.Default = "allow"

	tests := []struct {
		mode string
		want map[string]consent.Decision
	}{
		{config.ConsentAllow, map[string]consent.Decision{"network": consent.Allow, "write": consent.Allow, "environment": consent.Allow}},
		{config.ConsentDeny, map[string]consent.Decision{"network": consent.Deny, "write": consent.Deny, "environment": consent.Deny}},
		// Deny wins over allow; unlisted categories get the default.
		{config.ConsentRules, map[string]consent.Decision{"network": consent.Deny, "write": consent.Deny, "environment": consent.Allow}},
	}
	for _, tt := range tests {
		policy, closer, err := consentPolicy(cfg, tt.mode, noTerminal)
		if err != nil {
			t.Fatalf("consentPolicy(%s): %v", tt.mode, err)
		}
		if err := closer.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		for name, request := range map[string]consent.Request{"network": network, "write": write, "environment": environment} {
			decision, err := policy.Decide(context.Background(), request)
			if err != nil {
				t.Fatalf("%s: Decide(%s): %v", tt.mode, name, err)
			}
			if decision != tt.want[name] {
				t.Errorf("%s: %s decision = %s, want %s", tt.mode, name, decision, tt.want[name])
			}
		}
	}
}

func TestConsentPolicyPromptNeedsTerminal(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	_, _, err := consentPolicy(cfg, "", noTerminal)
	if !errors.Is(err, consent.ErrNoTerminal) {
		t.Fatalf("err = %v, want ErrNoTerminal", err)
	}
	if !strings.Contains(err.Error(), "--consent=rules") {
		t.Errorf("error does not suggest an alternative: %v", err)
	}

	if _, _, err := consentPolicy(cfg, "sometimes", noTerminal); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestParseStaticEnv(t *testing.T) {
	t.Parallel()

	env, err := parseStaticEnv([]string{"LOG_LEVEL=debug", "EMPTY=", "URL=https://x/?a=b"})
	if err != nil {
		t.Fatalf("parseStaticEnv: %v", err)
	}
	want := map[string]string{"LOG_LEVEL": "debug", "EMPTY": "", "URL": "https://x/?a=b"}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range [][]string{{"NOVALUE"}, {"=value"}, {"A=1", "A=2"}} {
		if _, err := parseStaticEnv(bad); err == nil {
			t.Errorf("parseStaticEnv(%q) succeeded", bad)
		}
	}
}

func TestSupervisorConfigGracePeriod(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Runtime.GracePeriod = "0s"
	supervision, err := supervisorConfig(cfg, discard)
	if err != nil {
		t.Fatalf("supervisorConfig: %v", err)
	}
	if supervision.GracePeriod >= 0 {
		t.Errorf("zero grace period = %s, want negative (kill immediately)", supervision.GracePeriod)
	}

	cfg.Runtime.GracePeriod = "2s"
	supervision, _ = supervisorConfig(cfg, discard)
	if supervision.GracePeriod != 2*time.Second {
		t.Errorf("grace period = %s, want 2s", supervision.GracePeriod)
	}
}

func TestBuildInvocation(t *testing.T) {
	data := t.TempDir()
	t.Setenv(config.EnvironmentVariable, "")

	flags := &launchFlags{
		commonFlags: commonFlags{configPath: testConfig(t, "docker", "consent:\n  mode: rules\n  allow: [filesystem-read]\n")},
		allow:       []string{"fs:" + data + ":ro", "fs:" + data + ":rw:/data"},
		env:         []string{"LOG_LEVEL=debug"},
		instanceID:  "instance-1",
	}

	var out bytes.Buffer
	if err := buildInvocation(context.Background(), flags, "sqlite", []string{"--db-path", "/data/app.db"}, false, &out, discard); err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	line := out.String()
	for _, want := range []string{
		"docker run --rm -i --name " + sandbox.ContainerName("mcp-server-sqlite-npx", "instance-1"),
		"--mount type=bind,src=" + data + ",dst=" + data + ",readonly",
		"LOG_LEVEL=<redacted>",
		"mcp-sandbox-npm:",
		"--db-path /data/app.db",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("command line missing %q:\n%s", want, line)
		}
	}
	// Write access was not allowed by the rules.
	if strings.Contains(line, "dst=/data") {
		t.Errorf("denied mount present:\n%s", line)
	}

	out.Reset()
	if err := buildInvocation(context.Background(), flags, "sqlite", nil, true, &out, discard); err != nil {
		t.Fatalf("buildInvocation --argv: %v", err)
	}
	argv := strings.Split(strings.TrimSpace(out.String()), "\n")
	if argv[0] != "docker" || argv[1] != "run" {
		t.Errorf("argv starts %q", argv[:2])
	}
	if !strings.Contains(out.String(), "LOG_LEVEL=debug\n") {
		t.Errorf("--argv output is redacted:\n%s", out.String())
	}
}

func TestBuildInvocationRejectsUndeclared(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	flags := &launchFlags{
		commonFlags: commonFlags{configPath: testConfig(t, "docker", "consent:\n  mode: allow\n")},
		allow:       []string{"env:GITHUB_TOKEN"},
	}
	err := buildInvocation(context.Background(), flags, "fetch", nil, false, io.Discard, discard)
	var undeclared *permission.UndeclaredError
	if !errors.As(err, &undeclared) {
		t.Errorf("err = %v, want *permission.UndeclaredError", err)
	}

	if err := buildInvocation(context.Background(), flags, "no-such-manifest", nil, false, io.Discard, discard); err == nil {
		t.Error("unknown manifest accepted")
	}
}

func TestValidateSandbox(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	runtime := testutil.Script(t, "runtime", `case "$1" in
version) echo 27.1.0 ;;
image) exit 0 ;;
esac
exit 0
`)
	flags := &commonFlags{configPath: testConfig(t, runtime, "")}

	var out bytes.Buffer
	if err := validateSandbox(context.Background(), flags, "fetch", []string{"net:example.com:443"}, &out, discard); err != nil {
		t.Fatalf("validateSandbox: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Ready to run sandbox") {
		t.Errorf("output:\n%s", out.String())
	}

	out.Reset()
	err := validateSandbox(context.Background(), flags, "fetch", []string{"env:HOME"}, &out, discard)
	if code, ok := cli.ExitCode(err); !ok || code != 1 {
		t.Errorf("err = %v, want exit code 1", err)
	}
	if !strings.Contains(out.String(), "Validation failed") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunSandboxRelaysAndExits(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	runtime := testutil.Script(t, "runtime", `[ "$1" = "rm" ] && exit 0
exec cat
`)
	flags := &launchFlags{commonFlags: commonFlags{configPath: testConfig(t, runtime, "consent:\n  mode: deny\n")}}

	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()
	t.Cleanup(func() { stdinWriter.Close() })

	result := make(chan error, 1)
	go func() {
		err := runSandbox(context.Background(), flags, "fetch", nil, stdinReader, stdoutWriter, discard)
		stdoutWriter.Close()
		result <- err
	}()

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdoutReader)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	if _, err := io.WriteString(stdinWriter, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	if got := testutil.RequireReceive[string](t, lines, testTimeout, "echoed request"); got != `{"jsonrpc":"2.0","id":1,"method":"ping"}` {
		t.Errorf("echo = %q", got)
	}

	// End of input lets the server exit on its own.
	stdinWriter.Close()
	if err := testutil.RequireReceive[error](t, result, testTimeout, "run to finish"); err != nil {
		t.Errorf("runSandbox = %v, want nil", err)
	}
}

func TestRunSandboxDrainsRepliesAfterInputEnds(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	runtime := testutil.Script(t, "runtime", `[ "$1" = "rm" ] && exit 0
read line
sleep 0.3
echo "reply:$line"
`)
	flags := &launchFlags{commonFlags: commonFlags{configPath: testConfig(t, runtime, "consent:\n  mode: deny\n")}}

	var out bytes.Buffer
	err := runSandbox(context.Background(), flags, "fetch", nil, strings.NewReader("ping\n"), &out, discard)
	if err != nil {
		t.Errorf("runSandbox = %v, want nil", err)
	}
	if out.String() != "reply:ping\n" {
		t.Errorf("output = %q, want the reply written after input ended", out.String())
	}
}

func TestRunSandboxCancelClosesSession(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	runtime := testutil.Script(t, "runtime", `[ "$1" = "rm" ] && exit 0
echo ready
exec sleep 60
`)
	flags := &launchFlags{commonFlags: commonFlags{configPath: testConfig(t, runtime, "consent:\n  mode: deny\n")}}

	ctx, cancel := context.WithCancel(context.Background())
	stdoutReader, stdoutWriter := io.Pipe()
	result := make(chan error, 1)
	go func() {
		err := runSandbox(ctx, flags, "fetch", nil, strings.NewReader(""), stdoutWriter, discard)
		stdoutWriter.Close()
		result <- err
	}()

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdoutReader)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// Input is already exhausted; the server keeps running until cancelled.
	testutil.RequireReceive[string](t, lines, testTimeout, "server ready")
	cancel()
	if err := testutil.RequireReceive[error](t, result, testTimeout, "run to finish"); err != nil {
		t.Errorf("runSandbox = %v, want nil after cancellation", err)
	}
}

func TestRunSandboxReturnsExitCode(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	runtime := testutil.Script(t, "runtime", `[ "$1" = "rm" ] && exit 0
echo starting
exit 4
`)
	flags := &launchFlags{commonFlags: commonFlags{configPath: testConfig(t, runtime, "consent:\n  mode: deny\n")}}

	stdinReader, stdinWriter := io.Pipe()
	t.Cleanup(func() { stdinWriter.Close() })

	var out bytes.Buffer
	err := runSandbox(context.Background(), flags, "fetch", nil, stdinReader, &out, discard)
	if code, ok := cli.ExitCode(err); !ok || code != 4 {
		t.Errorf("err = %v, want exit code 4", err)
	}
	if out.String() != "starting\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootCommandListsSubcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, command := range rootCommand().Subcommands {
		names = append(names, command.Name)
	}
	want := []string{"run", "build", "validate", "list-manifests", "show-manifest", "schema", "version"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}
