// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/guardiagent/mcp-sandbox/permission"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp-sandbox.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Runtime.Binary != "docker" {
		t.Errorf("expected binary=docker, got %s", cfg.Runtime.Binary)
	}
	if cfg.Runtime.ImageRepository != "ghcr.io/guardiagent/mcp-sandbox" {
		t.Errorf("unexpected image_repository %s", cfg.Runtime.ImageRepository)
	}
	if cfg.Consent.Mode != ConsentPrompt {
		t.Errorf("expected consent mode prompt, got %s", cfg.Consent.Mode)
	}
	if !strings.HasSuffix(cfg.Manifests.Directory, filepath.Join(".config", "mcp-sandbox", "manifests")) {
		t.Errorf("unexpected manifests directory %s", cfg.Manifests.Directory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
	if period, err := cfg.GracePeriod(); err != nil || period != 5*time.Second {
		t.Errorf("GracePeriod() = %v, %v; want 5s", period, err)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when %s not set, got nil", EnvironmentVariable)
	}
	if !strings.HasPrefix(err.Error(), EnvironmentVariable+" environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	path := writeConfig(t, `
environment: staging
runtime:
  version: "1.4"
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Runtime.Version != "1.4" {
		t.Errorf("expected version=1.4, got %s", cfg.Runtime.Version)
	}
	// Unset fields keep their defaults.
	if cfg.Runtime.Binary != "docker" {
		t.Errorf("expected binary=docker, got %s", cfg.Runtime.Binary)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
runtime:
  binary: podman
  image_repository: registry.example.com/sandbox
  grace_period: 250ms
consent:
  mode: rules
  allow: [network-client]
  deny: [filesystem-write, system-environment-read]
  default: allow
manifests:
  directory: /etc/mcp-sandbox/manifests
  files:
    - /srv/tools.yaml
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if cfg.Runtime.Binary != "podman" {
		t.Errorf("expected binary=podman, got %s", cfg.Runtime.Binary)
	}
	if period, _ := cfg.GracePeriod(); period != 250*time.Millisecond {
		t.Errorf("expected grace period 250ms, got %s", period)
	}
	if diff := cmp.Diff([]string{"/srv/tools.yaml"}, cfg.Manifests.Files); diff != "" {
		t.Errorf("manifest files mismatch (-want +got):\n%s", diff)
	}

	allowed, err := cfg.AllowedCategories()
	if err != nil {
		t.Fatalf("AllowedCategories() failed: %v", err)
	}
	if !allowed.Has(permission.NetworkClient) || allowed.Has(permission.FilesystemRead) {
		t.Errorf("unexpected allowed categories %s", allowed)
	}
	denied, err := cfg.DeniedCategories()
	if err != nil {
		t.Fatalf("DeniedCategories() failed: %v", err)
	}
	if !denied.Has(permission.FilesystemWrite) || !denied.Has(permission.SystemEnvRead) {
		t.Errorf("unexpected denied categories %s", denied)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("missing file: got %v, want not-exist error", err)
	}

	path := writeConfig(t, "runtime: [not, a, mapping]\n")
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "parsing "+path) {
		t.Errorf("malformed file: got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	content := `
environment: %s
runtime:
  version: "1.0"
consent:
  mode: prompt
development:
  runtime:
    version: dev
staging:
  consent:
    mode: deny
`

	tests := []struct {
		env         string
		wantVersion string
		wantMode    string
	}{
		{"development", "dev", ConsentPrompt},
		{"staging", "1.0", ConsentDeny},
		// No production section: production defaults apply.
		{"production", "1.0", ConsentRules},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			path := writeConfig(t, strings.Replace(content, "%s", tt.env, 1))
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if cfg.Runtime.Version != tt.wantVersion {
				t.Errorf("version = %s, want %s", cfg.Runtime.Version, tt.wantVersion)
			}
			if cfg.Consent.Mode != tt.wantMode {
				t.Errorf("consent mode = %s, want %s", cfg.Consent.Mode, tt.wantMode)
			}
		})
	}
}

func TestProductionSectionReplacesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
production:
  consent:
    mode: deny
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Consent.Mode != ConsentDeny {
		t.Errorf("consent mode = %s, want deny", cfg.Consent.Mode)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("MCP_SANDBOX_RUNTIME_BINARY", "/env/docker")

	path := writeConfig(t, "runtime:\n  binary: /file/docker\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Runtime.Binary != "/file/docker" {
		t.Errorf("expected binary=/file/docker from file, got %s (env vars should not override)", cfg.Runtime.Binary)
	}
}

func TestPathExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	path := writeConfig(t, `
manifests:
  directory: ${HOME}/manifests
  files:
    - ${MCP_SANDBOX_UNSET_FOR_TEST:-/opt}/extra.yaml
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Manifests.Directory != "/home/tester/manifests" {
		t.Errorf("directory = %s", cfg.Manifests.Directory)
	}
	if diff := cmp.Diff([]string{"/opt/extra.yaml"}, cfg.Manifests.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/manifests",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/manifests",
		},
		{
			input:    "${MCP_SANDBOX_MISSING_FOR_TEST:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Environment = "invalid" },
			wantErr: "invalid environment",
		},
		{
			name:    "empty binary",
			modify:  func(c *Config) { c.Runtime.Binary = "" },
			wantErr: "runtime.binary is required",
		},
		{
			name:    "empty version",
			modify:  func(c *Config) { c.Runtime.Version = "" },
			wantErr: "runtime.version is required",
		},
		{
			name:    "malformed grace period",
			modify:  func(c *Config) { c.Runtime.GracePeriod = "soon" },
			wantErr: "runtime.grace_period",
		},
		{
			name:    "negative grace period",
			modify:  func(c *Config) { c.Runtime.GracePeriod = "-1s" },
			wantErr: "must not be negative",
		},
		{
			name:    "unknown consent mode",
			modify:  func(c *Config) { c.Consent.Mode = "maybe" },
			wantErr: "consent.mode must be one of",
		},
		{
			name:    "abstain is not a default",
			modify:  func(c *Config) { c.Consent.Default = "abstain" },
			wantErr: "consent.default",
		},
		{
			name:    "unknown category",
			modify:  func(c *Config) { c.Consent.Deny = []string{"root-access"} },
			wantErr: "consent.deny",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Validate() error = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Runtime.Binary = ""
	cfg.Consent.Mode = "maybe"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"runtime.binary", "consent.mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
