// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/guardiagent/mcp-sandbox/lib/version"
	"github.com/guardiagent/mcp-sandbox/permission"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "MCP_SANDBOX_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Consent modes.
const (
	// ConsentPrompt asks on the controlling terminal, after applying any
	// allow and deny rules.
	ConsentPrompt = "prompt"
	// ConsentAllow grants every declared permission.
	ConsentAllow = "allow"
	// ConsentDeny denies every permission.
	ConsentDeny = "deny"
	// ConsentRules applies the allow and deny rules and the default,
	// never prompting.
	ConsentRules = "rules"
)

// Config is the master configuration for the sandbox launcher.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Runtime configures the container runtime and images.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Consent configures how permission requests are answered.
	Consent ConsentConfig `yaml:"consent"`

	// Manifests configures where manifest files are loaded from.
	Manifests ManifestsConfig `yaml:"manifests"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Runtime   *RuntimeConfig   `yaml:"runtime,omitempty"`
	Consent   *ConsentConfig   `yaml:"consent,omitempty"`
	Manifests *ManifestsConfig `yaml:"manifests,omitempty"`
}

// RuntimeConfig configures the container runtime.
type RuntimeConfig struct {
	// Binary is the runtime CLI.
	// Default: docker
	Binary string `yaml:"binary"`

	// ImageRepository is the sandbox image prefix; the registry name is
	// appended with a hyphen.
	// Default: ghcr.io/guardiagent/mcp-sandbox
	ImageRepository string `yaml:"image_repository"`

	// Version is the sandbox image tag.
	// Default: the release version of this binary, or latest
	Version string `yaml:"version"`

	// GracePeriod is how long a closing sandbox gets between SIGTERM and
	// SIGKILL, as a Go duration string.
	// Default: 5s
	GracePeriod string `yaml:"grace_period"`
}

// ConsentConfig configures consent decisions.
type ConsentConfig struct {
	// Mode is one of prompt, allow, deny, rules.
	// Default: prompt (development), rules (production)
	Mode string `yaml:"mode"`

	// Allow lists capability categories granted without asking.
	Allow []string `yaml:"allow,omitempty"`

	// Deny lists capability categories refused without asking. Deny
	// takes precedence over Allow.
	Deny []string `yaml:"deny,omitempty"`

	// Default is the answer in rules mode for categories in neither
	// list: allow or deny.
	// Default: deny
	Default string `yaml:"default"`
}

// ManifestsConfig configures manifest loading.
type ManifestsConfig struct {
	// Directory holds manifest files (.yaml, .yml, .json, .jsonc), loaded
	// after the built-in manifests. A missing directory is not an error.
	// Default: ${HOME}/.config/mcp-sandbox/manifests
	Directory string `yaml:"directory"`

	// Files are additional manifest files loaded after Directory.
	Files []string `yaml:"files,omitempty"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file, and
// on their own when no config file is named.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		Runtime: RuntimeConfig{
			Binary:          "docker",
			ImageRepository: "ghcr.io/guardiagent/mcp-sandbox",
			Version:         version.ImageTag(),
			GracePeriod:     "5s",
		},
		Consent: ConsentConfig{
			Mode:    ConsentPrompt,
			Default: "deny",
		},
		Manifests: ManifestsConfig{
			Directory: filepath.Join(homeDir, ".config", "mcp-sandbox", "manifests"),
		},
	}
}

// Load loads configuration from the MCP_SANDBOX_CONFIG environment
// variable. It fails if the variable is not set; there is no discovery.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: nobody is at a terminal to answer.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Consent: &ConsentConfig{
					Mode: ConsentRules,
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Runtime != nil {
		if overrides.Runtime.Binary != "" {
			c.Runtime.Binary = overrides.Runtime.Binary
		}
		if overrides.Runtime.ImageRepository != "" {
			c.Runtime.ImageRepository = overrides.Runtime.ImageRepository
		}
		if overrides.Runtime.Version != "" {
			c.Runtime.Version = overrides.Runtime.Version
		}
		if overrides.Runtime.GracePeriod != "" {
			c.Runtime.GracePeriod = overrides.Runtime.GracePeriod
		}
	}

	if overrides.Consent != nil {
		if overrides.Consent.Mode != "" {
			c.Consent.Mode = overrides.Consent.Mode
		}
		if overrides.Consent.Allow != nil {
			c.Consent.Allow = overrides.Consent.Allow
		}
		if overrides.Consent.Deny != nil {
			c.Consent.Deny = overrides.Consent.Deny
		}
		if overrides.Consent.Default != "" {
			c.Consent.Default = overrides.Consent.Default
		}
	}

	if overrides.Manifests != nil {
		if overrides.Manifests.Directory != "" {
			c.Manifests.Directory = overrides.Manifests.Directory
		}
		if overrides.Manifests.Files != nil {
			c.Manifests.Files = overrides.Manifests.Files
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Runtime.Binary = expandVars(c.Runtime.Binary, vars)
	c.Manifests.Directory = expandVars(c.Manifests.Directory, vars)
	for i, file := range c.Manifests.Files {
		c.Manifests.Files[i] = expandVars(file, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Runtime.Binary == "" {
		errs = append(errs, fmt.Errorf("runtime.binary is required"))
	}
	if c.Runtime.ImageRepository == "" {
		errs = append(errs, fmt.Errorf("runtime.image_repository is required"))
	}
	if c.Runtime.Version == "" {
		errs = append(errs, fmt.Errorf("runtime.version is required"))
	}
	if _, err := c.GracePeriod(); err != nil {
		errs = append(errs, err)
	}

	modes := []string{ConsentPrompt, ConsentAllow, ConsentDeny, ConsentRules}
	if !slices.Contains(modes, c.Consent.Mode) {
		errs = append(errs, fmt.Errorf("consent.mode must be one of: %v", modes))
	}
	if c.Consent.Default != "allow" && c.Consent.Default != "deny" {
		errs = append(errs, fmt.Errorf("consent.default must be allow or deny"))
	}
	if _, err := parseCategories("consent.allow", c.Consent.Allow); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseCategories("consent.deny", c.Consent.Deny); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// GracePeriod parses Runtime.GracePeriod.
func (c *Config) GracePeriod() (time.Duration, error) {
	if c.Runtime.GracePeriod == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(c.Runtime.GracePeriod)
	if err != nil {
		return 0, fmt.Errorf("runtime.grace_period: %w", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("runtime.grace_period must not be negative")
	}
	return duration, nil
}

// AllowedCategories parses Consent.Allow.
func (c *Config) AllowedCategories() (permission.Set, error) {
	return parseCategories("consent.allow", c.Consent.Allow)
}

// DeniedCategories parses Consent.Deny.
func (c *Config) DeniedCategories() (permission.Set, error) {
	return parseCategories("consent.deny", c.Consent.Deny)
}

func parseCategories(field string, names []string) (permission.Set, error) {
	var set permission.Set
	for _, name := range names {
		category, err := permission.ParseCategory(name)
		if err != nil {
			return permission.Set{}, fmt.Errorf("%s: %w", field, err)
		}
		set = set.With(category)
	}
	return set, nil
}
