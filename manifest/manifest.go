// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/guardiagent/mcp-sandbox/permission"
)

// Registry identifies the package ecosystem a tool server is fetched from.
// Each registry has its own sandbox image.
type Registry string

const (
	// PyPI packages are installed with pip inside the sandbox.
	PyPI Registry = "pypi"

	// NPM packages are run with npx inside the sandbox.
	NPM Registry = "npm"
)

// Registries returns every supported registry.
func Registries() []Registry {
	return []Registry{PyPI, NPM}
}

// Valid reports whether r is a supported registry.
func (r Registry) Valid() bool {
	switch r {
	case PyPI, NPM:
		return true
	}
	return false
}

// ParseRegistry converts a registry name to a Registry.
func ParseRegistry(name string) (Registry, error) {
	registry := Registry(strings.ToLower(strings.TrimSpace(name)))
	if !registry.Valid() {
		return "", fmt.Errorf("unknown registry %q (valid: pypi, npm)", name)
	}
	return registry, nil
}

// Manifest is a tool package's static declaration: who it is, where it
// comes from, and which capability categories it may ever request.
// Manifests are values; copying one never shares mutable state.
type Manifest struct {
	// Name is a human-readable name for the tool server.
	Name string

	// Description says what the tool server does.
	Description string

	// Registry is the package ecosystem the package is fetched from.
	Registry Registry

	// Package is the package identifier within Registry.
	Package string

	// Capabilities are the categories of access the package may request.
	Capabilities permission.Set

	// Development, when non-zero, sources the package from a local
	// directory instead of the registry.
	Development Development
}

// Development describes a package under active development: its source
// is bind-mounted from the host and Command replaces the registry
// install-and-run step.
type Development struct {
	// Source is the absolute host path of the package source.
	Source string

	// Command is the shell command the sandbox entrypoint runs instead of
	// resolving the package from its registry.
	Command string
}

// New returns a registry manifest after checking its fields.
func New(name, description string, registry Registry, pkg string, capabilities ...permission.Category) (Manifest, error) {
	manifest := Manifest{
		Name:         name,
		Description:  description,
		Registry:     registry,
		Package:      pkg,
		Capabilities: permission.NewSet(capabilities...),
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// NewDevelopment returns a development manifest after checking its
// fields. The source path is not required to exist yet; that is checked
// when an invocation is built.
func NewDevelopment(name, description string, registry Registry, pkg string, development Development, capabilities ...permission.Category) (Manifest, error) {
	manifest := Manifest{
		Name:         name,
		Description:  description,
		Registry:     registry,
		Package:      pkg,
		Capabilities: permission.NewSet(capabilities...),
		Development:  development,
	}
	if !manifest.IsDevelopment() {
		return Manifest{}, fmt.Errorf("manifest %q: development source is required", name)
	}
	if err := manifest.Validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// IsDevelopment reports whether the manifest sources its package from a
// local directory.
func (m Manifest) IsDevelopment() bool {
	return m.Development.Source != ""
}

// Declares reports whether the manifest declares category c.
func (m Manifest) Declares(c permission.Category) bool {
	return m.Capabilities.Has(c)
}

// Validate checks the manifest's fields.
func (m Manifest) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !m.Registry.Valid() {
		problems = append(problems, fmt.Sprintf("unknown registry %q", m.Registry))
	}
	if strings.TrimSpace(m.Package) == "" {
		problems = append(problems, "package is required")
	}
	if strings.ContainsAny(m.Package, " \t\n=") {
		problems = append(problems, fmt.Sprintf("package %q must not contain whitespace or '='", m.Package))
	}
	if m.IsDevelopment() {
		if !filepath.IsAbs(m.Development.Source) {
			problems = append(problems, fmt.Sprintf("development source %q must be absolute", m.Development.Source))
		}
		if strings.ContainsAny(m.Development.Source, ",\n") {
			problems = append(problems, fmt.Sprintf("development source %q must not contain commas or newlines", m.Development.Source))
		}
		if err := checkCommand(m.Development.Command); err != nil {
			problems = append(problems, err.Error())
		}
	} else if m.Development.Command != "" {
		problems = append(problems, "development command requires a development source")
	}

	if len(problems) > 0 {
		return fmt.Errorf("manifest %q validation failed:\n  %s", m.Name, strings.Join(problems, "\n  "))
	}
	return nil
}

// checkCommand verifies that a development command parses as a
// non-empty shell word list.
func checkCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("development command is required")
	}
	words, err := shellwords.Parse(command)
	if err != nil {
		return fmt.Errorf("development command %q: %w", command, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("development command %q is empty", command)
	}
	return nil
}
