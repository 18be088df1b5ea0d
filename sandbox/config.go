// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"strings"

	"github.com/guardiagent/mcp-sandbox/manifest"
)

const (
	// DefaultBinary is the container runtime CLI.
	DefaultBinary = "docker"

	// DefaultImageRepository is the prefix of the per-registry sandbox
	// images. The registry name is appended with a hyphen.
	DefaultImageRepository = "ghcr.io/guardiagent/mcp-sandbox"

	// DefaultVersion is the image tag used when none is configured.
	DefaultVersion = "latest"
)

// RuntimeConfig selects the container runtime and the sandbox images it
// runs. The zero value is usable and means the defaults.
type RuntimeConfig struct {
	// Binary is the runtime CLI, looked up on PATH when not absolute.
	Binary string

	// ImageRepository is the image name prefix; the full reference is
	// "<ImageRepository>-<registry>:<Version>".
	ImageRepository string

	// Version is the image tag.
	Version string
}

// DefaultRuntimeConfig returns the docker runtime with the published
// sandbox images.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Binary:          DefaultBinary,
		ImageRepository: DefaultImageRepository,
		Version:         DefaultVersion,
	}
}

// withDefaults fills empty fields from DefaultRuntimeConfig.
func (c RuntimeConfig) withDefaults() RuntimeConfig {
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.ImageRepository == "" {
		c.ImageRepository = DefaultImageRepository
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	return c
}

// Image returns the image reference for packages from registry.
func (c RuntimeConfig) Image(registry manifest.Registry) string {
	c = c.withDefaults()
	return fmt.Sprintf("%s-%s:%s", c.ImageRepository, registry, c.Version)
}

// Validate checks that the configuration can produce well-formed image
// references.
func (c RuntimeConfig) Validate() error {
	c = c.withDefaults()
	if strings.ContainsAny(c.Binary, "\n\x00") {
		return fmt.Errorf("runtime binary %q contains invalid characters", c.Binary)
	}
	if strings.ContainsAny(c.ImageRepository, " \t\n:@") {
		return fmt.Errorf("image repository %q must not contain whitespace, ':' or '@'", c.ImageRepository)
	}
	if strings.ContainsAny(c.Version, " \t\n:/@") {
		return fmt.Errorf("image version %q must not contain whitespace, ':', '/' or '@'", c.Version)
	}
	return nil
}
