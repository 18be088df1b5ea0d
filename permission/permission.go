// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Permission is a concrete, parameterized grant. The set of
// implementations is closed: DomainPort, HostPort, FSAccess and
// EnvironmentVariable.
type Permission interface {
	// Category returns the capability category this permission belongs
	// to. The mapping is a pure function of the variant and its fields.
	Category() Category

	// Describe returns a human-readable statement of exactly what is
	// being requested, suitable for a consent prompt.
	Describe() string

	// String returns the canonical textual form accepted by Parse.
	String() string

	// Check reports structural problems (out-of-range port, relative
	// path, malformed name). It does not touch the host.
	Check() error

	permission()
}

// DomainPort grants outbound network access to a domain name at a port.
type DomainPort struct {
	Domain string
	Port   uint16
}

// HostPort grants outbound network access to an IP address at a port.
type HostPort struct {
	Host netip.Addr
	Port uint16
}

// FSAccess grants a bind mount of a host path. Write false means the
// mount is read-only. ContainerPath, when set, is where the path appears
// inside the sandbox; otherwise it appears at Path.
type FSAccess struct {
	Path          string
	Write         bool
	ContainerPath string
}

// EnvironmentVariable grants pass-through of one host environment
// variable. Only the name is held; the value is read from the host when
// an invocation is built.
type EnvironmentVariable struct {
	Name string
}

func (DomainPort) permission()          {}
func (HostPort) permission()            {}
func (FSAccess) permission()            {}
func (EnvironmentVariable) permission() {}

func (DomainPort) Category() Category          { return NetworkClient }
func (HostPort) Category() Category            { return NetworkClient }
func (EnvironmentVariable) Category() Category { return SystemEnvRead }

// Category returns FilesystemWrite for writable access and
// FilesystemRead otherwise.
func (p FSAccess) Category() Category {
	if p.Write {
		return FilesystemWrite
	}
	return FilesystemRead
}

// EgressEntry returns the "host:port" allow-list entry.
func (p DomainPort) EgressEntry() string {
	return p.Domain + ":" + strconv.Itoa(int(p.Port))
}

// EgressEntry returns the "host:port" allow-list entry. IPv6 addresses
// are bracketed.
func (p HostPort) EgressEntry() string {
	return netip.AddrPortFrom(p.Host, p.Port).String()
}

// MountPath returns the in-sandbox path for the mount.
func (p FSAccess) MountPath() string {
	if p.ContainerPath != "" {
		return p.ContainerPath
	}
	return p.Path
}

func (p DomainPort) Describe() string {
	return "outbound network to " + p.EgressEntry()
}

func (p HostPort) Describe() string {
	return "outbound network to address " + p.EgressEntry()
}

func (p FSAccess) Describe() string {
	access := "read-only"
	if p.Write {
		access = "read-write"
	}
	description := access + " access to " + p.Path
	if p.ContainerPath != "" && p.ContainerPath != p.Path {
		description += " (mounted at " + p.ContainerPath + ")"
	}
	return description
}

func (p EnvironmentVariable) Describe() string {
	return "read environment variable " + p.Name
}

func (p DomainPort) String() string {
	return "net:" + p.EgressEntry()
}

func (p HostPort) String() string {
	return "net:" + p.EgressEntry()
}

func (p FSAccess) String() string {
	mode := "ro"
	if p.Write {
		mode = "rw"
	}
	if p.ContainerPath != "" {
		return "fs:" + p.Path + ":" + mode + ":" + p.ContainerPath
	}
	if p.Write {
		return "fs:" + p.Path + ":" + mode
	}
	return "fs:" + p.Path
}

func (p EnvironmentVariable) String() string {
	return "env:" + p.Name
}

// domainPattern accepts RFC 1123 host names: dot-separated labels of
// letters, digits and inner hyphens.
var domainPattern = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// environmentNamePattern accepts portable shell variable names.
var environmentNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (p DomainPort) Check() error {
	if p.Domain == "" {
		return fmt.Errorf("%s: domain is required", p)
	}
	if len(p.Domain) > 253 || !domainPattern.MatchString(p.Domain) {
		return fmt.Errorf("%s: invalid domain name %q", p, p.Domain)
	}
	if _, err := netip.ParseAddr(p.Domain); err == nil {
		return fmt.Errorf("%s: %q is an address, use an address permission", p, p.Domain)
	}
	if p.Port == 0 {
		return fmt.Errorf("%s: port must be between 1 and 65535", p)
	}
	return nil
}

func (p HostPort) Check() error {
	if !p.Host.IsValid() {
		return fmt.Errorf("net: address is required")
	}
	if p.Port == 0 {
		return fmt.Errorf("%s: port must be between 1 and 65535", p)
	}
	return nil
}

func (p FSAccess) Check() error {
	if p.Path == "" {
		return fmt.Errorf("fs: path is required")
	}
	for _, path := range []string{p.Path, p.ContainerPath} {
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			return fmt.Errorf("%s: path %q must be absolute", p, path)
		}
		// The runtime's --mount syntax is comma-delimited.
		if strings.ContainsAny(path, ",\n") {
			return fmt.Errorf("%s: path %q must not contain commas or newlines", p, path)
		}
	}
	return nil
}

func (p EnvironmentVariable) Check() error {
	if !environmentNamePattern.MatchString(p.Name) {
		return fmt.Errorf("env: invalid variable name %q", p.Name)
	}
	return nil
}

// ValidEnvironmentName reports whether name is a portable environment
// variable name.
func ValidEnvironmentName(name string) bool {
	return environmentNamePattern.MatchString(name)
}
