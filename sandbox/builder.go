// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/guardiagent/mcp-sandbox/manifest"
	"github.com/guardiagent/mcp-sandbox/permission"
)

// Container paths and control variables understood by the sandbox image
// entrypoint.
const (
	// DevelopmentMountPath is where a development source is mounted.
	DevelopmentMountPath = "/sandbox"

	EnvPackage       = "PACKAGE"
	EnvAllowedEgress = "ALLOWED_EGRESS"
	EnvPreInstalled  = "PRE_INSTALLED"
	EnvExecutable    = "EXE"
)

// reservedEnv are the control variables; neither host passthrough nor
// static variables may set them.
var reservedEnv = map[string]bool{
	EnvPackage:       true,
	EnvAllowedEgress: true,
	EnvPreInstalled:  true,
	EnvExecutable:    true,
}

// BuildOptions carries per-invocation inputs that are not permissions.
type BuildOptions struct {
	// Args are appended after the image reference and reach the tool
	// server's command line unchanged.
	Args []string

	// StaticEnv are variables set inside the sandbox with fixed values.
	// They are configuration supplied by the integrator, not host
	// passthrough, and need no consent. Emitted sorted by name.
	StaticEnv map[string]string

	// InstanceID distinguishes concurrent invocations of the same
	// package. A random UUID is used when empty.
	InstanceID string
}

// Builder translates a manifest and a consented permission list into an
// Invocation. Build has no side effects: it reads the host environment
// and stats paths, but never creates, writes or starts anything.
type Builder struct {
	runtime   RuntimeConfig
	lookupEnv func(string) (string, bool)
	stat      func(string) (fs.FileInfo, error)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLookupEnv replaces os.LookupEnv as the source of passed-through
// variable values.
func WithLookupEnv(lookup func(string) (string, bool)) BuilderOption {
	return func(b *Builder) {
		b.lookupEnv = lookup
	}
}

// WithStat replaces os.Stat for host path precondition checks.
func WithStat(stat func(string) (fs.FileInfo, error)) BuilderOption {
	return func(b *Builder) {
		b.stat = stat
	}
}

// NewBuilder creates a builder for the given runtime.
func NewBuilder(runtime RuntimeConfig, options ...BuilderOption) *Builder {
	b := &Builder{
		runtime:   runtime.withDefaults(),
		lookupEnv: os.LookupEnv,
		stat:      os.Stat,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Runtime returns the builder's runtime configuration with defaults
// applied.
func (b *Builder) Runtime() RuntimeConfig {
	return b.runtime
}

// Build assembles the runtime command line:
//
//	run --rm -i --name <name> --cap-add=NET_ADMIN -e PACKAGE=<package>
//	  [--mount type=bind,src=<host>,dst=<container>[,readonly]]...
//	  [-e ALLOWED_EGRESS=<host:port>,...]
//	  [-e NAME=<value>]...            (passed-through host variables)
//	  [-e NAME=<value>]...            (static variables)
//	  [--mount type=bind,src=<source>,dst=/sandbox -e PRE_INSTALLED=true -e EXE=<command>]
//	  <image> [args...]
//
// Within each group, entries keep the order of consented; exact
// duplicates are dropped. Two mounts at one container path, or a static
// variable named like a passed-through one, fail the build. Consented permissions are checked against the
// manifest again, so a permission outside its declared categories can
// never reach the command line.
func (b *Builder) Build(m manifest.Manifest, consented []permission.Permission, options BuildOptions) (*Invocation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := b.runtime.Validate(); err != nil {
		return nil, err
	}
	if _, err := permission.Validate(m.Capabilities, consented); err != nil {
		return nil, err
	}

	instanceID := options.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	inv := &Invocation{
		binary:     b.runtime.Binary,
		pkg:        m.Package,
		image:      b.runtime.Image(m.Registry),
		name:       ContainerName(m.Package, instanceID),
		instanceID: instanceID,
		trailing:   append([]string(nil), options.Args...),
		redact:     make(map[string]bool),
	}

	seen := make(map[string]bool)
	mountTargets := make(map[string]string)
	passthroughNames := make(map[string]bool)
	var passthrough []EnvVar
	for _, perm := range consented {
		key := perm.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		switch p := perm.(type) {
		case permission.FSAccess:
			if err := b.checkExists(p.Path); err != nil {
				return nil, err
			}
			if previous, ok := mountTargets[p.MountPath()]; ok {
				return nil, fmt.Errorf("%s and %s both mount at %s", previous, key, p.MountPath())
			}
			mountTargets[p.MountPath()] = key
			inv.mounts = append(inv.mounts, Mount{
				Source:   p.Path,
				Target:   p.MountPath(),
				ReadOnly: !p.Write,
			})
		case permission.DomainPort:
			inv.egress = append(inv.egress, p.EgressEntry())
		case permission.HostPort:
			inv.egress = append(inv.egress, p.EgressEntry())
		case permission.EnvironmentVariable:
			if reservedEnv[p.Name] {
				return nil, fmt.Errorf("environment variable %s is reserved for the sandbox entrypoint", p.Name)
			}
			passthroughNames[p.Name] = true
			value, _ := b.lookupEnv(p.Name)
			passthrough = append(passthrough, EnvVar{Name: p.Name, Value: value})
		default:
			return nil, fmt.Errorf("unsupported permission type %T", perm)
		}
	}

	staticNames := make([]string, 0, len(options.StaticEnv))
	for name := range options.StaticEnv {
		if !permission.ValidEnvironmentName(name) {
			return nil, fmt.Errorf("invalid static environment variable name %q", name)
		}
		if reservedEnv[name] {
			return nil, fmt.Errorf("static environment variable %s is reserved for the sandbox entrypoint", name)
		}
		if passthroughNames[name] {
			return nil, fmt.Errorf("static environment variable %s would replace the consented host value", name)
		}
		staticNames = append(staticNames, name)
	}
	sort.Strings(staticNames)

	if m.IsDevelopment() {
		if err := b.checkDirectory(m.Development.Source); err != nil {
			return nil, err
		}
		if previous, ok := mountTargets[DevelopmentMountPath]; ok {
			return nil, fmt.Errorf("%s mounts at %s, which is reserved for the development source", previous, DevelopmentMountPath)
		}
	}

	args := []string{
		"run", "--rm", "-i",
		"--name", inv.name,
		"--cap-add=NET_ADMIN",
		"-e", EnvPackage + "=" + m.Package,
	}
	for _, mount := range inv.mounts {
		args = append(args, "--mount", mount.String())
	}
	if len(inv.egress) > 0 {
		args = append(args, "-e", EnvAllowedEgress+"="+strings.Join(inv.egress, ","))
	}
	for _, variable := range passthrough {
		args = append(args, "-e", variable.String())
		inv.env = append(inv.env, variable)
		inv.redact[variable.Name] = true
	}
	for _, name := range staticNames {
		variable := EnvVar{Name: name, Value: options.StaticEnv[name]}
		args = append(args, "-e", variable.String())
		inv.env = append(inv.env, variable)
		inv.redact[name] = true
	}
	if m.IsDevelopment() {
		source := Mount{Source: m.Development.Source, Target: DevelopmentMountPath}
		inv.mounts = append(inv.mounts, source)
		args = append(args,
			"--mount", source.String(),
			"-e", EnvPreInstalled+"=true",
			"-e", EnvExecutable+"="+m.Development.Command,
		)
	}
	args = append(args, inv.image)
	args = append(args, options.Args...)

	inv.args = args
	return inv, nil
}

// checkExists verifies that a host path to be mounted exists.
func (b *Builder) checkExists(path string) error {
	if _, err := b.stat(path); err != nil {
		return &PreconditionError{Path: path, Reason: "host path is not accessible", Err: err}
	}
	return nil
}

// checkDirectory verifies that a development source exists and is a
// directory.
func (b *Builder) checkDirectory(path string) error {
	info, err := b.stat(path)
	if err != nil {
		return &PreconditionError{Path: path, Reason: "development source is not accessible", Err: err}
	}
	if !info.IsDir() {
		return &PreconditionError{Path: path, Reason: "development source is not a directory"}
	}
	return nil
}

// ContainerName derives a stable container name from a package and an
// instance identifier. Different instances of one package get different
// names; the same pair always gets the same name.
func ContainerName(pkg, instanceID string) string {
	hasher := blake3.New()
	var length [8]byte
	for _, field := range []string{pkg, instanceID} {
		binary.BigEndian.PutUint64(length[:], uint64(len(field)))
		hasher.Write(length[:])
		hasher.Write([]byte(field))
	}
	sum := hasher.Sum(nil)
	return "mcp-" + hex.EncodeToString(sum[:8])
}
