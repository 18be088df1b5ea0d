// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guardiagent/mcp-sandbox/manifest"
	"github.com/guardiagent/mcp-sandbox/permission"
)

// Severity grades a pre-flight finding. Only SeverityError blocks a
// launch.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) marker() string {
	switch s {
	case SeverityOK:
		return "✓"
	case SeverityWarning:
		return "⚠"
	default:
		return "✗"
	}
}

// Finding is one check's outcome, labelled by the area it covers
// (runtime, image, manifest, permissions, mount, development).
type Finding struct {
	Area     string
	Severity Severity
	Message  string
}

// Validator performs pre-flight checks before launching a tool server.
// Unlike Build, it records every problem rather than stopping at the
// first.
type Validator struct {
	findings []Finding
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Findings returns the recorded findings in check order.
func (v *Validator) Findings() []Finding {
	return v.findings
}

// ErrorCount returns the number of findings that block a launch.
func (v *Validator) ErrorCount() int {
	count := 0
	for _, finding := range v.findings {
		if finding.Severity == SeverityError {
			count++
		}
	}
	return count
}

// HasErrors reports whether any finding blocks a launch.
func (v *Validator) HasErrors() bool {
	return v.ErrorCount() > 0
}

func (v *Validator) record(severity Severity, area, format string, args ...any) {
	v.findings = append(v.findings, Finding{
		Area:     area,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

// ValidateAll runs every check for launching m with the requested
// permissions on the given runtime.
func (v *Validator) ValidateAll(ctx context.Context, runtime RuntimeConfig, m manifest.Manifest, requested []permission.Permission) {
	runtime = runtime.withDefaults()
	caps := v.ValidateRuntime(ctx, runtime)
	if caps.CanRunSandbox() {
		v.ValidateImage(ctx, caps.RuntimePath, runtime.Image(m.Registry))
	}
	v.ValidateManifest(m)
	v.ValidatePermissions(m, requested)
	v.ValidateHostPaths(requested)
	v.ValidateDevelopmentSource(m)
}

// ValidateRuntime checks the runtime CLI and its daemon.
func (v *Validator) ValidateRuntime(ctx context.Context, runtime RuntimeConfig) *Capabilities {
	runtime = runtime.withDefaults()
	if err := runtime.Validate(); err != nil {
		v.record(SeverityError, "runtime", "%v", err)
		return &Capabilities{}
	}

	caps := DetectCapabilities(ctx, runtime.Binary)
	if !caps.RuntimeAvailable {
		v.record(SeverityError, "runtime", "%s not found on PATH", runtime.Binary)
		return caps
	}
	if !caps.DaemonReachable {
		v.record(SeverityError, "runtime", "%s found at %s but the daemon is not reachable", runtime.Binary, caps.RuntimePath)
		return caps
	}
	v.record(SeverityOK, "runtime", "available: %s (client %s, server %s)", caps.RuntimePath, caps.ClientVersion, caps.ServerVersion)
	return caps
}

// ValidateImage checks whether the sandbox image is already present.
// A missing image is only a warning: the runtime pulls it on first run.
func (v *Validator) ValidateImage(ctx context.Context, runtimePath, image string) {
	if imagePresent(ctx, runtimePath, image) {
		v.record(SeverityOK, "image", "present: %s", image)
		return
	}
	v.record(SeverityWarning, "image", "not present locally, will be pulled on first run: %s", image)
}

// ValidateManifest checks the manifest's fields.
func (v *Validator) ValidateManifest(m manifest.Manifest) {
	if err := m.Validate(); err != nil {
		v.record(SeverityError, "manifest", "%v", err)
		return
	}
	v.record(SeverityOK, "manifest", "%s (%s %s) declares %s", m.Name, m.Registry, m.Package, m.Capabilities)
}

// ValidatePermissions checks the requested permissions against the
// manifest's declared categories.
func (v *Validator) ValidatePermissions(m manifest.Manifest, requested []permission.Permission) {
	_, err := permission.Validate(m.Capabilities, requested)
	if err == nil {
		v.record(SeverityOK, "permissions", "%d requested, all within declared categories", len(requested))
		return
	}
	var invalid *permission.InvalidError
	var undeclared *permission.UndeclaredError
	isInvalid := errors.As(err, &invalid)
	isUndeclared := errors.As(err, &undeclared)
	if isInvalid {
		for _, problem := range invalid.Problems {
			v.record(SeverityError, "permissions", "%v", problem)
		}
	}
	if isUndeclared {
		for _, offending := range undeclared.Offending {
			v.record(SeverityError, "permissions", "%s is outside declared categories %s", offending, undeclared.Declared)
		}
	}
	if !isInvalid && !isUndeclared {
		v.record(SeverityError, "permissions", "%v", err)
	}
}

// ValidateHostPaths checks that every filesystem permission's host path
// exists.
func (v *Validator) ValidateHostPaths(requested []permission.Permission) {
	for _, perm := range requested {
		access, ok := perm.(permission.FSAccess)
		if !ok {
			continue
		}
		if _, err := os.Stat(access.Path); err != nil {
			if os.IsNotExist(err) {
				v.record(SeverityError, "mount", "source not found: %s -> %s", access.Path, access.MountPath())
			} else {
				v.record(SeverityError, "mount", "cannot access source %s: %v", access.Path, err)
			}
			continue
		}
		v.record(SeverityOK, "mount", "%s -> %s", access.Path, access.MountPath())
	}
}

// ValidateDevelopmentSource checks a development manifest's source
// directory.
func (v *Validator) ValidateDevelopmentSource(m manifest.Manifest) {
	if !m.IsDevelopment() {
		return
	}
	info, err := os.Stat(m.Development.Source)
	if err != nil {
		v.record(SeverityError, "development", "source not accessible: %v", err)
		return
	}
	if !info.IsDir() {
		v.record(SeverityError, "development", "not a directory: %s", m.Development.Source)
		return
	}
	v.record(SeverityOK, "development", "source: %s", m.Development.Source)
}

// Report writes one line per finding followed by a verdict.
func (v *Validator) Report(w io.Writer) {
	for _, finding := range v.findings {
		fmt.Fprintf(w, "%s %s: %s\n", finding.Severity.marker(), finding.Area, finding.Message)
	}
	fmt.Fprintln(w)
	if count := v.ErrorCount(); count > 0 {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", count)
		return
	}
	fmt.Fprintln(w, "Ready to run sandbox")
}
