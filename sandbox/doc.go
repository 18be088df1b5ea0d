// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs tool servers inside per-registry container images
// with exactly the access their consented permissions allow.
//
// [Builder] translates a manifest and a consented permission list into an
// [Invocation]: the runtime command line, with filesystem permissions as
// bind mounts, network permissions as an egress allow-list the image
// entrypoint enforces, and environment permissions as variables whose
// values are captured from the host at build time. Build is pure apart
// from reading the environment and stat'ing host paths; nothing is created
// on the caller's behalf, and a missing path is a [PreconditionError].
//
// [Supervisor] starts an Invocation as a child process in its own process
// group and returns a [Session], an io.ReadWriteCloser over the tool
// server's standard input and output. Closing a session closes its input,
// sends SIGTERM to the process group, escalates to SIGKILL after a grace
// period, and asks the runtime to remove the container. A session whose
// process exits on its own is marked failed and is never restarted.
//
// [Launcher] composes the whole pipeline: permission validation against
// the manifest, consent, build, start. [Validator] performs pre-flight
// checks (runtime and daemon availability, image presence, manifest and
// permission validity, host paths) and reports all of them at once.
// [Capabilities] probes the host runtime.
package sandbox
