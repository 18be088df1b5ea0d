// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission models the concrete grants a sandboxed tool server
// can receive and the abstract capability categories a manifest declares.
//
// A [Category] is a class of access (network client, filesystem read,
// filesystem write, environment read). A manifest declares a [Set] of
// categories once; it never carries parameters. A [Permission] is a
// concrete, checkable grant: one of [DomainPort], [HostPort], [FSAccess],
// or [EnvironmentVariable]. The interface is closed (its marker method is
// unexported), so a type switch over the four variants is exhaustive and
// every permission maps to exactly one category via [Permission.Category].
//
// [Validate] is the gate between the two: a batch of requested
// permissions is accepted only if every member's category is present in
// the declared set. There is no partial acceptance. A batch with a single
// uncovered permission fails with an [UndeclaredError] naming every
// offender.
//
// Permissions have a canonical textual form used by the CLI and by
// permission files:
//
//	net:api.example.com:443      domain egress
//	net:3.72.68.174:443          address egress
//	fs:/data                     read-only filesystem access
//	fs:/data:rw:/mnt/data        read-write, mounted at a different path
//	env:API_KEY                  environment pass-through
//
// [Parse] reads one entry; [List] decodes a YAML sequence of entries.
//
// This package depends on no other packages in this module.
package permission
