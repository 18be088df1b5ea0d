// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest defines the capability manifest a tool publisher
// ships with a package: its identity (name, registry, package id) and
// the set of capability categories it may ever request.
//
// A [Manifest] is a value. It is built once, from code via [New] and
// [NewDevelopment] or from files via [Loader], and reused across many
// invocations. A development manifest additionally names a local source
// directory and a launch command so a package can be exercised without
// publishing it.
//
// Manifest files are YAML, or JSON with comments and trailing commas:
//
//	manifests:
//	  sms:
//	    name: SMS Server
//	    registry: pypi
//	    package: mcp-server-sms
//	    capabilities: [network-client, system-environment-read]
//	    development:
//	      source: ./mcp-server-sms
//	      command: sh -c 'pip install -q /sandbox >&2 && python3 -m mcp_server_sms'
//
// [Schema] produces the JSON Schema for this format.
package manifest
