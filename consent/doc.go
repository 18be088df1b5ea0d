// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package consent decides which requested permissions a tool invocation
// actually receives.
//
// A [Gate] asks a [Policy] about each permission in turn and splits the
// request into granted and denied lists. A denial is an ordinary outcome:
// the invocation proceeds without that permission. A policy error is not;
// it aborts the whole request so that a broken consent channel never
// silently grants access.
//
// Policies compose. [First] chains policies so that configured rules can
// answer the easy cases and an interactive [Prompter] handles the rest:
//
//	policy := consent.First(
//	    consent.DenyCategories(permission.FilesystemWrite),
//	    prompter,
//	)
//	gate := consent.NewGate(policy, logger)
//	result, err := gate.Filter(ctx, "mcp-server-sms", requested)
//
// The gate keeps no state between calls. Every invocation is asked
// afresh; remembering answers is the caller's business.
package consent
