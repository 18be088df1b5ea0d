// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package consent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guardiagent/mcp-sandbox/permission"
)

// Decision is a policy's answer to a single Request.
type Decision uint8

const (
	// Abstain means the policy has no opinion. [First] moves on to the
	// next policy; a gate treats a final Abstain as Deny.
	Abstain Decision = iota

	// Deny withholds the permission.
	Deny

	// Allow grants the permission.
	Allow
)

func (d Decision) String() string {
	switch d {
	case Abstain:
		return "abstain"
	case Deny:
		return "deny"
	case Allow:
		return "allow"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// Request is one permission awaiting a decision.
type Request struct {
	// Package is the tool package asking for the permission.
	Package string

	// Permission is the access being requested.
	Permission permission.Permission
}

// Description is the human-readable text shown when asking about the
// request.
func (r Request) Description() string {
	return r.Permission.Describe()
}

// Category is the capability category of the requested permission.
func (r Request) Category() permission.Category {
	return r.Permission.Category()
}

// Policy decides whether a request is granted. An error means no
// decision could be reached (for example, the terminal went away) and
// aborts the surrounding Filter call.
type Policy interface {
	Decide(ctx context.Context, request Request) (Decision, error)
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc func(ctx context.Context, request Request) (Decision, error)

// Decide calls f.
func (f PolicyFunc) Decide(ctx context.Context, request Request) (Decision, error) {
	return f(ctx, request)
}

// Result partitions the permissions passed to [Gate.Filter]. Both lists
// preserve the input order. A permission that appears in neither list was
// never requested.
type Result struct {
	Granted []permission.Permission
	Denied  []permission.Permission
}

// Gate filters requested permissions through a Policy.
type Gate struct {
	policy Policy
	logger *slog.Logger
}

// NewGate creates a gate. A nil logger discards log output.
func NewGate(policy Policy, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{policy: policy, logger: logger}
}

// Filter asks the policy about each permission exactly once, in order.
// It returns the first policy error, together with no result, so the
// caller can refuse to launch.
func (g *Gate) Filter(ctx context.Context, pkg string, requested []permission.Permission) (Result, error) {
	var result Result
	for _, perm := range requested {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		request := Request{Package: pkg, Permission: perm}
		decision, err := g.policy.Decide(ctx, request)
		if err != nil {
			g.logger.Warn("consent aborted",
				"package", pkg,
				"permission", perm.String(),
				"error", err,
			)
			return Result{}, fmt.Errorf("consent for %s (%s): %w", pkg, perm, err)
		}

		if decision == Allow {
			result.Granted = append(result.Granted, perm)
		} else {
			result.Denied = append(result.Denied, perm)
		}
		g.logger.Debug("consent decision",
			"package", pkg,
			"permission", perm.String(),
			"decision", decision.String(),
		)
	}

	if len(requested) > 0 {
		g.logger.Info("consent complete",
			"package", pkg,
			"granted", len(result.Granted),
			"denied", len(result.Denied),
		)
	}
	return result, nil
}
