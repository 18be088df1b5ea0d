// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package consent

import (
	"context"
	"fmt"

	"github.com/guardiagent/mcp-sandbox/permission"
)

// AllowAll grants every request.
func AllowAll() Policy {
	return PolicyFunc(func(context.Context, Request) (Decision, error) {
		return Allow, nil
	})
}

// DenyAll denies every request.
func DenyAll() Policy {
	return PolicyFunc(func(context.Context, Request) (Decision, error) {
		return Deny, nil
	})
}

// DenyCategories denies requests in the given categories and abstains on
// everything else.
func DenyCategories(categories ...permission.Category) Policy {
	set := permission.NewSet(categories...)
	return PolicyFunc(func(_ context.Context, request Request) (Decision, error) {
		if set.Has(request.Category()) {
			return Deny, nil
		}
		return Abstain, nil
	})
}

// AllowCategories allows requests in the given categories and abstains
// on everything else.
func AllowCategories(categories ...permission.Category) Policy {
	set := permission.NewSet(categories...)
	return PolicyFunc(func(_ context.Context, request Request) (Decision, error) {
		if set.Has(request.Category()) {
			return Allow, nil
		}
		return Abstain, nil
	})
}

// Rules is a non-interactive policy built from category lists, typically
// loaded from configuration. Deny takes precedence over Allow. Requests
// matching neither list get Default.
type Rules struct {
	Allow   permission.Set
	Deny    permission.Set
	Default Decision
}

// Decide implements Policy.
func (r Rules) Decide(_ context.Context, request Request) (Decision, error) {
	category := request.Category()
	switch {
	case r.Deny.Has(category):
		return Deny, nil
	case r.Allow.Has(category):
		return Allow, nil
	default:
		return r.Default, nil
	}
}

// First consults policies in order and returns the first decision other
// than Abstain. If every policy abstains, so does First.
func First(policies ...Policy) Policy {
	return PolicyFunc(func(ctx context.Context, request Request) (Decision, error) {
		for _, policy := range policies {
			decision, err := policy.Decide(ctx, request)
			if err != nil {
				return Abstain, err
			}
			if decision != Abstain {
				return decision, nil
			}
		}
		return Abstain, nil
	})
}

// ParseDecision converts "allow", "deny" or "abstain" to a Decision.
func ParseDecision(name string) (Decision, error) {
	switch name {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	case "abstain", "":
		return Abstain, nil
	default:
		return Abstain, fmt.Errorf("unknown consent decision %q (valid: allow, deny)", name)
	}
}
