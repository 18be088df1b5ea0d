// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// The sandbox supervisor takes a Clock instead of calling time.Now and
// time.NewTimer directly. In production, Real() provides the standard
// library behavior. In tests, Fake() provides a clock that advances
// only when Advance is called, so the interval between SIGTERM and
// SIGKILL can be crossed without sleeping.
//
// When a goroutine calls NewTimer on a FakeClock it registers a pending
// timer. Use WaitForTimers to block until the expected number of
// timers is registered before calling Advance.
package clock
