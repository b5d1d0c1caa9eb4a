// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package csot provides the client-side timeout helpers the change stream
// core uses to turn max_await_time_ms and server-selection timeouts into
// context deadlines (spec.md §5: "a per-call deadline... a deadline-
// triggered error is classified as resumable").
package csot

import (
	"context"
	"time"
)

type timeoutKey struct{}

// MakeTimeoutContext returns ctx with a deadline set to d from now, and
// marks the context as timeout-gated so downstream code (the cursor
// adapter) knows a deadline was deliberately attached rather than
// inherited. A zero Duration is a no-op: no deadline is added.
func MakeTimeoutContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	cancel := func() {}
	if d != 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	}
	return context.WithValue(ctx, timeoutKey{}, true), cancel
}

// IsTimeoutContext reports whether ctx was produced by MakeTimeoutContext.
func IsTimeoutContext(ctx context.Context) bool {
	return ctx.Value(timeoutKey{}) != nil
}

// WithServerSelectionTimeout returns a context whose deadline is the
// minimum of the parent's existing deadline (if any) and
// serverSelectionTimeout from now. Non-positive timeouts are ignored, per
// the same convention the driver corpus uses.
func WithServerSelectionTimeout(
	parent context.Context,
	serverSelectionTimeout time.Duration,
) (context.Context, context.CancelFunc) {
	var timeout time.Duration

	deadline, ok := parent.Deadline()
	if ok {
		timeout = time.Until(deadline)
	}

	if !ok && serverSelectionTimeout <= 0 {
		return parent, func() {}
	}

	if !ok {
		timeout = serverSelectionTimeout
	} else if timeout >= serverSelectionTimeout && serverSelectionTimeout > 0 {
		timeout = serverSelectionTimeout
	}

	return context.WithTimeout(parent, timeout)
}
