// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver specifies, as interfaces only, the collaborators the
// change stream core treats as external per the specification: the wire
// codec, server selection/topology monitoring, the low-level cursor that
// issues aggregate/getMore/killCursors, and session bookkeeping. Nothing in
// this package is implemented in terms of a real network connection; a
// production driver satisfies these interfaces with its own transport.
package driver

import (
	"context"

	"github.com/dociq/changestream/x/bsoncore"
)

// Namespace identifies a database and, optionally, a collection.
type Namespace struct {
	DB         string
	Collection string
}

// String renders "db.collection", or just "db" when Collection is empty.
func (ns Namespace) String() string {
	if ns.Collection == "" {
		return ns.DB
	}
	return ns.DB + "." + ns.Collection
}

// Server is an opaque handle to a selected server, returned by
// ServerSelector and threaded back into the deployment on resume so the
// opener can log or compare without needing to know transport details.
type Server interface {
	// Description returns the wire version range the selected server
	// negotiated. The change stream core does not consult it.
	Description() ServerDescription
}

// ServerDescription carries the subset of topology information the core
// consults.
type ServerDescription struct {
	WireVersion VersionRange
}

// VersionRange is the inclusive [Min, Max] wire protocol version a server
// supports.
type VersionRange struct {
	Min int32
	Max int32
}

// Includes reports whether v is within the range.
func (r VersionRange) Includes(v int32) bool { return v >= r.Min && v <= r.Max }

// ServerSelector chooses a server given a deployment-specific read
// preference. The same selector (the user's original read preference) is
// reused verbatim on resume per spec.md §4.5.3 — resume must not promote to
// a different preference.
type ServerSelector interface {
	SelectServer(ctx context.Context) (Server, error)
}

// Session is referenced, not owned, by a change stream. The stream calls
// AdvanceOperationTime with each aggregate reply's operationTime; it does
// not read OperationTime.
type Session interface {
	OperationTime() (bsoncore.Timestamp, bool)
	AdvanceOperationTime(bsoncore.Timestamp)
}

// OpenReply carries the fields the core consumes from the first aggregate
// reply (spec.md §6): operationTime and the namespace the server echoed
// back, plus the cursor's own fields surfaced via the returned
// GenericCursor.
type OpenReply struct {
	OperationTime bsoncore.Timestamp
	HasOpTime     bool
	Namespace     Namespace
}

// GetMoreOptions carries the per-call forwarded options (spec.md §4.1):
// batch size and the max-await deadline.
type GetMoreOptions struct {
	BatchSize  int32
	HasBatch   bool
	MaxAwaitMS int64
	HasMaxWait bool
}

// GenericCursor is the low-level cursor abstraction the Cursor Adapter
// wraps. It owns the wire-level batch buffer and issues getMore/killCursors
// itself; the adapter only asks it to advance and inspects what comes back.
// This is "the low-level cursor that issues aggregate/getMore/killCursors
// commands" spec.md §1 places out of scope.
type GenericCursor interface {
	// ID is the server-side cursor id; 0 means the cursor is exhausted.
	ID() int64

	// Namespace is the collection namespace the cursor was opened against.
	Namespace() Namespace

	// NextInBatch pops one buffered document, if any remain from the last
	// aggregate/getMore reply.
	NextInBatch() (bsoncore.Document, bool)

	// GetMore issues a getMore for more documents when the batch buffer is
	// empty and ID is non-zero. It refreshes the batch buffer, the cursor
	// id, and the post-batch resume token. Returns an error the classifier
	// can inspect (a ServerError, or a transport-level error) on failure.
	GetMore(ctx context.Context, opts GetMoreOptions) error

	// PostBatchResumeToken returns the resume token valid at the exclusive
	// upper bound of the most recently received batch, if the server
	// supplied one.
	PostBatchResumeToken() (bsoncore.Document, bool)

	// Close issues a best-effort killCursors. Errors are expected to be
	// swallowed by callers per spec.md §7.
	Close(ctx context.Context) error
}

// CursorOpener performs the aggregate handshake that creates a
// GenericCursor, given a fully built command document. It is the seam
// through which server selection, connection checkout, and command
// dispatch happen — all out of scope for this module.
type CursorOpener interface {
	OpenAggregateCursor(
		ctx context.Context,
		ns Namespace,
		cmd bsoncore.Document,
		selector ServerSelector,
		sess Session,
	) (GenericCursor, OpenReply, error)
}
