// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import "strings"

// ErrorKind classifies an error observed while iterating a change stream.
type ErrorKind int

const (
	// KindNone means no error occurred.
	KindNone ErrorKind = iota

	// KindResumableKillCursor means the error is recoverable by killing the
	// old cursor (best-effort) and reopening with the tracked resume
	// selector.
	KindResumableKillCursor

	// KindResumableNoKill means the error is recoverable the same way, but
	// the old cursor must not be killed (the server-side socket is already
	// gone).
	KindResumableNoKill

	// KindFatal means no resume is attempted; the error becomes sticky.
	KindFatal

	// KindClientLocal means the error originated on the client (server
	// selection failure) rather than from a server reply.
	KindClientLocal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindResumableKillCursor:
		return "resumable-kill-cursor"
	case KindResumableNoKill:
		return "resumable-no-kill"
	case KindFatal:
		return "fatal"
	case KindClientLocal:
		return "client-local"
	default:
		return "unknown"
	}
}

// Resumable reports whether a resume attempt should follow this kind.
func (k ErrorKind) Resumable() bool {
	return k == KindResumableKillCursor || k == KindResumableNoKill
}

// Non-resumable server error codes (spec.md §4.4 rule 4). Kept as data, not
// code, per the design notes so the table-driven tests in §8 can drive the
// classifier directly.
const (
	codeInterrupted        int32 = 11601
	codeCappedPositionLost int32 = 136
	codeCursorKilled       int32 = 237
)

var nonResumableCodes = map[int32]struct{}{
	codeInterrupted:        {},
	codeCappedPositionLost: {},
	codeCursorKilled:       {},
}

// killCursorOnFatal is the subset of nonResumableCodes for which a
// best-effort killCursors is still attempted even though the stream will
// end up fatally errored (spec.md §4.4 rule 4: "a killCursors is attempted
// for code 136 only").
var killCursorOnFatal = map[int32]struct{}{
	codeCappedPositionLost: {},
}

// resumableChangeStreamErrorLabel is the error label modern wire protocols
// attach to a reply to mark it resumable. It does not override the
// denylist: a denylisted code stays fatal even when the label is present
// (grounded on the resumableChangeStreamErrors table in the d2army fork of
// this driver).
const resumableChangeStreamErrorLabel = "ResumableChangeStreamError"

// nonResumableChangeStreamErrorLabel marks a reply as explicitly
// non-resumable even if its code isn't in the static denylist.
const nonResumableChangeStreamErrorLabel = "NonResumableChangeStreamError"

// ClassifyServerSelectionFailure classifies a failure to select a server at
// all (spec.md §4.4 rule 1): always fatal.
func ClassifyServerSelectionFailure() ErrorKind {
	return KindClientLocal
}

// ClassifyTransportError classifies a client-local transport event (socket
// hang-up, timeout) observed during op ("getMore" or "aggregate").
// spec.md §4.4 rule 2: a hang-up during getMore is resumable without a
// kill, because the server-side socket is already gone.
func ClassifyTransportError(op string) ErrorKind {
	if op == "getMore" {
		return KindResumableNoKill
	}
	return KindResumableKillCursor
}

// ClassifyServerError classifies a server reply carrying a code, an errmsg,
// and optional error labels, per spec.md §4.4's ordered rules.
func ClassifyServerError(err *ServerError) (kind ErrorKind, killCursor bool) {
	// Rule 3: no numeric code, but errmsg names a stepdown/recovery state.
	if err.Code == 0 {
		lower := strings.ToLower(err.Message)
		if strings.Contains(lower, "not master") || strings.Contains(lower, "node is recovering") {
			return KindResumableNoKill, false
		}
		// No code and no recognizable message: treat as resumable, killing
		// the old cursor, matching the "otherwise" fallback in rule 5.
		return KindResumableKillCursor, true
	}

	if err.HasErrorLabel(nonResumableChangeStreamErrorLabel) {
		_, kill := killCursorOnFatal[err.Code]
		return KindFatal, kill
	}

	if _, denied := nonResumableCodes[err.Code]; denied {
		_, kill := killCursorOnFatal[err.Code]
		return KindFatal, kill
	}

	if err.HasErrorLabel(resumableChangeStreamErrorLabel) {
		return KindResumableKillCursor, true
	}

	// Rule 5: otherwise, any other non-zero code is resumable and the old
	// cursor is killed before reopening.
	return KindResumableKillCursor, true
}

// Classify dispatches err to the right classification rule based on its
// concrete type, returning the error kind and whether a killCursors should
// be attempted before resuming. A nil err classifies as KindNone.
func Classify(err error) (kind ErrorKind, killCursor bool) {
	if err == nil {
		return KindNone, false
	}

	switch e := err.(type) {
	case *ServerSelectionError:
		return ClassifyServerSelectionFailure(), false
	case *TransportError:
		kind := ClassifyTransportError(e.Op)
		return kind, kind == KindResumableKillCursor
	case *ServerError:
		return ClassifyServerError(e)
	default:
		return KindResumableKillCursor, true
	}
}
