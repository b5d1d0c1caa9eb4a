// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import "github.com/dociq/changestream/x/bsoncore"

// selectorKind names which field of a ResumeState won the precedence
// ordering in Select, so the command builder knows which aggregate option
// to set.
type selectorKind int

const (
	selectNone selectorKind = iota
	selectResumeAfter
	selectStartAfter
	selectStartAtOperationTime
)

func (k selectorKind) String() string {
	switch k {
	case selectResumeAfter:
		return "resumeAfter"
	case selectStartAfter:
		return "startAfter"
	case selectStartAtOperationTime:
		return "startAtOperationTime"
	default:
		return "none"
	}
}

// ResumeState tracks every candidate resume position a change stream has
// observed, in the priority order spec.md §4.5 assigns them. Exactly one
// field wins at a time, computed by Select.
type ResumeState struct {
	// postBatchToken is the resume token attached to the most recent
	// getMore reply's cursor field, present even for an empty batch.
	postBatchToken bsoncore.Document

	// lastDocToken is the resume token embedded in the last document this
	// stream actually handed to the caller.
	lastDocToken bsoncore.Document

	// initialResumeAfter / initialStartAfter are the caller-supplied
	// options from the original open call. startAfter takes precedence over
	// resumeAfter; it is emitted as startAfter on the very first open and
	// as resumeAfter once a resume has begun (spec.md §4.5 note on
	// first-open vs. on-resume asymmetry).
	initialResumeAfter bsoncore.Document
	initialStartAfter  bsoncore.Document

	// operationTime is the initial aggregate reply's operationTime field,
	// tracked so a resume can fall back to it if no token of any kind is
	// available.
	operationTime    bsoncore.Timestamp
	hasOperationTime bool

	// userStartAtOperationTime is the caller-supplied startAtOperationTime
	// option, lowest priority of all (spec.md §4.5 row 6).
	userStartAtOperationTime    bsoncore.Timestamp
	hasUserStartAtOperationTime bool

	// resumedOnce records whether this stream has begun a resume; from
	// then on initialStartAfter is emitted as resumeAfter rather than
	// startAfter, per spec.md §4.5.
	resumedOnce bool

	// atBoundary reports whether the most recently observed advance
	// produced no document: a clean batch boundary, where postBatchToken
	// (if any) is authoritative over lastDocToken. It is cleared the
	// instant a document is observed, since a document delivered after a
	// stale postBatchToken supersedes it.
	atBoundary bool
}

// NewResumeState seeds a ResumeState from the caller's original options.
func NewResumeState(resumeAfter, startAfter bsoncore.Document, startAtOperationTime *bsoncore.Timestamp) *ResumeState {
	rs := &ResumeState{
		initialResumeAfter: resumeAfter,
		initialStartAfter:  startAfter,
		atBoundary:         true,
	}
	if startAtOperationTime != nil {
		rs.userStartAtOperationTime = *startAtOperationTime
		rs.hasUserStartAtOperationTime = true
	}
	return rs
}

// ObservePostBatchToken records the resume token from a getMore reply's
// cursor.postBatchResumeToken field. Called even when the batch is empty.
func (rs *ResumeState) ObservePostBatchToken(token bsoncore.Document) {
	if token != nil {
		rs.postBatchToken = token
	}
}

// ObserveDocumentToken records the resume token embedded in a document the
// stream is about to hand to the caller. Delivering a document always
// leaves the boundary, since the document's own token is now the freshest
// known position.
func (rs *ResumeState) ObserveDocumentToken(token bsoncore.Document) {
	if token != nil {
		rs.lastDocToken = token
	}
	rs.atBoundary = false
}

// ObserveEmptyBatch records that the most recent advance produced no
// document, restoring postBatchToken's priority over a stale lastDocToken.
func (rs *ResumeState) ObserveEmptyBatch() {
	rs.atBoundary = true
}

// ObserveOperationTime records a server reply's operationTime.
func (rs *ResumeState) ObserveOperationTime(ts bsoncore.Timestamp) {
	rs.operationTime = ts
	rs.hasOperationTime = true
}

// currentToken applies spec.md §4.5 rows 1-2: postBatchToken wins only at a
// true batch boundary (no document returned since the last getMore);
// otherwise the last document's own token wins, since it is newer than a
// postBatchToken carried over from an earlier batch.
func (rs *ResumeState) currentToken() bsoncore.Document {
	if rs.atBoundary && rs.postBatchToken != nil {
		return rs.postBatchToken
	}
	if rs.lastDocToken != nil {
		return rs.lastDocToken
	}
	return rs.postBatchToken
}

// MarkResumed records that a resume has begun. It is called before the
// reopen, so that reopen's Select and every later one emit startAfter as
// resumeAfter.
func (rs *ResumeState) MarkResumed() {
	rs.resumedOnce = true
}

// Select computes the resume selector to use for the next (re)open, in the
// precedence order of spec.md §4.5:
//
//  1. post-batch resume token, at a true batch boundary
//  2. last document's resume token
//  3. caller-supplied startAfter: as startAfter on the first open, as
//     resumeAfter once a resume has begun
//  4. caller-supplied resumeAfter
//  5. the tracked server operationTime, captured from the initial reply
//  6. startAtOperationTime, only if the caller supplied one
//  7. none: the server decides where to start
func (rs *ResumeState) Select() (kind selectorKind, token bsoncore.Document, opTime bsoncore.Timestamp, hasOpTime bool) {
	if token := rs.currentToken(); token != nil {
		return selectResumeAfter, token, bsoncore.Timestamp{}, false
	}
	if rs.initialStartAfter != nil {
		if rs.resumedOnce {
			return selectResumeAfter, rs.initialStartAfter, bsoncore.Timestamp{}, false
		}
		return selectStartAfter, rs.initialStartAfter, bsoncore.Timestamp{}, false
	}
	if rs.initialResumeAfter != nil {
		return selectResumeAfter, rs.initialResumeAfter, bsoncore.Timestamp{}, false
	}
	if rs.hasOperationTime {
		return selectStartAtOperationTime, nil, rs.operationTime, true
	}
	if rs.hasUserStartAtOperationTime {
		return selectStartAtOperationTime, nil, rs.userStartAtOperationTime, true
	}
	return selectNone, nil, bsoncore.Timestamp{}, false
}
