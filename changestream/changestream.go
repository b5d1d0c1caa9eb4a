// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package changestream implements a resumable subscription to a MongoDB
// change stream: ordered notifications of data changes, survivable across
// transient network and topology errors by reopening the underlying cursor
// at the last observed position. The wire codec, server selection, and the
// low-level cursor that issues aggregate/getMore/killCursors are treated as
// external collaborators, modeled in x/driver as interfaces only.
package changestream

import (
	"context"

	"github.com/dociq/changestream/changestream/options"
	"github.com/dociq/changestream/internal/logger"
	"github.com/dociq/changestream/x/bsoncore"
	"github.com/dociq/changestream/x/driver"
)

// ChangeStream is a resumable, ordered iterator over a deployment's,
// database's, or collection's change events. It is not safe for concurrent
// use by multiple goroutines.
type ChangeStream struct {
	opener   driver.CursorOpener
	selector driver.ServerSelector
	session  driver.Session
	ns       driver.Namespace
	target   aggregateTarget
	pipeline bsoncore.Array
	args     *options.ChangeStreamArgs
	log      *logger.Logger

	rs      *ResumeState
	adapter *cursorAdapter

	current bsoncore.Document
	err     error
	closed  bool

	// resumedOnceThisBatch enforces the single-resume-per-attempt invariant:
	// at most one resume may be attempted before a document, or a cleanly
	// empty batch, is observed. It is cleared on any successful advance,
	// including an empty getMore reply.
	resumedOnceThisBatch bool
}

// openChangeStream builds the initial aggregate command from rs (seeded
// from the caller's options) and opens the first cursor. Used by every
// Watch* entry point in facade.go, which differ only in target and ns.
func openChangeStream(
	ctx context.Context,
	opener driver.CursorOpener,
	selector driver.ServerSelector,
	session driver.Session,
	ns driver.Namespace,
	target aggregateTarget,
	pipeline bsoncore.Array,
	args *options.ChangeStreamArgs,
	log *logger.Logger,
) (*ChangeStream, error) {
	cs := &ChangeStream{
		opener:   opener,
		selector: selector,
		session:  session,
		ns:       ns,
		target:   target,
		pipeline: pipeline,
		args:     args,
		log:      log,
		rs:       NewResumeState(args.ResumeAfter, args.StartAfter, args.StartAtOperationTime),
	}

	if err := cs.openCursor(ctx); err != nil {
		return nil, err
	}
	return cs, nil
}

// openCursor issues the aggregate command reflecting the current resume
// selector and installs the resulting cursor. Called both for the very
// first open and for every resume.
func (cs *ChangeStream) openCursor(ctx context.Context) error {
	cmd := BuildAggregateCommand(cs.target, cs.pipeline, cs.args, cs.rs)

	cur, reply, err := cs.opener.OpenAggregateCursor(ctx, cs.ns, cmd, cs.selector, cs.session)
	if cs.log != nil && cs.log.Is(logger.LevelDebug, logger.ComponentCommand) {
		msg := &logger.CommandMessage{Name: "aggregate", Namespace: cs.ns.String(), Succeeded: err == nil}
		if err != nil {
			msg.Err = err.Error()
		}
		cs.log.Print(logger.LevelDebug, msg)
	}
	if err != nil {
		return err
	}

	cs.adapter = newCursorAdapter(cur, cs.args)
	if reply.HasOpTime {
		// Only the initial aggregate reply's operationTime is kept.
		if !cs.rs.hasOperationTime {
			cs.rs.ObserveOperationTime(reply.OperationTime)
		}
		if cs.session != nil {
			cs.session.AdvanceOperationTime(reply.OperationTime)
		}
	}
	cs.resumedOnceThisBatch = false
	return nil
}

// resume kills the old cursor (best-effort, only when killCursor is true)
// and reopens at the current resume selector. kind is the classification
// of the error that triggered the resume.
func (cs *ChangeStream) resume(ctx context.Context, kind ErrorKind, killCursor bool) error {
	if killCursor && cs.adapter != nil {
		_ = cs.adapter.close(ctx)
	}
	cs.rs.MarkResumed()
	err := cs.openCursor(ctx)
	if cs.log != nil && cs.log.Is(logger.LevelInfo, logger.ComponentResume) {
		selector, _, _, _ := cs.rs.Select()
		cs.log.Print(logger.LevelInfo, &logger.ResumeMessage{
			Namespace: cs.ns.String(),
			Selector:  selector.String(),
			ErrorKind: kind.String(),
			KilledOld: killCursor,
		})
	}
	return err
}

// advance attempts to produce exactly one document. It returns (true, nil)
// when current was updated, (false, nil) when no document is available
// right now but the stream is still healthy (an empty batch, or a resume
// just completed), and (false, err) when the stream has taken a fatal,
// sticky error.
func (cs *ChangeStream) advance(ctx context.Context) (bool, error) {
	if cs.closed {
		if cs.err == nil {
			cs.err = ErrClosed
		}
		return false, ErrClosed
	}
	if cs.err != nil {
		return false, cs.err
	}

	doc, ok, err := cs.adapter.next(ctx)
	if err != nil {
		kind, killCursor := Classify(err)
		if !kind.Resumable() {
			// Fatal per spec.md §4.4 rule 4, but a best-effort killCursors
			// is still attempted for the codes killCursorOnFatal names
			// (capped position lost).
			if killCursor && cs.adapter != nil {
				_ = cs.adapter.close(ctx)
			}
			cs.err = err
			return false, err
		}
		if cs.resumedOnceThisBatch {
			cs.err = err
			return false, err
		}

		if rerr := cs.resume(ctx, kind, killCursor); rerr != nil {
			cs.err = rerr
			return false, rerr
		}
		cs.resumedOnceThisBatch = true
		return false, nil
	}

	cs.resumedOnceThisBatch = false
	if pbrt, has := cs.adapter.postBatchResumeToken(); has {
		cs.rs.ObservePostBatchToken(pbrt)
	}
	if !ok {
		cs.rs.ObserveEmptyBatch()
		return false, nil
	}

	token, has := doc.LookupDocument("_id")
	if !has {
		// A missing or non-document _id can never be resumed from
		// (spec.md §7), so this ends the stream rather than retrying.
		cs.err = ErrMissingResumeToken
		return false, cs.err
	}
	cs.rs.ObserveDocumentToken(token)
	cs.current = doc
	return true, nil
}

// Next blocks, retrying across empty batches and resumable errors, until a
// document is available or the stream takes a fatal error. It reports
// false in both the fatal-error and closed cases; callers distinguish them
// via Err.
func (cs *ChangeStream) Next(ctx context.Context) bool {
	for {
		ok, err := cs.advance(ctx)
		if err != nil {
			return false
		}
		if ok {
			return true
		}
		select {
		case <-ctx.Done():
			cs.err = ctx.Err()
			return false
		default:
		}
	}
}

// TryNext makes a single attempt to produce a document, without retrying
// across an empty batch. A resumable error is still resumed, but TryNext
// then returns false without reading from the new cursor; it also returns
// false on a fatal error or an empty batch.
func (cs *ChangeStream) TryNext(ctx context.Context) bool {
	ok, err := cs.advance(ctx)
	if err != nil {
		return false
	}
	return ok
}

// Decode copies the current document into dst. Non-goal per the
// specification's wire-codec exclusion: dst receives the opaque Document
// value directly rather than through a struct-tag-driven unmarshaler.
func (cs *ChangeStream) Decode(dst *bsoncore.Document) error {
	if cs.current == nil {
		return ErrClosed
	}
	*dst = cs.current
	return nil
}

// Current returns the most recently decoded document.
func (cs *ChangeStream) Current() bsoncore.Document {
	return cs.current
}

// ResumeToken returns the token a subsequent Watch call could pass to
// SetResumeAfter to continue from this stream's current position: the
// post-batch token if the stream is sitting at a clean batch boundary,
// otherwise the most recently delivered document's own token.
func (cs *ChangeStream) ResumeToken() bsoncore.Document {
	return cs.rs.currentToken()
}

// Err returns the sticky error that ended the stream, if any: a fatal
// error, or ErrClosed once Next or TryNext is called after Close.
func (cs *ChangeStream) Err() error {
	return cs.err
}

// ID returns the server-side cursor id backing the stream, or 0 once
// exhausted or closed.
func (cs *ChangeStream) ID() int64 {
	if cs.adapter == nil || cs.closed {
		return 0
	}
	return cs.adapter.cur.ID()
}

// Close ends the stream and issues a best-effort killCursors against the
// currently open cursor.
func (cs *ChangeStream) Close(ctx context.Context) error {
	if cs.closed {
		return nil
	}
	cs.closed = true
	if cs.adapter == nil {
		return nil
	}
	return cs.adapter.close(ctx)
}
