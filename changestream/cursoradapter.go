// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"context"
	"errors"
	"time"

	"github.com/dociq/changestream/changestream/options"
	"github.com/dociq/changestream/internal/csot"
	"github.com/dociq/changestream/x/bsoncore"
	"github.com/dociq/changestream/x/driver"
)

// getMoreDeadlineSlack is added on top of MaxAwaitTime when deriving the
// client-side context deadline for a getMore, so a slow-but-responding
// server is not mistaken for a hung connection the instant maxTimeMS
// elapses server-side.
const getMoreDeadlineSlack = 500 * time.Millisecond

// cursorAdapter wraps a driver.GenericCursor, translating its batch-advance
// protocol into the single call the state machine needs: "give me the next
// document, or tell me the batch is exhausted, or tell me what went wrong."
// It never decides whether an error is resumable; that is the classifier's
// job (spec.md §1, §4.4).
type cursorAdapter struct {
	cur  driver.GenericCursor
	args *options.ChangeStreamArgs
}

func newCursorAdapter(cur driver.GenericCursor, args *options.ChangeStreamArgs) *cursorAdapter {
	return &cursorAdapter{cur: cur, args: args}
}

// exhausted reports whether the server-side cursor has been fully consumed.
func (a *cursorAdapter) exhausted() bool {
	return a.cur.ID() == 0
}

// next returns the next buffered document. When the local batch buffer is
// empty and the server cursor is still alive, it issues a getMore first.
// ok is false both when the batch (old or freshly fetched) is empty and when
// the cursor is exhausted; callers distinguish the two via exhausted().
func (a *cursorAdapter) next(ctx context.Context) (doc bsoncore.Document, ok bool, err error) {
	if doc, ok := a.cur.NextInBatch(); ok {
		return doc, true, nil
	}

	if a.exhausted() {
		return bsoncore.Document{}, false, nil
	}

	opts := driver.GetMoreOptions{}
	if a.args.BatchSize != nil {
		opts.BatchSize = *a.args.BatchSize
		opts.HasBatch = true
	}

	deadlineCtx := ctx
	cancel := func() {}
	if a.args.MaxAwaitTime != nil {
		opts.MaxAwaitMS = a.args.MaxAwaitTime.Milliseconds()
		opts.HasMaxWait = true
		deadlineCtx, cancel = csot.MakeTimeoutContext(ctx, *a.args.MaxAwaitTime+getMoreDeadlineSlack)
	}
	defer cancel()

	if err := a.cur.GetMore(deadlineCtx, opts); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return bsoncore.Document{}, false, &TransportError{Op: "getMore", Err: err}
		}
		return bsoncore.Document{}, false, err
	}

	doc, ok = a.cur.NextInBatch()
	return doc, ok, nil
}

// postBatchResumeToken forwards the wrapped cursor's most recent PBRT.
func (a *cursorAdapter) postBatchResumeToken() (bsoncore.Document, bool) {
	return a.cur.PostBatchResumeToken()
}

// close issues a best-effort killCursors. Per spec.md §7 the caller is
// expected to ignore the returned error for anything other than logging.
func (a *cursorAdapter) close(ctx context.Context) error {
	return a.cur.Close(ctx)
}
