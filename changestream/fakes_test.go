// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"context"

	"github.com/dociq/changestream/x/bsoncore"
	"github.com/dociq/changestream/x/driver"
)

// fakeCursor is a hand-rolled driver.GenericCursor test double. The real
// mock-server harness is out of scope (spec.md §1); this is just enough of
// a stand-in to drive the cursor adapter and state machine through the
// scenarios in spec.md §8.
type fakeCursor struct {
	id  int64
	ns  driver.Namespace
	buf []bsoncore.Document
	pbrt bsoncore.Document
	hasPBRT bool

	// getMoreBatches is consumed one entry per GetMore call. Each entry may
	// itself carry an error to return instead of refilling the buffer.
	getMoreBatches []fakeGetMoreStep

	getMoreCalls int
	closeCalls   int
	closeErr     error

	// lastGetMoreOpts records the options passed to the most recent GetMore.
	lastGetMoreOpts driver.GetMoreOptions
}

type fakeGetMoreStep struct {
	docs    []bsoncore.Document
	pbrt    bsoncore.Document
	hasPBRT bool
	newID   int64
	err     error

	// blockUntilDone makes GetMore wait on ctx.Done() and return ctx.Err(),
	// simulating a server that never replies before the client deadline.
	blockUntilDone bool
}

func (c *fakeCursor) ID() int64                 { return c.id }
func (c *fakeCursor) Namespace() driver.Namespace { return c.ns }

func (c *fakeCursor) NextInBatch() (bsoncore.Document, bool) {
	if len(c.buf) == 0 {
		return bsoncore.Document{}, false
	}
	doc := c.buf[0]
	c.buf = c.buf[1:]
	return doc, true
}

func (c *fakeCursor) GetMore(ctx context.Context, opts driver.GetMoreOptions) error {
	c.lastGetMoreOpts = opts
	if c.getMoreCalls >= len(c.getMoreBatches) {
		c.id = 0
		return nil
	}
	step := c.getMoreBatches[c.getMoreCalls]
	c.getMoreCalls++

	if step.blockUntilDone {
		<-ctx.Done()
		return ctx.Err()
	}

	if step.err != nil {
		return step.err
	}

	c.buf = append(c.buf, step.docs...)
	if step.hasPBRT {
		c.pbrt, c.hasPBRT = step.pbrt, true
	}
	c.id = step.newID
	return nil
}

func (c *fakeCursor) PostBatchResumeToken() (bsoncore.Document, bool) {
	return c.pbrt, c.hasPBRT
}

func (c *fakeCursor) Close(ctx context.Context) error {
	c.closeCalls++
	return c.closeErr
}

// fakeOpener is a driver.CursorOpener test double that hands back a
// pre-built sequence of cursors and replies, one per OpenAggregateCursor
// call, and records every command it was asked to open with.
type fakeOpener struct {
	steps []fakeOpenStep
	calls []bsoncore.Document
	idx   int
}

type fakeOpenStep struct {
	cur   *fakeCursor
	reply driver.OpenReply
	err   error
}

func (o *fakeOpener) OpenAggregateCursor(
	ctx context.Context,
	ns driver.Namespace,
	cmd bsoncore.Document,
	selector driver.ServerSelector,
	sess driver.Session,
) (driver.GenericCursor, driver.OpenReply, error) {
	o.calls = append(o.calls, cmd)
	if o.idx >= len(o.steps) {
		return nil, driver.OpenReply{}, &ServerSelectionError{Err: errNoMoreSteps}
	}
	step := o.steps[o.idx]
	o.idx++
	if step.err != nil {
		return nil, driver.OpenReply{}, step.err
	}
	return step.cur, step.reply, nil
}

var errNoMoreSteps = fakeErr("fakeOpener: no more scripted steps")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

// fakeSelector is a no-op driver.ServerSelector test double.
type fakeSelector struct{}

func (fakeSelector) SelectServer(ctx context.Context) (driver.Server, error) {
	return fakeServer{}, nil
}

type fakeServer struct{}

func (fakeServer) Description() driver.ServerDescription {
	return driver.ServerDescription{WireVersion: driver.VersionRange{Min: 0, Max: 21}}
}

// fakeSession is a driver.Session test double with no operation time set
// unless configured.
type fakeSession struct {
	opTime    bsoncore.Timestamp
	hasOpTime bool
}

func (s *fakeSession) OperationTime() (bsoncore.Timestamp, bool) { return s.opTime, s.hasOpTime }
func (s *fakeSession) AdvanceOperationTime(ts bsoncore.Timestamp) {
	s.opTime, s.hasOpTime = ts, true
}
