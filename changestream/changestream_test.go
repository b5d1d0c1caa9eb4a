// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dociq/changestream/changestream/options"
	"github.com/dociq/changestream/internal/logger"
	"github.com/dociq/changestream/x/bsoncore"
	"github.com/dociq/changestream/x/driver"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordingSink) Info(level int, msg string, keysAndValues ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func eventDoc(id string) bsoncore.Document {
	return bsoncore.Document{}.AppendDoc("_id", tok(id)).Append("operationType", bsoncore.String("insert"))
}

func openTestStream(t *testing.T, opener *fakeOpener) *ChangeStream {
	t.Helper()
	cs, err := WatchCollection(
		context.Background(),
		opener,
		fakeSelector{},
		&fakeSession{},
		driver.Namespace{DB: "db", Collection: "coll"},
		bsoncore.Array{},
		options.ChangeStream(),
		nil,
	)
	require.NoError(t, err)
	return cs
}

// Scenario: a plain document delivery advances the stream and tracks the
// document's own resume token.
func TestChangeStreamDeliversDocumentsInOrder(t *testing.T) {
	opener := &fakeOpener{steps: []fakeOpenStep{
		{cur: &fakeCursor{id: 7, buf: []bsoncore.Document{eventDoc("1"), eventDoc("2")}}},
	}}
	cs := openTestStream(t, opener)

	require.True(t, cs.Next(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("1")))

	require.True(t, cs.Next(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("2")))

	require.True(t, cs.ResumeToken().Equal(tok("2")))
}

// Scenario: a getMore transport hang-up is resumed without a kill, and the
// reopened command carries the last observed document token as resumeAfter.
func TestChangeStreamResumesGetMoreHangupWithoutKill(t *testing.T) {
	firstCursor := &fakeCursor{
		id:  7,
		buf: []bsoncore.Document{eventDoc("1")},
		getMoreBatches: []fakeGetMoreStep{
			{err: &TransportError{Op: "getMore", Err: errors.New("eof")}},
		},
	}
	secondCursor := &fakeCursor{id: 9, buf: []bsoncore.Document{eventDoc("2")}}

	opener := &fakeOpener{steps: []fakeOpenStep{
		{cur: firstCursor},
		{cur: secondCursor},
	}}
	cs := openTestStream(t, opener)

	require.True(t, cs.Next(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("1")))

	require.True(t, cs.Next(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("2")))
	require.NoError(t, cs.Err())

	require.Equal(t, 0, firstCursor.closeCalls)

	resumeCmd := opener.calls[1]
	pipelineVal, _ := resumeCmd.LookupErr("pipeline")
	arr, _ := pipelineVal.ArrayOK()
	stageVal, _ := arr.Index(0)
	stageDoc, _ := stageVal.DocumentOK()
	csStage, _ := stageDoc.LookupDocument("$changeStream")
	got, ok := csStage.LookupDocument("resumeAfter")
	require.True(t, ok)
	require.True(t, got.Equal(tok("1")))
}

// Scenario: a killCursors-coded server error (denylisted but in
// killCursorOnFatal) is fatal, ending the stream without a resume attempt,
// yet still issues the best-effort kill.
func TestChangeStreamCappedPositionLostIsFatalWithKill(t *testing.T) {
	cur := &fakeCursor{
		id:  7,
		buf: nil,
		getMoreBatches: []fakeGetMoreStep{
			{err: &ServerError{Code: codeCappedPositionLost, Message: "capped position lost"}},
		},
	}
	opener := &fakeOpener{steps: []fakeOpenStep{{cur: cur}}}
	cs := openTestStream(t, opener)

	require.False(t, cs.Next(context.Background()))
	require.Error(t, cs.Err())

	var serverErr *ServerError
	require.ErrorAs(t, cs.Err(), &serverErr)
	require.Equal(t, codeCappedPositionLost, serverErr.Code)
	require.Equal(t, 1, cur.closeCalls)
}

// Scenario: server selection failure on resume is fatal and client-local.
func TestChangeStreamServerSelectionFailureOnResumeIsFatal(t *testing.T) {
	cur := &fakeCursor{
		id: 7,
		getMoreBatches: []fakeGetMoreStep{
			{err: &TransportError{Op: "getMore", Err: errors.New("eof")}},
		},
	}
	opener := &fakeOpener{steps: []fakeOpenStep{
		{cur: cur},
		{err: &ServerSelectionError{Err: errors.New("no servers available")}},
	}}
	cs := openTestStream(t, opener)

	require.False(t, cs.Next(context.Background()))
	var selErr *ServerSelectionError
	require.ErrorAs(t, cs.Err(), &selErr)
}

// Scenario: only one resume is permitted before a document or an empty
// batch is observed; two resumable errors back to back become fatal.
func TestChangeStreamOnlyOneResumePerAdvanceCycle(t *testing.T) {
	cur1 := &fakeCursor{
		id: 7,
		getMoreBatches: []fakeGetMoreStep{
			{err: &TransportError{Op: "getMore", Err: errors.New("eof")}},
		},
	}
	cur2 := &fakeCursor{
		id: 9,
		getMoreBatches: []fakeGetMoreStep{
			{err: &TransportError{Op: "getMore", Err: errors.New("eof again")}},
		},
	}
	opener := &fakeOpener{steps: []fakeOpenStep{
		{cur: cur1},
		{cur: cur2},
	}}
	cs := openTestStream(t, opener)

	require.False(t, cs.Next(context.Background()))
	require.Error(t, cs.Err())
}

// Scenario: an empty getMore batch preserves the post-batch resume token
// and does not end the stream; a subsequent document still arrives.
func TestChangeStreamEmptyBatchPreservesTokenAndContinues(t *testing.T) {
	cur := &fakeCursor{
		id: 7,
		getMoreBatches: []fakeGetMoreStep{
			{docs: nil, pbrt: tok("empty-pbrt"), hasPBRT: true, newID: 7},
			{docs: []bsoncore.Document{eventDoc("3")}, newID: 7},
		},
	}
	opener := &fakeOpener{steps: []fakeOpenStep{{cur: cur}}}
	cs := openTestStream(t, opener)

	require.False(t, cs.TryNext(context.Background()))
	require.NoError(t, cs.Err())
	require.True(t, cs.ResumeToken().Equal(tok("empty-pbrt")))

	require.True(t, cs.TryNext(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("3")))
	require.True(t, cs.ResumeToken().Equal(tok("3")))
}

// A non-nil logger must not change stream behavior; it only observes.
func TestChangeStreamWithLoggerStillDeliversDocuments(t *testing.T) {
	sink := &recordingSink{}
	log := logger.New(sink, 0, map[logger.Component]logger.Level{
		logger.ComponentCommand: logger.LevelDebug,
		logger.ComponentResume:  logger.LevelDebug,
	})
	defer log.Close()

	cur := &fakeCursor{id: 7, buf: []bsoncore.Document{eventDoc("1")}}
	opener := &fakeOpener{steps: []fakeOpenStep{{cur: cur}}}

	cs, err := WatchCollection(
		context.Background(),
		opener,
		fakeSelector{},
		&fakeSession{},
		driver.Namespace{DB: "db", Collection: "coll"},
		bsoncore.Array{},
		options.ChangeStream(),
		log,
	)
	require.NoError(t, err)

	require.True(t, cs.Next(context.Background()))
	require.True(t, cs.Current().Equal(eventDoc("1")))
}

// Scenario: a notification with no resume token is always fatal, with no
// resume attempted.
func TestChangeStreamMissingResumeTokenIsFatal(t *testing.T) {
	malformed := bsoncore.Document{}.Append("operationType", bsoncore.String("insert"))
	cur := &fakeCursor{id: 7, buf: []bsoncore.Document{malformed}}
	opener := &fakeOpener{steps: []fakeOpenStep{{cur: cur}}}
	cs := openTestStream(t, opener)

	require.False(t, cs.Next(context.Background()))
	require.Equal(t, ErrMissingResumeToken, cs.Err())
	require.Equal(t, 1, len(opener.calls))
}

func TestChangeStreamCloseIsIdempotentAndKillsCursor(t *testing.T) {
	cur := &fakeCursor{id: 7}
	opener := &fakeOpener{steps: []fakeOpenStep{{cur: cur}}}
	cs := openTestStream(t, opener)

	require.NoError(t, cs.Close(context.Background()))
	require.NoError(t, cs.Close(context.Background()))
	require.Equal(t, 1, cur.closeCalls)

	require.False(t, cs.Next(context.Background()))
	require.Equal(t, ErrClosed, cs.Err())
}
