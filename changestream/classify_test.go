// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyServerSelectionFailure(t *testing.T) {
	require.Equal(t, KindClientLocal, ClassifyServerSelectionFailure())
	require.False(t, KindClientLocal.Resumable())
}

func TestClassifyTransportError(t *testing.T) {
	require.Equal(t, KindResumableNoKill, ClassifyTransportError("getMore"))
	require.Equal(t, KindResumableKillCursor, ClassifyTransportError("aggregate"))
}

func TestClassifyServerErrorDenylist(t *testing.T) {
	cases := []struct {
		name       string
		err        *ServerError
		wantKind   ErrorKind
		wantKill   bool
	}{
		{
			name:     "interrupted is fatal without kill",
			err:      &ServerError{Code: codeInterrupted, Message: "interrupted"},
			wantKind: KindFatal,
			wantKill: false,
		},
		{
			name:     "capped position lost is fatal with kill",
			err:      &ServerError{Code: codeCappedPositionLost, Message: "capped position lost"},
			wantKind: KindFatal,
			wantKill: true,
		},
		{
			name:     "cursor killed is fatal without kill",
			err:      &ServerError{Code: codeCursorKilled, Message: "cursor killed"},
			wantKind: KindFatal,
			wantKill: false,
		},
		{
			name:     "other code is resumable with kill",
			err:      &ServerError{Code: 6, Message: "host unreachable"},
			wantKind: KindResumableKillCursor,
			wantKill: true,
		},
		{
			name:     "not master message with zero code is resumable no kill",
			err:      &ServerError{Code: 0, Message: "not master"},
			wantKind: KindResumableNoKill,
			wantKill: false,
		},
		{
			name:     "node is recovering message with zero code is resumable no kill",
			err:      &ServerError{Code: 0, Message: "node is Recovering from a blip"},
			wantKind: KindResumableNoKill,
			wantKill: false,
		},
		{
			name:     "zero code unrecognized message falls back to resumable with kill",
			err:      &ServerError{Code: 0, Message: "some other failure"},
			wantKind: KindResumableKillCursor,
			wantKill: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, kill := ClassifyServerError(tc.err)
			require.Equal(t, tc.wantKind, kind)
			require.Equal(t, tc.wantKill, kill)
		})
	}
}

func TestClassifyServerErrorLabelsAndDenylistOrdering(t *testing.T) {
	// A denylisted code still wins over a resumable label (rule ordering:
	// the non-resumable label and the static denylist are both checked
	// before the resumable label).
	err := &ServerError{
		Code:   codeInterrupted,
		Labels: []string{resumableChangeStreamErrorLabel},
	}
	kind, kill := ClassifyServerError(err)
	require.Equal(t, KindFatal, kind)
	require.False(t, kill)

	// A non-denylisted code carrying the explicit non-resumable label is
	// fatal even though it isn't in the static table.
	err = &ServerError{
		Code:   99999,
		Labels: []string{nonResumableChangeStreamErrorLabel},
	}
	kind, kill = ClassifyServerError(err)
	require.Equal(t, KindFatal, kind)
	require.False(t, kill)

	// A non-denylisted code carrying the resumable label is resumable with
	// kill, same as the "otherwise" fallback.
	err = &ServerError{
		Code:   99999,
		Labels: []string{resumableChangeStreamErrorLabel},
	}
	kind, kill = ClassifyServerError(err)
	require.Equal(t, KindResumableKillCursor, kind)
	require.True(t, kill)
}

func TestClassifyDispatch(t *testing.T) {
	require.Equal(t, KindNone, mustKind(Classify(nil)))

	kind, kill := Classify(&ServerSelectionError{Err: errors.New("no primary available")})
	require.Equal(t, KindClientLocal, kind)
	require.False(t, kill)

	kind, kill = Classify(&TransportError{Op: "getMore", Err: errors.New("eof")})
	require.Equal(t, KindResumableNoKill, kind)
	require.False(t, kill)

	kind, kill = Classify(&TransportError{Op: "aggregate", Err: errors.New("eof")})
	require.Equal(t, KindResumableKillCursor, kind)
	require.True(t, kill)

	kind, kill = Classify(&ServerError{Code: codeCappedPositionLost})
	require.Equal(t, KindFatal, kind)
	require.True(t, kill)
}

func mustKind(k ErrorKind, _ bool) ErrorKind { return k }
