// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"errors"
	"fmt"

	"github.com/dociq/changestream/x/bsoncore"
)

// ErrMissingResumeToken indicates that a change stream notification from
// the server did not contain a resume token. This is always fatal per
// spec.md §7: no future resume could be correct without one.
var ErrMissingResumeToken = errors.New("Cannot provide resume functionality when the resume token is missing")

// ErrClosed is reported by Err once Next or TryNext is called on a stream
// that has been closed.
var ErrClosed = errors.New("change stream is closed")

// ServerError is a classified error reply from the server, carrying the
// raw reply document so a caller can inspect fields beyond code/errmsg.
type ServerError struct {
	Code    int32
	Message string
	Labels  []string
	Raw     bsoncore.Document
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("(%d) %s", e.Code, e.Message)
}

// HasErrorLabel reports whether label is present in the reply's
// errorLabels array.
func (e *ServerError) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// TransportError represents a client-local transport event: a socket
// hang-up, a deadline firing, or similar, as opposed to a server reply.
type TransportError struct {
	Op  string // "getMore", "aggregate", "killCursors"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerSelectionError indicates the client could not select a server to
// run a command against. Always fatal (spec.md §4.4 rule 1).
type ServerSelectionError struct {
	Err error
}

func (e *ServerSelectionError) Error() string {
	return fmt.Sprintf("server selection failed: %v", e.Err)
}

func (e *ServerSelectionError) Unwrap() error { return e.Err }

// InvalidArgumentError indicates a caller-supplied option was invalid
// (e.g. a malformed pipeline document).
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }
