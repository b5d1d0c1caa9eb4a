// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package options carries the configuration a caller can attach to a
// Watch call (spec.md §4.1). It follows the functional-options pattern: an
// Options value accumulates a list of setter functions that are applied,
// in order, to an Args struct when the change stream opens.
package options

import (
	"time"

	"github.com/dociq/changestream/x/bsoncore"
)

// FullDocument controls how much of the post-change document is included
// in update notifications.
type FullDocument string

// FullDocument values.
const (
	// Default includes only the delta for update notifications.
	Default FullDocument = "default"

	// UpdateLookup includes a lookup of the most current majority-committed
	// version of the document for update notifications.
	UpdateLookup FullDocument = "updateLookup"
)

// ChangeStreamArgs is the fully resolved set of arguments a ChangeStreamOptions
// builds up. It is unexported-by-convention: callers build it indirectly
// through ChangeStreamOptions' setters.
type ChangeStreamArgs struct {
	// BatchSize is forwarded as cursor.batchSize on aggregate and as
	// batchSize on every getMore.
	BatchSize *int32

	// Collation is forwarded as a top-level collation document on aggregate.
	Collation bsoncore.Document

	// FullDocument is passed through into the $changeStream stage.
	FullDocument *FullDocument

	// MaxAwaitTime is forwarded as maxTimeMS on every getMore, never on
	// aggregate.
	MaxAwaitTime *time.Duration

	// ResumeAfter is an opaque resume token document passed through into
	// the $changeStream stage verbatim.
	ResumeAfter bsoncore.Document

	// StartAfter is sent as startAfter on the initial open and as
	// resumeAfter on a resume, and takes resume-selector priority over
	// ResumeAfter when both are set (spec.md §4.5, row 3 vs row 4).
	StartAfter bsoncore.Document

	// StartAtOperationTime is an opaque server timestamp passed through
	// into the $changeStream stage.
	StartAtOperationTime *bsoncore.Timestamp

	// ReadConcern is forwarded verbatim as the aggregate command's
	// readConcern (majority when unset). ReadPreference and WriteConcern
	// are stored here but are not read by the command builder or the
	// state machine; server selection uses the ServerSelector passed to
	// the Watch* call.
	ReadConcern    bsoncore.Document
	ReadPreference bsoncore.Document
	WriteConcern   bsoncore.Document
}

// ChangeStreamOptions accumulates setters applied to a ChangeStreamArgs when
// a stream is opened.
type ChangeStreamOptions struct {
	Opts []func(*ChangeStreamArgs)
}

// ChangeStream constructs a new, empty ChangeStreamOptions.
func ChangeStream() *ChangeStreamOptions {
	return &ChangeStreamOptions{}
}

// ArgsSetters returns the accumulated setter functions.
func (cso *ChangeStreamOptions) ArgsSetters() []func(*ChangeStreamArgs) {
	return cso.Opts
}

// SetBatchSize sets BatchSize.
func (cso *ChangeStreamOptions) SetBatchSize(i int32) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.BatchSize = &i })
	return cso
}

// SetCollation sets Collation.
func (cso *ChangeStreamOptions) SetCollation(c bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.Collation = c })
	return cso
}

// SetFullDocument sets FullDocument.
func (cso *ChangeStreamOptions) SetFullDocument(fd FullDocument) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.FullDocument = &fd })
	return cso
}

// SetMaxAwaitTime sets MaxAwaitTime.
func (cso *ChangeStreamOptions) SetMaxAwaitTime(d time.Duration) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.MaxAwaitTime = &d })
	return cso
}

// SetResumeAfter sets ResumeAfter.
func (cso *ChangeStreamOptions) SetResumeAfter(token bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.ResumeAfter = token })
	return cso
}

// SetStartAfter sets StartAfter.
func (cso *ChangeStreamOptions) SetStartAfter(token bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.StartAfter = token })
	return cso
}

// SetStartAtOperationTime sets StartAtOperationTime.
func (cso *ChangeStreamOptions) SetStartAtOperationTime(ts bsoncore.Timestamp) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.StartAtOperationTime = &ts })
	return cso
}

// SetReadConcern sets ReadConcern.
func (cso *ChangeStreamOptions) SetReadConcern(rc bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.ReadConcern = rc })
	return cso
}

// SetReadPreference sets ReadPreference.
func (cso *ChangeStreamOptions) SetReadPreference(rp bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.ReadPreference = rp })
	return cso
}

// SetWriteConcern sets WriteConcern.
func (cso *ChangeStreamOptions) SetWriteConcern(wc bsoncore.Document) *ChangeStreamOptions {
	cso.Opts = append(cso.Opts, func(args *ChangeStreamArgs) { args.WriteConcern = wc })
	return cso
}

// MergeChangeStreamOptions combines zero or more ChangeStreamOptions into a
// single resolved ChangeStreamArgs, later options overriding earlier ones,
// matching the teacher's last-property-wins merge convention.
func MergeChangeStreamOptions(opts ...*ChangeStreamOptions) *ChangeStreamArgs {
	args := &ChangeStreamArgs{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		for _, setter := range opt.ArgsSetters() {
			setter(args)
		}
	}
	if args.FullDocument == nil {
		fd := Default
		args.FullDocument = &fd
	}
	return args
}
