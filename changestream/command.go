// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"github.com/dociq/changestream/changestream/options"
	"github.com/dociq/changestream/changestream/readconcern"
	"github.com/dociq/changestream/x/bsoncore"
)

// aggregateTarget is the value an aggregate command's first field takes,
// per spec.md §4.1: a collection name for WatchCollection, the integer 1
// for WatchDatabase and WatchDeployment (run against the admin database).
type aggregateTarget struct {
	collection string
	wholeDB    bool
}

func collectionTarget(name string) aggregateTarget { return aggregateTarget{collection: name} }
func wholeTarget() aggregateTarget                 { return aggregateTarget{wholeDB: true} }

func (t aggregateTarget) value() bsoncore.Value {
	if t.wholeDB {
		return bsoncore.Int32(1)
	}
	return bsoncore.String(t.collection)
}

// buildChangeStreamStage assembles the $changeStream pipeline stage's
// document, folding in the selector Select picked plus any caller-supplied
// fullDocument option.
func buildChangeStreamStage(args *options.ChangeStreamArgs, kind selectorKind, token bsoncore.Document, opTime bsoncore.Timestamp, hasOpTime bool) bsoncore.Document {
	stage := bsoncore.Document{}

	if args.FullDocument != nil {
		stage = stage.Append("fullDocument", bsoncore.String(string(*args.FullDocument)))
	}

	switch kind {
	case selectStartAfter:
		stage = stage.AppendDoc("startAfter", token)
	case selectResumeAfter:
		stage = stage.AppendDoc("resumeAfter", token)
	case selectStartAtOperationTime:
		if hasOpTime {
			stage = stage.Append("startAtOperationTime", bsoncore.TimestampVal(opTime.T, opTime.I))
		}
	}

	return stage
}

// buildPipeline assembles the full aggregate pipeline array: the
// $changeStream stage, followed by every stage in the caller's pipeline.
// userPipeline arrives as an array of already-built stage documents. No
// entry point in this package accepts a pipeline given as a document
// (neither a document with a "pipeline" array field nor one with
// decimal-string index keys); x/bsoncore.IndexKeys is not called here.
func buildPipeline(stage bsoncore.Document, userPipeline bsoncore.Array) bsoncore.Array {
	pipeline := bsoncore.Array{}
	pipeline = pipeline.Append(bsoncore.DocumentVal(bsoncore.Document{}.AppendDoc("$changeStream", stage)))
	for _, v := range userPipeline {
		pipeline = pipeline.Append(v)
	}
	return pipeline
}

// BuildAggregateCommand assembles the full aggregate command document for
// opening or reopening a change stream cursor, per spec.md §4.1/§6.
func BuildAggregateCommand(
	target aggregateTarget,
	userPipeline bsoncore.Array,
	args *options.ChangeStreamArgs,
	rs *ResumeState,
) bsoncore.Document {
	kind, token, opTime, hasOpTime := rs.Select()
	stage := buildChangeStreamStage(args, kind, token, opTime, hasOpTime)
	pipeline := buildPipeline(stage, userPipeline)

	cmd := bsoncore.Document{}.
		Append("aggregate", target.value()).
		Append("pipeline", bsoncore.ArrayVal(pipeline))

	cursorDoc := bsoncore.Document{}
	if args.BatchSize != nil {
		cursorDoc = cursorDoc.Append("batchSize", bsoncore.Int32(*args.BatchSize))
	}
	cmd = cmd.AppendDoc("cursor", cursorDoc)

	if args.Collation != nil {
		cmd = cmd.AppendDoc("collation", args.Collation)
	}
	if args.ReadConcern != nil {
		cmd = cmd.AppendDoc("readConcern", args.ReadConcern)
	} else {
		cmd = cmd.AppendDoc("readConcern", readconcern.Majority().Document())
	}

	return cmd
}
