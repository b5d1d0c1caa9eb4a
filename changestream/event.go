// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import "github.com/dociq/changestream/x/bsoncore"

// ChangeEvent is a typed view over the fields of a change notification
// document that most callers actually branch on, saving them from walking
// the raw Document by hand. It supplements, rather than replaces, Decode:
// any field this type doesn't surface is still reachable via Current().
type ChangeEvent struct {
	OperationType string
	Namespace     bsoncore.Document
	DocumentKey   bsoncore.Document
	FullDocument  bsoncore.Document
	UpdatedFields bsoncore.Document
	RemovedFields []string
	ClusterTime   bsoncore.Timestamp
	ResumeToken   bsoncore.Document
}

// DecodeEvent interprets doc as a change notification, pulling out the
// handful of fields present across every operation type plus the
// update-specific delta when operationType is "update".
func DecodeEvent(doc bsoncore.Document) ChangeEvent {
	var ev ChangeEvent

	if opType, ok := doc.LookupString("operationType"); ok {
		ev.OperationType = opType
	}
	if ns, ok := doc.LookupDocument("ns"); ok {
		ev.Namespace = ns
	}
	if key, ok := doc.LookupDocument("documentKey"); ok {
		ev.DocumentKey = key
	}
	if full, ok := doc.LookupDocument("fullDocument"); ok {
		ev.FullDocument = full
	}
	if ts, ok := doc.LookupTimestamp("clusterTime"); ok {
		ev.ClusterTime = ts
	}
	if token, ok := doc.LookupDocument("_id"); ok {
		ev.ResumeToken = token
	}

	if desc, ok := doc.LookupDocument("updateDescription"); ok {
		if updated, ok := desc.LookupDocument("updatedFields"); ok {
			ev.UpdatedFields = updated
		}
		if removedVal, ok := desc.LookupErr("removedFields"); ok {
			if arr, ok := removedVal.ArrayOK(); ok {
				ev.RemovedFields = make([]string, 0, arr.Len())
				for i := 0; i < arr.Len(); i++ {
					if v, ok := arr.Index(i); ok {
						if s, ok := v.StringValueOK(); ok {
							ev.RemovedFields = append(ev.RemovedFields, s)
						}
					}
				}
			}
		}
	}

	return ev
}
