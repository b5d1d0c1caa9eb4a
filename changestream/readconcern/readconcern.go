// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package readconcern models read concern as an opaque, forwarded value:
// the change stream core never interprets it, only passes it through to
// the aggregate command (spec.md §4.1, §6).
package readconcern

import "github.com/dociq/changestream/x/bsoncore"

// ReadConcern is an opaque read concern level plus any extra fields a
// caller attached.
type ReadConcern struct {
	Level string
	Extra bsoncore.Document
}

// Majority returns the "majority" read concern, the level a collection
// must use for change streams to be created successfully.
func Majority() *ReadConcern {
	return &ReadConcern{Level: "majority"}
}

// Local returns the "local" read concern.
func Local() *ReadConcern {
	return &ReadConcern{Level: "local"}
}

// Document renders rc as the document shape forwarded on the wire command.
func (rc *ReadConcern) Document() bsoncore.Document {
	if rc == nil {
		return nil
	}
	doc := bsoncore.Document{}
	if rc.Level != "" {
		doc = doc.Append("level", bsoncore.String(rc.Level))
	}
	return append(doc, rc.Extra...)
}
