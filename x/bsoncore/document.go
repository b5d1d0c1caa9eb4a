// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"fmt"
	"strconv"
	"strings"
)

// Elem is a single key/value pair within a Document, in the order it was
// appended. Mirrors the teacher's bsonx.Elem.
type Elem struct {
	Key   string
	Value Value
}

// Document is an ordered sequence of Elem, the opaque in-memory stand-in
// for a BSON document that the design notes call for: typed lookups
// against a value tree, not a byte buffer.
type Document []Elem

// Array is an ordered sequence of Value, the document-shaped counterpart
// used for pipeline arrays.
type Array []Value

// Append returns a new Document with the given key/value appended.
func (d Document) Append(key string, v Value) Document {
	return append(d, Elem{Key: key, Value: v})
}

// AppendDoc is a convenience wrapper that wraps v as a document Value.
func (d Document) AppendDoc(key string, v Document) Document {
	return d.Append(key, DocumentVal(v))
}

// Set replaces the value for key if present, otherwise appends it.
func (d Document) Set(key string, v Value) Document {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = v
			return d
		}
	}
	return d.Append(key, v)
}

// Lookup returns the value at key, or the zero Value if absent.
func (d Document) Lookup(key string) Value {
	v, _ := d.LookupErr(key)
	return v
}

// LookupErr returns the value at key and whether it was present.
func (d Document) LookupErr(key string) (Value, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// LookupPath walks a dotted path of keys through nested documents, e.g.
// "cursor.postBatchResumeToken". This is the lookup_document/lookup_timestamp
// accessor the design notes describe: a handful of named paths, not a
// generic dynamic walker exposed to callers.
func (d Document) LookupPath(path string) (Value, bool) {
	parts := strings.Split(path, ".")
	cur := d
	var val Value
	for i, part := range parts {
		v, ok := cur.LookupErr(part)
		if !ok {
			return Value{}, false
		}
		val = v
		if i == len(parts)-1 {
			return val, true
		}
		sub, ok := v.DocumentOK()
		if !ok {
			return Value{}, false
		}
		cur = sub
	}
	return val, true
}

// LookupDocument walks path and returns it as a Document, if present and
// document-typed.
func (d Document) LookupDocument(path string) (Document, bool) {
	v, ok := d.LookupPath(path)
	if !ok {
		return nil, false
	}
	return v.DocumentOK()
}

// LookupTimestamp walks path and returns it as a Timestamp, if present and
// timestamp-typed.
func (d Document) LookupTimestamp(path string) (Timestamp, bool) {
	v, ok := d.LookupPath(path)
	if !ok {
		return Timestamp{}, false
	}
	return v.TimestampOK()
}

// LookupString walks path and returns it as a string, if present and
// string-typed.
func (d Document) LookupString(path string) (string, bool) {
	v, ok := d.LookupPath(path)
	if !ok {
		return "", false
	}
	return v.StringValueOK()
}

// LookupInt32 walks path and returns it as an int32, if present and
// int32-typed.
func (d Document) LookupInt32(path string) (int32, bool) {
	v, ok := d.LookupPath(path)
	if !ok {
		return 0, false
	}
	return v.Int32OK()
}

// Equal reports whether two Documents have the same keys, in the same
// order, with equal values. Used for resume-token comparison.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i].Key != o[i].Key || !Equal(d[i].Value, o[i].Value) {
			return false
		}
	}
	return true
}

// Clone returns a deep-enough copy suitable for holding across resumes; the
// Document slice header is copied so mutating the original does not affect
// the clone.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	copy(out, d)
	return out
}

func (d Document) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %s", e.Key, e.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// Append appends a value to the array.
func (a Array) Append(v Value) Array { return append(a, v) }

// Index returns the value at position i in the array.
func (a Array) Index(i int) (Value, bool) {
	if i < 0 || i >= len(a) {
		return Value{}, false
	}
	return a[i], true
}

// Len returns the number of elements in the array.
func (a Array) Len() int { return len(a) }

// Equal reports whether two Arrays hold equal values in the same order.
func (a Array) Equal(o Array) bool {
	if len(a) != len(o) {
		return false
	}
	for i := range a {
		if !Equal(a[i], o[i]) {
			return false
		}
	}
	return true
}

func (a Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

// FromDocSlice builds an array of document-typed elements, used when
// assembling a pipeline from a slice of stage Documents.
func FromDocSlice(docs []Document) Array {
	arr := make(Array, 0, len(docs))
	for _, doc := range docs {
		arr = arr.Append(DocumentVal(doc))
	}
	return arr
}

// IndexKeys reports whether doc's keys are exactly the decimal indices
// "0".."n-1", i.e. it is an array encoded as a document. The change
// stream command builder does not call it.
func IndexKeys(doc Document) bool {
	if len(doc) == 0 {
		return false
	}
	for i, e := range doc {
		if e.Key != strconv.Itoa(i) {
			return false
		}
	}
	return true
}
