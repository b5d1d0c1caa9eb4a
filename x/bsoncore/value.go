// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsoncore is an opaque document value type used by the change
// stream core in place of a full wire codec. It is a sum type over the
// handful of primitive variants the core actually needs to inspect
// (document, array, string, int32, int64, double, boolean, timestamp,
// binary, null) with
// named lookups, not a generic dynamic walker and not a BSON byte encoder.
// A production driver plugs its real wire codec in behind this same
// Document shape.
package bsoncore

import (
	"fmt"
)

// Type identifies which variant a Value holds.
type Type uint8

// Value variants supported by the change stream core.
const (
	TypeNull Type = iota
	TypeBoolean
	TypeInt32
	TypeInt64
	TypeDouble
	TypeString
	TypeTimestamp
	TypeDocument
	TypeArray
	TypeBinary
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Timestamp is an opaque server-generated logical clock value. It is
// compared and carried around but never interpreted by the core.
type Timestamp struct {
	T uint32
	I uint32
}

// Value is a single BSON-shaped value: exactly one of the fields below is
// meaningful, selected by Type.
type Value struct {
	Type Type

	boolean   bool
	int32     int32
	int64     int64
	double    float64
	str       string
	timestamp Timestamp
	doc       Document
	arr       Array
	bin       []byte
}

// Boolean constructs a boolean Value.
func Boolean(v bool) Value { return Value{Type: TypeBoolean, boolean: v} }

// Int32 constructs an int32 Value.
func Int32(v int32) Value { return Value{Type: TypeInt32, int32: v} }

// Int64 constructs an int64 Value.
func Int64(v int64) Value { return Value{Type: TypeInt64, int64: v} }

// Double constructs a double Value.
func Double(v float64) Value { return Value{Type: TypeDouble, double: v} }

// String constructs a string Value.
func String(v string) Value { return Value{Type: TypeString, str: v} }

// TimestampVal constructs a timestamp Value.
func TimestampVal(t, i uint32) Value { return Value{Type: TypeTimestamp, timestamp: Timestamp{T: t, I: i}} }

// DocumentVal constructs a document Value.
func DocumentVal(d Document) Value { return Value{Type: TypeDocument, doc: d} }

// ArrayVal constructs an array Value.
func ArrayVal(a Array) Value { return Value{Type: TypeArray, arr: a} }

// Binary constructs a binary Value.
func Binary(v []byte) Value { return Value{Type: TypeBinary, bin: v} }

// Null is the null Value.
var Null = Value{Type: TypeNull}

// IsZero reports whether the Value is the unset, zero Value.
func (v Value) IsZero() bool { return v.Type == TypeNull }

// BooleanOK returns v's boolean and whether v actually holds one.
func (v Value) BooleanOK() (bool, bool) { return v.boolean, v.Type == TypeBoolean }

// Int32OK returns v's int32 and whether v actually holds one.
func (v Value) Int32OK() (int32, bool) { return v.int32, v.Type == TypeInt32 }

// Int64OK returns v's int64 and whether v actually holds one.
func (v Value) Int64OK() (int64, bool) { return v.int64, v.Type == TypeInt64 }

// StringValueOK returns v's string and whether v actually holds one.
func (v Value) StringValueOK() (string, bool) { return v.str, v.Type == TypeString }

// TimestampOK returns v's timestamp and whether v actually holds one.
func (v Value) TimestampOK() (Timestamp, bool) { return v.timestamp, v.Type == TypeTimestamp }

// DocumentOK returns v's Document and whether v actually holds one.
func (v Value) DocumentOK() (Document, bool) { return v.doc, v.Type == TypeDocument }

// ArrayOK returns v's Array and whether v actually holds one.
func (v Value) ArrayOK() (Array, bool) { return v.arr, v.Type == TypeArray }

// Equal reports whether two Values are structurally identical. Used by
// resume-token comparisons (token monotonicity, §8 of the specification).
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNull:
		return true
	case TypeBoolean:
		return a.boolean == b.boolean
	case TypeInt32:
		return a.int32 == b.int32
	case TypeInt64:
		return a.int64 == b.int64
	case TypeDouble:
		return a.double == b.double
	case TypeString:
		return a.str == b.str
	case TypeTimestamp:
		return a.timestamp == b.timestamp
	case TypeDocument:
		return a.doc.Equal(b.doc)
	case TypeArray:
		return a.arr.Equal(b.arr)
	case TypeBinary:
		return string(a.bin) == string(b.bin)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return fmt.Sprintf("%v", v.boolean)
	case TypeInt32:
		return fmt.Sprintf("%d", v.int32)
	case TypeInt64:
		return fmt.Sprintf("%d", v.int64)
	case TypeDouble:
		return fmt.Sprintf("%v", v.double)
	case TypeString:
		return v.str
	case TypeTimestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", v.timestamp.T, v.timestamp.I)
	case TypeDocument:
		return v.doc.String()
	case TypeArray:
		return v.arr.String()
	case TypeBinary:
		return fmt.Sprintf("Binary(%d bytes)", len(v.bin))
	default:
		return "<invalid>"
	}
}
