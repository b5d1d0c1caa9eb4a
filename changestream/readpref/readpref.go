// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package readpref models read preference as an opaque mode. The change
// stream core does not import it: a stream resumes through the
// driver.ServerSelector it was opened with. It never decides which server
// a preference resolves to — that is the excluded server selection
// subsystem (spec.md §1).
package readpref

// Mode is a read preference mode.
type Mode string

// Supported modes.
const (
	Primary            Mode = "primary"
	PrimaryPreferred   Mode = "primaryPreferred"
	Secondary          Mode = "secondary"
	SecondaryPreferred Mode = "secondaryPreferred"
	Nearest            Mode = "nearest"
)

// ReadPref is an opaque read preference value. Two ReadPref values with
// the same Mode and tag set compare identical under Equal.
type ReadPref struct {
	Mode Mode
	Tags map[string]string
}

// New constructs a ReadPref with the given mode and no tags.
func New(mode Mode) *ReadPref {
	return &ReadPref{Mode: mode}
}

// Equal reports whether two read preferences are the same mode and tag set.
func Equal(a, b *ReadPref) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Mode != b.Mode || len(a.Tags) != len(b.Tags) {
		return false
	}
	for k, v := range a.Tags {
		if b.Tags[k] != v {
			return false
		}
	}
	return true
}
