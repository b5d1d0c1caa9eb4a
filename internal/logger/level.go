// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import "strings"

// DiffToInfo is the number of levels in this package that come before the
// "Info" level. This ensures "Info" is the 0th level passed to the sink, to
// match go-logr's convention that 0 is Info.
const DiffToInfo = 1

// Level is an enumeration of the log severities the change stream core
// emits at. The order matters: a user is expected to bring a go-logr
// LogSink, which treats 0 as Info, so anything added before LevelInfo needs
// a matching bump of DiffToInfo.
type Level int

const (
	// LevelOff suppresses logging.
	LevelOff Level = iota

	// LevelInfo covers resume decisions: a stream resumed, which selector
	// it used, and the classified error that triggered it.
	LevelInfo

	// LevelDebug covers per-command chatter: aggregate/getMore/killCursors
	// issued and their outcome.
	LevelDebug
)

// LevelLiteralMap maps environment-variable-style literals to a Level.
var LevelLiteralMap = map[string]Level{
	"off":   LevelOff,
	"error": LevelInfo,
	"warn":  LevelInfo,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"trace": LevelDebug,
}

// ParseLevel checks whether str is a valid literal for a logging severity
// level and returns it; the default Level is Off.
func ParseLevel(str string) Level {
	for literal, level := range LevelLiteralMap {
		if strings.EqualFold(literal, str) {
			return level
		}
	}
	return LevelOff
}
