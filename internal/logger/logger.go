// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"os"
	"strconv"
	"strings"
)

const jobBufferSize = 100
const logSinkPathEnvVar = "CHANGESTREAM_LOG_PATH"
const maxDocumentLengthEnvVar = "CHANGESTREAM_LOG_MAX_DOCUMENT_LENGTH"

// DefaultMaxDocumentLength is the default maximum length, in bytes, of a
// stringified command/reply document logged alongside a CommandMessage.
const DefaultMaxDocumentLength = 1000

// TruncationSuffix is appended to a truncated value to signal to the reader
// that truncation occurred. It does not count toward the max length.
const TruncationSuffix = "..."

// LogSink represents a logging implementation. It is deliberately a subset
// of go-logr/logr's LogSink interface so that any logr.LogSink (zapr,
// zerologr, …) can be used directly.
type LogSink interface {
	Info(int, string, ...interface{})
}

type job struct {
	level Level
	msg   ComponentMessage
}

// Logger is the change stream core's logger. It fans out to a LogSink,
// either supplied explicitly or sourced from the environment, and never
// blocks the calling goroutine on a slow sink.
type Logger struct {
	ComponentLevels   map[Component]Level
	Sink              LogSink
	MaxDocumentLength uint

	jobs chan job
}

// New constructs a Logger. componentLevels take precedence over whatever
// the environment specifies; a nil map defers entirely to the environment.
// A nil sink defers to the environment, falling back to stderr.
func New(sink LogSink, maxDocumentLength uint, componentLevels map[Component]Level) *Logger {
	l := &Logger{
		ComponentLevels: selectComponentLevels(
			func() map[Component]Level { return componentLevels },
			getEnvComponentLevels,
		),
		MaxDocumentLength: selectMaxDocumentLength(
			func() uint { return maxDocumentLength },
			getEnvMaxDocumentLength,
		),
		Sink: selectLogSink(
			func() LogSink { return sink },
			getEnvLogSink,
		),
		jobs: make(chan job, jobBufferSize),
	}
	go l.listen()
	return l
}

// Close stops the printer goroutine. No more messages may be Print-ed
// afterward.
func (l *Logger) Close() {
	close(l.jobs)
}

// Is reports whether level is enabled for component.
func (l *Logger) Is(level Level, component Component) bool {
	return l.ComponentLevels[component] >= level
}

// Print enqueues msg for printing at level. Never blocks: if the job
// buffer is full, it tries once to enqueue a CommandMessageDropped in its
// place; if the buffer is still full, both are discarded silently.
func (l *Logger) Print(level Level, msg ComponentMessage) {
	select {
	case l.jobs <- job{level, msg}:
	default:
		select {
		case l.jobs <- job{level, CommandMessageDropped{}}:
		default:
		}
	}
}

func (l *Logger) listen() {
	for j := range l.jobs {
		level := j.level
		msg := j.msg

		if !l.Is(level, msg.Component()) {
			continue
		}
		sink := l.Sink
		if sink == nil {
			continue
		}

		kv := formatMessage(msg.Serialize(), l.MaxDocumentLength)
		sink.Info(int(level)-DiffToInfo, msg.Message(), kv...)
	}
}

func truncate(str string, width uint) string {
	if width == 0 || len(str) <= int(width) {
		return str
	}
	return str[:width] + TruncationSuffix
}

func formatMessage(keysAndValues []interface{}, commandWidth uint) []interface{} {
	out := make([]interface{}, len(keysAndValues))
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := keysAndValues[i]
		val := keysAndValues[i+1]

		if s, ok := val.(string); ok {
			if k, ok := key.(string); ok && (k == "command" || k == "reply" || k == "error") {
				val = truncate(s, commandWidth)
			}
		}

		out[i] = key
		out[i+1] = val
	}
	return out
}

func getEnvMaxDocumentLength() uint {
	max := os.Getenv(maxDocumentLengthEnvVar)
	if max == "" {
		return 0
	}
	maxUint, err := strconv.ParseUint(max, 10, 32)
	if err != nil {
		return 0
	}
	return uint(maxUint)
}

func selectMaxDocumentLength(getLen ...func() uint) uint {
	for _, get := range getLen {
		if length := get(); length != 0 {
			return length
		}
	}
	return DefaultMaxDocumentLength
}

type logSinkPath string

const (
	logSinkPathStdOut logSinkPath = "stdout"
	logSinkPathStdErr logSinkPath = "stderr"
)

func getEnvLogSink() LogSink {
	path := os.Getenv(logSinkPathEnvVar)
	switch strings.ToLower(path) {
	case string(logSinkPathStdErr), "":
		return nil // fall through to selectLogSink's stderr default
	case string(logSinkPathStdOut):
		return newOSSink(os.Stdout)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return newOSSink(f)
}

func selectLogSink(getSink ...func() LogSink) LogSink {
	for _, get := range getSink {
		if sink := get(); sink != nil {
			return sink
		}
	}
	return newOSSink(os.Stderr)
}

func getEnvComponentLevels() map[Component]Level {
	componentLevels := make(map[Component]Level)
	globalLevel := ParseLevel(os.Getenv(string(componentEnvVarAll)))

	for _, envVar := range allComponentEnvVars {
		if envVar == componentEnvVarAll {
			continue
		}
		level := globalLevel
		if globalLevel == LevelOff {
			level = ParseLevel(os.Getenv(string(envVar)))
		}
		componentLevels[envVar.component()] = level
	}

	return componentLevels
}

// selectComponentLevels merges component-level maps in priority order,
// earlier maps winning on a per-component basis.
func selectComponentLevels(getters ...func() map[Component]Level) map[Component]Level {
	selected := make(map[Component]Level)
	set := make(map[Component]struct{})

	for _, get := range getters {
		for component, level := range get() {
			if _, ok := set[component]; !ok {
				selected[component] = level
			}
			set[component] = struct{}{}
		}
	}

	return selected
}
