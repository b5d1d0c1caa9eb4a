// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

// ComponentMessage is a message that can be printed by a Logger. Concrete
// changestream messages (command started, resumed, error classified)
// implement this.
type ComponentMessage interface {
	Component() Component
	Message() string
	Serialize() []interface{}
}

// CommandMessageDropped is substituted for a message that could not be
// enqueued because the printer goroutine fell behind. It is logged only if
// there is room in the job buffer for it; otherwise it is dropped too.
type CommandMessageDropped struct {
	Name string
}

// Component implements ComponentMessage.
func (CommandMessageDropped) Component() Component { return ComponentCommand }

// Message implements ComponentMessage.
func (m CommandMessageDropped) Message() string { return "Command message dropped" }

// Serialize implements ComponentMessage.
func (m CommandMessageDropped) Serialize() []interface{} {
	return []interface{}{"name", m.Name}
}

// CommandMessage reports an aggregate/getMore/killCursors issued by the
// state machine, and whether it succeeded.
type CommandMessage struct {
	Name      string
	Namespace string
	Succeeded bool
	Err       string
}

// Component implements ComponentMessage.
func (CommandMessage) Component() Component { return ComponentCommand }

// Message implements ComponentMessage.
func (m CommandMessage) Message() string {
	if m.Succeeded {
		return "Command succeeded"
	}
	return "Command failed"
}

// Serialize implements ComponentMessage.
func (m CommandMessage) Serialize() []interface{} {
	kv := []interface{}{"name", m.Name, "namespace", m.Namespace}
	if !m.Succeeded {
		kv = append(kv, "error", m.Err)
	}
	return kv
}

// ResumeMessage reports a resume decision: the selector precedence row
// that fired and the classified error kind that triggered the resume.
type ResumeMessage struct {
	Namespace string
	Selector  string
	ErrorKind string
	KilledOld bool
}

// Component implements ComponentMessage.
func (ResumeMessage) Component() Component { return ComponentResume }

// Message implements ComponentMessage.
func (ResumeMessage) Message() string { return "Change stream resumed" }

// Serialize implements ComponentMessage.
func (m ResumeMessage) Serialize() []interface{} {
	return []interface{}{
		"namespace", m.Namespace,
		"selector", m.Selector,
		"errorKind", m.ErrorKind,
		"killedPreviousCursor", m.KilledOld,
	}
}
