package profilez

import (
	"time"
)

// Backend receives every event the recorder admits, in call order.
// The in-process buffer is one Backend; an external system tracer is another.
// Implementations are invoked with the recorder lock held and must not call
// back into the Recorder.
type Backend interface {
	Start(mask Tag)
	Stop()

	BeginSection(tid ThreadID, at time.Time, tag Tag, name string, args Args)
	EndSection(tid ThreadID, threadName string, at time.Time, tag Tag, category string, args Args)

	BeginAsyncSection(at time.Time, tag Tag, name string, cookie Cookie, args Args)
	EndAsyncSection(at time.Time, tag Tag, category, name, threadName string, cookie Cookie, args Args)

	InstantSection(tid ThreadID, at time.Time, tag Tag, name string, scope Scope)

	BeginAsyncFlow(tid ThreadID, at time.Time, tag Tag, name string, cookie Cookie)
	EndAsyncFlow(tid ThreadID, at time.Time, tag Tag, name string, cookie Cookie)
}

// BackendMode controls how a registered backend relates to the buffer.
type BackendMode int

const (
	// BackendReplace sends events only to the registered backend.
	BackendReplace BackendMode = iota
	// BackendTee sends events to the buffer and to the registered backend.
	BackendTee
)

func (m BackendMode) String() string {
	switch m {
	case BackendReplace:
		return "replace"
	case BackendTee:
		return "tee"
	default:
		return "unknown"
	}
}
