// Package profilez provides an in-process profiling recorder that emits
// trace-viewer compatible timelines.
//
// profilez records begin/end spans, asynchronous spans, instant markers and
// flow arrows while a session is active, and is effectively free while it is
// not. It's designed to stay compiled into production builds: every call site
// pays a single atomic load unless recording is enabled for its tag.
//
// Core Components:
//   - Recorder: Owns the session, tag mask, cookie counters and backends.
//   - Backend: Receives admitted events. The in-process buffer is one
//     implementation, an external system tracer is another.
//   - Trace: The serialized timeline returned when a session stops.
//   - Disabled: A no-op Profiler selected with the noprofile build tag.
//
// Basic Usage:
//
//	rec := profilez.New()
//	defer rec.Close()
//
//	rec.Start(profilez.TagAll)
//
//	rec.BeginEvent(tid, time.Now(), profilez.TagAlways, "render", nil)
//	rec.EndEvent(tid, "main", time.Now(), profilez.TagAlways, "ui", nil)
//
//	cookie := rec.BeginAsyncEvent(profilez.TagNetwork, "fetch", nil)
//	// ... on another goroutine ...
//	rec.EndAsyncEvent(profilez.TagNetwork, "net", cookie, "fetch", "worker", nil)
//
//	trace := rec.Stop()
//
// Pairing:
//
// Synchronous spans pair through a per-thread stack: EndEvent always closes
// the most recent open BeginEvent of the same ThreadID. Async spans pair by
// the Cookie returned from BeginAsyncEvent and may overlap freely.
//
// Misuse:
//
// An EndEvent without an open span, or an EndAsyncEvent with an unknown
// cookie, is logged and dropped. No recorder call ever panics or blocks on
// anything other than the session lock.
package profilez

// Tag selects the subsystem an event belongs to.
type Tag = uint64

// Well known tags.
const (
	// TagAlways is admitted whenever a session is active, regardless of mask.
	TagAlways Tag = 1 << 0
	// TagBridgeCalls marks spans produced by HookModules.
	TagBridgeCalls Tag = 1 << 1
	// TagNetwork marks network activity.
	TagNetwork Tag = 1 << 2
	// TagUI marks layout and rendering work.
	TagUI Tag = 1 << 3
	// TagJS marks script execution.
	TagJS Tag = 1 << 4

	TagAll Tag = ^Tag(0)
)

// ThreadID identifies the execution context that produced an event.
type ThreadID = uint64

// Cookie is the handle of an in-flight async or flow event.
type Cookie = uint64

// Args is free-form metadata attached to an event.
type Args = map[string]any

// Scope is the visibility of an instant event.
type Scope byte

// Instant scopes.
const (
	ScopeGlobal  Scope = 'g'
	ScopeProcess Scope = 'p'
	ScopeThread  Scope = 't'
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal, ScopeProcess, ScopeThread:
		return string(rune(s))
	default:
		return string(rune(ScopeThread))
	}
}
