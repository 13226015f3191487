package profilez

import (
	"time"
)

// Profiler is the capability set shared by Recorder and Disabled. Code that
// should compile against either takes a Profiler.
type Profiler interface {
	IsRecording() bool
	Start(mask Tag)
	Stop() *Trace
	End(done func(data []byte, err error))

	BeginEvent(tid ThreadID, at time.Time, tag Tag, name string, args Args)
	EndEvent(tid ThreadID, threadName string, at time.Time, tag Tag, category string, args Args)
	BeginAsyncEvent(tag Tag, name string, args Args) Cookie
	EndAsyncEvent(tag Tag, category string, cookie Cookie, name, threadName string, args Args)
	ImmediateEvent(tid ThreadID, tag Tag, name string, at time.Time, scope Scope)
	BeginFlowEvent(tid ThreadID) Cookie
	EndFlowEvent(tid ThreadID, id Cookie)
	Wrap(tid ThreadID, tag Tag, name, category string, args Args, fn func())

	OnStart(fn func(sessionID string)) (remove func())
	OnStop(fn func(sessionID string)) (remove func())

	RegisterBackend(backend Backend, mode BackendMode)
	HookModules(target Hookable)
	UnhookModules(target Hookable)
	HookInstance(target Hookable, module string)
	UnhookInstance(target Hookable, module string)
	Close()
}

var (
	_ Profiler = (*Recorder)(nil)
	_ Profiler = Disabled{}
	_ Backend  = (*buffer)(nil)
)

// Disabled is a Profiler that records nothing.
type Disabled struct{}

func (Disabled) IsRecording() bool { return false }
func (Disabled) Start(Tag)         {}
func (Disabled) Stop() *Trace      { return emptyTrace() }

func (Disabled) End(done func(data []byte, err error)) {
	if done != nil {
		data, err := Encode(emptyTrace(), FormatJSON)
		done(data, err)
	}
}

func (Disabled) BeginEvent(ThreadID, time.Time, Tag, string, Args)       {}
func (Disabled) EndEvent(ThreadID, string, time.Time, Tag, string, Args) {}
func (Disabled) BeginAsyncEvent(Tag, string, Args) Cookie                { return 0 }
func (Disabled) EndAsyncEvent(Tag, string, Cookie, string, string, Args) {}
func (Disabled) ImmediateEvent(ThreadID, Tag, string, time.Time, Scope)  {}
func (Disabled) BeginFlowEvent(ThreadID) Cookie                          { return 0 }
func (Disabled) EndFlowEvent(ThreadID, Cookie)                           {}
func (Disabled) RegisterBackend(Backend, BackendMode)                    {}
func (Disabled) HookModules(Hookable)                                    {}
func (Disabled) UnhookModules(Hookable)                                  {}
func (Disabled) HookInstance(Hookable, string)                           {}
func (Disabled) UnhookInstance(Hookable, string)                         {}
func (Disabled) OnStart(func(string)) func()                             { return func() {} }
func (Disabled) OnStop(func(string)) func()                              { return func() {} }
func (Disabled) Close()                                                  {}

// Wrap runs fn.
func (Disabled) Wrap(_ ThreadID, _ Tag, _, _ string, _ Args, fn func()) { fn() }
