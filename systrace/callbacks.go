// Package systrace connects the recorder to an external system tracer.
//
// A system tracer is described by Callbacks, a table of functions mirroring
// the hooks such tracers expose. Adapter turns a Callbacks table into a
// profilez.Backend, and Writer is a tracer that emits atrace style marker
// lines to any io.Writer.
package systrace

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/zoobzio/profilez"
)

// Arg is one key/value pair handed to a tracer as raw bytes.
type Arg struct {
	Key   []byte
	Value []byte
}

// Callbacks is the function table of an external tracer. Nil entries are
// skipped.
//
//nolint:govet // Field order mirrors the tracer hook table
type Callbacks struct {
	Start func(tags uint64, buffer []byte)
	Stop  func()

	BeginSection func(tag uint64, name string, args []Arg)
	EndSection   func(tag uint64, args []Arg)

	BeginAsyncSection func(tag uint64, name string, cookie int, args []Arg)
	EndAsyncSection   func(tag uint64, name string, cookie int, args []Arg)

	InstantSection func(tag uint64, name string, scope byte)

	BeginAsyncFlow func(tag uint64, name string, cookie int)
	EndAsyncFlow   func(tag uint64, name string, cookie int)
}

// Argument keys the adapter adds on the end of a section.
const (
	CategoryArg = "category"
	ThreadArg   = "thread"
)

// DefaultBufferSize is the size of the buffer handed to Callbacks.Start.
const DefaultBufferSize = 64 << 10

// Adapter forwards recorder events to Callbacks.
// Calls arrive serialized by the recorder's lock.
type Adapter struct {
	callbacks  Callbacks
	buffer     []byte
	bufferSize int
}

var _ profilez.Backend = (*Adapter)(nil)

// NewAdapter wraps callbacks. A bufferSize of zero uses DefaultBufferSize.
func NewAdapter(callbacks Callbacks, bufferSize int) *Adapter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Adapter{callbacks: callbacks, bufferSize: bufferSize}
}

// Start allocates the tracer buffer and starts the tracer.
func (a *Adapter) Start(mask profilez.Tag) {
	a.buffer = make([]byte, a.bufferSize)
	if a.callbacks.Start != nil {
		a.callbacks.Start(mask, a.buffer)
	}
}

// Stop stops the tracer and releases its buffer.
func (a *Adapter) Stop() {
	if a.callbacks.Stop != nil {
		a.callbacks.Stop()
	}
	a.buffer = nil
}

func (a *Adapter) BeginSection(_ profilez.ThreadID, _ time.Time, tag profilez.Tag, name string, args profilez.Args) {
	if a.callbacks.BeginSection != nil {
		a.callbacks.BeginSection(tag, name, EncodeArgs(args))
	}
}

func (a *Adapter) EndSection(_ profilez.ThreadID, _ string, _ time.Time, tag profilez.Tag, category string, args profilez.Args) {
	if a.callbacks.EndSection != nil {
		a.callbacks.EndSection(tag, EncodeArgs(withExtra(args, CategoryArg, category)))
	}
}

func (a *Adapter) BeginAsyncSection(_ time.Time, tag profilez.Tag, name string, cookie profilez.Cookie, args profilez.Args) {
	if a.callbacks.BeginAsyncSection != nil {
		a.callbacks.BeginAsyncSection(tag, name, int(cookie), EncodeArgs(args)) //nolint:gosec // tracer cookies are ints
	}
}

func (a *Adapter) EndAsyncSection(_ time.Time, tag profilez.Tag, category, name, threadName string, cookie profilez.Cookie, args profilez.Args) {
	if a.callbacks.EndAsyncSection != nil {
		extra := withExtra(withExtra(args, CategoryArg, category), ThreadArg, threadName)
		a.callbacks.EndAsyncSection(tag, name, int(cookie), EncodeArgs(extra)) //nolint:gosec // tracer cookies are ints
	}
}

func (a *Adapter) InstantSection(_ profilez.ThreadID, _ time.Time, tag profilez.Tag, name string, scope profilez.Scope) {
	if a.callbacks.InstantSection != nil {
		a.callbacks.InstantSection(tag, name, byte(scope))
	}
}

func (a *Adapter) BeginAsyncFlow(_ profilez.ThreadID, _ time.Time, tag profilez.Tag, name string, cookie profilez.Cookie) {
	if a.callbacks.BeginAsyncFlow != nil {
		a.callbacks.BeginAsyncFlow(tag, name, int(cookie)) //nolint:gosec // tracer cookies are ints
	}
}

func (a *Adapter) EndAsyncFlow(_ profilez.ThreadID, _ time.Time, tag profilez.Tag, name string, cookie profilez.Cookie) {
	if a.callbacks.EndAsyncFlow != nil {
		a.callbacks.EndAsyncFlow(tag, name, int(cookie)) //nolint:gosec // tracer cookies are ints
	}
}

// withExtra returns args plus key=value without touching args. Empty values
// are left out.
func withExtra(args profilez.Args, key, value string) profilez.Args {
	if value == "" {
		return args
	}
	out := make(profilez.Args, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out[key] = value
	return out
}

// EncodeArgs renders args as byte pairs sorted by key.
func EncodeArgs(args profilez.Args) []Arg {
	if len(args) == 0 {
		return nil
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Arg, 0, len(keys))
	for _, k := range keys {
		out = append(out, Arg{Key: []byte(k), Value: []byte(formatValue(args[k]))})
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
