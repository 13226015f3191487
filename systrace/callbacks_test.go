package systrace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/profilez"
)

type call struct {
	name   string
	args   []Arg
	op     string
	tag    uint64
	cookie int
	scope  byte
}

func recordingCallbacks(calls *[]call) Callbacks {
	return Callbacks{
		Start: func(tags uint64, buffer []byte) {
			*calls = append(*calls, call{op: "start", tag: tags, cookie: len(buffer)})
		},
		Stop: func() { *calls = append(*calls, call{op: "stop"}) },
		BeginSection: func(tag uint64, name string, args []Arg) {
			*calls = append(*calls, call{op: "begin", tag: tag, name: name, args: args})
		},
		EndSection: func(tag uint64, args []Arg) {
			*calls = append(*calls, call{op: "end", tag: tag, args: args})
		},
		BeginAsyncSection: func(tag uint64, name string, cookie int, args []Arg) {
			*calls = append(*calls, call{op: "begin_async", tag: tag, name: name, cookie: cookie, args: args})
		},
		EndAsyncSection: func(tag uint64, name string, cookie int, args []Arg) {
			*calls = append(*calls, call{op: "end_async", tag: tag, name: name, cookie: cookie, args: args})
		},
		InstantSection: func(tag uint64, name string, scope byte) {
			*calls = append(*calls, call{op: "instant", tag: tag, name: name, scope: scope})
		},
		BeginAsyncFlow: func(tag uint64, name string, cookie int) {
			*calls = append(*calls, call{op: "flow_start", tag: tag, name: name, cookie: cookie})
		},
		EndAsyncFlow: func(tag uint64, name string, cookie int) {
			*calls = append(*calls, call{op: "flow_end", tag: tag, name: name, cookie: cookie})
		},
	}
}

func TestAdapterForwardsEveryHook(t *testing.T) {
	var calls []call
	adapter := NewAdapter(recordingCallbacks(&calls), 128)
	now := time.Now()

	adapter.Start(profilez.TagAll)
	adapter.BeginSection(1, now, profilez.TagUI, "render", profilez.Args{"frame": 1})
	adapter.EndSection(1, "main", now, profilez.TagUI, "ui", nil)
	adapter.BeginAsyncSection(now, profilez.TagNetwork, "fetch", 7, nil)
	adapter.EndAsyncSection(now, profilez.TagNetwork, "net", "fetch", "network", 7, profilez.Args{"status": 200})
	adapter.InstantSection(1, now, profilez.TagUI, "vsync", profilez.ScopeGlobal)
	adapter.BeginAsyncFlow(1, now, profilez.TagAlways, "flow", 3)
	adapter.EndAsyncFlow(2, now, profilez.TagAlways, "flow", 3)
	adapter.Stop()

	ops := make([]string, 0, len(calls))
	for _, c := range calls {
		ops = append(ops, c.op)
	}
	require.Equal(t, []string{
		"start", "begin", "end", "begin_async", "end_async", "instant", "flow_start", "flow_end", "stop",
	}, ops)

	assert.Equal(t, 128, calls[0].cookie, "start receives a buffer of the configured size")
	assert.Equal(t, []Arg{{Key: []byte("frame"), Value: []byte("1")}}, calls[1].args)
	assert.Equal(t, []Arg{{Key: []byte(CategoryArg), Value: []byte("ui")}}, calls[2].args)
	assert.Equal(t, 7, calls[3].cookie)
	assert.Equal(t, []Arg{
		{Key: []byte(CategoryArg), Value: []byte("net")},
		{Key: []byte("status"), Value: []byte("200")},
		{Key: []byte(ThreadArg), Value: []byte("network")},
	}, calls[4].args)
	assert.Equal(t, byte('g'), calls[5].scope)
	assert.Equal(t, 3, calls[7].cookie)
}

func TestAdapterSkipsNilCallbacks(t *testing.T) {
	adapter := NewAdapter(Callbacks{}, 0)
	now := time.Now()

	assert.NotPanics(t, func() {
		adapter.Start(profilez.TagAll)
		adapter.BeginSection(1, now, profilez.TagUI, "render", nil)
		adapter.EndSection(1, "main", now, profilez.TagUI, "ui", nil)
		adapter.InstantSection(1, now, profilez.TagUI, "vsync", profilez.ScopeThread)
		adapter.Stop()
	})
	assert.Equal(t, DefaultBufferSize, adapter.bufferSize)
	assert.Nil(t, adapter.buffer, "stop releases the buffer")
}

func TestEncodeArgsSortsKeys(t *testing.T) {
	args := EncodeArgs(profilez.Args{
		"z":    "last",
		"a":    true,
		"m":    2.5,
		"nil":  nil,
		"blob": []byte("raw"),
	})

	keys := make([]string, 0, len(args))
	values := make([]string, 0, len(args))
	for _, a := range args {
		keys = append(keys, string(a.Key))
		values = append(values, string(a.Value))
	}
	assert.Equal(t, []string{"a", "blob", "m", "nil", "z"}, keys)
	assert.Equal(t, []string{"true", "raw", "2.5", "", "last"}, values)
	assert.Nil(t, EncodeArgs(nil))
}

func TestWithExtraLeavesInputAlone(t *testing.T) {
	args := profilez.Args{"k": "v"}
	out := withExtra(args, CategoryArg, "ui")

	assert.Len(t, args, 1)
	assert.Equal(t, "ui", out[CategoryArg])
	assert.Equal(t, args, withExtra(args, ThreadArg, ""), "empty values are not added")
}
