package profilez

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/juju/errors"
	"go.uber.org/zap"
)

// CallInfo describes one call crossing the script/native boundary.
type CallInfo struct {
	Args       Args
	Module     string
	Method     string
	ThreadName string
	Thread     ThreadID
}

// CallHook observes boundary calls.
type CallHook interface {
	BeforeCall(info CallInfo)
	AfterCall(info CallInfo)
}

// Hookable accepts call hooks. The returned function removes the hook.
type Hookable interface {
	AddCallHook(hook CallHook) (remove func())
}

// ResultSender delivers a blob to a named remote endpoint.
type ResultSender interface {
	SendBlob(ctx context.Context, route string, data []byte) error
}

// Bridge is the host boundary the recorder instruments and exports through.
type Bridge interface {
	Hookable
	ResultSender
}

type hookEntry struct {
	target Hookable
	remove func()
	module string
}

// HookModules installs a hook on target that records a synchronous span,
// tagged TagBridgeCalls, around every boundary call. Hooking the same target
// twice has no effect. A target whose dynamic type is not comparable cannot
// be tracked and is logged and left unhooked.
func (r *Recorder) HookModules(target Hookable) {
	r.hook(target, "")
}

// HookInstance is HookModules limited to the calls of a single module.
// No effect on a target already hooked for all modules.
func (r *Recorder) HookInstance(target Hookable, module string) {
	if module == "" {
		r.HookModules(target)
		return
	}
	r.hook(target, module)
}

func (r *Recorder) hook(target Hookable, module string) {
	if !r.trackable(target) {
		return
	}

	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()

	for _, h := range r.hooks {
		if sameTarget(h.target, target) && (h.module == "" || h.module == module) {
			return
		}
	}
	if module == "" {
		// An all-module hook replaces the instance hooks on target.
		kept := r.hooks[:0]
		for _, h := range r.hooks {
			if sameTarget(h.target, target) {
				h.remove()
				continue
			}
			kept = append(kept, h)
		}
		r.hooks = kept
	}

	remove := target.AddCallHook(&callHook{recorder: r, module: module})
	r.hooks = append(r.hooks, hookEntry{target: target, remove: remove, module: module})
}

// UnhookModules removes every hook installed on target by HookModules or
// HookInstance.
func (r *Recorder) UnhookModules(target Hookable) {
	r.unhook(target, func(hookEntry) bool { return true })
}

// UnhookInstance removes the hook installed by HookInstance for module.
func (r *Recorder) UnhookInstance(target Hookable, module string) {
	r.unhook(target, func(h hookEntry) bool { return h.module == module })
}

func (r *Recorder) unhook(target Hookable, match func(hookEntry) bool) {
	if target == nil || !reflect.TypeOf(target).Comparable() {
		return
	}

	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()

	kept := r.hooks[:0]
	for _, h := range r.hooks {
		if sameTarget(h.target, target) && match(h) {
			h.remove()
			continue
		}
		kept = append(kept, h)
	}
	r.hooks = kept
}

func (r *Recorder) trackable(target Hookable) bool {
	if target == nil {
		r.logger.Warn("cannot hook a nil target")
		return false
	}
	if !reflect.TypeOf(target).Comparable() {
		r.logger.Warn("cannot hook a target of uncomparable type",
			zap.String("type", fmt.Sprintf("%T", target)))
		return false
	}
	return true
}

// sameTarget compares two hook targets. A comparable type can still hold an
// uncomparable value in an interface field, which compares as different.
func sameTarget(a, b Hookable) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

const bridgeCategory = "bridge"

type callHook struct {
	recorder *Recorder
	module   string
}

func (h *callHook) records(info CallInfo) bool {
	if h.module != "" && info.Module != h.module {
		return false
	}
	return h.recorder.enabled(TagBridgeCalls)
}

func (h *callHook) BeforeCall(info CallInfo) {
	if !h.records(info) {
		return
	}
	r := h.recorder
	r.BeginEvent(info.Thread, r.clock.Now(), TagBridgeCalls, info.Module+"."+info.Method, info.Args)
}

func (h *callHook) AfterCall(info CallInfo) {
	if !h.records(info) {
		return
	}
	r := h.recorder
	r.EndEvent(info.Thread, info.ThreadName, r.clock.Now(), TagBridgeCalls, bridgeCategory, nil)
}

// SendResult delivers finished profile data through sender.
func SendResult(ctx context.Context, sender ResultSender, route string, data []byte) error {
	if sender == nil {
		return errors.New("no result sender")
	}
	return errors.Annotatef(sender.SendBlob(ctx, route, data), "sending profile to %q", route)
}

// HookSet is an in-process Hookable that runs registered hooks around calls.
// Safe for concurrent use.
type HookSet struct {
	hooks  map[uint64]CallHook
	nextID uint64
	mu     sync.RWMutex
}

// NewHookSet creates an empty HookSet.
func NewHookSet() *HookSet {
	return &HookSet{hooks: make(map[uint64]CallHook)}
}

// AddCallHook registers hook.
func (s *HookSet) AddCallHook(hook CallHook) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.hooks[id] = hook

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.hooks, id)
	}
}

// Len returns the number of installed hooks.
func (s *HookSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hooks)
}

// Call runs fn between the BeforeCall and AfterCall of every hook.
// Hooks see AfterCall in reverse registration order so spans nest.
func (s *HookSet) Call(info CallInfo, fn func()) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.hooks))
	for id := range s.hooks {
		ids = append(ids, id)
	}
	hooks := make([]CallHook, 0, len(ids))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		hooks = append(hooks, s.hooks[id])
	}
	s.mu.RUnlock()

	for _, h := range hooks {
		h.BeforeCall(info)
	}
	defer func() {
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i].AfterCall(info)
		}
	}()
	fn()
}
