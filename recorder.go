package profilez

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const (
	flowName         = "flow"
	defaultQueueSize = 16
)

// Recorder owns one profiling session at a time.
// Safe for concurrent use by multiple goroutines.
//
// All event methods cost a single atomic load while no session is active.
//
//nolint:govet // Field order optimized for functionality over memory
type Recorder struct {
	backends     []Backend
	hooks        []hookEntry
	observers    []observer
	buffer       *buffer
	external     Backend
	worker       *worker
	clock        clockz.Clock
	logger       *zap.Logger
	startedAt    time.Time
	sessionID    string
	format       Format
	mode         BackendMode
	queueSize    int
	nextObserver uint64
	mu           sync.Mutex
	hooksMu      sync.Mutex
	observersMu  sync.Mutex
	workerOnce   sync.Once
	active       atomic.Bool
	mask         atomic.Uint64
	asyncCookies atomic.Uint64
	flowCookies  atomic.Uint64
}

// New creates a recorder using the real clock, a no-op logger and JSON
// output.
func New() *Recorder {
	logger := zap.NewNop()
	r := &Recorder{
		buffer:    newBuffer(logger),
		clock:     clockz.RealClock,
		logger:    logger,
		format:    FormatJSON,
		queueSize: defaultQueueSize,
	}
	r.backends = []Backend{r.buffer}
	return r
}

// WithClock sets the clock used for async, flow and session timestamps.
// Configure before the recorder is shared.
func (r *Recorder) WithClock(clock clockz.Clock) *Recorder {
	r.clock = clock
	return r
}

// WithLogger sets the logger used for misuse diagnostics.
// Configure before the recorder is shared.
func (r *Recorder) WithLogger(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r.logger = logger
	r.buffer.logger = logger
	return r
}

// WithFormat sets the encoding used by End.
func (r *Recorder) WithFormat(format Format) *Recorder {
	r.format = format
	return r
}

// WithQueueSize sets the capacity of the background export queue.
func (r *Recorder) WithQueueSize(size int) *Recorder {
	if size > 0 {
		r.queueSize = size
	}
	return r
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	return r.active.Load()
}

// Mask returns the enabled tag mask of the current session.
func (r *Recorder) Mask() Tag {
	return r.mask.Load()
}

// enabled is the gate every event method passes first.
func (r *Recorder) enabled(tag Tag) bool {
	if !r.active.Load() {
		return false
	}
	return tag&TagAlways != 0 || tag&r.mask.Load() != 0
}

// Start activates a session recording the tags in mask.
// No effect if a session is already active.
func (r *Recorder) Start(mask Tag) {
	r.mu.Lock()
	if r.active.Load() {
		r.logger.Debug("profiling already active", zap.String("session", r.sessionID))
		r.mu.Unlock()
		return
	}

	r.mask.Store(mask)
	r.startedAt = r.clock.Now()
	r.sessionID = xid.New().String()
	r.each("start", func(b Backend) { b.Start(mask) })
	r.active.Store(true)
	session := r.sessionID
	r.mu.Unlock()

	r.logger.Info("profiling started",
		zap.String("session", session),
		zap.Uint64("mask", mask))
	r.notify(true, session)
}

// Stop ends the session and returns the recorded trace.
// Returns an empty trace if no session is active.
func (r *Recorder) Stop() *Trace {
	snap, ok := r.stopSession()
	if !ok {
		return emptyTrace()
	}
	return buildTrace(&snap)
}

// End ends the session like Stop, but builds and encodes the trace on the
// recorder's background worker and hands the bytes to done.
func (r *Recorder) End(done func(data []byte, err error)) {
	snap, ok := r.stopSession()
	format := r.format

	task := func() {
		var trace *Trace
		if ok {
			trace = buildTrace(&snap)
		} else {
			trace = emptyTrace()
		}
		data, err := Encode(trace, format)
		if done != nil {
			done(data, err)
		}
	}

	r.ensureWorker()
	if r.worker == nil || !r.worker.submit(task) {
		r.logger.Warn("export queue unavailable, exporting on a new goroutine")
		go task()
	}
}

func (r *Recorder) stopSession() (snapshot, bool) {
	r.mu.Lock()
	if !r.active.Load() {
		r.mu.Unlock()
		return snapshot{}, false
	}
	r.active.Store(false)
	r.each("stop", func(b Backend) { b.Stop() })

	snap := r.buffer.take()
	snap.startedAt = r.startedAt
	snap.sessionID = r.sessionID
	r.mu.Unlock()

	r.logger.Info("profiling stopped",
		zap.String("session", snap.sessionID),
		zap.Int("events", len(snap.events)),
		zap.Int("dropped", snap.dropped))
	r.notify(false, snap.sessionID)
	return snap, true
}

// BeginEvent opens a synchronous span on thread tid.
func (r *Recorder) BeginEvent(tid ThreadID, at time.Time, tag Tag, name string, args Args) {
	if !r.enabled(tag) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(tag) {
		return
	}
	r.each("begin_section", func(b Backend) { b.BeginSection(tid, at, tag, name, args) })
}

// EndEvent closes the most recently opened span on thread tid.
func (r *Recorder) EndEvent(tid ThreadID, threadName string, at time.Time, tag Tag, category string, args Args) {
	if !r.enabled(tag) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(tag) {
		return
	}
	r.each("end_section", func(b Backend) { b.EndSection(tid, threadName, at, tag, category, args) })
}

// BeginAsyncEvent opens a span that may end on any thread and returns the
// cookie that closes it. Returns 0 when the tag is not being recorded.
func (r *Recorder) BeginAsyncEvent(tag Tag, name string, args Args) Cookie {
	if !r.enabled(tag) {
		return 0
	}

	cookie := r.asyncCookies.Add(1)
	at := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(tag) {
		return 0
	}
	r.each("begin_async_section", func(b Backend) { b.BeginAsyncSection(at, tag, name, cookie, args) })
	return cookie
}

// EndAsyncEvent closes the async span identified by cookie.
// Unknown or already closed cookies are logged and ignored.
func (r *Recorder) EndAsyncEvent(tag Tag, category string, cookie Cookie, name, threadName string, args Args) {
	if !r.enabled(tag) {
		return
	}
	at := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(tag) {
		return
	}
	r.each("end_async_section", func(b Backend) {
		b.EndAsyncSection(at, tag, category, name, threadName, cookie, args)
	})
}

// ImmediateEvent records a zero-duration marker.
func (r *Recorder) ImmediateEvent(tid ThreadID, tag Tag, name string, at time.Time, scope Scope) {
	if !r.enabled(tag) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(tag) {
		return
	}
	r.each("instant_section", func(b Backend) { b.InstantSection(tid, at, tag, name, scope) })
}

// BeginFlowEvent starts a flow arrow on thread tid and returns its id.
// Flow ids are allocated independently of async cookies.
func (r *Recorder) BeginFlowEvent(tid ThreadID) Cookie {
	if !r.enabled(TagAlways) {
		return 0
	}

	id := r.flowCookies.Add(1)
	at := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(TagAlways) {
		return 0
	}
	r.each("begin_async_flow", func(b Backend) { b.BeginAsyncFlow(tid, at, TagAlways, flowName, id) })
	return id
}

// EndFlowEvent ends the flow arrow id on thread tid.
func (r *Recorder) EndFlowEvent(tid ThreadID, id Cookie) {
	if !r.enabled(TagAlways) {
		return
	}
	at := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled(TagAlways) {
		return
	}
	r.each("end_async_flow", func(b Backend) { b.EndAsyncFlow(tid, at, TagAlways, flowName, id) })
}

// RegisterBackend routes events to an external backend. The last
// registration wins; a nil backend unregisters. When a session is active the
// previous backend is stopped and the new one started with the current mask.
func (r *Recorder) RegisterBackend(backend Backend, mode BackendMode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.external != nil && backend != nil {
		r.logger.Warn("replacing registered profiling backend",
			zap.Stringer("mode", mode))
	}

	if r.active.Load() {
		if r.external != nil {
			old := r.external
			r.safeCall("stop", func() { old.Stop() })
		}
		if backend != nil {
			mask := r.mask.Load()
			r.safeCall("start", func() { backend.Start(mask) })
		}
	}

	buffered := r.buffered()
	r.external = backend
	r.mode = mode

	switch {
	case backend == nil:
		r.backends = []Backend{r.buffer}
	case mode == BackendTee:
		r.backends = []Backend{r.buffer, backend}
	default:
		r.backends = []Backend{backend}
	}

	// The buffer stops seeing ends once it leaves the fan-out, so whatever
	// it still holds open is dropped now. Completed events are kept.
	if r.active.Load() && buffered && !r.buffered() {
		r.buffer.Stop()
	}
}

// buffered reports whether the in-process buffer receives events.
// Must hold r.mu.
func (r *Recorder) buffered() bool {
	for _, b := range r.backends {
		if b == Backend(r.buffer) {
			return true
		}
	}
	return false
}

// Close stops the background export worker after it drains, and removes
// every bridge hook. An active session is left untouched.
func (r *Recorder) Close() {
	r.hooksMu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.hooksMu.Unlock()
	for _, h := range hooks {
		h.remove()
	}

	// Once the worker is gone End falls back to a goroutine per export.
	r.workerOnce.Do(func() {})
	if r.worker != nil {
		r.worker.shutdown()
	}
}

// Wrap runs fn inside a synchronous span named name on thread tid. The span
// is closed with category and args even if fn panics. fn always runs, also
// when tag is not being recorded.
func (r *Recorder) Wrap(tid ThreadID, tag Tag, name, category string, args Args, fn func()) {
	if !r.enabled(tag) {
		fn()
		return
	}
	r.BeginEvent(tid, r.clock.Now(), tag, name, nil)
	defer func() { r.EndEvent(tid, "", r.clock.Now(), tag, category, args) }()
	fn()
}

// OnStart registers fn to run after every session starts. Observers run
// outside the recorder lock, in registration order. The returned function
// removes the observer.
func (r *Recorder) OnStart(fn func(sessionID string)) (remove func()) {
	return r.observe(observer{onStart: fn})
}

// OnStop registers fn to run after every session stops, with the id of the
// session that ended.
func (r *Recorder) OnStop(fn func(sessionID string)) (remove func()) {
	return r.observe(observer{onStop: fn})
}

type observer struct {
	onStart func(string)
	onStop  func(string)
	id      uint64
}

func (r *Recorder) observe(o observer) func() {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()

	r.nextObserver++
	o.id = r.nextObserver
	r.observers = append(r.observers, o)

	id := o.id
	return func() {
		r.observersMu.Lock()
		defer r.observersMu.Unlock()
		for i := range r.observers {
			if r.observers[i].id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *Recorder) notify(started bool, session string) {
	r.observersMu.Lock()
	observers := make([]observer, len(r.observers))
	copy(observers, r.observers)
	r.observersMu.Unlock()

	for _, o := range observers {
		fn := o.onStop
		if started {
			fn = o.onStart
		}
		if fn == nil {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("profiling observer panicked",
						zap.Bool("started", started),
						zap.Any("panic", rec))
				}
			}()
			fn(session)
		}()
	}
}

// each calls fn for every active backend. Must hold r.mu.
func (r *Recorder) each(op string, fn func(Backend)) {
	for _, b := range r.backends {
		backend := b
		r.safeCall(op, func() { fn(backend) })
	}
}

// safeCall keeps a misbehaving backend from crashing the caller.
func (r *Recorder) safeCall(op string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("profiling backend panicked",
				zap.String("op", op),
				zap.Any("panic", rec))
		}
	}()
	fn()
}

func (r *Recorder) ensureWorker() {
	r.workerOnce.Do(func() {
		r.worker = newWorker(r.queueSize)
	})
}
