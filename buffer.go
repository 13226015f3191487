package profilez

import (
	"time"

	"go.uber.org/zap"
)

// syntheticThreadBase is where thread ids for names that were never seen on
// a synchronous EndEvent start.
const syntheticThreadBase ThreadID = 1 << 40

// buffer is the in-process Backend. It pairs synchronous spans through a
// per-thread stack and async spans and flows by cookie, and keeps completed
// events in arrival order.
// Guarded by Recorder.mu; buffer does no locking of its own.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type buffer struct {
	events      []Event
	stacks      map[ThreadID][]Event
	async       map[Cookie]Event
	flows       map[Cookie]Event
	threadNames map[ThreadID]string
	threadIDs   map[string]ThreadID
	logger      *zap.Logger
	nextThread  ThreadID
	seq         uint64
	dropped     int
}

func newBuffer(logger *zap.Logger) *buffer {
	b := &buffer{logger: logger}
	b.reset()
	return b
}

func (b *buffer) reset() {
	b.events = make([]Event, 0, 32)
	b.stacks = make(map[ThreadID][]Event)
	b.async = make(map[Cookie]Event)
	b.flows = make(map[Cookie]Event)
	b.threadNames = make(map[ThreadID]string)
	b.threadIDs = make(map[string]ThreadID)
	b.nextThread = syntheticThreadBase
	b.seq = 0
	b.dropped = 0
}

func (b *buffer) Start(Tag) {
	b.reset()
}

// Stop discards everything still open. Completed events stay readable
// until the next Start.
func (b *buffer) Stop() {
	open := b.pending()
	if open > 0 {
		b.logger.Debug("dropping events still open at stop", zap.Int("open", open))
	}
	b.dropped += open
	b.stacks = make(map[ThreadID][]Event)
	b.async = make(map[Cookie]Event)
	b.flows = make(map[Cookie]Event)
}

func (b *buffer) BeginSection(tid ThreadID, at time.Time, tag Tag, name string, args Args) {
	b.stacks[tid] = append(b.stacks[tid], Event{
		Kind:     KindSpan,
		Tag:      tag,
		Name:     name,
		Args:     copyArgs(args),
		Start:    at,
		Thread:   tid,
		beginSeq: b.nextSeq(),
	})
}

func (b *buffer) EndSection(tid ThreadID, threadName string, at time.Time, tag Tag, category string, args Args) {
	stack := b.stacks[tid]
	if len(stack) == 0 {
		b.logger.Warn("end event without matching begin",
			zap.Uint64("thread", tid),
			zap.Uint64("tag", tag),
			zap.String("category", category))
		return
	}

	event := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(b.stacks, tid)
	} else {
		b.stacks[tid] = stack[:len(stack)-1]
	}

	event.End = at
	event.Category = category
	event.EndArgs = copyArgs(args)
	event.ThreadName = threadName
	event.endSeq = b.nextSeq()
	b.nameThread(tid, threadName)
	b.appendEvent(&event)
}

func (b *buffer) BeginAsyncSection(at time.Time, tag Tag, name string, cookie Cookie, args Args) {
	b.async[cookie] = Event{
		Kind:     KindAsync,
		Tag:      tag,
		Name:     name,
		Args:     copyArgs(args),
		Start:    at,
		Cookie:   cookie,
		beginSeq: b.nextSeq(),
	}
}

func (b *buffer) EndAsyncSection(at time.Time, tag Tag, category, name, threadName string, cookie Cookie, args Args) {
	event, ok := b.async[cookie]
	if !ok {
		b.logger.Warn("end async event with unknown cookie",
			zap.Uint64("cookie", cookie),
			zap.Uint64("tag", tag),
			zap.String("name", name))
		return
	}
	delete(b.async, cookie)

	if event.Name == "" {
		event.Name = name
	}
	event.End = at
	event.Category = category
	event.EndArgs = copyArgs(args)
	event.ThreadName = threadName
	event.Thread = b.threadFor(threadName)
	event.endSeq = b.nextSeq()
	b.appendEvent(&event)
}

func (b *buffer) InstantSection(tid ThreadID, at time.Time, tag Tag, name string, scope Scope) {
	event := Event{
		Kind:     KindInstant,
		Tag:      tag,
		Name:     name,
		Start:    at,
		Thread:   tid,
		Scope:    scope,
		beginSeq: b.nextSeq(),
	}
	event.endSeq = event.beginSeq
	b.appendEvent(&event)
}

func (b *buffer) BeginAsyncFlow(tid ThreadID, at time.Time, tag Tag, name string, cookie Cookie) {
	b.flows[cookie] = Event{
		Kind:     KindFlow,
		Tag:      tag,
		Name:     name,
		Start:    at,
		Thread:   tid,
		Cookie:   cookie,
		beginSeq: b.nextSeq(),
	}
}

func (b *buffer) EndAsyncFlow(tid ThreadID, at time.Time, tag Tag, name string, cookie Cookie) {
	event, ok := b.flows[cookie]
	if !ok {
		b.logger.Warn("end flow event with unknown id",
			zap.Uint64("cookie", cookie),
			zap.Uint64("tag", tag),
			zap.String("name", name))
		return
	}
	delete(b.flows, cookie)

	// The arrow head may land on another thread.
	event.End = at
	event.endThread = tid
	event.endSeq = b.nextSeq()
	b.appendEvent(&event)
}

// nameThread remembers the name of tid for metadata and async lookup.
func (b *buffer) nameThread(tid ThreadID, name string) {
	if name == "" {
		return
	}
	if _, ok := b.threadNames[tid]; !ok {
		b.threadNames[tid] = name
	}
	if _, ok := b.threadIDs[name]; !ok {
		b.threadIDs[name] = tid
	}
}

// threadFor resolves a thread name to an id, minting a synthetic one for
// names only ever seen on async events.
func (b *buffer) threadFor(name string) ThreadID {
	if tid, ok := b.threadIDs[name]; ok {
		return tid
	}
	b.nextThread++
	tid := b.nextThread
	b.threadIDs[name] = tid
	if name != "" {
		b.threadNames[tid] = name
	}
	return tid
}

func (b *buffer) nextSeq() uint64 {
	b.seq++
	return b.seq
}

// appendEvent adds a completed event to the buffer.
func (b *buffer) appendEvent(event *Event) {
	if len(b.events) >= cap(b.events) {
		currentCap := cap(b.events)
		var newCap int
		if currentCap < 1024 {
			newCap = currentCap * 2
		} else {
			// Grow by 50% for large buffers to avoid excessive memory usage.
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]Event, len(b.events), newCap)
		copy(grown, b.events)
		b.events = grown
	}
	b.events = append(b.events, *event)
}

// snapshot is everything needed to build a Trace once the lock is released.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type snapshot struct {
	events      []Event
	threadNames map[ThreadID]string
	startedAt   time.Time
	sessionID   string
	dropped     int
}

// take hands the completed events over to a snapshot and empties the buffer.
func (b *buffer) take() snapshot {
	s := snapshot{
		events:      b.events,
		threadNames: b.threadNames,
		dropped:     b.dropped,
	}
	b.reset()
	return s
}

// pending reports how many events are still open.
func (b *buffer) pending() int {
	n := len(b.async) + len(b.flows)
	for _, stack := range b.stacks {
		n += len(stack)
	}
	return n
}
