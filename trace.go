package profilez

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Phase is the single character event type of a trace record.
type Phase string

// Trace record phases.
const (
	PhaseBegin      Phase = "B"
	PhaseEnd        Phase = "E"
	PhaseInstant    Phase = "i"
	PhaseAsyncBegin Phase = "b"
	PhaseAsyncEnd   Phase = "e"
	PhaseFlowStart  Phase = "s"
	PhaseFlowEnd    Phase = "f"
	PhaseMetadata   Phase = "M"
)

// TraceEvent is one record of the trace event format.
type TraceEvent struct {
	Args      map[string]any `json:"args,omitempty" msgpack:"args,omitempty"`
	Name      string         `json:"name" msgpack:"name"`
	Category  string         `json:"cat" msgpack:"cat"`
	Phase     Phase          `json:"ph" msgpack:"ph"`
	Scope     string         `json:"s,omitempty" msgpack:"s,omitempty"`
	BindPoint string         `json:"bp,omitempty" msgpack:"bp,omitempty"`
	Timestamp float64        `json:"ts" msgpack:"ts"`
	ProcessID int            `json:"pid" msgpack:"pid"`
	ThreadID  uint64         `json:"tid" msgpack:"tid"`
	ID        uint64         `json:"id,omitempty" msgpack:"id,omitempty"`
}

// Trace is a finished session in the trace event format understood by
// trace viewers.
type Trace struct {
	OtherData       map[string]string `json:"otherData,omitempty" msgpack:"otherData,omitempty"`
	DisplayTimeUnit string            `json:"displayTimeUnit,omitempty" msgpack:"displayTimeUnit,omitempty"`
	TraceEvents     []TraceEvent      `json:"traceEvents" msgpack:"traceEvents"`
}

// Filter returns the records with the given phase, in trace order.
func (t *Trace) Filter(phase Phase) []TraceEvent {
	var out []TraceEvent
	for i := range t.TraceEvents {
		if t.TraceEvents[i].Phase == phase {
			out = append(out, t.TraceEvents[i])
		}
	}
	return out
}

// Named returns the non-metadata records called name, in trace order.
func (t *Trace) Named(name string) []TraceEvent {
	var out []TraceEvent
	for i := range t.TraceEvents {
		if t.TraceEvents[i].Name == name && t.TraceEvents[i].Phase != PhaseMetadata {
			out = append(out, t.TraceEvents[i])
		}
	}
	return out
}

// Len returns the number of non-metadata records.
func (t *Trace) Len() int {
	n := 0
	for i := range t.TraceEvents {
		if t.TraceEvents[i].Phase != PhaseMetadata {
			n++
		}
	}
	return n
}

func emptyTrace() *Trace {
	return &Trace{
		DisplayTimeUnit: "ms",
		TraceEvents:     []TraceEvent{},
	}
}

// ordered pairs a record with the buffer sequence number of the call that
// produced it, so records with equal timestamps keep their call order.
type ordered struct {
	record TraceEvent
	seq    uint64
}

// buildTrace converts a snapshot into trace records.
func buildTrace(snap *snapshot) *Trace {
	pid, processName := currentProcess()
	trace := emptyTrace()
	trace.OtherData = map[string]string{
		"session": snap.sessionID,
		"dropped": strconv.Itoa(snap.dropped),
	}

	micros := func(at time.Time) float64 {
		return float64(at.Sub(snap.startedAt).Nanoseconds()) / 1e3
	}

	records := make([]ordered, 0, 2*len(snap.events))
	for i := range snap.events {
		e := &snap.events[i]
		base := TraceEvent{
			Name:      e.Name,
			Category:  e.Category,
			ProcessID: pid,
			ThreadID:  e.Thread,
		}

		switch e.Kind {
		case KindSpan:
			begin, end := base, base
			begin.Phase, begin.Timestamp, begin.Args = PhaseBegin, micros(e.Start), normalizeArgs(e.Args)
			end.Phase, end.Timestamp, end.Args = PhaseEnd, micros(e.End), normalizeArgs(e.EndArgs)
			records = append(records, ordered{begin, e.beginSeq}, ordered{end, e.endSeq})

		case KindAsync:
			begin, end := base, base
			begin.ID, end.ID = e.Cookie, e.Cookie
			begin.Phase, begin.Timestamp, begin.Args = PhaseAsyncBegin, micros(e.Start), normalizeArgs(e.Args)
			end.Phase, end.Timestamp, end.Args = PhaseAsyncEnd, micros(e.End), normalizeArgs(e.EndArgs)
			records = append(records, ordered{begin, e.beginSeq}, ordered{end, e.endSeq})

		case KindInstant:
			instant := base
			instant.Phase, instant.Timestamp, instant.Scope = PhaseInstant, micros(e.Start), e.Scope.String()
			records = append(records, ordered{instant, e.beginSeq})

		case KindFlow:
			start, finish := base, base
			start.ID, finish.ID = e.Cookie, e.Cookie
			start.Phase, start.Timestamp = PhaseFlowStart, micros(e.Start)
			finish.Phase, finish.Timestamp, finish.ThreadID = PhaseFlowEnd, micros(e.End), e.endThread
			// Bind the arrow head to the enclosing slice.
			finish.BindPoint = "e"
			records = append(records, ordered{start, e.beginSeq}, ordered{finish, e.endSeq})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].record.Timestamp != records[j].record.Timestamp {
			return records[i].record.Timestamp < records[j].record.Timestamp
		}
		return records[i].seq < records[j].seq
	})

	trace.TraceEvents = append(trace.TraceEvents, metadataRecords(pid, processName, snap.threadNames)...)
	for i := range records {
		trace.TraceEvents = append(trace.TraceEvents, records[i].record)
	}
	return trace
}

func metadataRecords(pid int, processName string, threadNames map[ThreadID]string) []TraceEvent {
	out := make([]TraceEvent, 0, len(threadNames)+1)
	out = append(out, TraceEvent{
		Name:      "process_name",
		Phase:     PhaseMetadata,
		ProcessID: pid,
		Args:      map[string]any{"name": processName},
	})

	tids := make([]ThreadID, 0, len(threadNames))
	for tid := range threadNames {
		tids = append(tids, tid)
	}
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })

	for _, tid := range tids {
		out = append(out, TraceEvent{
			Name:      "thread_name",
			Phase:     PhaseMetadata,
			ProcessID: pid,
			ThreadID:  tid,
			Args:      map[string]any{"name": threadNames[tid]},
		})
	}
	return out
}

// normalizeArgs keeps strings, numbers and bools and renders anything else
// as text.
func normalizeArgs(args Args) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		switch v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = v
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
