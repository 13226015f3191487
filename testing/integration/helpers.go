package integration

import (
	"testing"

	"github.com/zoobzio/profilez"
)

// TraceChecker wraps a finished trace with verification helpers.
type TraceChecker struct {
	*profilez.Trace
	t *testing.T
}

// NewTraceChecker wraps trace for assertions.
func NewTraceChecker(t *testing.T, trace *profilez.Trace) *TraceChecker {
	t.Helper()
	if trace == nil {
		t.Fatal("nil trace")
	}
	return &TraceChecker{Trace: trace, t: t}
}

// AssertCount verifies the number of records with phase.
func (c *TraceChecker) AssertCount(phase profilez.Phase, expected int) {
	c.t.Helper()
	if got := len(c.Filter(phase)); got != expected {
		c.t.Errorf("Expected %d %s records, got %d", expected, phase, got)
	}
}

// AssertNamed checks that a record called name exists and returns the first.
func (c *TraceChecker) AssertNamed(name string) *profilez.TraceEvent {
	c.t.Helper()
	records := c.Named(name)
	if len(records) == 0 {
		c.t.Errorf("Record named '%s' not found", name)
		return nil
	}
	return &records[0]
}

// AssertBalanced verifies that every thread's B and E records nest properly.
func (c *TraceChecker) AssertBalanced() {
	c.t.Helper()
	depth := make(map[uint64]int)
	for _, e := range c.TraceEvents {
		switch e.Phase {
		case profilez.PhaseBegin:
			depth[e.ThreadID]++
		case profilez.PhaseEnd:
			depth[e.ThreadID]--
			if depth[e.ThreadID] < 0 {
				c.t.Errorf("Thread %d closes more spans than it opens", e.ThreadID)
				return
			}
		}
	}
	for tid, d := range depth {
		if d != 0 {
			c.t.Errorf("Thread %d left %d spans open", tid, d)
		}
	}
}

// AssertAsyncPaired verifies that every async id has exactly one b and one e
// record, with the e no earlier than the b.
func (c *TraceChecker) AssertAsyncPaired() {
	c.t.Helper()
	c.assertPaired(profilez.PhaseAsyncBegin, profilez.PhaseAsyncEnd)
}

// AssertFlowsPaired is AssertAsyncPaired for flow records.
func (c *TraceChecker) AssertFlowsPaired() {
	c.t.Helper()
	c.assertPaired(profilez.PhaseFlowStart, profilez.PhaseFlowEnd)
}

func (c *TraceChecker) assertPaired(open, closing profilez.Phase) {
	c.t.Helper()
	starts := make(map[uint64]float64)
	ends := make(map[uint64]float64)
	for _, e := range c.TraceEvents {
		switch e.Phase {
		case open:
			if _, dup := starts[e.ID]; dup {
				c.t.Errorf("Duplicate %s record for id %d", open, e.ID)
			}
			starts[e.ID] = e.Timestamp
		case closing:
			if _, dup := ends[e.ID]; dup {
				c.t.Errorf("Duplicate %s record for id %d", closing, e.ID)
			}
			ends[e.ID] = e.Timestamp
		}
	}
	if len(starts) != len(ends) {
		c.t.Errorf("Expected %d %s records to match %d %s records", len(starts), open, len(ends), closing)
	}
	for id, start := range starts {
		end, ok := ends[id]
		if !ok {
			c.t.Errorf("Id %d has no %s record", id, closing)
			continue
		}
		if end < start {
			c.t.Errorf("Id %d ends at %v before it starts at %v", id, end, start)
		}
	}
}

// Threads returns the thread names from the metadata records.
func (c *TraceChecker) Threads() map[uint64]string {
	out := make(map[uint64]string)
	for _, e := range c.Filter(profilez.PhaseMetadata) {
		if e.Name == "thread_name" {
			name, _ := e.Args["name"].(string)
			out[e.ThreadID] = name
		}
	}
	return out
}
