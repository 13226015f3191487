package profilez

import (
	"time"
)

// Kind distinguishes the shapes of recorded events.
type Kind uint8

// Event kinds.
const (
	KindSpan Kind = iota
	KindAsync
	KindInstant
	KindFlow
)

// Event is one completed span, instant or flow recorded during a session.
// Events are immutable once they reach the buffer.
//
//nolint:govet // Field order follows the trace record layout
type Event struct {
	Args       Args
	EndArgs    Args
	Start      time.Time
	End        time.Time
	Name       string
	Category   string
	ThreadName string
	Tag        Tag
	Thread     ThreadID
	Cookie     Cookie
	Kind       Kind
	Scope      Scope

	beginSeq  uint64
	endSeq    uint64
	endThread ThreadID
}

// Duration returns the length of the span. Instants have no duration.
func (e *Event) Duration() time.Duration {
	if e.End.IsZero() {
		return 0
	}
	return e.End.Sub(e.Start)
}

func copyArgs(args Args) Args {
	if args == nil {
		return nil
	}
	c := make(Args, len(args))
	for k, v := range args {
		c[k] = v
	}
	return c
}
