package systrace

import (
	"io"
	"strconv"
	"sync"

	"github.com/juju/errors"
)

// Writer is a system tracer that writes one atrace style marker line per
// event:
//
//	B|pid|name|k=v;k=v   begin section
//	E|pid|k=v            end section
//	S|pid|name|cookie    begin async section
//	F|pid|name|cookie    end async section
//	I|pid|name|scope     instant
//	s|pid|name|cookie    flow start
//	f|pid|name|cookie    flow end
//
// Write errors are sticky and reported by Err.
type Writer struct {
	w       io.Writer
	scratch []byte
	err     error
	pid     int
	mu      sync.Mutex
	running bool
}

// NewWriter creates a Writer that tags every line with pid.
func NewWriter(w io.Writer, pid int) *Writer {
	return &Writer{w: w, pid: pid}
}

// Callbacks returns the function table driving this writer.
func (w *Writer) Callbacks() Callbacks {
	return Callbacks{
		Start: w.start,
		Stop:  w.stop,
		BeginSection: func(_ uint64, name string, args []Arg) {
			w.line('B', name, "", args)
		},
		EndSection: func(_ uint64, args []Arg) {
			w.line('E', "", "", args)
		},
		BeginAsyncSection: func(_ uint64, name string, cookie int, _ []Arg) {
			w.line('S', name, strconv.Itoa(cookie), nil)
		},
		EndAsyncSection: func(_ uint64, name string, cookie int, _ []Arg) {
			w.line('F', name, strconv.Itoa(cookie), nil)
		},
		InstantSection: func(_ uint64, name string, scope byte) {
			w.line('I', name, string(scope), nil)
		},
		BeginAsyncFlow: func(_ uint64, name string, cookie int) {
			w.line('s', name, strconv.Itoa(cookie), nil)
		},
		EndAsyncFlow: func(_ uint64, name string, cookie int) {
			w.line('f', name, strconv.Itoa(cookie), nil)
		},
	}
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) start(tags uint64, buffer []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scratch = buffer[:0]
	w.running = true
	w.err = nil
	w.writeLocked(append(w.scratch, "# tracer: profilez tags=0x"+strconv.FormatUint(tags, 16)+"\n"...))
}

func (w *Writer) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false
	w.scratch = nil
}

// line assembles kind|pid[|name][|extra][|args] in the scratch buffer.
func (w *Writer) line(kind byte, name, extra string, args []Arg) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running || w.err != nil {
		return
	}

	b := w.scratch[:0]
	b = append(b, kind, '|')
	b = strconv.AppendInt(b, int64(w.pid), 10)
	if name != "" {
		b = append(b, '|')
		b = append(b, name...)
	}
	if extra != "" {
		b = append(b, '|')
		b = append(b, extra...)
	}
	if len(args) > 0 {
		b = append(b, '|')
		for i, a := range args {
			if i > 0 {
				b = append(b, ';')
			}
			b = append(b, a.Key...)
			b = append(b, '=')
			b = append(b, a.Value...)
		}
	}
	b = append(b, '\n')
	w.writeLocked(b)
	// Keep a grown buffer for the next line.
	if cap(b) > cap(w.scratch) {
		w.scratch = b[:0]
	}
}

func (w *Writer) writeLocked(b []byte) {
	if _, err := w.w.Write(b); err != nil {
		w.err = errors.Annotate(err, "writing trace marker")
	}
}
