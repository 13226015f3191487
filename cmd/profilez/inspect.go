package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/zoobzio/profilez"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <trace-file>",
	Short: "Summarize a trace file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "", "trace format (json or msgpack); guessed from the extension when empty")
	inspectCmd.Flags().Int("top", 10, "number of longest spans to list")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	formatName, _ := cmd.Flags().GetString("format")
	top, _ := cmd.Flags().GetInt("top")

	if formatName == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".msgpack", ".mp":
			formatName = string(profilez.FormatMsgpack)
		default:
			formatName = string(profilez.FormatJSON)
		}
	}
	format, err := profilez.ParseFormat(formatName)
	if err != nil {
		return errors.Trace(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "reading %s", path)
	}
	trace, err := profilez.Decode(data, format)
	if err != nil {
		return errors.Trace(err)
	}

	printSummary(cmd.OutOrStdout(), trace, top)
	return nil
}

// span is one paired begin/end, synchronous or async.
type span struct {
	name     string
	phase    profilez.Phase
	duration float64
}

func printSummary(w io.Writer, trace *profilez.Trace, top int) {
	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	value := color.New(color.FgYellow).SprintFunc()

	counts := make(map[profilez.Phase]int)
	for _, e := range trace.TraceEvents {
		counts[e.Phase]++
	}
	phases := make([]string, 0, len(counts))
	for p := range counts {
		phases = append(phases, string(p))
	}
	sort.Strings(phases)

	fmt.Fprintln(w, heading("records by phase"))
	for _, p := range phases {
		fmt.Fprintf(w, "  %-2s %s\n", p, value(counts[profilez.Phase(p)]))
	}

	spans := pairSpans(trace)
	sort.Slice(spans, func(i, j int) bool { return spans[i].duration > spans[j].duration })
	if top > len(spans) {
		top = len(spans)
	}

	fmt.Fprintln(w, heading("longest spans"))
	for _, s := range spans[:top] {
		fmt.Fprintf(w, "  %-30s %s %sus\n", s.name, s.phase, value(fmt.Sprintf("%.1f", s.duration)))
	}
	if session := trace.OtherData["session"]; session != "" {
		fmt.Fprintf(w, "%s %s\n", heading("session"), session)
	}
}

// pairSpans matches B/E records per thread and b/e records per id.
func pairSpans(trace *profilez.Trace) []span {
	stacks := make(map[uint64][]profilez.TraceEvent)
	open := make(map[uint64]profilez.TraceEvent)
	var out []span

	for _, e := range trace.TraceEvents {
		switch e.Phase {
		case profilez.PhaseBegin:
			stacks[e.ThreadID] = append(stacks[e.ThreadID], e)
		case profilez.PhaseEnd:
			stack := stacks[e.ThreadID]
			if len(stack) == 0 {
				continue
			}
			begin := stack[len(stack)-1]
			stacks[e.ThreadID] = stack[:len(stack)-1]
			out = append(out, span{name: begin.Name, phase: profilez.PhaseBegin, duration: e.Timestamp - begin.Timestamp})
		case profilez.PhaseAsyncBegin:
			open[e.ID] = e
		case profilez.PhaseAsyncEnd:
			begin, ok := open[e.ID]
			if !ok {
				continue
			}
			delete(open, e.ID)
			out = append(out, span{name: begin.Name, phase: profilez.PhaseAsyncBegin, duration: e.Timestamp - begin.Timestamp})
		}
	}
	return out
}
