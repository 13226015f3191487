//go:build !noprofile

package profilez

// Enabled reports whether profiling is compiled in.
const Enabled = true

// NewProfiler returns a Recorder. Build with -tags noprofile to get Disabled.
func NewProfiler() Profiler {
	return New()
}
