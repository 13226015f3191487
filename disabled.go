//go:build noprofile

package profilez

// Enabled reports whether profiling is compiled in.
const Enabled = false

// NewProfiler returns Disabled because the binary was built with the
// noprofile tag.
func NewProfiler() Profiler {
	return Disabled{}
}
