package profilez

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/process"
)

var (
	processOnce sync.Once
	processID   int
	processName string
)

// currentProcess returns the pid and executable name written into trace
// metadata. Resolved once per process.
func currentProcess() (int, string) {
	processOnce.Do(func() {
		processID = os.Getpid()
		processName = filepath.Base(os.Args[0])

		p, err := process.NewProcess(int32(processID)) //nolint:gosec // pids fit in int32
		if err != nil {
			return
		}
		if name, err := p.Name(); err == nil && name != "" {
			processName = name
		}
	})
	return processID, processName
}
