//go:build !linux

package processes

import (
	"fmt"
	"runtime"
)

var errStartTimeUnsupported = fmt.Errorf("process start-time inspection is not supported on %s", runtime.GOOS)

// ReadStartTimeTicks is only implemented on Linux.
func ReadStartTimeTicks(pid int) (uint64, error) {
	if pid <= 0 {
		return 0, ErrInvalidPID
	}
	return 0, errStartTimeUnsupported
}
