//go:build linux

package processes

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var errStartTimeUnsupported = errors.New("process start-time inspection is not supported")

// ReadStartTimeTicks reads the process start time ticks from /proc/<pid>/stat.
func ReadStartTimeTicks(pid int) (uint64, error) {
	if pid <= 0 {
		return 0, ErrInvalidPID
	}

	raw, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, err
	}

	// comm may contain spaces and parens, so split after the last ')'.
	line := strings.TrimSpace(string(raw))
	closing := strings.LastIndex(line, ")")
	if closing < 0 || closing+1 >= len(line) {
		return 0, errors.New("unexpected /proc stat format")
	}
	fields := strings.Fields(line[closing+1:])
	if len(fields) <= 19 {
		return 0, errors.New("unexpected /proc stat field count")
	}
	return strconv.ParseUint(fields[19], 10, 64)
}
