package processes

import (
	"errors"
	"time"
)

const (
	defaultStopTimeout        = 5 * time.Second
	defaultStartProbeWait     = 500 * time.Millisecond
	defaultProbeInterval      = 100 * time.Millisecond
	defaultStartProbeInterval = 20 * time.Millisecond
)

var (
	// ErrInvalidPID is returned for non-positive PIDs.
	ErrInvalidPID = errors.New("invalid process pid")
	// ErrStopTimeout is returned by Terminate when the process outlives the
	// grace period.
	ErrStopTimeout = errors.New("process did not exit within the grace period")
)

// Status represents the runtime state of a stored record.
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
	StatusStale   Status = "stale"
	StatusUnknown Status = "unknown"
)

// RuntimeState captures live process status for a stored record.
type RuntimeState struct {
	Status                 Status `json:"status" yaml:"status"`
	Running                bool   `json:"running" yaml:"running"`
	ObservedStartTimeTicks uint64 `json:"observed_start_time_ticks,omitempty" yaml:"observed_start_time_ticks,omitempty"`
	CheckError             string `json:"check_error,omitempty" yaml:"check_error,omitempty"`
}

// WaitForStartTimeTicks polls ReadStartTimeTicks until it yields a value or
// timeout passes. It returns 0 where start times are unavailable.
func WaitForStartTimeTicks(pid int, timeout time.Duration) uint64 {
	if pid <= 0 {
		return 0
	}
	if timeout <= 0 {
		timeout = defaultStartProbeWait
	}

	deadline := time.Now().Add(timeout)
	for {
		startTicks, err := ReadStartTimeTicks(pid)
		if err == nil && startTicks > 0 {
			return startTicks
		}
		if errors.Is(err, errStartTimeUnsupported) || time.Now().After(deadline) {
			return 0
		}
		time.Sleep(defaultStartProbeInterval)
	}
}
