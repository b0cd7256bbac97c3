//go:build !unix

package processes

import (
	"os"
	"time"
)

// Inspect is not implemented off unix.
func Inspect(record Record) RuntimeState {
	state := RuntimeState{Status: StatusUnknown}
	if record.PID <= 0 {
		state.CheckError = ErrInvalidPID.Error()
	}
	return state
}

// Terminate has no graceful signal off unix, so it kills immediately.
func Terminate(pid int, _ time.Duration) error {
	return Kill(pid)
}

// SignalTerminate kills pid; there is no catchable termination signal.
func SignalTerminate(pid int) error {
	return Kill(pid)
}

// Kill terminates pid.
func Kill(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}
