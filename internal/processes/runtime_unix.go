//go:build unix

package processes

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Inspect evaluates whether a recorded process is still running.
func Inspect(record Record) RuntimeState {
	state := RuntimeState{Status: StatusUnknown}
	if record.PID <= 0 {
		state.CheckError = ErrInvalidPID.Error()
		return state
	}

	exists, err := processExists(record.PID)
	if err != nil {
		state.CheckError = err.Error()
		return state
	}
	if !exists {
		state.Status = StatusExited
		return state
	}

	state.Status = StatusRunning
	state.Running = true

	startTicks, err := ReadStartTimeTicks(record.PID)
	if err != nil {
		if !errors.Is(err, errStartTimeUnsupported) {
			state.CheckError = err.Error()
		}
		return state
	}
	state.ObservedStartTimeTicks = startTicks

	if record.StartTimeTicks > 0 && startTicks > 0 && startTicks != record.StartTimeTicks {
		state.Status = StatusStale
		state.Running = false
	}
	return state
}

// Terminate sends SIGTERM to the process group led by pid and waits up to
// timeout for the leader to exit.
func Terminate(pid int, timeout time.Duration) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	if err := SignalTerminate(pid); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		exists, err := processExists(pid)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d: %w (%s)", pid, ErrStopTimeout, timeout)
		}
		time.Sleep(defaultProbeInterval)
	}
}

// SignalTerminate sends SIGTERM to the process group led by pid without
// waiting. A process that is already gone is not an error.
func SignalTerminate(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	if err := signalGroup(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// Kill sends SIGKILL to the process group led by pid.
func Kill(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	if err := signalGroup(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// signalGroup signals the group first and falls back to the single process
// when pid does not lead a group.
func signalGroup(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err == nil || !errors.Is(err, unix.ESRCH) {
		return err
	}
	return unix.Kill(pid, sig)
}

func processExists(pid int) (bool, error) {
	if pid <= 0 {
		return false, ErrInvalidPID
	}

	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, err
	}
}
