package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"

	"github.com/kong/officectl/internal/processes"
)

// Spec describes a child process to launch.
type Spec struct {
	Role string
	// Port is the liveness port the child is expected to bind.
	Port int
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Command renders s as argv for logs and records.
func (s Spec) Command() []string {
	return append([]string{s.Path}, s.Args...)
}

// Handle is a launched child owned by a Registry.
type Handle interface {
	Role() string
	PID() int
	Spec() Spec
	// Done is closed once the child has exited and been reaped.
	Done() <-chan struct{}
	Exited() bool
	// Terminate asks the child's process group to exit.
	Terminate() error
	// Kill forcibly ends the child's process group.
	Kill() error
}

// Launcher starts processes from specs.
type Launcher interface {
	Launch(spec Spec) (Handle, error)
}

// ExecLauncher starts real OS processes, detached into their own process
// group, with both output streams sent to Output.
type ExecLauncher struct {
	Output io.Writer
}

func (l ExecLauncher) Launch(spec Spec) (Handle, error) {
	return Start(spec, l.Output)
}

// ManagedProcess is a child started by this process.
type ManagedProcess struct {
	spec    Spec
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

var _ Handle = (*ManagedProcess)(nil)

// Start launches spec and begins reaping it in the background.
func Start(spec Spec, output io.Writer) (*ManagedProcess, error) {
	if spec.Path == "" {
		return nil, errors.New("launch: executable path is required")
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	if output == nil {
		output = io.Discard
	}
	cmd.Stdout = output
	cmd.Stderr = output
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Path, err)
	}

	p := &ManagedProcess{
		spec: Spec{
			Role: spec.Role,
			Port: spec.Port,
			Path: spec.Path,
			Args: slices.Clone(spec.Args),
			Env:  slices.Clone(spec.Env),
			Dir:  spec.Dir,
		},
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *ManagedProcess) Role() string { return p.spec.Role }

func (p *ManagedProcess) PID() int { return p.cmd.Process.Pid }

func (p *ManagedProcess) Spec() Spec { return p.spec }

func (p *ManagedProcess) Done() <-chan struct{} { return p.done }

func (p *ManagedProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the wait error once Done is closed.
func (p *ManagedProcess) Err() error {
	<-p.done
	return p.waitErr
}

func (p *ManagedProcess) Terminate() error {
	if p.Exited() {
		return nil
	}
	return processes.SignalTerminate(p.PID())
}

func (p *ManagedProcess) Kill() error {
	if p.Exited() {
		return nil
	}
	return processes.Kill(p.PID())
}
