//go:build unix

package supervisor

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so signals aimed at the
// terminal do not reach it and shutdown can signal the whole group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
