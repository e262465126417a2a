//go:build !windows

package compute

import (
	"os/exec"
	"syscall"
)

// configureJobProc runs the job in its own session so it survives the
// worker process being signaled, and so the whole process group can be
// cleaned up together if the job needs to be torn down.
func configureJobProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
