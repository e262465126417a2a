//go:build windows

package compute

import "os/exec"

// configureJobProc is a no-op on Windows, which has no equivalent of a
// Unix session: a started process is independent enough for our purposes.
func configureJobProc(cmd *exec.Cmd) {}
