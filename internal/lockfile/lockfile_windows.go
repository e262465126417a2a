//go:build windows

package lockfile

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockExclusiveNonBlocking takes an exclusive, non-blocking advisory lock
// on f using LockFileEx, the Windows counterpart of flock(2).
func lockExclusiveNonBlocking(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1, 0,
		ol,
	)
}
