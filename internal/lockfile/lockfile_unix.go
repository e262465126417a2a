//go:build !windows

package lockfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusiveNonBlocking takes an exclusive, non-blocking advisory lock
// on f using flock(2).
func lockExclusiveNonBlocking(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}
