// Package lockfile implements the scheduler address lock file: the
// minimum-viable rendezvous between a scheduler and its workers when shared
// storage is the only medium both can see.
package lockfile

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// pollInterval is how often Wait checks for the file's existence.
const pollInterval = 100 * time.Millisecond

// LockFile owns an exclusive advisory lock on a path plus the single text
// payload written into it. At most one live LockFile exists per path per
// filesystem at a time.
type LockFile struct {
	path string
	file *os.File
}

// Create opens path for write (creating it if absent), takes an exclusive
// non-blocking advisory lock, writes message followed by a newline, and
// flushes. It fails if the lock is already held by another process.
func Create(path, message string) (*LockFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	if err := lockExclusiveNonBlocking(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: %s is already locked: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: truncate %s: %w", path, err)
	}
	if _, err := f.WriteAt([]byte(message+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: sync %s: %w", path, err)
	}

	return &LockFile{path: path, file: f}, nil
}

// Close unlocks and closes the file, then best-effort unlinks path.
func (l *LockFile) Close() error {
	err := l.file.Close()
	os.Remove(l.path)
	return err
}

// Wait polls for path's existence every 100ms, succeeding as soon as it
// appears, and failing if it hasn't appeared within timeoutSeconds.
func Wait(path string, timeoutSeconds float64) error {
	deadline := time.Now().Add(time.Duration(timeoutSeconds * float64(time.Second)))
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lockfile: %s did not appear within %.1fs", path, timeoutSeconds)
		}
		time.Sleep(pollInterval)
	}
}

// ReadAddress reads and trims the single-line payload from an existing lock
// file at path, used by a worker once Wait has succeeded.
func ReadAddress(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("lockfile: read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
