// Package compute is the sub-process supervisor: given a Job, it
// creates a scratch working directory, writes the run script, spawns it in
// its own process session, captures stdout/stderr and writes them to files
// in the scratch directory once it exits, and resolves to stdout on success
// or a diagnostic on failure. It is the core's sole
// external collaborator for actually running user scripts.
package compute

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kestrelsched/remote/internal/job"
)

// Computation represents a Job that has been (or is about to be) run.
type Computation struct {
	job     job.Job
	wrkDir  string
	started bool
}

// Submit creates a scratch working directory for j and writes its run
// script, ready to be started with WaitForOutput.
func Submit(j job.Job) (*Computation, error) {
	wrkDir, err := os.MkdirTemp(".", "gosh-remote-")
	if err != nil {
		return nil, fmt.Errorf("compute: create scratch dir: %w", err)
	}

	c := &Computation{job: j, wrkDir: wrkDir}
	if err := c.writeRunFile(); err != nil {
		os.RemoveAll(wrkDir)
		return nil, err
	}
	return c, nil
}

// Close removes the scratch working directory. Callers should always defer
// it right after a successful Submit.
func (c *Computation) Close() error {
	return os.RemoveAll(c.wrkDir)
}

// WrkDir returns the scratch working directory for this computation.
func (c *Computation) WrkDir() string { return c.wrkDir }

func (c *Computation) writeRunFile() error {
	runFile := filepath.Join(c.wrkDir, c.job.RunFile)
	if err := os.WriteFile(runFile, []byte(c.job.Script), 0755); err != nil {
		return fmt.Errorf("compute: write run file: %w", err)
	}
	return nil
}

// WaitForOutput starts the run script in its own process session and waits
// for it to exit, returning stdout on success. On a non-zero exit it
// returns an error carrying a stderr excerpt; the caller is expected to
// translate that into a JobFailed diagnostic rather than abort the
// scheduler.
func (c *Computation) WaitForOutput(ctx context.Context) (string, error) {
	if c.started {
		return "", fmt.Errorf("compute: job %s already started", c.job.Name)
	}
	c.started = true

	runFile, err := filepath.Abs(c.job.RunPath(c.wrkDir))
	if err != nil {
		return "", fmt.Errorf("compute: resolve run file path: %w", err)
	}
	outFile := c.job.OutPath(c.wrkDir)
	errFile := c.job.ErrPath(c.wrkDir)

	// The script may have no shebang of its own (a bare Job.Script like
	// "echo hello" isn't wrapped the way RunCmd's output is), so it's run
	// through bash explicitly rather than exec'd as a binary. runFile is
	// made absolute first: cmd.Dir already chdirs into the scratch
	// directory, so a path still relative to it would resolve one
	// directory too deep.
	cmd := exec.CommandContext(ctx, "/bin/bash", runFile)
	cmd.Dir = c.wrkDir
	configureJobProc(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if err := os.WriteFile(outFile, stdout.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("compute: write out file: %w", err)
	}
	if err := os.WriteFile(errFile, stderr.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("compute: write err file: %w", err)
	}

	if runErr != nil {
		return "", fmt.Errorf("job %s failed: %w\nstderr: %s", c.job.Name, runErr, excerpt(stderr.String()))
	}
	return stdout.String(), nil
}

const excerptLimit = 4096

// excerpt trims a stderr capture down to a reasonable diagnostic size.
func excerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	return "…" + s[len(s)-excerptLimit:]
}
