package compute

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/kestrelsched/remote/internal/job"
)

func TestWaitForOutputSuccess(t *testing.T) {
	j := job.New("echo hello")
	c, err := Submit(j)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer c.Close()

	out, err := c.WaitForOutput(context.Background())
	if err != nil {
		t.Fatalf("wait for output: %v", err)
	}
	if out != "hello\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWaitForOutputFailure(t *testing.T) {
	j := job.New("echo boom 1>&2; exit 1")
	c, err := Submit(j)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer c.Close()

	_, err = c.WaitForOutput(context.Background())
	if err == nil {
		t.Fatal("expected a non-zero exit to produce an error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr excerpt in error, got: %v", err)
	}
}

func TestCloseRemovesScratchDir(t *testing.T) {
	j := job.New("pwd")
	c, err := Submit(j)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	wrkDir := c.WrkDir()
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(wrkDir); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir %s to be removed, stat err: %v", wrkDir, err)
	}
}

func TestWaitForOutputRejectsDoubleStart(t *testing.T) {
	j := job.New("pwd")
	c, err := Submit(j)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer c.Close()

	if _, err := c.WaitForOutput(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := c.WaitForOutput(context.Background()); err == nil {
		t.Fatal("expected second WaitForOutput to fail")
	}
}
