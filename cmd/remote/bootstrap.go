package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelsched/remote/internal/freeport"
	"github.com/kestrelsched/remote/internal/lockfile"
	"github.com/kestrelsched/remote/internal/mpiprobe"
	"github.com/kestrelsched/remote/internal/workerclient"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Auto-elect this MPI rank as scheduler or worker and start it",
	Long: `bootstrap reads the MPI rank/size quadruple out of the environment.
Global rank 0 becomes the scheduler and writes its address to the lock file;
every other rank waits for that lock file to appear, reads the scheduler's
address out of it, and registers itself as a worker.`,
	RunE: runBootstrap,
}

const (
	registerAttempts = 5
	registerBackoff  = 500 * time.Millisecond
)

var (
	lockPath        string
	lockWaitSeconds float64
)

func init() {
	bootstrapCmd.Flags().StringVar(&lockPath, "lock", "", "path to the shared scheduler address lock file (must live on storage every rank can see)")
	bootstrapCmd.MarkFlagRequired("lock")
	bootstrapCmd.Flags().Float64Var(&lockWaitSeconds, "wait-seconds", 60, "how long a worker waits for the scheduler lock file to appear")

	// bootstrap registers its own --audit-db and --shutdown-grace, bound to
	// the same variables as the `server scheduler` flags, for the scheduler
	// rank to use; worker ranks ignore them. There is no --nodes here: the
	// scheduler rank's pool starts empty and fills as workers register.
	bootstrapCmd.Flags().StringVar(&auditDBPath, "audit-db", "", "path to the dispatch audit sqlite database (scheduler rank only)")
	bootstrapCmd.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 30*time.Second, "how long to wait for in-flight dispatchers after Abort (scheduler rank only)")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	view, err := mpiprobe.Probe()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	addr, err := freeport.Get()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	listenAddr = addr

	if view.IsScheduler() {
		if auditDBPath == "" {
			auditDBPath = defaultAuditDBPath()
		}
		lf, err := lockfile.Create(lockPath, addr)
		if err != nil {
			return fmt.Errorf("bootstrap: electing scheduler: %w", err)
		}
		defer lf.Close()

		log.Printf("bootstrap: rank %d/%d elected scheduler at %s", view.GlobalRank, view.GlobalSize, addr)
		return runServerScheduler(cmd, args)
	}

	log.Printf("bootstrap: rank %d/%d waiting for scheduler lock file at %s", view.GlobalRank, view.GlobalSize, lockPath)
	if err := lockfile.Wait(lockPath, lockWaitSeconds); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	schedulerAddress, err := lockfile.ReadAddress(lockPath)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	schedulerAddr = schedulerAddress

	if err := registerWithRetry(schedulerAddress, addr); err != nil {
		return fmt.Errorf("bootstrap: rank %d registering with scheduler: %w", view.GlobalRank, err)
	}
	log.Printf("bootstrap: rank %d/%d registered as worker %s with scheduler %s", view.GlobalRank, view.GlobalSize, addr, schedulerAddress)

	return runServerWorker(cmd, args)
}

// registerWithRetry calls AddNode against the scheduler a handful of times
// with a fixed backoff: the lock file can be visible before the scheduler's
// HTTP listener is actually accepting connections, since Create happens
// before controlplane.Server.Start returns.
func registerWithRetry(schedulerAddress, workerAddr string) error {
	c := workerclient.Connect(schedulerAddress)
	var lastErr error
	for attempt := 0; attempt < registerAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.AddNode(ctx, workerAddr)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(registerBackoff)
	}
	return lastErr
}

func defaultAuditDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".remote", "audit.db")
}
