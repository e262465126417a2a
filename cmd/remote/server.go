package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelsched/remote/internal/audit"
	"github.com/kestrelsched/remote/internal/controlplane"
	"github.com/kestrelsched/remote/internal/job"
	"github.com/kestrelsched/remote/internal/node"
	"github.com/kestrelsched/remote/internal/scheduler"
	"github.com/kestrelsched/remote/internal/taskchan"
	"github.com/kestrelsched/remote/internal/worker"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run a scheduler or worker process",
}

var serverSchedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduler: owns the node pool and the HTTP control plane",
	RunE:  runServerScheduler,
}

var serverWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker: accepts jobs on its HTTP surface and runs them locally",
	RunE:  runServerWorker,
}

var (
	listenAddr    string
	auditDBPath   string
	initialNodes  []string
	shutdownGrace time.Duration
)

func init() {
	serverCmd.AddCommand(serverSchedulerCmd, serverWorkerCmd)

	homeDir, _ := os.UserHomeDir()
	defaultAuditDB := filepath.Join(homeDir, ".remote", "audit.db")

	serverSchedulerCmd.Flags().StringVar(&listenAddr, "address", "127.0.0.1:9000", "address to listen on")
	serverSchedulerCmd.Flags().StringSliceVar(&initialNodes, "nodes", nil, "initial worker addresses (host:port, comma-separated)")
	serverSchedulerCmd.Flags().StringVar(&auditDBPath, "audit-db", defaultAuditDB, "path to the dispatch audit sqlite database")
	serverSchedulerCmd.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 30*time.Second, "how long to wait for in-flight dispatchers after Abort")

	serverWorkerCmd.Flags().StringVar(&listenAddr, "address", "127.0.0.1:9100", "address to listen on")
}

// runServerScheduler wires the node pool, the two task channels, the
// scheduler loop, and the HTTP control plane together, then blocks until a
// signal or an HTTP server error. Also the entry point bootstrap.go calls
// once it has elected this rank as the scheduler.
func runServerScheduler(cmd *cobra.Command, args []string) error {
	w, err := audit.Open(auditDBPath)
	if err != nil {
		return err
	}
	defer w.Close()

	nodes := make([]node.Node, 0, len(initialNodes))
	for _, n := range initialNodes {
		nodes = append(nodes, node.Node(n))
	}
	pool := node.New(nodes)

	jobsCh := taskchan.New[job.Job, job.ComputationResult](1)
	jobsRx, jobsTx := taskchan.Split(jobsCh)
	molsCh := taskchan.New[job.Molecule, job.Computed](1)
	molsRx, molsTx := taskchan.Split(molsCh)
	control := make(chan job.Control, 16)

	sched := scheduler.New(pool, jobsRx, molsRx, control, w, scheduler.Config{ShutdownGrace: shutdownGrace})
	httpServer := controlplane.NewServer(jobsTx, molsTx, control, schedulerStatsAdapter{sched}, listenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := httpServer.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("server: received %v, aborting scheduler", sig)
		control <- job.NewAbort()
	case err := <-serverErr:
		if err != nil {
			cancel()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: http shutdown error: %v", err)
	}

	if err := <-schedDone; err != nil {
		log.Printf("server: scheduler run error: %v", err)
	}
	return nil
}

// runServerWorker is also the entry point bootstrap.go calls once it has
// elected this rank as a worker.
func runServerWorker(cmd *cobra.Command, args []string) error {
	srv := worker.NewServer(listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("worker: received %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// schedulerStatsAdapter satisfies controlplane.StatsProvider over a
// *scheduler.Scheduler. The two Stats types are structurally identical but
// distinct named types, so Go won't let the scheduler satisfy the interface
// directly — this is the one-line conversion that bridges them.
type schedulerStatsAdapter struct{ s *scheduler.Scheduler }

func (a schedulerStatsAdapter) Stats() controlplane.Stats {
	st := a.s.Stats()
	return controlplane.Stats{IdleNodes: st.IdleNodes, InFlight: st.InFlight}
}
