// Package scheduler is the event loop: a single-threaded cooperative
// multiplexer owning the node pool and both interaction channels (jobs and
// molecules), spawning one dispatcher per loop iteration to carry out the
// borrow/dispatch/reply/return sequence for each request it forwards.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kestrelsched/remote/internal/audit"
	"github.com/kestrelsched/remote/internal/job"
	"github.com/kestrelsched/remote/internal/node"
	"github.com/kestrelsched/remote/internal/taskchan"
	"github.com/kestrelsched/remote/internal/workerclient"
)

const (
	defaultShutdownGrace  = 30 * time.Second
	defaultFanoutCapacity = 16
)

// Config tunes the loop. A zero Config is valid; New fills in defaults.
type Config struct {
	// ShutdownGrace bounds how long Run waits for in-flight dispatchers to
	// finish after an Abort before returning anyway.
	ShutdownGrace time.Duration
	// FanoutCapacity sizes the buffered channel the loop forwards requests
	// through to the dispatcher pool.
	FanoutCapacity int
}

func (c Config) withDefaults() Config {
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	if c.FanoutCapacity <= 0 {
		c.FanoutCapacity = defaultFanoutCapacity
	}
	return c
}

// Scheduler is the owner of the node pool and both interaction channels. It
// is single-use: Run drives it to completion once, on Abort or on its
// parent context being canceled.
type Scheduler struct {
	pool    *node.Pool
	jobsRx  *taskchan.Receiver[job.Job, job.ComputationResult]
	molsRx  *taskchan.Receiver[job.Molecule, job.Computed]
	control <-chan job.Control
	audit   *audit.Writer
	cfg     Config
	fanout  chan dispatchUnit

	// clientFor is overridable in tests to avoid real network dials.
	clientFor func(node.Node) *workerclient.Client

	mu       sync.Mutex
	inFlight int
}

// New builds a Scheduler. auditWriter may be nil.
func New(pool *node.Pool, jobsRx *taskchan.Receiver[job.Job, job.ComputationResult], molsRx *taskchan.Receiver[job.Molecule, job.Computed], control <-chan job.Control, auditWriter *audit.Writer, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		pool:    pool,
		jobsRx:  jobsRx,
		molsRx:  molsRx,
		control: control,
		audit:   auditWriter,
		cfg:     cfg,
		fanout:  make(chan dispatchUnit, cfg.FanoutCapacity),
		clientFor: func(n node.Node) *workerclient.Client {
			return workerclient.Connect(n.String())
		},
	}
}

// Stats is a point-in-time snapshot for the scheduler HTTP surface's
// /stats endpoint.
type Stats struct {
	IdleNodes int `json:"idle_nodes"`
	InFlight  int `json:"in_flight"`
}

// Stats returns a snapshot of pool occupancy.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()
	return Stats{IdleNodes: s.pool.Len(), InFlight: inFlight}
}

// Run drives the event loop until ctx is canceled or a Control.Abort is
// received on the control channel, whichever happens first. It returns nil
// in both cases; a non-nil error only results from the control channel or
// one of the two interaction channels being closed unexpectedly.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	shutdown := func() {
		cancel()
		if !waitTimeout(&wg, s.cfg.ShutdownGrace) {
			log.Printf("scheduler: shutdown grace elapsed with dispatchers still running; abandoning them")
		}
	}

	for {
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			s.runDispatcher(ctx)
		}()

		select {
		case <-done:
			// This iteration's dispatcher already finished: it either
			// completed a unit of work taken off the fan-out channel or
			// gave up because ctx was canceled. Spawn the next one and
			// keep going.

		case req, ok := <-s.jobsRx.C():
			if !ok {
				shutdown()
				return fmt.Errorf("scheduler: job interaction channel closed unexpectedly")
			}
			select {
			case s.fanout <- jobUnit{io: req}:
			case <-ctx.Done():
				req.Fail(fmt.Errorf("scheduler: shutting down"))
			}

		case req, ok := <-s.molsRx.C():
			if !ok {
				shutdown()
				return fmt.Errorf("scheduler: molecule interaction channel closed unexpectedly")
			}
			select {
			case s.fanout <- molUnit{io: req}:
			case <-ctx.Done():
				req.Fail(fmt.Errorf("scheduler: shutting down"))
			}

		case ctl, ok := <-s.control:
			if !ok {
				shutdown()
				return fmt.Errorf("scheduler: control channel closed unexpectedly")
			}
			if ctl.IsAbort() {
				log.Printf("scheduler: abort received, waiting up to %s for in-flight dispatchers", s.cfg.ShutdownGrace)
				shutdown()
				return nil
			}
			s.pool.Return(node.Node(ctl.AddNode))
			log.Printf("scheduler: node %s added to pool", ctl.AddNode)
		}

		if ctx.Err() != nil {
			shutdown()
			return nil
		}
	}
}

// runDispatcher is the per-iteration cooperative task: borrow a node, take
// one unit of work off the fan-out channel, dispatch it, and always return
// the node — in that order, even on error or cancellation.
func (s *Scheduler) runDispatcher(ctx context.Context) {
	n, err := s.pool.Borrow(ctx)
	if err != nil {
		// Canceled while waiting for a node: nothing was borrowed, nothing
		// to return. This is what lets an empty pool + Abort terminate
		// instead of blocking forever.
		return
	}

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	var item dispatchUnit
	select {
	case item = <-s.fanout:
	case <-ctx.Done():
		s.pool.Return(n)
		return
	}

	s.audit.Record("borrowed", item.jobName(), n.String(), "")
	// The worker call is detached from ctx's cancellation: an Abort stops
	// new work, but a dispatch already under way runs to completion and is
	// only bounded by the shutdown grace window in Run.
	outcome, detail := item.dispatch(context.WithoutCancel(ctx), s.clientFor(n))
	s.pool.Return(n)
	s.audit.Record(outcome, item.jobName(), n.String(), detail)
	s.audit.Record("node_returned", item.jobName(), n.String(), "")
}

// waitTimeout waits for wg with a bound, reporting whether it finished in
// time.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
