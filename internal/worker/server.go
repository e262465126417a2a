// Package worker is the worker's HTTP surface: a single endpoint that
// hands a Job to the sub-process supervisor and waits for it to finish.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/kestrelsched/remote/internal/compute"
	"github.com/kestrelsched/remote/internal/job"
)

// Server is the worker's HTTP API: one process, one node, one job at a
// time per request (the scheduler never sends this worker a second job
// while one is in flight — the node isn't returned to the pool until it
// replies).
type Server struct {
	addr   string
	server *http.Server
}

// NewServer builds a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  0,
		WriteTimeout: 0,
	}

	log.Printf("worker: listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var j job.Job
	if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.run(r.Context(), j))
}

func (s *Server) run(ctx context.Context, j job.Job) job.ComputationResult {
	c, err := compute.Submit(j)
	if err != nil {
		return job.Failed(err.Error())
	}
	defer c.Close()

	out, err := c.WaitForOutput(ctx)
	if err != nil {
		return job.Failed(err.Error())
	}
	return job.Completed(out)
}
