// Package controlplane is the scheduler's HTTP surface: /jobs and
// /mols convert into task-channel sends and block for the reply; /nodes
// feeds the control channel; /stats and /health are read-only monitoring
// endpoints.
package controlplane

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kestrelsched/remote/internal/job"
	"github.com/kestrelsched/remote/internal/taskchan"
)

// Version is set at build time or defaults to "dev".
var Version = "dev"

// StatsProvider exposes scheduler occupancy for the /stats endpoint.
type StatsProvider interface {
	Stats() Stats
}

// Stats mirrors scheduler.Stats so this package doesn't need to import the
// scheduler package just for a JSON shape.
type Stats struct {
	IdleNodes int `json:"idle_nodes"`
	InFlight  int `json:"in_flight"`
}

// Server is the scheduler's HTTP API.
type Server struct {
	jobsTx  taskchan.Sender[job.Job, job.ComputationResult]
	molsTx  taskchan.Sender[job.Molecule, job.Computed]
	control chan<- job.Control
	stats   StatsProvider
	addr    string
	server  *http.Server
}

// NewServer builds a Server. stats may be nil, in which case /stats reports
// zero values.
func NewServer(jobsTx taskchan.Sender[job.Job, job.ComputationResult], molsTx taskchan.Sender[job.Molecule, job.Computed], control chan<- job.Control, stats StatsProvider, addr string) *Server {
	return &Server{jobsTx: jobsTx, molsTx: molsTx, control: control, stats: stats, addr: addr}
}

// Start builds the route table and serves until Shutdown is called or the
// listener fails. Mirrors http.Server's own ListenAndServe contract: returns
// http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/mols", s.handleMols)
	mux.HandleFunc("/nodes", s.handleNodes)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
		// Job runtime is unbounded, so neither timeout bounds the body of
		// a /jobs or /mols request.
		ReadTimeout:  0,
		WriteTimeout: 0,
	}

	log.Printf("controlplane: listening on %s", s.addr)
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

	result, err := s.jobsTx.Send(r.Context(), j)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleMols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var mol job.Molecule
	if err := json.NewDecoder(r.Body).Decode(&mol); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	computed, err := s.molsTx.Send(r.Context(), mol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(computed)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var addr string
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		http.Error(w, ErrInvalidNode.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.control <- job.NewAddNode(addr):
	case <-r.Context().Done():
		http.Error(w, "request canceled", http.StatusRequestTimeout)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var stats Stats
	if s.stats != nil {
		stats = s.stats.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{OK: true, Version: Version, Time: time.Now().UTC().Format(time.RFC3339)})
}
