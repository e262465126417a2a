package worker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kestrelsched/remote/internal/job"
)

func newTestMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)
	return mux
}

func TestJobsEndpointReturnsCompleted(t *testing.T) {
	s := &Server{}
	srv := httptest.NewServer(newTestMux(s))
	defer srv.Close()

	j := job.New("echo hi")
	body, _ := json.Marshal(j)
	resp, err := http.Post(srv.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var result job.ComputationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.IsFailed() || result.String() != "hi\n" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestJobsEndpointReturnsFailedOnNonZeroExit(t *testing.T) {
	s := &Server{}
	srv := httptest.NewServer(newTestMux(s))
	defer srv.Close()

	j := job.New("exit 1")
	body, _ := json.Marshal(j)
	resp, err := http.Post(srv.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var result job.ComputationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.IsFailed() {
		t.Fatal("expected a JobFailed result")
	}
}

func TestJobsEndpointRejectsNonPost(t *testing.T) {
	s := &Server{}
	srv := httptest.NewServer(newTestMux(s))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
